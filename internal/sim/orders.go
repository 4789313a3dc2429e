package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/Utorque/navette-mapf/internal/core"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderAssigned
	OrderCompleted
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderAssigned:
		return "assigned"
	case OrderCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Order is a transport request between two rooms: visit From, then
// deliver to To.
type Order struct {
	ID          int
	From, To    string
	Status      OrderStatus
	RequestTime int

	// Robot and StartTime are set while the order is assigned.
	Robot     core.AgentID
	StartTime int

	// CompletionTicks is the request-to-delivery duration, set once
	// the order completes.
	CompletionTicks int
}

// OrderStats summarizes a manager's order history.
type OrderStats struct {
	Pending            int     `json:"pending"`
	Assigned           int     `json:"assigned"`
	Completed          int     `json:"completed"`
	AvgCompletionTicks float64 `json:"avg_completion_ticks"`
}

// OrderManager owns the order queue: it generates random transport
// requests, matches pending orders to idle robots, and keeps completion
// statistics. IDs are sequential so runs with the same seed produce the
// same order stream.
type OrderManager struct {
	plan   *core.FloorPlan
	rng    *rand.Rand
	active []*Order
	done   []*Order
	nextID int
}

// NewOrderManager creates a manager drawing rooms from the given floor
// plan with a seeded source.
func NewOrderManager(plan *core.FloorPlan, seed int64) *OrderManager {
	return &OrderManager{
		plan:   plan,
		rng:    rand.New(rand.NewSource(seed)),
		nextID: 1,
	}
}

// Generate queues a random order between two distinct rooms.
func (m *OrderManager) Generate(now int) *Order {
	rooms := m.plan.Rooms()
	from := rooms[m.rng.Intn(len(rooms))]

	rest := make([]string, 0, len(rooms)-1)
	for _, room := range rooms {
		if room != from {
			rest = append(rest, room)
		}
	}
	to := rest[m.rng.Intn(len(rest))]

	return m.queue(from, to, now)
}

// Inject queues an order for a caller-chosen room pair.
func (m *OrderManager) Inject(from, to string, now int) (*Order, error) {
	if _, ok := m.plan.RoomPosition(from); !ok {
		return nil, fmt.Errorf("orders: unknown room %q", from)
	}
	if _, ok := m.plan.RoomPosition(to); !ok {
		return nil, fmt.Errorf("orders: unknown room %q", to)
	}
	if from == to {
		return nil, fmt.Errorf("orders: %q to itself", from)
	}
	return m.queue(from, to, now), nil
}

func (m *OrderManager) queue(from, to string, now int) *Order {
	o := &Order{
		ID:          m.nextID,
		From:        from,
		To:          to,
		Status:      OrderPending,
		RequestTime: now,
	}
	m.nextID++
	m.active = append(m.active, o)
	return o
}

// Pending returns the unassigned orders, oldest first.
func (m *OrderManager) Pending() []*Order {
	return m.filter(OrderPending)
}

// Assigned returns the orders currently being served, oldest first.
func (m *OrderManager) Assigned() []*Order {
	return m.filter(OrderAssigned)
}

func (m *OrderManager) filter(status OrderStatus) []*Order {
	var out []*Order
	for _, o := range m.active {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Assign hands the order to a robot.
func (m *OrderManager) Assign(o *Order, robot core.AgentID, now int) {
	o.Status = OrderAssigned
	o.Robot = robot
	o.StartTime = now
}

// Requeue puts an assigned order back in the pending queue, keeping its
// original request time.
func (m *OrderManager) Requeue(o *Order) {
	o.Status = OrderPending
	o.Robot = 0
	o.StartTime = 0
}

// Complete marks the order delivered at the given tick.
func (m *OrderManager) Complete(o *Order, now int) {
	o.Status = OrderCompleted
	o.CompletionTicks = now - o.RequestTime
	for i, a := range m.active {
		if a == o {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	m.done = append(m.done, o)
}

// ByRobot returns the order the robot is serving, or nil.
func (m *OrderManager) ByRobot(robot core.AgentID) *Order {
	for _, o := range m.active {
		if o.Status == OrderAssigned && o.Robot == robot {
			return o
		}
	}
	return nil
}

// BestRobot picks the candidate closest to the order's pickup room,
// breaking ties by priority and then by ID. Returns nil when there are
// no candidates.
func (m *OrderManager) BestRobot(o *Order, robots []*Robot) *Robot {
	pickup, ok := m.plan.RoomPosition(o.From)
	if !ok || len(robots) == 0 {
		return nil
	}

	ranked := make([]*Robot, len(robots))
	copy(ranked, robots)
	sort.Slice(ranked, func(i, j int) bool {
		di := m.plan.Heuristic(ranked[i].Pos, pickup)
		dj := m.plan.Heuristic(ranked[j].Pos, pickup)
		if di != dj {
			return di < dj
		}
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked[0]
}

// Stats summarizes the manager's state.
func (m *OrderManager) Stats() OrderStats {
	st := OrderStats{Completed: len(m.done)}
	for _, o := range m.active {
		if o.Status == OrderPending {
			st.Pending++
		} else {
			st.Assigned++
		}
	}
	if len(m.done) > 0 {
		total := 0
		for _, o := range m.done {
			total += o.CompletionTicks
		}
		st.AvgCompletionTicks = float64(total) / float64(len(m.done))
	}
	return st
}
