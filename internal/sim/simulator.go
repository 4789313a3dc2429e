// Package sim runs the discrete-tick order simulation on a corridor
// floor plan: random transport orders between rooms, assignment to the
// nearest idle robot, route planning through the space-time planner,
// and a per-tick collision guard that holds lower-priority robots when
// committed routes have gone stale.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Utorque/navette-mapf/internal/algo"
	"github.com/Utorque/navette-mapf/internal/core"
	"github.com/Utorque/navette-mapf/internal/logger"
)

// Config configures a simulation run.
type Config struct {
	// Plan is the world the robots drive on.
	Plan *core.FloorPlan

	// Agents seed the robot fleet: ID, start position and priority.
	Agents []*core.Agent

	// Horizon and NodeCap bound every search; zero keeps the planner
	// defaults.
	Horizon int
	NodeCap int

	// Seed drives order generation.
	Seed int64

	// OrderRate is the probability of a new random order per tick.
	OrderRate float64

	// ReplanAfterHolds replans the whole fleet once a robot has been
	// held that many ticks in a row. Zero disables the recovery.
	ReplanAfterHolds int
}

// DefaultConfig returns the standard simulation parameters. Plan and
// Agents must be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		Horizon:          algo.DefaultHorizon,
		NodeCap:          algo.DefaultNodeCap,
		Seed:             42,
		OrderRate:        0.1,
		ReplanAfterHolds: 3,
	}
}

// Metrics collects counters over a run. RuntimeConflicts counts
// tripwire hits, robots overlapping or committed routes colliding, and
// stays zero as long as planner and guard agree.
type Metrics struct {
	RunID              string  `json:"run_id"`
	Ticks              int     `json:"ticks"`
	OrdersGenerated    int     `json:"orders_generated"`
	OrdersAssigned     int     `json:"orders_assigned"`
	OrdersCompleted    int     `json:"orders_completed"`
	OrdersPending      int     `json:"orders_pending"`
	AvgCompletionTicks float64 `json:"avg_completion_ticks"`
	Holds              int     `json:"holds"`
	Relocations        int     `json:"relocations"`
	FailedRelocations  int     `json:"failed_relocations"`
	FailedPlans        int     `json:"failed_plans"`
	BatchReplans       int     `json:"batch_replans"`
	RuntimeConflicts   int     `json:"runtime_conflicts"`
}

// Simulator advances a robot fleet tick by tick. Positions and
// remaining routes always describe the current tick, so every planning
// call inside a tick sees a consistent snapshot.
type Simulator struct {
	mu sync.Mutex

	runID            string
	plan             *core.FloorPlan
	planner          *algo.Planner
	orders           *OrderManager
	robots           []*Robot
	rng              *rand.Rand
	orderRate        float64
	replanAfterHolds int

	tick    int
	metrics Metrics
	log     zerolog.Logger
}

// NewSimulator builds a simulator from the config.
func NewSimulator(cfg Config) (*Simulator, error) {
	if cfg.Plan == nil {
		return nil, errors.New("sim: floor plan required")
	}
	if len(cfg.Agents) == 0 {
		return nil, errors.New("sim: at least one robot required")
	}

	planner := algo.NewPlanner(cfg.Plan)
	if cfg.Horizon > 0 {
		planner.Horizon = cfg.Horizon
	}
	if cfg.NodeCap > 0 {
		planner.NodeCap = cfg.NodeCap
	}

	robots := make([]*Robot, len(cfg.Agents))
	for i, a := range cfg.Agents {
		if !cfg.Plan.IsValid(a.Pos) {
			return nil, fmt.Errorf("sim: robot %d starts on invalid cell %v", a.ID, a.Pos)
		}
		robots[i] = &Robot{ID: a.ID, Priority: a.Priority, Pos: a.Pos, Status: StatusIdle}
	}

	runID := uuid.New().String()[:8]
	return &Simulator{
		runID:            runID,
		plan:             cfg.Plan,
		planner:          planner,
		orders:           NewOrderManager(cfg.Plan, cfg.Seed),
		robots:           robots,
		rng:              rand.New(rand.NewSource(cfg.Seed)),
		orderRate:        cfg.OrderRate,
		replanAfterHolds: cfg.ReplanAfterHolds,
		metrics:          Metrics{RunID: runID},
		log:              logger.Get().With().Str("run_id", runID).Logger(),
	}, nil
}

// Run advances the simulation the given number of ticks, stopping early
// if the context is cancelled.
func (s *Simulator) Run(ctx context.Context, ticks int) (Metrics, error) {
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return s.Metrics(), ctx.Err()
		default:
		}
		s.Step()
	}
	return s.Metrics(), nil
}

// Step advances the world by one tick: maybe a new order, one
// assignment attempt, then movement under the collision guard.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.orderRate {
		o := s.orders.Generate(s.tick)
		s.metrics.OrdersGenerated++
		s.log.Info().Int("order", o.ID).Str("from", o.From).Str("to", o.To).Msg("order received")
	}
	s.assignOrders()
	s.moveRobots()
}

// InjectOrder queues a transport order between two named rooms.
func (s *Simulator) InjectOrder(from, to string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orders.Inject(from, to, s.tick)
	if err != nil {
		return nil, err
	}
	s.metrics.OrdersGenerated++
	s.log.Info().Int("order", o.ID).Str("from", from).Str("to", to).Msg("order injected")
	return o, nil
}

// ReplanAll throws away every committed route and replans the whole
// fleet in one batch pass.
func (s *Simulator) ReplanAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replanAll()
}

// Metrics returns a copy of the current counters, order statistics
// folded in.
func (s *Simulator) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.metrics
	st := s.orders.Stats()
	m.OrdersCompleted = st.Completed
	m.OrdersPending = st.Pending
	m.AvgCompletionTicks = st.AvgCompletionTicks
	return m
}

// ExportMetrics writes the current metrics to a JSON file.
func (s *Simulator) ExportMetrics(path string) error {
	data, err := json.MarshalIndent(s.Metrics(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// assignOrders serves the oldest assignable pending order. Scanning
// past stuck orders matters: an order whose route is pinned shut by an
// idle robot frees up once that robot gets work of its own, so the
// robot behind the jam must stay eligible for later orders.
func (s *Simulator) assignOrders() {
	for _, order := range s.orders.Pending() {
		if s.tryAssign(order) {
			return
		}
	}
}

// tryAssign attempts to serve one order: pick the nearest idle robot,
// clear idle robots off the order's access cells, then commit the
// pickup and delivery legs spliced at the pickup cell. Reports whether
// the order was assigned; on failure it stays pending for a retry.
func (s *Simulator) tryAssign(order *Order) bool {
	var idle []*Robot
	for _, r := range s.robots {
		if r.Status == StatusIdle {
			idle = append(idle, r)
		}
	}
	if len(idle) == 0 {
		return false
	}

	pickup, _ := s.plan.RoomPosition(order.From)
	delivery, _ := s.plan.RoomPosition(order.To)
	carrier := s.orders.BestRobot(order, idle)

	// An idle robot parked on either room, or on the corridor cell
	// below it, pins the route shut. The carrier clears its own cell
	// by driving off; everyone else is sent away first.
	access := []core.Position{
		pickup, s.plan.Corridor(pickup.Col),
		delivery, s.plan.Corridor(delivery.Col),
	}
	avoid := make(map[core.Position]bool, len(access))
	for _, cell := range access {
		avoid[cell] = true
	}
	for _, cell := range access {
		blocker := s.robotAt(cell)
		if blocker == nil || blocker == carrier || blocker.Status != StatusIdle {
			continue
		}
		if !s.relocate(blocker, avoid) {
			s.metrics.FailedRelocations++
			s.log.Warn().Int("order", order.ID).Int("robot", int(blocker.ID)).
				Msg("no relocation target; order stays pending")
			return false
		}
	}

	oracle := algo.NewPathListOracle(s.otherPaths(carrier.ID), s.tick)
	toPickup, err := algo.Search(s.plan, oracle, carrier.ID, carrier.Pos, pickup,
		s.tick, s.planner.Horizon, s.planner.NodeCap)
	if err != nil {
		s.metrics.FailedPlans++
		s.log.Warn().Err(err).Int("order", order.ID).Msg("pickup leg failed; order stays pending")
		return false
	}
	toDelivery, err := algo.Search(s.plan, oracle, carrier.ID, pickup, delivery,
		s.tick+len(toPickup)-1, s.planner.Horizon, s.planner.NodeCap)
	if err != nil {
		s.metrics.FailedPlans++
		s.log.Warn().Err(err).Int("order", order.ID).Msg("delivery leg failed; order stays pending")
		return false
	}

	// Splice at the pickup cell: the pickup leg ends where the
	// delivery leg starts.
	route := make(core.Path, 0, len(toPickup)-1+len(toDelivery))
	route = append(route, toPickup[:len(toPickup)-1]...)
	route = append(route, toDelivery...)

	carrier.follow(route, StatusMoving, []core.Position{pickup, delivery})
	s.orders.Assign(order, carrier.ID, s.tick)
	s.metrics.OrdersAssigned++
	s.log.Info().Int("order", order.ID).Str("from", order.From).Str("to", order.To).
		Int("robot", int(carrier.ID)).Int("steps", len(route)-1).Msg("order assigned")
	s.auditRoutes("assign")
	return true
}

// relocate sends an idle robot off the cells in avoid, trying the best
// parking spots first. Reports whether a route was committed.
func (s *Simulator) relocate(r *Robot, avoid map[core.Position]bool) bool {
	others := s.otherPaths(r.ID)
	for _, goal := range s.relocationTargets(r.Pos, avoid) {
		path, err := s.planner.PlanAgent(r.agentForGoal(goal), others, s.tick)
		if err != nil {
			continue
		}
		r.follow(path, StatusRelocating, []core.Position{goal})
		s.metrics.Relocations++
		s.log.Info().Int("robot", int(r.ID)).Str("to", s.plan.LocationName(goal)).Msg("relocating")
		return true
	}
	return false
}

// relocationTargets lists candidate parking cells reachable from pos,
// rooms before corridor cells (a robot parked in the corridor blocks
// the only artery), nearer before farther. Cells in avoid and cells
// under a robot are skipped.
func (s *Simulator) relocationTargets(pos core.Position, avoid map[core.Position]bool) []core.Position {
	occupied := make(map[core.Position]bool, len(s.robots))
	for _, r := range s.robots {
		occupied[r.Pos] = true
	}

	type candidate struct {
		pos  core.Position
		dist int
	}
	dist := map[core.Position]int{pos: 0}
	queue := []core.Position{pos}
	var cands []candidate
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, mv := range s.plan.Neighbors(cur) {
			if mv.To == cur {
				continue
			}
			if _, seen := dist[mv.To]; seen {
				continue
			}
			dist[mv.To] = dist[cur] + 1
			queue = append(queue, mv.To)
			if !avoid[mv.To] && !occupied[mv.To] {
				cands = append(cands, candidate{pos: mv.To, dist: dist[mv.To]})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		ri, rj := s.plan.IsRoom(cands[i].pos), s.plan.IsRoom(cands[j].pos)
		if ri != rj {
			return ri
		}
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].pos.Less(cands[j].pos)
	})

	out := make([]core.Position, len(cands))
	for i, c := range cands {
		out[i] = c.pos
	}
	return out
}

// moveDecision is the guard's verdict for one robot and one tick.
type moveDecision int

const (
	moveUndecided moveDecision = iota
	moveGranted
	moveHeld
)

// resolveMoves decides which robots step this tick. Contenders for the
// same cell go to the lowest (priority, ID); a robot may only enter a
// cell whose occupant leaves in the same tick, so follower chains move
// in lockstep while swaps and rotations are frozen whole.
func (s *Simulator) resolveMoves() map[core.AgentID]moveDecision {
	occupant := make(map[core.Position]*Robot, len(s.robots))
	intents := make(map[core.AgentID]core.Position)
	claims := make(map[core.Position][]*Robot)
	var movers []*Robot
	for _, r := range s.robots {
		occupant[r.Pos] = r
		if r.moving() {
			movers = append(movers, r)
			next := r.nextPos()
			intents[r.ID] = next
			claims[next] = append(claims[next], r)
		}
	}

	winner := make(map[core.Position]*Robot, len(claims))
	for cell, contenders := range claims {
		w := contenders[0]
		for _, r := range contenders[1:] {
			if r.Priority < w.Priority || (r.Priority == w.Priority && r.ID < w.ID) {
				w = r
			}
		}
		winner[cell] = w
	}

	decisions := make(map[core.AgentID]moveDecision, len(movers))
	for changed := true; changed; {
		changed = false
		for _, r := range movers {
			if decisions[r.ID] != moveUndecided {
				continue
			}
			next := intents[r.ID]
			if winner[next] != r {
				decisions[r.ID] = moveHeld
				changed = true
				continue
			}
			occ := occupant[next]
			switch {
			case occ == nil || occ == r:
				// Free cell, or a planned wait on the robot's own cell.
				decisions[r.ID] = moveGranted
				changed = true
			case !occ.moving() || decisions[occ.ID] == moveHeld || intents[occ.ID] == next:
				// The occupant is staying.
				decisions[r.ID] = moveHeld
				changed = true
			case decisions[occ.ID] == moveGranted:
				// The occupant vacates in this tick.
				decisions[r.ID] = moveGranted
				changed = true
			}
			// Occupant still undecided: settle in a later round.
		}
	}
	// Leftover undecideds form dependency cycles (swaps, rotations);
	// nobody in a cycle moves.
	for _, r := range movers {
		if decisions[r.ID] == moveUndecided {
			decisions[r.ID] = moveHeld
		}
	}
	return decisions
}

// moveRobots applies the guard's verdicts, advances the clock, settles
// finished routes, and replans the fleet when routes have gone stale.
func (s *Simulator) moveRobots() {
	decisions := s.resolveMoves()
	for _, r := range s.robots {
		switch decisions[r.ID] {
		case moveGranted:
			r.advance()
		case moveHeld:
			s.metrics.Holds++
			s.log.Debug().Int("robot", int(r.ID)).Str("cell", r.nextPos().String()).Msg("held by collision guard")
			r.hold()
		}
	}

	s.tick++
	s.metrics.Ticks = s.tick

	// Tripwire: the guard makes overlaps impossible.
	seen := make(map[core.Position]core.AgentID, len(s.robots))
	for _, r := range s.robots {
		if other, dup := seen[r.Pos]; dup {
			s.metrics.RuntimeConflicts++
			s.log.Error().Int("a", int(other)).Int("b", int(r.ID)).Str("cell", r.Pos.String()).Msg("robots overlap")
		}
		seen[r.Pos] = r.ID
	}

	for _, r := range s.robots {
		if r.Status != StatusIdle && r.pathDone() {
			s.finishRoute(r)
		}
	}

	if s.replanAfterHolds > 0 {
		for _, r := range s.robots {
			if r.holdStreak >= s.replanAfterHolds {
				s.log.Warn().Int("robot", int(r.ID)).Int("holds", r.holdStreak).Msg("routes stale; replanning fleet")
				s.replanAll()
				break
			}
		}
	}
}

// finishRoute settles a robot whose path ran out: plan the next leg if
// waypoints remain, otherwise complete the order or the relocation.
func (s *Simulator) finishRoute(r *Robot) {
	if len(r.waypoints) > 0 {
		s.continueRoute(r)
		return
	}

	switch r.Status {
	case StatusMoving:
		if order := s.orders.ByRobot(r.ID); order != nil {
			s.orders.Complete(order, s.tick)
			s.log.Info().Int("order", order.ID).Int("robot", int(r.ID)).
				Int("ticks", order.CompletionTicks).Msg("order completed")
		}
	case StatusRelocating:
		s.log.Debug().Int("robot", int(r.ID)).Str("cell", s.plan.LocationName(r.Pos)).Msg("relocation finished")
	}
	r.idle()
}

// continueRoute plans the leg to the robot's next waypoint. Used after
// a batch replan truncated the route at its current objective.
func (s *Simulator) continueRoute(r *Robot) {
	path, err := s.planner.PlanAgent(r.agentForGoal(r.waypoints[0]), s.otherPaths(r.ID), s.tick)
	if err != nil {
		s.metrics.FailedPlans++
		s.log.Warn().Err(err).Int("robot", int(r.ID)).Msg("route continuation failed")
		s.abortRoute(r)
		return
	}
	r.resume(path)
}

// abortRoute gives up on the robot's route, requeueing its order.
func (s *Simulator) abortRoute(r *Robot) {
	if order := s.orders.ByRobot(r.ID); order != nil {
		s.orders.Requeue(order)
		s.log.Warn().Int("order", order.ID).Int("robot", int(r.ID)).Msg("order requeued")
	}
	r.idle()
}

// replanAll rebuilds every committed route in one batch pass. Busy
// robots aim for their next waypoint; idle robots enter the pass
// holding their cell, which lets the planner route a dodge for them
// when higher-priority traffic must cross their parking spot.
func (s *Simulator) replanAll() {
	s.metrics.BatchReplans++

	agents := make([]*core.Agent, len(s.robots))
	for i, r := range s.robots {
		goal := r.Pos
		if len(r.waypoints) > 0 {
			goal = r.waypoints[0]
		}
		agents[i] = r.agentForGoal(goal)
	}

	result := s.planner.Plan(agents, s.tick)
	for i, r := range s.robots {
		r.holdStreak = 0
		path, ok := result.Paths[agents[i].ID]
		if !ok {
			s.metrics.FailedPlans++
			s.log.Warn().Err(result.Failures[agents[i].ID]).Int("robot", int(r.ID)).Msg("replan failed")
			s.abortRoute(r)
			continue
		}
		switch {
		case r.Status != StatusIdle:
			r.resume(path)
		case len(path) > 1:
			// A parked robot given a dodge loop around crossing traffic.
			r.follow(path, StatusRelocating, nil)
		}
	}
	s.auditRoutes("replan")
}

// auditRoutes runs the conflict checker over every committed route, a
// tripwire for planner or snapshot bugs.
func (s *Simulator) auditRoutes(event string) {
	paths := make(map[core.AgentID]core.Path, len(s.robots))
	for _, r := range s.robots {
		paths[r.ID] = r.snapshotPath()
	}
	if c := algo.FindFirstConflict(paths); c != nil {
		s.metrics.RuntimeConflicts++
		s.log.Error().Str("event", event).Int("a", int(c.A)).Int("b", int(c.B)).
			Int("t", c.T).Str("cell", c.Pos.String()).Bool("edge", c.IsEdge).
			Msg("committed routes conflict")
	}
}

// otherPaths snapshots every other robot's remaining route, anchored at
// the current tick.
func (s *Simulator) otherPaths(exclude core.AgentID) []core.Path {
	paths := make([]core.Path, 0, len(s.robots)-1)
	for _, r := range s.robots {
		if r.ID == exclude {
			continue
		}
		paths = append(paths, r.snapshotPath())
	}
	return paths
}

func (s *Simulator) robotAt(pos core.Position) *Robot {
	for _, r := range s.robots {
		if r.Pos == pos {
			return r
		}
	}
	return nil
}
