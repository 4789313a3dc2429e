package sim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Utorque/navette-mapf/internal/core"
)

func pos(row, col int) core.Position {
	return core.Position{Row: row, Col: col}
}

// corridorConfig builds a default-floor config with injected orders
// only.
func corridorConfig(agents ...*core.Agent) Config {
	cfg := DefaultConfig()
	cfg.Plan = core.NewFloorPlan(nil)
	cfg.Agents = agents
	cfg.OrderRate = 0
	return cfg
}

func corridorSim(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	return s
}

func TestNewSimulatorValidation(t *testing.T) {
	if _, err := NewSimulator(Config{}); err == nil {
		t.Error("Expected an error without a floor plan")
	}

	cfg := DefaultConfig()
	cfg.Plan = core.NewFloorPlan(nil)
	if _, err := NewSimulator(cfg); err == nil {
		t.Error("Expected an error without robots")
	}

	cfg.Agents = []*core.Agent{{ID: 1, Pos: pos(5, 5), Priority: 1}}
	if _, err := NewSimulator(cfg); err == nil {
		t.Error("Expected an error for an off-world start")
	}
}

func TestInjectOrderRejectsUnknownRoom(t *testing.T) {
	s := corridorSim(t, corridorConfig(&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1}))
	if _, err := s.InjectOrder("in", "lab"); err == nil {
		t.Error("Expected an error for an unknown room")
	}
	if got := s.Metrics().OrdersGenerated; got != 0 {
		t.Errorf("Expected no orders counted, got %d", got)
	}
}

// A single robot serves in->out: one step into the pickup room, then
// the full corridor run. Request to delivery takes 7 ticks.
func TestSimulatorCompletesInjectedOrder(t *testing.T) {
	s := corridorSim(t, corridorConfig(&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1}))
	if _, err := s.InjectOrder("in", "out"); err != nil {
		t.Fatalf("InjectOrder failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		s.Step()
	}

	m := s.Metrics()
	if m.OrdersAssigned != 1 || m.OrdersCompleted != 1 {
		t.Fatalf("Expected the order assigned and completed, got %+v", m)
	}
	if m.AvgCompletionTicks != 7 {
		t.Errorf("Expected completion in 7 ticks, got %v", m.AvgCompletionTicks)
	}
	if m.RuntimeConflicts != 0 {
		t.Errorf("Expected no runtime conflicts, got %d", m.RuntimeConflicts)
	}
	if r := s.robots[0]; r.Pos != pos(0, 4) || r.Status != StatusIdle {
		t.Errorf("Expected the robot idle on out, got %v %v", r.Pos, r.Status)
	}
}

func TestRuntimeGuardHoldsLowerPriority(t *testing.T) {
	s := corridorSim(t, corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 1), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 3), Priority: 2},
	))
	a, b := s.robots[0], s.robots[1]
	a.follow(core.Path{pos(1, 1), pos(1, 2)}, StatusMoving, nil)
	b.follow(core.Path{pos(1, 3), pos(1, 2)}, StatusMoving, nil)

	s.Step()

	if a.Pos != pos(1, 2) {
		t.Errorf("Expected the priority robot to advance, got %v", a.Pos)
	}
	if b.Pos != pos(1, 3) || !b.Waiting {
		t.Errorf("Expected robot 2 held in place, got %v waiting=%v", b.Pos, b.Waiting)
	}
	if got := s.Metrics().Holds; got != 1 {
		t.Errorf("Expected 1 hold, got %d", got)
	}
}

// A follower may enter the cell its leader vacates in the same tick.
func TestRuntimeGuardAllowsConvoy(t *testing.T) {
	s := corridorSim(t, corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 1), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 0), Priority: 2},
	))
	s.robots[0].follow(core.Path{pos(1, 1), pos(1, 2), pos(1, 3)}, StatusMoving, nil)
	s.robots[1].follow(core.Path{pos(1, 0), pos(1, 1), pos(1, 2)}, StatusMoving, nil)

	s.Step()
	if got := s.robots[1].Pos; got != pos(1, 1) {
		t.Errorf("Expected the follower on the vacated cell, got %v", got)
	}
	s.Step()

	if got := s.Metrics().Holds; got != 0 {
		t.Errorf("Expected a clean convoy, got %d holds", got)
	}
	if s.robots[0].Pos != pos(1, 3) || s.robots[1].Pos != pos(1, 2) {
		t.Errorf("Expected the convoy at (1,3),(1,2); got %v, %v", s.robots[0].Pos, s.robots[1].Pos)
	}
}

func TestRuntimeGuardBlocksSwap(t *testing.T) {
	cfg := corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 1), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 2), Priority: 2},
	)
	cfg.ReplanAfterHolds = 0 // keep the stale routes in place
	s := corridorSim(t, cfg)
	s.robots[0].follow(core.Path{pos(1, 1), pos(1, 2)}, StatusMoving, nil)
	s.robots[1].follow(core.Path{pos(1, 2), pos(1, 1)}, StatusMoving, nil)

	s.Step()

	if s.robots[0].Pos != pos(1, 1) || s.robots[1].Pos != pos(1, 2) {
		t.Errorf("Expected the swap frozen in place, got %v, %v", s.robots[0].Pos, s.robots[1].Pos)
	}
	m := s.Metrics()
	if m.Holds != 2 {
		t.Errorf("Expected both robots held, got %d holds", m.Holds)
	}
	if m.RuntimeConflicts != 0 {
		t.Errorf("Expected the guard to prevent conflicts, got %d", m.RuntimeConflicts)
	}
}

// Two robots on stale head-on routes deadlock under the guard; the hold
// streak triggers a batch replan that routes them to their rooms.
func TestAutoReplanRecoversFromSwap(t *testing.T) {
	cfg := corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 1), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 2), Priority: 2},
	)
	cfg.ReplanAfterHolds = 1
	s := corridorSim(t, cfg)
	s.robots[0].follow(core.Path{pos(1, 1), pos(1, 2)}, StatusMoving, []core.Position{pos(0, 2)})
	s.robots[1].follow(core.Path{pos(1, 2), pos(1, 1)}, StatusMoving, []core.Position{pos(0, 1)})

	for i := 0; i < 12; i++ {
		s.Step()
	}

	m := s.Metrics()
	if m.BatchReplans == 0 {
		t.Error("Expected the hold streak to trigger a batch replan")
	}
	if m.RuntimeConflicts != 0 {
		t.Errorf("Expected no runtime conflicts, got %d", m.RuntimeConflicts)
	}
	if s.robots[0].Pos != pos(0, 2) || s.robots[1].Pos != pos(0, 1) {
		t.Errorf("Expected the robots on their goal rooms, got %v, %v", s.robots[0].Pos, s.robots[1].Pos)
	}
	if s.robots[0].Status != StatusIdle || s.robots[1].Status != StatusIdle {
		t.Errorf("Expected both robots idle, got %v, %v", s.robots[0].Status, s.robots[1].Status)
	}
}

// Robot 2 is parked on the delivery room. Assignment must first send it
// to a free room, then run the order through the cleared cells.
func TestIdleRelocationClearsParkedRoom(t *testing.T) {
	s := corridorSim(t, corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(0, 1), Priority: 2},
	))
	if _, err := s.InjectOrder("in", "A"); err != nil {
		t.Fatalf("InjectOrder failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		s.Step()
	}

	m := s.Metrics()
	if m.Relocations != 1 {
		t.Errorf("Expected 1 relocation, got %d", m.Relocations)
	}
	if m.OrdersCompleted != 1 {
		t.Fatalf("Expected the order delivered, got %+v", m)
	}
	if m.AvgCompletionTicks != 4 {
		t.Errorf("Expected completion in 4 ticks, got %v", m.AvgCompletionTicks)
	}
	if m.RuntimeConflicts != 0 {
		t.Errorf("Expected no runtime conflicts, got %d", m.RuntimeConflicts)
	}
	if r := s.robots[1]; r.Pos != pos(0, 2) || r.Status != StatusIdle {
		t.Errorf("Expected robot 2 parked in room B, got %v %v", r.Pos, r.Status)
	}
	if got := s.robots[0].Pos; got != pos(0, 1) {
		t.Errorf("Expected the carrier resting on A, got %v", got)
	}
}

// An idle robot in the middle of the corridor is not on any access cell
// of the in->out order, so nothing relocates it and the delivery leg
// keeps failing. The order must stay pending instead of deadlocking the
// simulation.
func TestAssignmentRetriesWhileCorridorBlocked(t *testing.T) {
	s := corridorSim(t, corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 2), Priority: 2},
	))
	if _, err := s.InjectOrder("in", "out"); err != nil {
		t.Fatalf("InjectOrder failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		s.Step()
	}

	m := s.Metrics()
	if m.OrdersCompleted != 0 || m.OrdersPending != 1 {
		t.Fatalf("Expected the order stuck pending, got %+v", m)
	}
	if m.FailedPlans == 0 {
		t.Error("Expected failed planning attempts while the corridor is blocked")
	}
	if r := s.robots[0]; r.Pos != pos(1, 0) || r.Status != StatusIdle {
		t.Errorf("Expected the carrier still parked, got %v %v", r.Pos, r.Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := corridorSim(t, corridorConfig(&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := s.Run(ctx, 50)
	if err == nil {
		t.Fatal("Expected a context error")
	}
	if m.Ticks != 0 {
		t.Errorf("Expected no ticks after an immediate cancel, got %d", m.Ticks)
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() Metrics {
		cfg := corridorConfig(
			&core.Agent{ID: 1, Pos: pos(0, 0), Priority: 1},
			&core.Agent{ID: 2, Pos: pos(0, 4), Priority: 2},
		)
		cfg.OrderRate = 0.5
		s := corridorSim(t, cfg)
		m, err := s.Run(context.Background(), 120)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return m
	}

	a, b := run(), run()
	a.RunID, b.RunID = "", ""
	if a != b {
		t.Errorf("Expected identical runs, got\n%+v\n%+v", a, b)
	}
}

// Constant order pressure for 300 ticks: whatever the traffic does, no
// two robots may ever stand on the same cell.
func TestSimulatorSoakNoOverlaps(t *testing.T) {
	cfg := corridorConfig(
		&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1},
		&core.Agent{ID: 2, Pos: pos(1, 2), Priority: 2},
		&core.Agent{ID: 3, Pos: pos(1, 4), Priority: 3},
	)
	cfg.OrderRate = 1.0
	s := corridorSim(t, cfg)

	for i := 0; i < 300; i++ {
		s.Step()
		seen := make(map[core.Position]core.AgentID)
		for _, r := range s.robots {
			if other, dup := seen[r.Pos]; dup {
				t.Fatalf("tick %d: robots %d and %d overlap at %v", i+1, other, r.ID, r.Pos)
			}
			seen[r.Pos] = r.ID
		}
	}

	m := s.Metrics()
	if m.OrdersGenerated != 300 {
		t.Errorf("Expected an order every tick, got %d", m.OrdersGenerated)
	}
	if m.OrdersCompleted == 0 {
		t.Error("Expected orders to complete under constant load")
	}
}

func TestExportMetrics(t *testing.T) {
	s := corridorSim(t, corridorConfig(&core.Agent{ID: 1, Pos: pos(1, 0), Priority: 1}))
	s.Step()

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := s.ExportMetrics(path); err != nil {
		t.Fatalf("ExportMetrics failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(m.RunID) != 8 {
		t.Errorf("Expected an 8-char run id, got %q", m.RunID)
	}
	if m.Ticks != 1 {
		t.Errorf("Expected 1 tick, got %d", m.Ticks)
	}
}
