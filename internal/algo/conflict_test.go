package algo

import (
	"testing"

	"github.com/Utorque/navette-mapf/internal/core"
)

// pos is shorthand for building positions in tests.
func pos(row, col int) core.Position {
	return core.Position{Row: row, Col: col}
}

func TestFindFirstConflict_NoConflict(t *testing.T) {
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1), pos(0, 2)},
		2: {pos(2, 0), pos(2, 1), pos(2, 2)},
	}

	conflict := FindFirstConflict(paths)
	if conflict != nil {
		t.Errorf("Expected no conflict, got A=%d B=%d at %v t=%d",
			conflict.A, conflict.B, conflict.Pos, conflict.T)
	}
}

func TestFindFirstConflict_VertexConflict(t *testing.T) {
	// Both agents stand on (0,1) at t=1.
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1), pos(0, 2)},
		2: {pos(1, 1), pos(0, 1), pos(1, 1)},
	}

	conflict := FindFirstConflict(paths)
	if conflict == nil {
		t.Fatal("Expected vertex conflict, got nil")
	}

	if conflict.Pos != pos(0, 1) || conflict.T != 1 {
		t.Errorf("Expected conflict at (0,1) t=1, got %v t=%d", conflict.Pos, conflict.T)
	}
	if conflict.IsEdge {
		t.Error("Expected vertex conflict, got swap")
	}
	if conflict.A != 1 || conflict.B != 2 {
		t.Errorf("Expected pair (1,2), got (%d,%d)", conflict.A, conflict.B)
	}
}

func TestFindFirstConflict_SwapConflict(t *testing.T) {
	// Agents cross the same edge in opposite directions during step 0.
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1)},
		2: {pos(0, 1), pos(0, 0)},
	}

	conflict := FindFirstConflict(paths)
	if conflict == nil {
		t.Fatal("Expected swap conflict, got nil")
	}

	if !conflict.IsEdge {
		t.Error("Expected swap conflict, got vertex conflict")
	}
	if conflict.T != 0 {
		t.Errorf("Expected swap during step 0, got t=%d", conflict.T)
	}
	if conflict.From != pos(0, 0) || conflict.To != pos(0, 1) {
		t.Errorf("Expected swap on (0,0)->(0,1), got %v->%v", conflict.From, conflict.To)
	}
}

func TestFindFirstConflict_ParkedAgentBlocks(t *testing.T) {
	// Agent 1 parks on (0,2) at t=2; agent 2 arrives there at t=4, long
	// after agent 1's path has ended.
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1), pos(0, 2)},
		2: {pos(2, 2), pos(2, 2), pos(2, 2), pos(1, 2), pos(0, 2)},
	}

	conflict := FindFirstConflict(paths)
	if conflict == nil {
		t.Fatal("Expected conflict on the parked cell, got nil")
	}
	if conflict.Pos != pos(0, 2) || conflict.T != 4 {
		t.Errorf("Expected vertex conflict at (0,2) t=4, got %v t=%d", conflict.Pos, conflict.T)
	}
}

func TestFindFirstConflict_VertexBeforeSwapAtSameStep(t *testing.T) {
	// At t=1 agents 1 and 2 share a cell; agents 3 and 4 swap during
	// step 1. The vertex conflict is the earlier event.
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1)},
		2: {pos(1, 1), pos(0, 1)},
		3: {pos(3, 0), pos(3, 0), pos(3, 1)},
		4: {pos(3, 1), pos(3, 1), pos(3, 0)},
	}

	conflict := FindFirstConflict(paths)
	if conflict == nil {
		t.Fatal("Expected conflicts, got nil")
	}
	if conflict.IsEdge || conflict.T != 1 || conflict.Pos != pos(0, 1) {
		t.Errorf("Expected vertex conflict at (0,1) t=1 first, got %+v", conflict)
	}
}

func TestFindAllConflicts(t *testing.T) {
	// Vertex conflicts at t=1 and t=2 on consecutive cells.
	paths := map[core.AgentID]core.Path{
		1: {pos(0, 0), pos(0, 1), pos(0, 2)},
		2: {pos(1, 1), pos(0, 1), pos(0, 2)},
	}

	conflicts := FindAllConflicts(paths)
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d: %+v", len(conflicts), conflicts)
	}

	if conflicts[0].T != 1 || conflicts[0].Pos != pos(0, 1) {
		t.Errorf("Expected first conflict at (0,1) t=1, got %v t=%d", conflicts[0].Pos, conflicts[0].T)
	}
	if conflicts[1].T != 2 || conflicts[1].Pos != pos(0, 2) {
		t.Errorf("Expected second conflict at (0,2) t=2, got %v t=%d", conflicts[1].Pos, conflicts[1].T)
	}
}
