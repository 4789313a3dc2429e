package core

import "testing"

func TestPathAtClampsToEnds(t *testing.T) {
	p := Path{{Row: 1, Col: 0}, {Row: 1, Col: 1}, {Row: 0, Col: 1}}

	tests := []struct {
		t    int
		want Position
	}{
		{-1, Position{Row: 1, Col: 0}},
		{0, Position{Row: 1, Col: 0}},
		{1, Position{Row: 1, Col: 1}},
		{2, Position{Row: 0, Col: 1}},
		{3, Position{Row: 0, Col: 1}},  // holds final cell
		{50, Position{Row: 0, Col: 1}}, // forever
	}

	for _, tt := range tests {
		if got := p.At(tt.t); got != tt.want {
			t.Errorf("At(%d) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestPathCost(t *testing.T) {
	g := NewGrid(3, 3)
	p := Path{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 1}, {Row: 1, Col: 1}}

	// Two steps and one wait, all unit cost.
	if got := p.Cost(g); got != 3 {
		t.Errorf("Cost = %d, want 3", got)
	}

	if got := (Path{{Row: 0, Col: 0}}).Cost(g); got != 0 {
		t.Errorf("single-entry path cost = %d, want 0", got)
	}
}

func TestSortAgents(t *testing.T) {
	agents := []*Agent{
		{ID: 3, Priority: 2},
		{ID: 1, Priority: 1},
		{ID: 2, Priority: 2},
	}

	sorted := SortAgents(agents)

	want := []AgentID{1, 2, 3}
	for i, a := range sorted {
		if a.ID != want[i] {
			t.Errorf("sorted[%d].ID = %d, want %d", i, a.ID, want[i])
		}
	}

	// Input order untouched.
	if agents[0].ID != 3 {
		t.Error("SortAgents mutated its input slice")
	}
}
