package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Utorque/navette-mapf/internal/core"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadGridScenario(t *testing.T) {
	path := writeScenario(t, `
name: crossing
world:
  kind: grid
  rows: 4
  cols: 4
  blocked:
    - {row: 2, col: 2}
agents:
  - id: 1
    start: {row: 0, col: 0}
    goal: {row: 3, col: 3}
    priority: 1
  - id: 2
    start: {row: 3, col: 0}
    goal: {row: 0, col: 3}
    priority: 2
horizon: 40
node_cap: 2000
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Name != "crossing" || s.Horizon != 40 || s.NodeCap != 2000 {
		t.Errorf("Unexpected scenario header: %+v", s)
	}

	topo, agents, err := s.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	grid, ok := topo.(*core.Grid)
	if !ok {
		t.Fatalf("Expected *core.Grid, got %T", topo)
	}
	if grid.IsValid(core.Position{Row: 2, Col: 2}) {
		t.Error("Expected blocked cell (2,2) to be invalid")
	}

	if len(agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(agents))
	}
	if agents[0].ID != 1 || agents[0].Pos != (core.Position{Row: 0, Col: 0}) {
		t.Errorf("Agent 1 resolved wrong: %+v", agents[0])
	}
}

func TestLoadCorridorScenarioWithRoomNames(t *testing.T) {
	path := writeScenario(t, `
name: rooms
world:
  kind: corridor
agents:
  - id: 1
    start_room: in
    goal_room: out
    priority: 1
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	topo, agents, err := s.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	fp, ok := topo.(*core.FloorPlan)
	if !ok {
		t.Fatalf("Expected *core.FloorPlan, got %T", topo)
	}

	in, _ := fp.RoomPosition("in")
	out, _ := fp.RoomPosition("out")
	if agents[0].Pos != in || agents[0].Goal != out {
		t.Errorf("Expected rooms resolved to %v and %v, got %+v", in, out, agents[0])
	}
}

func TestBuildRejectsBadScenarios(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"unknown kind",
			"world: {kind: maze, rows: 3, cols: 3}",
			"unknown world kind",
		},
		{
			"blocked outside grid",
			"world: {kind: grid, rows: 3, cols: 3, blocked: [{row: 5, col: 0}]}",
			"outside",
		},
		{
			"room name on grid world",
			`
world: {kind: grid, rows: 3, cols: 3}
agents:
  - {id: 1, start_room: in, goal: {row: 0, col: 0}, priority: 1}
`,
			"corridor world",
		},
		{
			"unknown room",
			`
world: {kind: corridor}
agents:
  - {id: 1, start_room: warehouse, goal_room: out, priority: 1}
`,
			"unknown room",
		},
		{
			"shared start cell",
			`
world: {kind: grid, rows: 3, cols: 3}
agents:
  - {id: 1, start: {row: 0, col: 0}, goal: {row: 2, col: 2}, priority: 1}
  - {id: 2, start: {row: 0, col: 0}, goal: {row: 2, col: 0}, priority: 2}
`,
			"already taken",
		},
		{
			"duplicate id",
			`
world: {kind: grid, rows: 3, cols: 3}
agents:
  - {id: 1, start: {row: 0, col: 0}, goal: {row: 2, col: 2}, priority: 1}
  - {id: 1, start: {row: 1, col: 0}, goal: {row: 2, col: 0}, priority: 2}
`,
			"duplicate id",
		},
		{
			"invalid endpoint",
			`
world: {kind: grid, rows: 3, cols: 3}
agents:
  - {id: 1, start: {row: 0, col: 0}, goal: {row: 9, col: 9}, priority: 1}
`,
			"not valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(writeScenario(t, tt.yaml))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if _, _, err := s.Build(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := &Scenario{
		Name: "roundtrip",
		World: World{
			Kind: KindGrid,
			Rows: 5,
			Cols: 6,
			Blocked: []Cell{
				{Row: 1, Col: 1},
			},
		},
		Agents: []AgentSpec{
			{ID: 1, Start: &Cell{Row: 0, Col: 0}, Goal: &Cell{Row: 4, Col: 5}, Priority: 1},
		},
		Horizon: 25,
		Seed:    42,
	}

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != s.Name || loaded.World.Rows != 5 || loaded.World.Cols != 6 {
		t.Errorf("Round trip lost world data: %+v", loaded)
	}
	if len(loaded.Agents) != 1 || loaded.Agents[0].Start == nil || loaded.Agents[0].Start.Row != 0 {
		t.Errorf("Round trip lost agent data: %+v", loaded.Agents)
	}
	if loaded.Seed != 42 || loaded.Horizon != 25 {
		t.Errorf("Round trip lost knobs: %+v", loaded)
	}
}
