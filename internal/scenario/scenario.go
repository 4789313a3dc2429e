// Package scenario loads and saves planning scenarios: a world
// definition plus agents, search bounds, and simulation knobs, all in
// one YAML file.
package scenario

import (
	"fmt"
	"os"

	"github.com/go-yaml/yaml"

	"github.com/Utorque/navette-mapf/internal/core"
)

// World kinds accepted in scenario files.
const (
	KindGrid     = "grid"
	KindCorridor = "corridor"
)

// Cell is a YAML-friendly position.
type Cell struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// Pos converts the cell to a core position.
func (c Cell) Pos() core.Position {
	return core.Position{Row: c.Row, Col: c.Col}
}

// World describes the topology to build. Grid worlds use Rows, Cols and
// Blocked; corridor worlds use Rooms (empty means the default floor).
type World struct {
	Kind    string   `yaml:"kind"`
	Rows    int      `yaml:"rows,omitempty"`
	Cols    int      `yaml:"cols,omitempty"`
	Blocked []Cell   `yaml:"blocked,omitempty"`
	Rooms   []string `yaml:"rooms,omitempty"`
}

// AgentSpec places one agent. Endpoints are given either as cells or,
// in corridor worlds, as room names.
type AgentSpec struct {
	ID        int    `yaml:"id"`
	Start     *Cell  `yaml:"start,omitempty"`
	Goal      *Cell  `yaml:"goal,omitempty"`
	StartRoom string `yaml:"start_room,omitempty"`
	GoalRoom  string `yaml:"goal_room,omitempty"`
	Priority  int    `yaml:"priority"`
}

// Scenario is one planning or simulation setup. Horizon and NodeCap
// override the planner defaults when positive; Seed and OrderRate only
// matter to the simulator.
type Scenario struct {
	Name      string      `yaml:"name"`
	World     World       `yaml:"world"`
	Agents    []AgentSpec `yaml:"agents"`
	Horizon   int         `yaml:"horizon,omitempty"`
	NodeCap   int         `yaml:"node_cap,omitempty"`
	Seed      int64       `yaml:"seed,omitempty"`
	OrderRate float64     `yaml:"order_rate,omitempty"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s := &Scenario{}
	if err := yaml.NewDecoder(file).Decode(s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// Save writes the scenario as YAML.
func (s *Scenario) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Build constructs the topology and the agent records. It validates
// what the planner itself would only surface later or not at all:
// world bounds, endpoint validity, and that no two agents share a
// start cell.
func (s *Scenario) Build() (core.Topology, []*core.Agent, error) {
	topo, err := s.buildWorld()
	if err != nil {
		return nil, nil, err
	}

	agents := make([]*core.Agent, 0, len(s.Agents))
	seenIDs := make(map[int]bool)
	seenStarts := make(map[core.Position]int)

	for _, spec := range s.Agents {
		if seenIDs[spec.ID] {
			return nil, nil, fmt.Errorf("agent %d: duplicate id", spec.ID)
		}
		seenIDs[spec.ID] = true

		start, err := s.resolve(topo, spec.Start, spec.StartRoom)
		if err != nil {
			return nil, nil, fmt.Errorf("agent %d start: %w", spec.ID, err)
		}
		goal, err := s.resolve(topo, spec.Goal, spec.GoalRoom)
		if err != nil {
			return nil, nil, fmt.Errorf("agent %d goal: %w", spec.ID, err)
		}

		if other, taken := seenStarts[start]; taken {
			return nil, nil, fmt.Errorf("agent %d: start %v already taken by agent %d", spec.ID, start, other)
		}
		seenStarts[start] = spec.ID

		agents = append(agents, &core.Agent{
			ID:       core.AgentID(spec.ID),
			Pos:      start,
			Goal:     goal,
			Priority: spec.Priority,
		})
	}

	return topo, agents, nil
}

func (s *Scenario) buildWorld() (core.Topology, error) {
	switch s.World.Kind {
	case KindGrid:
		if s.World.Rows <= 0 || s.World.Cols <= 0 {
			return nil, fmt.Errorf("grid world needs positive rows and cols, got %dx%d", s.World.Rows, s.World.Cols)
		}
		grid := core.NewGrid(s.World.Rows, s.World.Cols)
		for _, c := range s.World.Blocked {
			if c.Row < 0 || c.Row >= s.World.Rows || c.Col < 0 || c.Col >= s.World.Cols {
				return nil, fmt.Errorf("blocked cell %v outside the %dx%d grid", c.Pos(), s.World.Rows, s.World.Cols)
			}
			grid.Block(c.Pos())
		}
		return grid, nil
	case KindCorridor:
		return core.NewFloorPlan(s.World.Rooms), nil
	default:
		return nil, fmt.Errorf("unknown world kind %q", s.World.Kind)
	}
}

func (s *Scenario) resolve(topo core.Topology, cell *Cell, room string) (core.Position, error) {
	switch {
	case cell != nil && room != "":
		return core.Position{}, fmt.Errorf("both cell and room name given")
	case cell != nil:
		p := cell.Pos()
		if !topo.IsValid(p) {
			return core.Position{}, fmt.Errorf("position %v is not valid in this world", p)
		}
		return p, nil
	case room != "":
		fp, ok := topo.(*core.FloorPlan)
		if !ok {
			return core.Position{}, fmt.Errorf("room name %q needs a corridor world", room)
		}
		p, ok := fp.RoomPosition(room)
		if !ok {
			return core.Position{}, fmt.Errorf("unknown room %q", room)
		}
		return p, nil
	default:
		return core.Position{}, fmt.Errorf("no cell or room name given")
	}
}
