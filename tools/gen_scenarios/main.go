// Package main provides scenario generation for planner and simulator
// benchmarks. Generates deterministic scenario files with configurable
// parameters.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/Utorque/navette-mapf/internal/core"
	"github.com/Utorque/navette-mapf/internal/scenario"
)

// gridParams defines one random grid scenario.
type gridParams struct {
	seed    int64
	agents  int
	rows    int
	cols    int
	blocked float64
	horizon int
	nodeCap int
}

// generateGrid builds a random grid scenario: blocked cells first, then
// distinct starts and distinct goals drawn from the free cells.
// Solvability is not guaranteed; the planner reports per-agent
// failures.
func generateGrid(p gridParams) (*scenario.Scenario, error) {
	rng := rand.New(rand.NewSource(p.seed))

	scn := &scenario.Scenario{
		Name: fmt.Sprintf("grid_%d_%dx%d_%d", p.agents, p.rows, p.cols, p.seed),
		World: scenario.World{
			Kind: scenario.KindGrid,
			Rows: p.rows,
			Cols: p.cols,
		},
		Horizon: p.horizon,
		NodeCap: p.nodeCap,
		Seed:    p.seed,
	}

	blocked := make(map[core.Position]bool)
	target := int(float64(p.rows*p.cols) * p.blocked)
	for len(blocked) < target {
		c := core.Position{Row: rng.Intn(p.rows), Col: rng.Intn(p.cols)}
		if !blocked[c] {
			blocked[c] = true
			scn.World.Blocked = append(scn.World.Blocked, scenario.Cell{Row: c.Row, Col: c.Col})
		}
	}

	free := p.rows*p.cols - len(blocked)
	if p.agents*2 > free {
		return nil, fmt.Errorf("%d agents need %d free cells, the %dx%d grid has %d",
			p.agents, p.agents*2, p.rows, p.cols, free)
	}

	draw := func(used map[core.Position]bool) scenario.Cell {
		for {
			c := core.Position{Row: rng.Intn(p.rows), Col: rng.Intn(p.cols)}
			if blocked[c] || used[c] {
				continue
			}
			used[c] = true
			return scenario.Cell{Row: c.Row, Col: c.Col}
		}
	}

	starts := make(map[core.Position]bool)
	goals := make(map[core.Position]bool)
	for i := 0; i < p.agents; i++ {
		start := draw(starts)
		goal := draw(goals)
		scn.Agents = append(scn.Agents, scenario.AgentSpec{
			ID:       i + 1,
			Start:    &start,
			Goal:     &goal,
			Priority: i + 1,
		})
	}
	return scn, nil
}

// generateCorridor builds a corridor scenario: robots parked on
// distinct corridor cells with distinct goal rooms, so the same file
// works in plan mode and as a simulation seed.
func generateCorridor(robots, roomCount int, orderRate float64, seed int64) (*scenario.Scenario, error) {
	rooms, err := corridorRooms(roomCount)
	if err != nil {
		return nil, err
	}
	if robots > len(rooms) {
		return nil, fmt.Errorf("%d robots need distinct corridor cells, the floor has %d", robots, len(rooms))
	}

	rng := rand.New(rand.NewSource(seed))
	scn := &scenario.Scenario{
		Name: fmt.Sprintf("corridor_%d_%d_%d", robots, len(rooms), seed),
		World: scenario.World{
			Kind:  scenario.KindCorridor,
			Rooms: rooms,
		},
		Seed:      seed,
		OrderRate: orderRate,
	}

	cols := rng.Perm(len(rooms))
	goals := rng.Perm(len(rooms))
	for i := 0; i < robots; i++ {
		start := scenario.Cell{Row: 1, Col: cols[i]}
		scn.Agents = append(scn.Agents, scenario.AgentSpec{
			ID:       i + 1,
			Start:    &start,
			GoalRoom: rooms[goals[i]],
			Priority: i + 1,
		})
	}
	return scn, nil
}

// corridorRooms names n rooms: inbound dock, work rooms A onward,
// outbound dock. Fewer than 3 falls back to the standard five.
func corridorRooms(n int) ([]string, error) {
	if n < 3 {
		return core.DefaultRooms, nil
	}
	if n-2 > 26 {
		return nil, fmt.Errorf("at most 28 rooms, got %d", n)
	}
	rooms := make([]string, 0, n)
	rooms = append(rooms, "in")
	for i := 0; i < n-2; i++ {
		rooms = append(rooms, string(rune('A'+i)))
	}
	return append(rooms, "out"), nil
}

func main() {
	kind := flag.String("kind", "grid", "scenario kind: grid or corridor")
	seed := flag.Int64("seed", 42, "random seed for deterministic generation")
	agents := flag.Int("agents", 8, "number of agents (grid)")
	rows := flag.Int("rows", 12, "grid rows")
	cols := flag.Int("cols", 12, "grid cols")
	blocked := flag.Float64("blocked", 0.15, "fraction of grid cells blocked")
	horizon := flag.Int("horizon", 0, "search horizon override (0 = planner default)")
	nodeCap := flag.Int("node-cap", 0, "search node cap override (0 = planner default)")
	robots := flag.Int("robots", 3, "number of robots (corridor)")
	roomCount := flag.Int("rooms", 5, "number of rooms including both docks (corridor)")
	orderRate := flag.Float64("order-rate", 0.1, "order probability per tick (corridor)")
	outputDir := flag.String("output", "testdata", "output directory")
	scaling := flag.Bool("scaling", false, "generate the grid scaling suite (2 to 32 agents)")

	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	var scns []*scenario.Scenario
	fail := func(err error) {
		fmt.Fprintf(os.Stderr, "Error generating scenario: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *scaling:
		for _, size := range []int{2, 4, 8, 16, 32} {
			side := int(math.Ceil(math.Sqrt(float64(size)))) * 4
			if side < 8 {
				side = 8
			}
			scn, err := generateGrid(gridParams{
				seed:    *seed,
				agents:  size,
				rows:    side,
				cols:    side,
				blocked: *blocked,
				horizon: *horizon,
				nodeCap: *nodeCap,
			})
			if err != nil {
				fail(err)
			}
			scns = append(scns, scn)
		}
	case *kind == "grid":
		scn, err := generateGrid(gridParams{
			seed:    *seed,
			agents:  *agents,
			rows:    *rows,
			cols:    *cols,
			blocked: *blocked,
			horizon: *horizon,
			nodeCap: *nodeCap,
		})
		if err != nil {
			fail(err)
		}
		scns = append(scns, scn)
	case *kind == "corridor":
		scn, err := generateCorridor(*robots, *roomCount, *orderRate, *seed)
		if err != nil {
			fail(err)
		}
		scns = append(scns, scn)
	default:
		fmt.Fprintf(os.Stderr, "Unknown kind %q, want grid or corridor\n", *kind)
		os.Exit(1)
	}

	for _, scn := range scns {
		path := filepath.Join(*outputDir, scn.Name+".yaml")
		if err := scn.Save(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated: %s (%s, %d agents)\n", path, scn.World.Kind, len(scn.Agents))
	}
}
