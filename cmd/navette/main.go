// Command navette plans conflict-free robot routes and runs the
// corridor order simulation.
//
// Plan mode loads a scenario, runs one prioritized planning pass and
// prints every route. Sim mode drives the order simulator on a corridor
// world for a fixed number of ticks and prints the run metrics as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/Utorque/navette-mapf/internal/algo"
	"github.com/Utorque/navette-mapf/internal/core"
	"github.com/Utorque/navette-mapf/internal/logger"
	"github.com/Utorque/navette-mapf/internal/scenario"
	"github.com/Utorque/navette-mapf/internal/sim"
)

func main() {
	scenarioPath := flag.String("scenario", "", "scenario YAML file (required)")
	mode := flag.String("mode", "plan", "plan: one planning pass; sim: run the order simulation")
	ticks := flag.Int("ticks", 200, "simulation length in ticks (sim mode)")
	orderRate := flag.Float64("order-rate", -1, "override the scenario's order probability per tick (sim mode)")
	metricsPath := flag.String("metrics", "", "also write sim metrics to this JSON file")
	showPaths := flag.Bool("paths", false, "print every step of each planned route (plan mode)")
	verbose := flag.Bool("verbose", false, "enable debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := logger.GetWithLevel(level)

	if *scenarioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	scn, err := scenario.Load(*scenarioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading scenario")
	}
	topo, agents, err := scn.Build()
	if err != nil {
		log.Fatal().Err(err).Str("scenario", scn.Name).Msg("building scenario")
	}

	switch *mode {
	case "plan":
		runPlan(scn, topo, agents, *showPaths)
	case "sim":
		runSim(scn, topo, agents, *ticks, *orderRate, *metricsPath, log)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode, want plan or sim")
	}
}

// runPlan runs one prioritized pass and prints the outcome per agent.
// Exits nonzero when any agent fails or, which would be a planner bug,
// the committed routes conflict.
func runPlan(scn *scenario.Scenario, topo core.Topology, agents []*core.Agent, showPaths bool) {
	planner := algo.NewPlanner(topo)
	if scn.Horizon > 0 {
		planner.Horizon = scn.Horizon
	}
	if scn.NodeCap > 0 {
		planner.NodeCap = scn.NodeCap
	}

	result := planner.Plan(agents, 0)

	fmt.Printf("Scenario: %s (%s, %d agents)\n", scn.Name, scn.World.Kind, len(agents))

	makespan, sumOfCosts := 0, 0
	for _, a := range core.SortAgents(agents) {
		path, ok := result.Paths[a.ID]
		if !ok {
			fmt.Printf("  agent %d: FAILED: %v\n", a.ID, result.Failures[a.ID])
			continue
		}
		steps := len(path) - 1
		sumOfCosts += steps
		if steps > makespan {
			makespan = steps
		}
		fmt.Printf("  agent %d: %v -> %v in %d steps\n", a.ID, a.Pos, a.Goal, steps)
		if showPaths {
			fmt.Printf("    %v\n", path)
		}
	}
	fmt.Printf("Planned %d/%d agents, makespan %d, sum of costs %d\n",
		len(result.Paths), len(agents), makespan, sumOfCosts)

	if c := algo.FindFirstConflict(result.Paths); c != nil {
		fmt.Printf("CONFLICT between agents %d and %d at %v t=%d\n", c.A, c.B, c.Pos, c.T)
		os.Exit(1)
	}
	if len(result.Failures) > 0 {
		os.Exit(1)
	}
}

// runSim drives the order simulator and prints the final metrics.
func runSim(scn *scenario.Scenario, topo core.Topology, agents []*core.Agent,
	ticks int, orderRate float64, metricsPath string, log *zerolog.Logger) {

	plan, ok := topo.(*core.FloorPlan)
	if !ok {
		log.Fatal().Str("kind", scn.World.Kind).Msg("sim mode needs a corridor world")
	}

	cfg := sim.DefaultConfig()
	cfg.Plan = plan
	cfg.Agents = agents
	if scn.Horizon > 0 {
		cfg.Horizon = scn.Horizon
	}
	if scn.NodeCap > 0 {
		cfg.NodeCap = scn.NodeCap
	}
	if scn.Seed != 0 {
		cfg.Seed = scn.Seed
	}
	if scn.OrderRate > 0 {
		cfg.OrderRate = scn.OrderRate
	}
	if orderRate >= 0 {
		cfg.OrderRate = orderRate
	}

	s, err := sim.NewSimulator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("building simulator")
	}

	metrics, err := s.Run(context.Background(), ticks)
	if err != nil {
		log.Fatal().Err(err).Msg("running simulation")
	}

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encoding metrics")
	}
	fmt.Println(string(data))

	if metricsPath != "" {
		if err := s.ExportMetrics(metricsPath); err != nil {
			log.Fatal().Err(err).Msg("writing metrics file")
		}
		log.Info().Str("path", metricsPath).Msg("metrics written")
	}
}
