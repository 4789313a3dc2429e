// Package main provides the benchmark runner for the route planner.
// Runs a full prioritized planning pass on every scenario in a
// directory and collects per-scenario metrics.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Utorque/navette-mapf/internal/algo"
	"github.com/Utorque/navette-mapf/internal/scenario"
)

// Result stores the outcome of one planner run.
type Result struct {
	Timestamp  string  `json:"timestamp"`
	CommitHash string  `json:"commit_hash"`
	GoVersion  string  `json:"go_version"`
	OS         string  `json:"os"`
	Arch       string  `json:"arch"`
	Scenario   string  `json:"scenario"`
	World      string  `json:"world"`
	NumAgents  int     `json:"num_agents"`
	RuntimeMs  float64 `json:"runtime_ms"`
	Planned    int     `json:"planned"`
	Failed     int     `json:"failed"`
	Success    bool    `json:"success"`
	Makespan   int     `json:"makespan"`
	SumOfCosts int     `json:"sum_of_costs"`
	Conflicts  int     `json:"conflicts"`
}

// Summary aggregates one benchmark run for the JSON report.
type Summary struct {
	RunID        string    `json:"run_id"`
	Timestamp    string    `json:"timestamp"`
	Scenarios    int       `json:"scenarios"`
	FullySolved  int       `json:"fully_solved"`
	TotalAgents  int       `json:"total_agents"`
	TotalPlanned int       `json:"total_planned"`
	AvgRuntimeMs float64   `json:"avg_runtime_ms"`
	Results      []*Result `json:"results"`
}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// runScenario loads one scenario and measures a full planning pass.
// Load and build errors come back as errors; per-agent planning
// failures are part of the result.
func runScenario(path, commit string) (*Result, error) {
	scn, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	topo, agents, err := scn.Build()
	if err != nil {
		return nil, err
	}

	planner := algo.NewPlanner(topo)
	if scn.Horizon > 0 {
		planner.Horizon = scn.Horizon
	}
	if scn.NodeCap > 0 {
		planner.NodeCap = scn.NodeCap
	}

	start := time.Now()
	res := planner.Plan(agents, 0)
	elapsed := time.Since(start)

	result := &Result{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		CommitHash: commit,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Scenario:   scn.Name,
		World:      scn.World.Kind,
		NumAgents:  len(agents),
		RuntimeMs:  float64(elapsed.Microseconds()) / 1000.0,
		Planned:    len(res.Paths),
		Failed:     len(res.Failures),
		Success:    len(res.Failures) == 0,
		Conflicts:  len(algo.FindAllConflicts(res.Paths)),
	}
	for _, p := range res.Paths {
		steps := len(p) - 1
		result.SumOfCosts += steps
		if steps > result.Makespan {
			result.Makespan = steps
		}
	}
	return result, nil
}

func writeCSV(results []*Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"timestamp", "commit_hash", "go_version", "os", "arch",
		"scenario", "world", "num_agents", "runtime_ms",
		"planned", "failed", "success", "makespan", "sum_of_costs", "conflicts",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
			r.Scenario, r.World, fmt.Sprintf("%d", r.NumAgents),
			fmt.Sprintf("%.3f", r.RuntimeMs),
			fmt.Sprintf("%d", r.Planned), fmt.Sprintf("%d", r.Failed),
			fmt.Sprintf("%t", r.Success),
			fmt.Sprintf("%d", r.Makespan), fmt.Sprintf("%d", r.SumOfCosts),
			fmt.Sprintf("%d", r.Conflicts),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary aggregates the run into a JSON report.
func writeSummary(results []*Result, path string) error {
	s := &Summary{
		RunID:     uuid.New().String()[:8],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Scenarios: len(results),
		Results:   results,
	}
	var totalMs float64
	for _, r := range results {
		if r.Success {
			s.FullySolved++
		}
		s.TotalAgents += r.NumAgents
		s.TotalPlanned += r.Planned
		totalMs += r.RuntimeMs
	}
	if len(results) > 0 {
		s.AvgRuntimeMs = totalMs / float64(len(results))
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printSummary(results []*Result) {
	fmt.Println("\n=== BENCHMARK SUMMARY ===")
	fmt.Printf("%-28s %7s %8s %7s %10s %9s %6s %10s\n",
		"Scenario", "Agents", "Planned", "Failed", "Time(ms)", "Makespan", "SoC", "Conflicts")
	fmt.Println(strings.Repeat("-", 92))

	for _, r := range results {
		fmt.Printf("%-28s %7d %8d %7d %10.2f %9d %6d %10d\n",
			r.Scenario, r.NumAgents, r.Planned, r.Failed,
			r.RuntimeMs, r.Makespan, r.SumOfCosts, r.Conflicts)
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing scenario YAML files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	summaryFile := flag.String("summary", "", "Optional JSON summary file")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	outputDir := filepath.Dir(*outputFile)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	pattern := filepath.Join(*inputDir, "*.yaml")
	files, err := filepath.Glob(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding scenario files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No scenario files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gen_scenarios first: go run ./tools/gen_scenarios -scaling -output %s\n", *inputDir)
		os.Exit(1)
	}
	sort.Strings(files)

	commit := getGitCommit()
	fmt.Printf("Running benchmarks: %d scenarios\n\n", len(files))

	var results []*Result
	for i, file := range files {
		if *verbose {
			fmt.Printf("[%d/%d] %s ... ", i+1, len(files), filepath.Base(file))
		} else {
			fmt.Printf("\r[%d/%d] Running...", i+1, len(files))
		}

		result, err := runScenario(file, commit)
		if err != nil {
			if *verbose {
				fmt.Println("ERROR")
			}
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", file, err)
			continue
		}
		results = append(results, result)

		if *verbose {
			if result.Success {
				fmt.Printf("OK (%.2fms, makespan=%d)\n", result.RuntimeMs, result.Makespan)
			} else {
				fmt.Printf("%d/%d agents planned\n", result.Planned, result.NumAgents)
			}
		}
	}
	fmt.Println()

	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Results written to: %s\n", *outputFile)

	if *summaryFile != "" {
		if err := writeSummary(results, *summaryFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Summary written to: %s\n", *summaryFile)
	}

	printSummary(results)
}
