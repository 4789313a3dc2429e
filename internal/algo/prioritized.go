package algo

import (
	"github.com/Utorque/navette-mapf/internal/core"
)

// Planner plans conflict-free paths for a set of agents by priority:
// lower Priority numbers plan first against an initially empty
// reservation table, later agents route around everything already
// committed. Complete joint planning is out of scope; an unlucky
// priority order can fail an agent a different order would have served,
// and the planner never backtracks to re-plan an earlier agent.
type Planner struct {
	Topo    core.Topology
	Horizon int
	NodeCap int
}

// NewPlanner creates a planner with the default search bounds.
func NewPlanner(topo core.Topology) *Planner {
	return &Planner{
		Topo:    topo,
		Horizon: DefaultHorizon,
		NodeCap: DefaultNodeCap,
	}
}

// PlanResult is the outcome of one planning pass. Every input agent
// lands in exactly one of Paths or Failures. Table holds the committed
// reservations and is exposed for inspection; mutating it invalidates
// the pass.
type PlanResult struct {
	Paths    map[core.AgentID]core.Path
	Failures map[core.AgentID]error
	Table    *ReservationTable
}

// Plan runs one full pass over the agents at startTime. Agents are
// planned in ascending Priority order, ties by ID, against a fresh
// table. On success the path is reserved and stored on the agent
// record; on failure the agent's stale path is cleared, the error is
// recorded, and the pass continues with the remaining agents. Two
// passes over equal inputs produce equal results.
func (p *Planner) Plan(agents []*core.Agent, startTime int) *PlanResult {
	result := &PlanResult{
		Paths:    make(map[core.AgentID]core.Path),
		Failures: make(map[core.AgentID]error),
		Table:    NewReservationTable(),
	}

	for _, agent := range core.SortAgents(agents) {
		path, err := Search(p.Topo, result.Table, agent.ID, agent.Pos, agent.Goal, startTime, p.Horizon, p.NodeCap)
		if err == nil {
			err = result.Table.Reserve(path, startTime, agent.ID)
		}
		if err != nil {
			// A stale path is worse than no path: it reflects a world
			// the table no longer describes.
			agent.Path = nil
			result.Failures[agent.ID] = err
			continue
		}
		agent.Path = path
		result.Paths[agent.ID] = path
	}

	return result
}

// PlanAgent plans a single agent against a snapshot of other agents'
// paths, all anchored at startTime. Nothing is mutated and nothing is
// reserved; committing the returned path is the caller's business, at
// its own serialization point. Collision semantics match Plan exactly,
// including the rule that a snapshot path's final cell stays occupied
// forever.
func (p *Planner) PlanAgent(agent *core.Agent, others []core.Path, startTime int) (core.Path, error) {
	oracle := NewPathListOracle(others, startTime)
	return Search(p.Topo, oracle, agent.ID, agent.Pos, agent.Goal, startTime, p.Horizon, p.NodeCap)
}
