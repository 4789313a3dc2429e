// Package core defines the domain model for the navette planner:
// positions, space-time states, paths, agents, and the pluggable
// topology the search runs on.
package core

import (
	"fmt"
	"sort"
)

// AgentID is a unique agent identifier.
type AgentID int

// Position is a cell in a topology's graph. It is immutable,
// comparable, and usable as a map key.
type Position struct {
	Row, Col int
}

// Less orders positions by (Row, Col). Used for deterministic
// tie-breaking in the search and for stable iteration in tooling.
func (p Position) Less(q Position) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Col < q.Col
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// SpaceTimeState is a (position, time) pair: the unit of search-node
// identity and of collision checking. Two states are equal iff both
// fields match.
type SpaceTimeState struct {
	Pos Position
	T   int
}

// Agent is one planned entity: identity, where it is, where it wants
// to go, and the priority that orders it against the others. Lower
// Priority plans first and wins all runtime conflicts; ties are broken
// by AgentID.
type Agent struct {
	ID       AgentID
	Pos      Position
	Goal     Position
	Priority int

	// Path is the agent's committed plan. It is owned exclusively by
	// this record: replaced wholesale on replanning, never mutated in
	// place.
	Path Path
}

// SortAgents returns agents ordered by ascending Priority, ties by
// AgentID. This is the planning order; (Priority, ID) is a total order
// so the result is deterministic.
func SortAgents(agents []*Agent) []*Agent {
	sorted := make([]*Agent, len(agents))
	copy(sorted, agents)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
