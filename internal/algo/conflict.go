package algo

import (
	"sort"

	"github.com/Utorque/navette-mapf/internal/core"
)

// Conflict is a collision between two committed paths. A and B are
// ordered A < B. A vertex conflict means both agents occupy Pos at time
// T; a swap conflict means they traverse one edge in opposite
// directions during the step departing at T, with From->To the
// direction agent A moves.
type Conflict struct {
	A, B   core.AgentID
	Pos    core.Position
	T      int
	IsEdge bool
	// Set for swap conflicts only.
	From, To core.Position
}

// sortedAgentIDs returns the map's keys in ascending order.
func sortedAgentIDs(paths map[core.AgentID]core.Path) []core.AgentID {
	ids := make([]core.AgentID, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// lastStep returns the largest relative time at which any path is still
// moving. Beyond it every agent sits on its final cell, so scanning
// further cannot surface a new conflict.
func lastStep(paths map[core.AgentID]core.Path) int {
	max := 0
	for _, p := range paths {
		if len(p)-1 > max {
			max = len(p) - 1
		}
	}
	return max
}

// FindFirstConflict scans committed paths (all sharing one start time,
// indexed by relative timestep) and returns the earliest conflict, or
// nil if the paths are compatible. Paths that have ended keep occupying
// their final cell. At equal times vertex conflicts precede swaps, and
// agent pairs are scanned in sorted ID order, so the answer is
// deterministic.
func FindFirstConflict(paths map[core.AgentID]core.Path) *Conflict {
	ids := sortedAgentIDs(paths)
	horizon := lastStep(paths)

	for t := 0; t <= horizon; t++ {
		for i := 0; i < len(ids); i++ {
			a := paths[ids[i]]
			if len(a) == 0 {
				continue
			}
			for j := i + 1; j < len(ids); j++ {
				b := paths[ids[j]]
				if len(b) == 0 {
					continue
				}
				if c := pairConflictAt(ids[i], ids[j], a, b, t); c != nil && !c.IsEdge {
					return c
				}
			}
		}
		for i := 0; i < len(ids); i++ {
			a := paths[ids[i]]
			if len(a) == 0 {
				continue
			}
			for j := i + 1; j < len(ids); j++ {
				b := paths[ids[j]]
				if len(b) == 0 {
					continue
				}
				if c := pairConflictAt(ids[i], ids[j], a, b, t); c != nil && c.IsEdge {
					return c
				}
			}
		}
	}
	return nil
}

// FindAllConflicts returns every conflict in the committed paths, in
// the same deterministic order FindFirstConflict scans them.
func FindAllConflicts(paths map[core.AgentID]core.Path) []*Conflict {
	ids := sortedAgentIDs(paths)
	horizon := lastStep(paths)

	var conflicts []*Conflict
	for t := 0; t <= horizon; t++ {
		for _, isEdge := range []bool{false, true} {
			for i := 0; i < len(ids); i++ {
				a := paths[ids[i]]
				if len(a) == 0 {
					continue
				}
				for j := i + 1; j < len(ids); j++ {
					b := paths[ids[j]]
					if len(b) == 0 {
						continue
					}
					if c := pairConflictAt(ids[i], ids[j], a, b, t); c != nil && c.IsEdge == isEdge {
						conflicts = append(conflicts, c)
					}
				}
			}
		}
	}
	return conflicts
}

// pairConflictAt checks one agent pair at one relative timestep. The
// vertex check covers time t itself; the swap check covers the step
// departing at t.
func pairConflictAt(idA, idB core.AgentID, a, b core.Path, t int) *Conflict {
	posA, posB := a.At(t), b.At(t)
	if posA == posB {
		return &Conflict{A: idA, B: idB, Pos: posA, T: t}
	}

	nextA, nextB := a.At(t+1), b.At(t+1)
	if posA != nextA && posA == nextB && nextA == posB {
		return &Conflict{
			A: idA, B: idB,
			Pos: posA, T: t,
			IsEdge: true,
			From:   posA, To: nextA,
		}
	}
	return nil
}
