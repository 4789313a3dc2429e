// Package algo implements the planning engine: the reservation oracle,
// space-time A*, the prioritized multi-agent planner, and the conflict
// checker used to audit committed plans.
package algo

import (
	"fmt"
	"sort"

	"github.com/Utorque/navette-mapf/internal/core"
)

// Oracle answers occupancy queries during a search. VertexFree reports
// whether pos is unclaimed at time t; EdgeFree reports whether the move
// departing from at time t (arriving at to at t+1) crosses nobody moving
// the opposite way in the same step; VertexFreeFrom reports whether pos
// stays unclaimed at every time >= from, which is what the search needs
// before it lets an agent stop: a committed path parks on its final cell
// for good. An agent's own claims never block it, so replanning an agent
// against a table that still holds its old path is safe.
type Oracle interface {
	VertexFree(pos core.Position, t int, agent core.AgentID) bool
	EdgeFree(from, to core.Position, t int, agent core.AgentID) bool
	VertexFreeFrom(pos core.Position, from int, agent core.AgentID) bool
}

// edge is a directed cell-to-cell transition within one timestep.
type edge struct {
	From, To core.Position
}

// ReservationTable is the mutable oracle backing used by batch planning.
// It records which agent holds which cell at which time, which agent
// crosses which directed edge in which step, and each agent's terminal
// state so a committed path keeps holding its final cell forever.
type ReservationTable struct {
	vertices  map[int]map[core.Position]core.AgentID
	edges     map[int]map[edge]core.AgentID
	terminals map[core.AgentID]core.SpaceTimeState
}

// NewReservationTable creates an empty table.
func NewReservationTable() *ReservationTable {
	return &ReservationTable{
		vertices:  make(map[int]map[core.Position]core.AgentID),
		edges:     make(map[int]map[edge]core.AgentID),
		terminals: make(map[core.AgentID]core.SpaceTimeState),
	}
}

// VertexFree reports whether pos is unclaimed at time t, for the given
// agent. A cell is claimed either by an explicit entry or by another
// agent's terminal extension (it parked there at or before t).
func (r *ReservationTable) VertexFree(pos core.Position, t int, agent core.AgentID) bool {
	if owner, ok := r.vertices[t][pos]; ok && owner != agent {
		return false
	}
	for other, term := range r.terminals {
		if other != agent && term.Pos == pos && t >= term.T {
			return false
		}
	}
	return true
}

// EdgeFree reports whether the step from->to departing at time t swaps
// with another agent. It is false iff the reverse directed edge is held
// by a different agent in the same step. Waits never swap.
func (r *ReservationTable) EdgeFree(from, to core.Position, t int, agent core.AgentID) bool {
	if owner, ok := r.edges[t][edge{From: to, To: from}]; ok && owner != agent {
		return false
	}
	return true
}

// VertexFreeFrom reports whether pos stays unclaimed by every other
// agent at all times >= from. Another agent's terminal on pos blocks
// regardless of its arrival time: parked means parked for good.
func (r *ReservationTable) VertexFreeFrom(pos core.Position, from int, agent core.AgentID) bool {
	for t, vs := range r.vertices {
		if t < from {
			continue
		}
		if owner, ok := vs[pos]; ok && owner != agent {
			return false
		}
	}
	for other, term := range r.terminals {
		if other != agent && term.Pos == pos {
			return false
		}
	}
	return true
}

// Reserve commits a path that starts at startTime: one vertex entry per
// timestep, one edge entry per actual move, and the terminal state at
// the path's end. Reserving again for the same agent replaces its old
// claims, so the call is idempotent. If any entry would overwrite a
// different agent's claim the table is left untouched and an error is
// returned; paths produced by the search against this table never
// trigger that.
func (r *ReservationTable) Reserve(path core.Path, startTime int, agent core.AgentID) error {
	if len(path) == 0 {
		return nil
	}

	for i, pos := range path {
		t := startTime + i
		if !r.VertexFree(pos, t, agent) {
			return fmt.Errorf("reserve agent %d: %v at t=%d already claimed by agent %d", agent, pos, t, r.ownerAt(pos, t))
		}
		if i > 0 && !r.EdgeFree(path[i-1], pos, t-1, agent) {
			return fmt.Errorf("reserve agent %d: edge %v->%v at t=%d swaps with agent %d", agent, path[i-1], pos, t-1, r.edges[t-1][edge{From: pos, To: path[i-1]}])
		}
	}
	last := path[len(path)-1]
	if !r.VertexFreeFrom(last, startTime+len(path)-1, agent) {
		return fmt.Errorf("reserve agent %d: final cell %v cannot be held from t=%d", agent, last, startTime+len(path)-1)
	}

	r.Release(agent)

	for i, pos := range path {
		t := startTime + i
		vs, ok := r.vertices[t]
		if !ok {
			vs = make(map[core.Position]core.AgentID)
			r.vertices[t] = vs
		}
		vs[pos] = agent

		if i > 0 && path[i-1] != pos {
			es, ok := r.edges[t-1]
			if !ok {
				es = make(map[edge]core.AgentID)
				r.edges[t-1] = es
			}
			es[edge{From: path[i-1], To: pos}] = agent
		}
	}

	r.terminals[agent] = core.SpaceTimeState{
		Pos: path[len(path)-1],
		T:   startTime + len(path) - 1,
	}
	return nil
}

// Release removes every claim owned by the agent, terminal included.
// Releasing an unknown agent is a no-op.
func (r *ReservationTable) Release(agent core.AgentID) {
	for t, vs := range r.vertices {
		for pos, owner := range vs {
			if owner == agent {
				delete(vs, pos)
			}
		}
		if len(vs) == 0 {
			delete(r.vertices, t)
		}
	}
	for t, es := range r.edges {
		for e, owner := range es {
			if owner == agent {
				delete(es, e)
			}
		}
		if len(es) == 0 {
			delete(r.edges, t)
		}
	}
	delete(r.terminals, agent)
}

// OwnerAt resolves which agent holds pos at time t, through explicit
// entries or terminal extension. Inspection only; the search goes
// through VertexFree.
func (r *ReservationTable) OwnerAt(pos core.Position, t int) (core.AgentID, bool) {
	if owner, ok := r.vertices[t][pos]; ok {
		return owner, true
	}
	for other, term := range r.terminals {
		if term.Pos == pos && t >= term.T {
			return other, true
		}
	}
	return 0, false
}

// ownerAt is OwnerAt without the found flag, for error messages.
func (r *ReservationTable) ownerAt(pos core.Position, t int) core.AgentID {
	owner, _ := r.OwnerAt(pos, t)
	return owner
}

// Agents returns the agents with committed paths, in ID order.
func (r *ReservationTable) Agents() []core.AgentID {
	ids := make([]core.AgentID, 0, len(r.terminals))
	for id := range r.terminals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PathListOracle is the immutable oracle backing used for incremental
// single-agent planning. It wraps a snapshot of other agents' paths, all
// starting at the same time; each path's last position extends forever,
// so parked and finished agents block their cells. The agent argument of
// the read methods is ignored: the snapshot never contains the planning
// agent's own path.
type PathListOracle struct {
	paths     []core.Path
	startTime int
}

// NewPathListOracle wraps a snapshot of committed paths starting at
// startTime. The slice is kept by reference; callers must not mutate it
// while the oracle is in use.
func NewPathListOracle(paths []core.Path, startTime int) *PathListOracle {
	return &PathListOracle{paths: paths, startTime: startTime}
}

// VertexFree reports whether no snapshot path occupies pos at time t.
func (o *PathListOracle) VertexFree(pos core.Position, t int, _ core.AgentID) bool {
	rel := t - o.startTime
	for _, p := range o.paths {
		if len(p) == 0 {
			continue
		}
		if p.At(rel) == pos {
			return false
		}
	}
	return true
}

// EdgeFree reports whether no snapshot path traverses to->from in the
// step departing at time t. Waits never swap.
func (o *PathListOracle) EdgeFree(from, to core.Position, t int, _ core.AgentID) bool {
	if from == to {
		return true
	}
	rel := t - o.startTime
	for _, p := range o.paths {
		if len(p) == 0 {
			continue
		}
		if p.At(rel) == to && p.At(rel+1) == from {
			return false
		}
	}
	return true
}

// VertexFreeFrom reports whether no snapshot path touches pos at any
// time >= from. A path ending on pos blocks it outright through the
// terminal extension.
func (o *PathListOracle) VertexFreeFrom(pos core.Position, from int, _ core.AgentID) bool {
	rel := from - o.startTime
	if rel < 0 {
		rel = 0
	}
	for _, p := range o.paths {
		if len(p) == 0 {
			continue
		}
		if p.Last() == pos {
			return false
		}
		for i := rel; i < len(p)-1; i++ {
			if p[i] == pos {
				return false
			}
		}
	}
	return true
}
