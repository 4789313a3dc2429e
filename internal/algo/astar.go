package algo

import (
	"container/heap"

	"github.com/Utorque/navette-mapf/internal/core"
)

// Default search bounds. The horizon counts timesteps from the search's
// start time; the node cap bounds total expansions.
const (
	DefaultHorizon = 100
	DefaultNodeCap = 10000
)

// astarNode for priority queue.
type astarNode struct {
	state  core.SpaceTimeState
	g      int // cost so far
	f      int // g + h
	parent *astarNode
	index  int // heap index
}

// astarHeap implements heap.Interface. Ties break toward larger g
// (deeper nodes first), then by position and time, so pop order is a
// total order and identical inputs replay identically.
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g > h[j].g
	}
	if h[i].state.Pos != h[j].state.Pos {
		return h[i].state.Pos.Less(h[j].state.Pos)
	}
	return h[i].state.T < h[j].state.T
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Search runs space-time A* for one agent from start to goal, departing
// at startTime. Occupancy comes from the oracle; the agent's own claims
// never block it. Every transition, waits included, advances time by
// exactly one step, and no state beyond startTime+horizon is ever
// generated. The returned path holds one position per timestep with the
// start at index 0, ending at the first arrival on the goal that the
// agent can hold: a committed path parks on its final cell forever, so
// an arrival is only accepted when no other claim touches the goal at
// any later time. If traffic crosses the goal cell later, the agent
// arrives after it has passed.
//
// On failure the path is nil and the error unwraps to one of the
// sentinel kinds: ErrInvalidStart and ErrInvalidGoal for endpoints the
// topology rejects, ErrNodeCapExceeded after nodeCap expansions, and
// ErrNoPathWithinHorizon when the bounded search space is exhausted.
func Search(
	topo core.Topology,
	oracle Oracle,
	agent core.AgentID,
	start, goal core.Position,
	startTime, horizon, nodeCap int,
) (core.Path, error) {
	if !topo.IsValid(start) {
		return nil, planErr(agent, ErrInvalidStart, "%v", start)
	}
	if !topo.IsValid(goal) {
		return nil, planErr(agent, ErrInvalidGoal, "%v", goal)
	}

	deadline := startTime + horizon

	open := &astarHeap{}
	heap.Init(open)

	startState := core.SpaceTimeState{Pos: start, T: startTime}
	heap.Push(open, &astarNode{
		state: startState,
		g:     0,
		f:     topo.Heuristic(start, goal),
	})

	// gScore admits a successor only on strict improvement, so the first
	// equal-cost parent wins and expansion order settles every tie.
	gScore := map[core.SpaceTimeState]int{startState: 0}
	closed := make(map[core.SpaceTimeState]bool)
	expanded := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*astarNode)

		if closed[current.state] {
			continue
		}
		closed[current.state] = true

		if current.state.Pos == goal && oracle.VertexFreeFrom(goal, current.state.T, agent) {
			return reconstructPath(current), nil
		}

		expanded++
		if expanded > nodeCap {
			return nil, planErr(agent, ErrNodeCapExceeded, "%d nodes expanded before reaching %v", expanded, goal)
		}

		nextT := current.state.T + 1
		if nextT > deadline {
			continue
		}

		for _, mv := range topo.Neighbors(current.state.Pos) {
			if !oracle.VertexFree(mv.To, nextT, agent) {
				continue
			}
			if !oracle.EdgeFree(current.state.Pos, mv.To, current.state.T, agent) {
				continue
			}

			next := core.SpaceTimeState{Pos: mv.To, T: nextT}
			g := current.g + mv.Cost
			if best, seen := gScore[next]; seen && g >= best {
				continue
			}
			gScore[next] = g

			heap.Push(open, &astarNode{
				state:  next,
				g:      g,
				f:      g + topo.Heuristic(mv.To, goal),
				parent: current,
			})
		}
	}

	return nil, planErr(agent, ErrNoPathWithinHorizon, "goal %v unreached by t=%d", goal, deadline)
}

func reconstructPath(node *astarNode) core.Path {
	depth := 0
	for n := node; n != nil; n = n.parent {
		depth++
	}
	path := make(core.Path, depth)
	for n := node; n != nil; n = n.parent {
		depth--
		path[depth] = n.state.Pos
	}
	return path
}
