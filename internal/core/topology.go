package core

// Move is one transition offered by a topology: the target position
// and the cost of stepping onto it. Every move takes exactly one
// timestep; cost is a weight, not a duration.
type Move struct {
	To   Position
	Cost int
}

// Topology describes a movable graph. Implementations are pure
// functions of the graph definition and hold no planning state, so the
// search and the reservation oracles are written once against this
// interface.
type Topology interface {
	// Neighbors returns every position reachable from pos in one
	// timestep, always including the wait-in-place move (cost >= 1).
	// The order must be deterministic for a given pos.
	Neighbors(pos Position) []Move

	// IsValid reports whether pos exists in the graph.
	IsValid(pos Position) bool

	// Heuristic estimates the remaining cost from pos to goal. It must
	// be admissible (never overestimate) and consistent with the costs
	// Neighbors reports, so the space-time search stays optimal for
	// the single-agent subproblem.
	Heuristic(pos, goal Position) int
}
