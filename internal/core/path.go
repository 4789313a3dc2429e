package core

// Path is an ordered sequence of positions. Index i is the position
// occupied at relative time i from the path's start time, so a path of
// length n spans n timesteps including the start. Paths are immutable
// once returned by the search.
type Path []Position

// At returns the position occupied at relative time t. Times past the
// end clamp to the last entry: a finished agent keeps occupying its
// final cell. Negative times clamp to the start.
func (p Path) At(t int) Position {
	if len(p) == 0 {
		return Position{}
	}
	if t < 0 {
		return p[0]
	}
	if t >= len(p) {
		return p[len(p)-1]
	}
	return p[t]
}

// Last returns the final position of the path.
func (p Path) Last() Position {
	return p[len(p)-1]
}

// Cost sums the per-step costs of the path under the given topology.
// A single-entry path costs nothing.
func (p Path) Cost(topo Topology) int {
	total := 0
	for i := 1; i < len(p); i++ {
		for _, mv := range topo.Neighbors(p[i-1]) {
			if mv.To == p[i] {
				total += mv.Cost
				break
			}
		}
	}
	return total
}
