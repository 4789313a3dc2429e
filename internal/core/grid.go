package core

// gridSteps is the fixed expansion order for grid moves: up, left,
// right, down. Keeping this order stable keeps search output stable.
var gridSteps = [4]Position{
	{Row: -1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
}

// Grid is a rows x cols 4-connected grid with optional blocked cells.
// Every move, including waiting in place, costs 1.
type Grid struct {
	Rows, Cols int
	blocked    map[Position]bool
}

// NewGrid creates an open rows x cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows:    rows,
		Cols:    cols,
		blocked: make(map[Position]bool),
	}
}

// Block marks a cell as untraversable.
func (g *Grid) Block(pos Position) {
	g.blocked[pos] = true
}

// Blocked reports whether a cell is marked untraversable.
func (g *Grid) Blocked(pos Position) bool {
	return g.blocked[pos]
}

// IsValid reports whether pos is inside the grid and not blocked.
func (g *Grid) IsValid(pos Position) bool {
	return pos.Row >= 0 && pos.Row < g.Rows &&
		pos.Col >= 0 && pos.Col < g.Cols &&
		!g.blocked[pos]
}

// Neighbors returns the four orthogonal moves that stay on the grid,
// then the wait move. All cost 1.
func (g *Grid) Neighbors(pos Position) []Move {
	moves := make([]Move, 0, 5)
	for _, d := range gridSteps {
		next := Position{Row: pos.Row + d.Row, Col: pos.Col + d.Col}
		if g.IsValid(next) {
			moves = append(moves, Move{To: next, Cost: 1})
		}
	}
	moves = append(moves, Move{To: pos, Cost: 1}) // wait
	return moves
}

// Heuristic is the Manhattan distance, which is admissible and
// consistent on a unit-cost 4-connected grid.
func (g *Grid) Heuristic(pos, goal Position) int {
	return abs(pos.Row-goal.Row) + abs(pos.Col-goal.Col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
