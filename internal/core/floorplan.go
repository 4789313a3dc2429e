package core

import "strconv"

// DefaultRooms is the standard five-room layout: an inbound dock, three
// work rooms, and an outbound dock.
var DefaultRooms = []string{"in", "A", "B", "C", "out"}

// FloorPlan is a two-tier corridor/room world. Row 0 holds one named
// room per column; row 1 is the corridor. A room connects only to the
// corridor cell directly below it, so all traffic funnels through the
// corridor. Every move, including waiting, costs 1.
type FloorPlan struct {
	rooms []string
	index map[string]int
}

// NewFloorPlan creates a floor plan with the given room names, one
// column per room, left to right. Empty input falls back to
// DefaultRooms.
func NewFloorPlan(rooms []string) *FloorPlan {
	if len(rooms) == 0 {
		rooms = DefaultRooms
	}
	fp := &FloorPlan{
		rooms: append([]string(nil), rooms...),
		index: make(map[string]int, len(rooms)),
	}
	for i, name := range fp.rooms {
		fp.index[name] = i
	}
	return fp
}

// Rooms returns the room names in column order.
func (f *FloorPlan) Rooms() []string {
	return append([]string(nil), f.rooms...)
}

// Width returns the number of columns.
func (f *FloorPlan) Width() int {
	return len(f.rooms)
}

// RoomPosition returns the position of a room by name.
func (f *FloorPlan) RoomPosition(name string) (Position, bool) {
	col, ok := f.index[name]
	if !ok {
		return Position{}, false
	}
	return Position{Row: 0, Col: col}, true
}

// Corridor returns the corridor cell in the given column.
func (f *FloorPlan) Corridor(col int) Position {
	return Position{Row: 1, Col: col}
}

// IsRoom reports whether pos is a room cell.
func (f *FloorPlan) IsRoom(pos Position) bool {
	return pos.Row == 0 && pos.Col >= 0 && pos.Col < len(f.rooms)
}

// LocationName names a position for logs and status output: the room
// name on row 0, "corridor-<col>" on row 1.
func (f *FloorPlan) LocationName(pos Position) string {
	if pos.Row == 0 && pos.Col >= 0 && pos.Col < len(f.rooms) {
		return f.rooms[pos.Col]
	}
	return "corridor-" + strconv.Itoa(pos.Col)
}

// IsValid reports whether pos is one of the two rows and inside the
// column range.
func (f *FloorPlan) IsValid(pos Position) bool {
	return (pos.Row == 0 || pos.Row == 1) &&
		pos.Col >= 0 && pos.Col < len(f.rooms)
}

// Neighbors returns the legal moves. In the corridor: left, right, up
// into the room above, wait. In a room: down into the corridor, wait.
func (f *FloorPlan) Neighbors(pos Position) []Move {
	moves := make([]Move, 0, 4)
	switch pos.Row {
	case 1: // corridor
		if pos.Col > 0 {
			moves = append(moves, Move{To: Position{Row: 1, Col: pos.Col - 1}, Cost: 1})
		}
		if pos.Col < len(f.rooms)-1 {
			moves = append(moves, Move{To: Position{Row: 1, Col: pos.Col + 1}, Cost: 1})
		}
		moves = append(moves, Move{To: Position{Row: 0, Col: pos.Col}, Cost: 1})
		moves = append(moves, Move{To: pos, Cost: 1}) // wait
	case 0: // room
		moves = append(moves, Move{To: Position{Row: 1, Col: pos.Col}, Cost: 1})
		moves = append(moves, Move{To: pos, Cost: 1}) // wait
	}
	return moves
}

// Heuristic is the exact walking distance on an empty floor plan and is
// therefore admissible and consistent. Entering or leaving a room
// always passes through the corridor cell below it.
func (f *FloorPlan) Heuristic(pos, goal Position) int {
	dc := abs(pos.Col - goal.Col)
	if goal.Row == 1 {
		// Corridor goal: step down if needed, then walk the corridor.
		return abs(pos.Row-1) + dc
	}
	// Room goal.
	if dc == 0 {
		return pos.Row // 0 if already in the room, 1 from the corridor below
	}
	exit := 0
	if pos.Row == 0 {
		exit = 1 // leave the current room first
	}
	return exit + dc + 1 // corridor walk plus the step up into the room
}
