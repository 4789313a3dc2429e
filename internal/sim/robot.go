package sim

import "github.com/Utorque/navette-mapf/internal/core"

// RobotStatus describes what a robot is doing in the current tick.
type RobotStatus int

const (
	// StatusIdle: parked on its cell with no route.
	StatusIdle RobotStatus = iota
	// StatusMoving: following a committed order route.
	StatusMoving
	// StatusRelocating: clearing a cell another robot needs.
	StatusRelocating
)

func (s RobotStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusMoving:
		return "moving"
	case StatusRelocating:
		return "relocating"
	default:
		return "unknown"
	}
}

// Robot is one simulated vehicle. Its path holds one position per tick
// with the current position at pathIndex; the cell at pathIndex+1 is
// where it intends to stand next tick. Waypoints are the cells the
// route still has to visit, in order, so an interrupted route can be
// replanned leg by leg.
type Robot struct {
	ID       core.AgentID
	Priority int
	Pos      core.Position
	Status   RobotStatus

	// Waiting is set while the collision guard holds the robot in
	// place, and cleared the moment it moves again.
	Waiting bool

	path       core.Path
	pathIndex  int
	waypoints  []core.Position
	holdStreak int
}

// moving reports whether the robot still has steps left to take.
func (r *Robot) moving() bool {
	return r.Status != StatusIdle && r.pathIndex < len(r.path)-1
}

// nextPos is the cell the robot intends to stand on next tick. Idle
// robots and finished routes intend to stay put.
func (r *Robot) nextPos() core.Position {
	if !r.moving() {
		return r.Pos
	}
	return r.path[r.pathIndex+1]
}

// pathDone reports whether the route has no steps left.
func (r *Robot) pathDone() bool {
	return r.pathIndex >= len(r.path)-1
}

// follow commits the robot to a new route. The path must start on the
// robot's current cell.
func (r *Robot) follow(path core.Path, status RobotStatus, waypoints []core.Position) {
	r.path = path
	r.pathIndex = 0
	r.Status = status
	r.Waiting = false
	r.waypoints = waypoints
	r.popWaypoints()
}

// resume swaps in a replanned path while keeping the robot's status and
// outstanding waypoints.
func (r *Robot) resume(path core.Path) {
	r.path = path
	r.pathIndex = 0
	r.Waiting = false
	r.popWaypoints()
}

// advance steps the robot onto its intended cell.
func (r *Robot) advance() {
	r.pathIndex++
	r.Pos = r.path[r.pathIndex]
	r.Waiting = false
	r.holdStreak = 0
	r.popWaypoints()
}

// hold keeps the robot in place for this tick.
func (r *Robot) hold() {
	r.Waiting = true
	r.holdStreak++
}

// idle drops the route and parks the robot where it stands.
func (r *Robot) idle() {
	r.Status = StatusIdle
	r.Waiting = false
	r.path = nil
	r.pathIndex = 0
	r.waypoints = nil
	r.holdStreak = 0
}

func (r *Robot) popWaypoints() {
	for len(r.waypoints) > 0 && r.Pos == r.waypoints[0] {
		r.waypoints = r.waypoints[1:]
	}
}

// snapshotPath is the robot's committed route from its current cell
// onward, the shape the planning oracle expects: an idle robot
// contributes a single-cell path and blocks its cell through the
// terminal extension.
func (r *Robot) snapshotPath() core.Path {
	if !r.moving() {
		return core.Path{r.Pos}
	}
	return r.path[r.pathIndex:]
}

// agentForGoal builds the planner's view of this robot.
func (r *Robot) agentForGoal(goal core.Position) *core.Agent {
	return &core.Agent{ID: r.ID, Pos: r.Pos, Goal: goal, Priority: r.Priority}
}
