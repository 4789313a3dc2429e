package algo

import (
	"errors"
	"fmt"

	"github.com/Utorque/navette-mapf/internal/core"
)

// Sentinel failure kinds returned by the search. Callers match them with
// errors.Is; the concrete error may carry agent and bound details.
var (
	// ErrNoPathWithinHorizon means the search space was exhausted without
	// reaching the goal before the time horizon.
	ErrNoPathWithinHorizon = errors.New("no path within horizon")

	// ErrNodeCapExceeded means the search expanded more nodes than allowed.
	ErrNodeCapExceeded = errors.New("search node cap exceeded")

	// ErrInvalidStart means the start position is not valid in the topology.
	ErrInvalidStart = errors.New("invalid start position")

	// ErrInvalidGoal means the goal position is not valid in the topology.
	ErrInvalidGoal = errors.New("invalid goal position")
)

// PlanError wraps a failure kind with the agent it concerns.
type PlanError struct {
	Agent core.AgentID
	Kind  error
	Msg   string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("agent %d: %s: %s", e.Agent, e.Kind, e.Msg)
}

func (e *PlanError) Unwrap() error { return e.Kind }

func planErr(agent core.AgentID, kind error, format string, args ...any) *PlanError {
	return &PlanError{Agent: agent, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
