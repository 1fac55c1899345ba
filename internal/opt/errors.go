package opt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter is returned before a run starts when the run
	// parameters, fleet or graph cannot be used.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrIterationLimitExceeded is returned when a simulation round does not
	// settle within MaxTicks ticks.
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")
)

// IterationLimitError reports which iteration tripped the tick bound.
type IterationLimitError struct {
	Iteration int
	Ticks     int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("iteration %d: simulation did not settle after %d ticks", e.Iteration, e.Ticks)
}

func (e *IterationLimitError) Unwrap() error { return ErrIterationLimitExceeded }

// UnreachableDemandError lists demand nodes with no path to the depot. No
// round can settle with that demand served, so it is reported as an
// iteration limit before any tick runs.
type UnreachableDemandError struct {
	Nodes []string
}

func (e *UnreachableDemandError) Error() string {
	return fmt.Sprintf("demand at %s is unreachable from the depot", strings.Join(e.Nodes, ", "))
}

func (e *UnreachableDemandError) Unwrap() error { return ErrIterationLimitExceeded }

func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParameter}, args...)...)
}
