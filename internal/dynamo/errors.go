package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfig indicates invalid parameters, detected before any step runs.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrDiverged indicates a NaN, infinite or unbounded vortex position.
	ErrDiverged = errors.New("dynamo: simulation diverged")

	// ErrGeometry indicates a pinning layout cannot be placed in the domain.
	ErrGeometry = errors.New("dynamo: cannot place pinning sites in domain")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step     int
	Time     float64
	Vortex   int
	Position Vec
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) vortex %d at %v: %v", e.Step, e.Time, e.Vortex, e.Position, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
