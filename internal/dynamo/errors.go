package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for the update step.
var (
	// ErrInvalidState indicates a position or velocity with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnsupportedIntegrator indicates an integration mode other than md or sd.
	ErrUnsupportedIntegrator = errors.New("dynamo: unsupported integrator mode")

	// ErrInvalidFreeze indicates a malformed frozen-dimension specification.
	ErrInvalidFreeze = errors.New("dynamo: invalid freeze specification")

	// ErrConstraintFailure indicates the constraint projection did not converge.
	ErrConstraintFailure = errors.New("dynamo: constraint projection failed")

	// ErrGroupMismatch indicates inconsistent group or group-pair counts.
	ErrGroupMismatch = errors.New("dynamo: group count mismatch")

	// ErrDimensionMismatch indicates per-particle arrays of different lengths.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between particle arrays")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")
)

// StepError wraps a fatal error with the step it aborted.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
