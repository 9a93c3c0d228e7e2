package sim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Domain errors for field and beam operations.
var (
	// ErrInvalidConfiguration indicates missing or invalid geometry, grid or beam parameters.
	ErrInvalidConfiguration = errors.New("sim: invalid configuration")

	// ErrFieldLookupMiss indicates a position with no value in the field cache.
	ErrFieldLookupMiss = errors.New("sim: field lookup miss")

	// ErrEmptyPopulation indicates statistics requested on zero neutrons.
	ErrEmptyPopulation = errors.New("sim: empty neutron population")

	// ErrStorageFailure indicates a field map could not be loaded or saved.
	ErrStorageFailure = errors.New("sim: storage failure")
)

// LookupError reports a neutron position that could not be matched to the
// field cache. The field must be recomputed over a matching grid.
type LookupError struct {
	Position r3.Vec
	Reason   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%v: no magnetic field at position (%g, %g, %g): %s; the field probably needs to be reevaluated",
		ErrFieldLookupMiss, e.Position.X, e.Position.Y, e.Position.Z, e.Reason)
}

func (e *LookupError) Unwrap() error {
	return ErrFieldLookupMiss
}

// Invalid wraps ErrInvalidConfiguration with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
