// Package sim provides the primitives shared by the field and beam packages.
//
//   - the error taxonomy ([ErrInvalidConfiguration], [ErrFieldLookupMiss],
//     [ErrEmptyPopulation], [ErrStorageFailure])
//   - [ParallelMap]: fixed worker pool over independent work items
//   - [Rotate]: Rodrigues rotation used for Larmor precession
//
// # Errors
//
// Operations wrap a sentinel with the offending value, so callers match with
// errors.Is and still get a descriptive message:
//
//	_, err := setup.Cache()
//	if errors.Is(err, sim.ErrInvalidConfiguration) {
//	    // recompute the field over a matching grid
//	}
package sim
