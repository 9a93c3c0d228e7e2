// Package field superposes beamline elements and caches their combined
// magnetic field over a rectangular grid.
//
// A [Setup] owns the elements and the grid. [Setup.CalculateField] evaluates
// every grid point in parallel and publishes an immutable [Cache] keyed by
// integer grid index. Any change to the elements or the grid marks the setup
// dirty; the cache must then be recomputed in full.
package field
