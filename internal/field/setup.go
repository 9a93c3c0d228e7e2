package field

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/sim"
)

// ProgressFunc receives the number of evaluated grid points. It is called
// from the evaluation workers and must be safe for concurrent use.
type ProgressFunc func(done, total int)

type Option func(*Setup)

// WithWorkers sets the worker pool size for CalculateField. Values <= 0 use
// sim.DefaultWorkers.
func WithWorkers(n int) Option {
	return func(s *Setup) { s.workers = n }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Setup) { s.log = l.WithField("component", "setup") }
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Setup) { s.progress = fn }
}

// Setup is an ordered collection of field elements and the cached field they
// produce over a grid. It is not safe for concurrent mutation; the published
// cache may be shared freely.
type Setup struct {
	elements []coils.Element
	grid     *Grid
	cache    atomic.Pointer[Cache]
	dirty    bool

	evaluations atomic.Int64

	workers  int
	log      *logrus.Entry
	progress ProgressFunc
}

func NewSetup(opts ...Option) *Setup {
	s := &Setup{log: sim.NopLogger().WithField("component", "setup")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateElement builds an element of the given kind and appends it.
func (s *Setup) CreateElement(kind, name string, position r3.Vec, params coils.Params) (coils.Element, error) {
	e, err := coils.New(kind, name, position, params)
	if err != nil {
		return nil, err
	}
	s.AddElement(e)
	return e, nil
}

func (s *Setup) AddElement(e coils.Element) {
	s.elements = append(s.elements, e)
	s.dirty = true
	s.log.WithFields(logrus.Fields{"kind": e.Kind(), "name": e.Name(), "x": e.Position().X}).Debug("element added")
}

// Element returns the first element with the given name.
func (s *Setup) Element(name string) (coils.Element, bool) {
	for _, e := range s.elements {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

func (s *Setup) Elements() []coils.Element { return s.elements }
func (s *Setup) Grid() *Grid               { return s.grid }
func (s *Setup) Dirty() bool               { return s.dirty }
func (s *Setup) Evaluations() int64        { return s.evaluations.Load() }

// ChangeCurrent sets the same current on every element.
func (s *Setup) ChangeCurrent(current float64) {
	for _, e := range s.elements {
		e.SetCurrent(current)
	}
	s.dirty = true
}

// Invalidate marks the cached field stale after elements were changed
// through their own setters.
func (s *Setup) Invalidate() { s.dirty = true }

// TotalField sums the field of every element at p in insertion order.
func (s *Setup) TotalField(p r3.Vec) r3.Vec {
	s.evaluations.Add(1)

	var b r3.Vec
	for _, e := range s.elements {
		b = r3.Add(b, e.BField(p))
	}
	if s.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		s.log.Tracef("total field at %v: %v", p, b)
	}
	return b
}

// BX sums the axial field of the axisymmetric elements.
func (s *Setup) BX(x, rho float64) float64 {
	var sum float64
	for _, e := range s.elements {
		if a, ok := e.(coils.Axisymmetric); ok {
			sum += a.BX(x, rho)
		}
	}
	return sum
}

// BRho sums the radial field of the axisymmetric elements.
func (s *Setup) BRho(x, rho float64) float64 {
	var sum float64
	for _, e := range s.elements {
		if a, ok := e.(coils.Axisymmetric); ok {
			sum += a.BRho(x, rho)
		}
	}
	return sum
}

// FieldApprox sums the one-dimensional approximations along the beam axis.
func (s *Setup) FieldApprox(x float64) float64 {
	var sum float64
	for _, e := range s.elements {
		if a, ok := e.(coils.Approximator); ok {
			sum += a.BFieldApprox(x)
		}
	}
	return sum
}

// InitializeComputationalSpace replaces the grid.
func (s *Setup) InitializeComputationalSpace(cfg GridConfig) error {
	g, err := NewGrid(cfg)
	if err != nil {
		return err
	}
	s.grid = g
	s.dirty = true

	nx, ny, nz := g.Shape()
	s.log.WithFields(logrus.Fields{"nx": nx, "ny": ny, "nz": nz}).Debug("computational space initialized")
	return nil
}

// CalculateField evaluates the total field at every grid point and publishes
// the result as the new cache. On error the previous cache is kept.
func (s *Setup) CalculateField(ctx context.Context) (*Cache, error) {
	if s.grid == nil {
		return nil, sim.Invalid("computational space not initialized")
	}
	g := s.grid
	total := g.Len()
	s.log.Infof("%d calculations", total)

	var done atomic.Int64
	values, err := sim.ParallelMap(ctx, total, s.workers, func(n int) (r3.Vec, error) {
		b := s.TotalField(g.Point(g.Unflatten(n)))
		if s.progress != nil {
			s.progress(int(done.Add(1)), total)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	c := &Cache{grid: g, values: values}
	s.cache.Store(c)
	s.dirty = false

	s.log.WithFields(logrus.Fields{
		"points":      total,
		"elements":    len(s.elements),
		"evaluations": s.Evaluations(),
	}).Info("field calculated")
	return c, nil
}

// Cache returns the last computed field. It fails when nothing has been
// computed yet or the setup changed since.
func (s *Setup) Cache() (*Cache, error) {
	c := s.cache.Load()
	if c == nil {
		return nil, sim.Invalid("magnetic field not calculated")
	}
	if s.dirty {
		return nil, sim.Invalid("magnetic field is stale, recalculate it")
	}
	return c, nil
}
