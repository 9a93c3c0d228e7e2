// Package experiment wires a configuration into a field setup and a beam run.
package experiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/config"
	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/sim"
)

type Option func(*Experiment)

func WithLogger(l *logrus.Logger) Option {
	return func(e *Experiment) { e.log = l }
}

func WithProgress(fn field.ProgressFunc) Option {
	return func(e *Experiment) { e.progress = fn }
}

// WithWorkers overrides the configured worker count.
func WithWorkers(n int) Option {
	return func(e *Experiment) { e.workers = n }
}

type Experiment struct {
	cfg      *config.Config
	log      *logrus.Logger
	progress field.ProgressFunc
	workers  int
}

// Result summarizes one beam run.
type Result struct {
	Created       int
	Steps         int
	Live          int
	Collimated    int
	Monochromated int
	// Polarisation is the mean over the live neutrons, or the last occupied
	// cell of the profile once the whole beam has left the grid.
	Polarisation r3.Vec
	Profile      []beam.CellPolarisation
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:     cfg,
		log:     sim.NopLogger(),
		workers: cfg.Workers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// BuildSetup creates every configured element and the grid.
func (e *Experiment) BuildSetup() (*field.Setup, error) {
	opts := []field.Option{field.WithWorkers(e.workers), field.WithLogger(e.log)}
	if e.progress != nil {
		opts = append(opts, field.WithProgress(e.progress))
	}
	s := field.NewSetup(opts...)

	for i, ec := range e.cfg.Elements {
		pos, err := ec.PositionVec()
		if err != nil {
			return nil, err
		}
		if _, err := s.CreateElement(ec.Kind, ec.Name, pos, ec.Params); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	if err := s.InitializeComputationalSpace(e.cfg.Grid); err != nil {
		return nil, err
	}
	return s, nil
}

// ComputeField builds the setup and evaluates its field.
func (e *Experiment) ComputeField(ctx context.Context) (*field.Setup, *field.Cache, error) {
	s, err := e.BuildSetup()
	if err != nil {
		return nil, nil, err
	}
	c, err := s.CalculateField(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

// RunBeam creates the configured neutrons, applies the cuts and propagates
// them through c over the grid of c.
func (e *Experiment) RunBeam(ctx context.Context, c *field.Cache) (*Result, error) {
	bc := e.cfg.Beam
	params, err := bc.Params()
	if err != nil {
		return nil, err
	}
	pol, err := bc.PolarisationVec()
	if err != nil {
		return nil, err
	}

	b, err := beam.New(params, beam.WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, sim.Invalid("experiment: no magnetic field")
	}
	// The beam steps on the grid the field was computed over, which for a
	// stored map may differ from the configured one.
	if err := b.InitializeComputationalSpace(c.Grid().Config()); err != nil {
		return nil, err
	}
	if err := b.LoadField(c); err != nil {
		return nil, err
	}
	if err := b.CreateNeutrons(bc.Distribution, bc.Neutrons, pol, bc.StartingPositionX); err != nil {
		return nil, err
	}

	res := &Result{Created: b.Len()}
	if bc.MaxAngle > 0 {
		res.Collimated = b.Collimate(bc.MaxAngle)
	}
	if bc.Monochromate {
		res.Monochromated = b.Monochromate(bc.WavelengthMin, bc.WavelengthMax)
	}

	b.ComputeAveragePolarisation()
	res.Steps, err = b.Propagate(ctx, bc.Steps)
	if err != nil {
		return nil, err
	}

	res.Live = b.Len()
	res.Profile = b.Profile()
	if p, err := b.Pol(); err == nil {
		res.Polarisation = p
	} else if len(res.Profile) > 0 {
		res.Polarisation = res.Profile[len(res.Profile)-1].Polarisation
	} else {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"steps":   res.Steps,
		"created": res.Created,
		"live":    res.Live,
	}).Info("beam computed")
	return res, nil
}

// Run computes the field and runs the beam through it.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	_, c, err := e.ComputeField(ctx)
	if err != nil {
		return nil, err
	}
	return e.RunBeam(ctx, c)
}

// ApplyParams sets element parameters on cfg. Keys take the form
// "element.param"; the param "x" moves the element along the beam axis.
func ApplyParams(cfg *config.Config, params map[string]float64) error {
	for key, v := range params {
		name, param, ok := strings.Cut(key, ".")
		if !ok || name == "" || param == "" {
			return sim.Invalid("parameter %q is not of the form element.param", key)
		}
		ec, ok := cfg.Element(name)
		if !ok {
			return sim.Invalid("parameter %q: no element named %q", key, name)
		}
		if param == "x" {
			if len(ec.Position) == 0 {
				ec.Position = []float64{0}
			}
			ec.Position[0] = v
			continue
		}
		if ec.Params == nil {
			ec.Params = make(map[string]float64)
		}
		ec.Params[param] = v
	}
	return nil
}
