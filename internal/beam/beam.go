package beam

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/neutron"
	"github.com/san-kum/neutronsim/internal/physics"
	"github.com/san-kum/neutronsim/internal/sim"
)

// Config describes the neutron source. Speeds are in m/s, BeamSize in metres
// and AngularSpread in radians.
type Config struct {
	BeamSize      float64
	Speed         float64
	SpeedStd      float64
	AngularSpread float64
	Seed          uint64
}

func (c Config) Validate() error {
	if !(c.Speed > 0) || math.IsInf(c.Speed, 0) {
		return sim.Invalid("beam: speed must be positive, got %g", c.Speed)
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"beam size", c.BeamSize},
		{"speed std", c.SpeedStd},
		{"angular spread", c.AngularSpread},
	}
	for _, ch := range checks {
		if !(ch.v >= 0) || math.IsInf(ch.v, 0) {
			return sim.Invalid("beam: %s must be finite and non-negative, got %g", ch.name, ch.v)
		}
	}
	return nil
}

type Option func(*Beam)

func WithLogger(l *logrus.Logger) Option {
	return func(b *Beam) { b.log = l.WithField("component", "beam") }
}

// CellPolarisation is the mean polarisation of the neutrons inside one grid
// cell [X, X+x_step) along the beam axis.
type CellPolarisation struct {
	X            float64 `json:"x"`
	Count        int     `json:"count"`
	Polarisation r3.Vec  `json:"polarisation"`
}

// Beam owns a neutron population and borrows a read-only field cache.
// It is not safe for concurrent use.
type Beam struct {
	cfg      Config
	neutrons []*neutron.Neutron
	grid     *field.Grid
	field    *field.Cache
	profile  map[int]CellPolarisation
	rng      *rand.Rand
	log      *logrus.Entry
}

func New(cfg Config, opts ...Option) (*Beam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Beam{
		cfg:     cfg,
		profile: make(map[int]CellPolarisation),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		log:     sim.NopLogger().WithField("component", "beam"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Beam) Config() Config { return b.cfg }

// InitializeComputationalSpace sets the grid the neutrons are stepped on. It
// should match the grid the field was computed over.
func (b *Beam) InitializeComputationalSpace(cfg field.GridConfig) error {
	g, err := field.NewGrid(cfg)
	if err != nil {
		return err
	}
	b.grid = g
	b.profile = make(map[int]CellPolarisation)
	return nil
}

func (b *Beam) Grid() *field.Grid { return b.grid }

// LoadField borrows c for field lookups.
func (b *Beam) LoadField(c *field.Cache) error {
	if c == nil {
		return sim.Invalid("beam: no magnetic field to load")
	}
	if b.grid != nil && !b.grid.Equal(c.Grid()) {
		b.log.Warn("field was computed over a different grid, lookups may miss")
	}
	b.field = c
	return nil
}

// TimeStep is the time a neutron at the nominal speed needs to cross one cell.
func (b *Beam) TimeStep() (float64, error) {
	if b.grid == nil {
		return 0, sim.Invalid("beam: computational space not initialized")
	}
	return b.grid.XStep() / b.cfg.Speed, nil
}

// CreateNeutrons appends n neutrons starting at x = startX. With distribution
// the transverse position, speed and divergence are drawn at random;
// otherwise every neutron starts on the axis at the nominal speed. The
// polarisation is used as given.
func (b *Beam) CreateNeutrons(distribution bool, n int, polarisation r3.Vec, startX float64) error {
	if n < 0 {
		return sim.Invalid("beam: number of neutrons must not be negative, got %d", n)
	}

	for i := 0; i < n; i++ {
		position := r3.Vec{X: startX}
		velocity := r3.Vec{X: b.cfg.Speed}

		if distribution {
			sigma := b.cfg.BeamSize / 5
			position.Y = b.rng.NormFloat64() * sigma
			position.Z = b.rng.NormFloat64() * sigma

			speed := b.cfg.Speed + b.rng.NormFloat64()*b.cfg.SpeedStd
			radial := speed * math.Tan(b.rng.NormFloat64()*b.cfg.AngularSpread)
			phi := math.Atan2(position.Z, position.Y)

			velocity = r3.Vec{X: speed, Y: radial * math.Cos(phi), Z: radial * math.Sin(phi)}
		}

		b.neutrons = append(b.neutrons, neutron.New(polarisation, position, velocity))
	}

	b.log.WithFields(logrus.Fields{"created": n, "total": len(b.neutrons), "distribution": distribution}).Debug("neutrons created")
	return nil
}

// ComputeBeam advances every live neutron by one step. Neutrons outside the
// grid bounds are removed first. When a field lookup misses, the pass stops
// and the neutrons not yet stepped, the failing one included, stay in the
// population unchanged.
func (b *Beam) ComputeBeam() error {
	if b.grid == nil {
		return sim.Invalid("beam: computational space not initialized")
	}
	if b.field == nil {
		return sim.Invalid("beam: magnetic field not loaded")
	}

	bounds := b.grid.Config()
	retained := make([]*neutron.Neutron, 0, len(b.neutrons))

	for i, n := range b.neutrons {
		switch {
		case !bounds.ContainsYZ(n.Position):
			b.removed(n, "diverged in y/z")
			continue
		case !bounds.ContainsX(n.Position.X):
			b.removed(n, "exited in x")
			continue
		case !(n.Speed() > 0):
			b.removed(n, "stalled")
			continue
		}

		dt := b.grid.XStep() / n.Speed()
		start := n.Position
		n.UpdatePosition(dt)
		n.UpdatePositionYZ(dt)

		bf, err := b.field.Lookup(b.grid.Point(b.grid.Nearest(n.Position)))
		if err != nil {
			n.Position = start
			b.neutrons = append(retained, b.neutrons[i:]...)
			return err
		}

		n.Polarisation = precess(n.Polarisation, bf, dt)
		n.Record()
		retained = append(retained, n)
	}

	b.log.WithFields(logrus.Fields{"live": len(retained), "removed": len(b.neutrons) - len(retained)}).Debug("beam step")
	b.neutrons = retained
	return nil
}

func (b *Beam) removed(n *neutron.Neutron, reason string) {
	b.log.WithFields(logrus.Fields{
		"x": n.Position.X,
		"y": n.Position.Y,
		"z": n.Position.Z,
	}).Infof("removed neutron: %s", reason)
}

// precess rotates p about bf by the Larmor angle γ|B|dt.
func precess(p, bf r3.Vec, dt float64) r3.Vec {
	phi := physics.LarmorFrequency(r3.Norm(bf)) * dt
	return sim.Rotate(p, phi, bf)
}

// Propagate runs ComputeBeam and ComputeAveragePolarisation until the
// population is empty or maxSteps passes ran. maxSteps <= 0 runs until the
// population is empty.
func (b *Beam) Propagate(ctx context.Context, maxSteps int) (int, error) {
	steps := 0
	for len(b.neutrons) > 0 && (maxSteps <= 0 || steps < maxSteps) {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if err := b.ComputeBeam(); err != nil {
			return steps, err
		}
		b.ComputeAveragePolarisation()
		steps++
	}
	return steps, nil
}

// ComputeAveragePolarisation bins the live neutrons into x cells and returns
// the mean polarisation of every occupied cell in ascending x. The result
// replaces the matching cells of the accumulated profile.
func (b *Beam) ComputeAveragePolarisation() []CellPolarisation {
	if b.grid == nil {
		return nil
	}

	sums := make(map[int]CellPolarisation)
	for _, n := range b.neutrons {
		i, ok := b.cell(n.Position.X)
		if !ok {
			continue
		}
		c := sums[i]
		c.X = b.grid.X[i]
		c.Count++
		c.Polarisation = r3.Add(c.Polarisation, n.Polarisation)
		sums[i] = c
	}

	out := make([]CellPolarisation, 0, len(sums))
	for i, c := range sums {
		c.Polarisation = r3.Scale(1/float64(c.Count), c.Polarisation)
		b.profile[i] = c
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// cell finds i with X[i] <= x < X[i]+x_step.
func (b *Beam) cell(x float64) (int, bool) {
	xs, step := b.grid.X, b.grid.XStep()
	i := int(math.Floor((x - xs[0]) / step))
	if i >= 0 && i < len(xs) && x < xs[i] {
		i--
	}
	if i >= 0 && i < len(xs) && x >= xs[i]+step {
		i++
	}
	if i < 0 || i >= len(xs) || x < xs[i] || x >= xs[i]+step {
		return 0, false
	}
	return i, true
}

// Profile returns the accumulated polarisation profile in ascending x.
func (b *Beam) Profile() []CellPolarisation {
	out := make([]CellPolarisation, 0, len(b.profile))
	for _, c := range b.profile {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// Pol is the mean polarisation of the live neutrons.
func (b *Beam) Pol() (r3.Vec, error) {
	if len(b.neutrons) == 0 {
		return r3.Vec{}, sim.ErrEmptyPopulation
	}
	var sum r3.Vec
	for _, n := range b.neutrons {
		sum = r3.Add(sum, n.Polarisation)
	}
	return r3.Scale(1/float64(len(b.neutrons)), sum), nil
}

func (b *Beam) ResetPolarisation() {
	for _, n := range b.neutrons {
		n.ResetPolarisation()
	}
}

func (b *Beam) Len() int { return len(b.neutrons) }

// Neutron returns the i-th live neutron.
func (b *Beam) Neutron(i int) (*neutron.Neutron, bool) {
	if i < 0 || i >= len(b.neutrons) {
		return nil, false
	}
	return b.neutrons[i], true
}

// Neutrons returns the live population. The slice is a copy; the neutrons are not.
func (b *Beam) Neutrons() []*neutron.Neutron {
	return append([]*neutron.Neutron(nil), b.neutrons...)
}

// Collimate drops neutrons diverging more than maxAngle radians from the
// beam axis and returns how many were dropped.
func (b *Beam) Collimate(maxAngle float64) int {
	return b.filter("collimated", func(n *neutron.Neutron) bool {
		return n.Divergence() <= maxAngle
	})
}

// Monochromate drops neutrons with a wavelength outside [lo, hi] Å and
// returns how many were dropped.
func (b *Beam) Monochromate(lo, hi float64) int {
	return b.filter("monochromated", func(n *neutron.Neutron) bool {
		l := n.Wavelength()
		return l >= lo && l <= hi
	})
}

func (b *Beam) filter(cut string, keep func(*neutron.Neutron) bool) int {
	retained := make([]*neutron.Neutron, 0, len(b.neutrons))
	for _, n := range b.neutrons {
		if keep(n) {
			retained = append(retained, n)
		}
	}
	dropped := len(b.neutrons) - len(retained)
	b.neutrons = retained

	if dropped > 0 {
		b.log.WithFields(logrus.Fields{"cut": cut, "dropped": dropped, "live": len(retained)}).Info("neutrons filtered")
	}
	return dropped
}
