package field

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

// GridConfig bounds the computational space. Y and Z share one step.
type GridConfig struct {
	XStart float64 `yaml:"x_start" json:"x_start"`
	XEnd   float64 `yaml:"x_end" json:"x_end"`
	XStep  float64 `yaml:"x_step" json:"x_step"`
	YStart float64 `yaml:"y_start" json:"y_start"`
	YEnd   float64 `yaml:"y_end" json:"y_end"`
	ZStart float64 `yaml:"z_start" json:"z_start"`
	ZEnd   float64 `yaml:"z_end" json:"z_end"`
	YZStep float64 `yaml:"yz_step" json:"yz_step"`
}

func DefaultGridConfig() GridConfig {
	return GridConfig{
		XStart: 0, XEnd: 1, XStep: 0.1,
		YStart: 0, YEnd: 1,
		ZStart: 0, ZEnd: 1,
		YZStep: 0.1,
	}
}

func (c GridConfig) Validate() error {
	axes := []struct {
		name             string
		start, end, step float64
	}{
		{"x", c.XStart, c.XEnd, c.XStep},
		{"y", c.YStart, c.YEnd, c.YZStep},
		{"z", c.ZStart, c.ZEnd, c.YZStep},
	}
	for _, a := range axes {
		for _, v := range []float64{a.start, a.end, a.step} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return sim.Invalid("grid %s: bounds must be finite, got %g", a.name, v)
			}
		}
		if a.step <= 0 {
			return sim.Invalid("grid %s: step must be positive, got %g", a.name, a.step)
		}
		if a.end < a.start {
			return sim.Invalid("grid %s: end %g before start %g", a.name, a.end, a.start)
		}
	}
	return nil
}

// Contains reports whether p lies inside the closed bounds.
func (c GridConfig) Contains(p r3.Vec) bool {
	return c.ContainsX(p.X) && c.ContainsYZ(p)
}

func (c GridConfig) ContainsX(x float64) bool {
	return x >= c.XStart && x <= c.XEnd
}

func (c GridConfig) ContainsYZ(p r3.Vec) bool {
	return p.Y >= c.YStart && p.Y <= c.YEnd && p.Z >= c.ZStart && p.Z <= c.ZEnd
}

// Index addresses a grid point by its position in each coordinate sequence.
type Index struct {
	I, J, K int
}

// Grid is the discretized computational space.
type Grid struct {
	X, Y, Z []float64
	cfg     GridConfig
}

// NewGrid builds the coordinate sequences start, start+step, ... up to and
// including end when it is reachable within floating point tolerance.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		X:   arange(cfg.XStart, cfg.XEnd, cfg.XStep),
		Y:   arange(cfg.YStart, cfg.YEnd, cfg.YZStep),
		Z:   arange(cfg.ZStart, cfg.ZEnd, cfg.YZStep),
		cfg: cfg,
	}, nil
}

func arange(start, end, step float64) []float64 {
	n := int(math.Floor((end-start)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func (g *Grid) Config() GridConfig { return g.cfg }
func (g *Grid) XStep() float64     { return g.cfg.XStep }
func (g *Grid) YZStep() float64    { return g.cfg.YZStep }

// Len is the number of grid points.
func (g *Grid) Len() int { return len(g.X) * len(g.Y) * len(g.Z) }

func (g *Grid) Shape() (nx, ny, nz int) { return len(g.X), len(g.Y), len(g.Z) }

// Flat maps an index to its position in x-major order.
func (g *Grid) Flat(idx Index) int {
	return (idx.I*len(g.Y)+idx.J)*len(g.Z) + idx.K
}

func (g *Grid) Unflatten(n int) Index {
	nz, ny := len(g.Z), len(g.Y)
	return Index{I: n / (ny * nz), J: (n / nz) % ny, K: n % nz}
}

func (g *Grid) Valid(idx Index) bool {
	return idx.I >= 0 && idx.I < len(g.X) &&
		idx.J >= 0 && idx.J < len(g.Y) &&
		idx.K >= 0 && idx.K < len(g.Z)
}

// Point returns the coordinates of idx.
func (g *Grid) Point(idx Index) r3.Vec {
	return r3.Vec{X: g.X[idx.I], Y: g.Y[idx.J], Z: g.Z[idx.K]}
}

// Nearest snaps p to the closest grid point on each axis independently.
// Positions outside the grid clamp to the boundary.
func (g *Grid) Nearest(p r3.Vec) Index {
	return Index{
		I: nearest(p.X, g.cfg.XStart, g.cfg.XStep, len(g.X)),
		J: nearest(p.Y, g.cfg.YStart, g.cfg.YZStep, len(g.Y)),
		K: nearest(p.Z, g.cfg.ZStart, g.cfg.YZStep, len(g.Z)),
	}
}

func nearest(v, start, step float64, n int) int {
	i := int(math.Round((v - start) / step))
	return max(0, min(i, n-1))
}

// IndexOf finds the grid point whose coordinates match p to within 1e-9 of
// a step on every axis.
func (g *Grid) IndexOf(p r3.Vec) (Index, bool) {
	i, ok := exact(p.X, g.cfg.XStart, g.cfg.XStep, len(g.X))
	if !ok {
		return Index{}, false
	}
	j, ok := exact(p.Y, g.cfg.YStart, g.cfg.YZStep, len(g.Y))
	if !ok {
		return Index{}, false
	}
	k, ok := exact(p.Z, g.cfg.ZStart, g.cfg.YZStep, len(g.Z))
	if !ok {
		return Index{}, false
	}
	return Index{I: i, J: j, K: k}, true
}

func exact(v, start, step float64, n int) (int, bool) {
	u := (v - start) / step
	r := math.Round(u)
	if math.Abs(u-r) > 1e-9 || r < 0 || r >= float64(n) {
		return 0, false
	}
	return int(r), true
}

// Equal reports whether both grids have identical coordinates.
func (g *Grid) Equal(o *Grid) bool {
	return floats.Equal(g.X, o.X) && floats.Equal(g.Y, o.Y) && floats.Equal(g.Z, o.Z)
}
