package coils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

// Element is anything producing a magnetic field.
type Element interface {
	Name() string
	Kind() string
	Position() r3.Vec
	SetPosition(p r3.Vec)
	Current() float64
	SetCurrent(current float64)
	BField(p r3.Vec) r3.Vec
}

// Axisymmetric elements offer the axial and radial field components directly,
// with x the absolute beam-axis coordinate and rho the distance from the axis.
type Axisymmetric interface {
	BX(x, rho float64) float64
	BRho(x, rho float64) float64
}

// Approximator elements offer a fast one-dimensional field estimate on the
// beam axis.
type Approximator interface {
	BFieldApprox(x float64) float64
}

type base struct {
	name     string
	position r3.Vec
	current  float64
}

func (b *base) Name() string               { return b.name }
func (b *base) Position() r3.Vec           { return b.position }
func (b *base) SetPosition(p r3.Vec)       { b.position = p }
func (b *base) Current() float64           { return b.current }
func (b *base) SetCurrent(current float64) { b.current = current }

// axialVector projects (bx, brho) at offset d from the coil axis onto x, y, z.
func axialVector(bx, brho float64, d r3.Vec, rho float64) r3.Vec {
	if rho == 0 {
		return r3.Vec{X: bx}
	}
	return r3.Vec{X: bx, Y: brho * d.Y / rho, Z: brho * d.Z / rho}
}

func radialOffset(p, position r3.Vec) (r3.Vec, float64) {
	d := r3.Sub(p, position)
	return d, math.Hypot(d.Y, d.Z)
}

// Params carries the numeric parameters of an element by name.
type Params map[string]float64

func (p Params) required(kind, name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, sim.Invalid("%s: missing required parameter %q", kind, name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, sim.Invalid("%s: parameter %q must be finite, got %g", kind, name, v)
	}
	return v, nil
}

func (p Params) positive(kind, name string) (float64, error) {
	v, err := p.required(kind, name)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, sim.Invalid("%s: parameter %q must be positive, got %g", kind, name, v)
	}
	return v, nil
}

func (p Params) optionalPositive(kind, name string, def float64) (float64, error) {
	if _, ok := p[name]; !ok {
		return def, nil
	}
	return p.positive(kind, name)
}

func (p Params) optionalNonNegative(kind, name string, def float64) (float64, error) {
	if _, ok := p[name]; !ok {
		return def, nil
	}
	v, err := p.required(kind, name)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, sim.Invalid("%s: parameter %q must not be negative, got %g", kind, name, v)
	}
	return v, nil
}

func (p Params) current(kind string) (float64, error) {
	if _, ok := p["current"]; !ok {
		return 0, nil
	}
	return p.required(kind, "current")
}
