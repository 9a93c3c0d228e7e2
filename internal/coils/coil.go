package coils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/physics"
)

// Coil is a finite solenoid of the given radius and length with its axis
// along x, centred on its position.
type Coil struct {
	base
	Radius   float64
	Length   float64
	Windings float64
}

func NewCoil(name string, position r3.Vec, radius, length, windings, current float64) *Coil {
	return &Coil{
		base:     base{name: name, position: position, current: current},
		Radius:   radius,
		Length:   length,
		Windings: windings,
	}
}

func (c *Coil) Kind() string { return KindCoil }

func (c *Coil) BX(x, rho float64) float64 {
	bx, _ := solenoidField(c.Radius, c.Length, c.Windings, c.current, x-c.position.X, rho)
	return bx
}

func (c *Coil) BRho(x, rho float64) float64 {
	_, brho := solenoidField(c.Radius, c.Length, c.Windings, c.current, x-c.position.X, rho)
	return brho
}

func (c *Coil) BField(p r3.Vec) r3.Vec {
	d, rho := radialOffset(p, c.position)
	bx, brho := solenoidField(c.Radius, c.Length, c.Windings, c.current, d.X, rho)
	return axialVector(bx, brho, d, rho)
}

// solenoidField returns the axial and radial field in Gauss of an ideal
// current sheet at axial offset z from its centre and radial distance rho.
// Off axis it uses the closed form of Derby and Olbert (Am. J. Phys. 78, 229).
func solenoidField(radius, length, windings, current, z, rho float64) (bx, brho float64) {
	half := length / 2
	zp, zm := z+half, z-half

	if rho == 0 {
		bx = physics.Mu0 * windings * current / (2 * length) *
			(zp/math.Hypot(zp, radius) - zm/math.Hypot(zm, radius))
		return bx * physics.GaussPerTesla, 0
	}

	a := radius
	b0 := physics.Mu0 * windings / length * current / math.Pi

	sp := math.Hypot(zp, rho+a)
	sm := math.Hypot(zm, rho+a)
	kp := math.Hypot(zp, a-rho) / sp
	km := math.Hypot(zm, a-rho) / sm
	gamma := (a - rho) / (a + rho)
	g2 := gamma * gamma

	brho = b0 * (a/sp*cel(kp, 1, 1, -1) - a/sm*cel(km, 1, 1, -1))
	bx = b0 * a / (a + rho) * (zp/sp*cel(kp, g2, 1, gamma) - zm/sm*cel(km, g2, 1, gamma))

	return bx * physics.GaussPerTesla, brho * physics.GaussPerTesla
}

// RealCoil is a solenoid wound from wire of diameter WireD. Windings are laid
// in radial layers of floor(Length/WireD) turns, starting at Radius and
// growing by one wire diameter per layer. With WireD == 0 it behaves as a
// single Coil.
type RealCoil struct {
	Coil
	WireD float64
}

func NewRealCoil(name string, position r3.Vec, radius, length, windings, wireD, current float64) *RealCoil {
	return &RealCoil{
		Coil:  *NewCoil(name, position, radius, length, windings, current),
		WireD: wireD,
	}
}

func (c *RealCoil) Kind() string { return KindRealCoil }

type layer struct {
	radius   float64
	windings float64
}

// Layers returns the number of radial winding layers.
func (c *RealCoil) Layers() int {
	return len(c.layers())
}

func (c *RealCoil) layers() []layer {
	if c.WireD == 0 {
		return []layer{{radius: c.Radius, windings: c.Windings}}
	}

	perLayer := math.Max(1, math.Floor(c.Length/c.WireD))
	out := make([]layer, 0, int(math.Ceil(c.Windings/perLayer)))
	for remaining, l := c.Windings, 0; remaining > 0; l++ {
		w := math.Min(perLayer, remaining)
		out = append(out, layer{radius: c.Radius + float64(l)*c.WireD, windings: w})
		remaining -= w
	}
	return out
}

func (c *RealCoil) field(z, rho float64) (bx, brho float64) {
	for _, l := range c.layers() {
		lx, lrho := solenoidField(l.radius, c.Length, l.windings, c.current, z, rho)
		bx += lx
		brho += lrho
	}
	return bx, brho
}

func (c *RealCoil) BX(x, rho float64) float64 {
	bx, _ := c.field(x-c.position.X, rho)
	return bx
}

func (c *RealCoil) BRho(x, rho float64) float64 {
	_, brho := c.field(x-c.position.X, rho)
	return brho
}

func (c *RealCoil) BField(p r3.Vec) r3.Vec {
	d, rho := radialOffset(p, c.position)
	bx, brho := c.field(d.X, rho)
	return axialVector(bx, brho, d, rho)
}
