package coils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/physics"
)

// RectangularCoil is a rectangular loop lying in the plane normal to z through
// its position. Length and Width are the distances from the centre to the
// sides along x and y, so the corners sit at (±Length, ±Width). A positive
// current circulates counter-clockwise seen from +z.
//
// When both Height and WireD are set the windings are spread over
// floor(Height/WireD) stacked loops centred on the position.
type RectangularCoil struct {
	base
	Length   float64
	Width    float64
	Height   float64
	Windings float64
	WireD    float64
}

func NewRectangularCoil(name string, position r3.Vec, length, width, height, windings, wireD, current float64) *RectangularCoil {
	return &RectangularCoil{
		base:     base{name: name, position: position, current: current},
		Length:   length,
		Width:    width,
		Height:   height,
		Windings: windings,
		WireD:    wireD,
	}
}

func (c *RectangularCoil) Kind() string { return KindRectangularCoil }

// loops returns the z offsets of the stacked loops and the windings per loop.
func (c *RectangularCoil) loops() ([]float64, float64) {
	count := 1
	if c.Height > 0 && c.WireD > 0 {
		count = int(math.Max(1, math.Min(math.Floor(c.Windings), math.Floor(c.Height/c.WireD))))
	}
	if count == 1 {
		return []float64{0}, c.Windings
	}

	zs := make([]float64, count)
	for i := range zs {
		zs[i] = -c.Height/2 + (float64(i)+0.5)*c.Height/float64(count)
	}
	return zs, c.Windings / float64(count)
}

func (c *RectangularCoil) BField(p r3.Vec) r3.Vec {
	d := r3.Sub(p, c.position)
	zs, perLoop := c.loops()

	var sum r3.Vec
	for _, z0 := range zs {
		sum = r3.Add(sum, rectangleField(c.Length, c.Width, r3.Vec{X: d.X, Y: d.Y, Z: d.Z - z0}))
	}

	k := physics.Mu0 * c.current * perLoop / (4 * math.Pi) * physics.GaussPerTesla
	return r3.Scale(k, sum)
}

// rectangleField is the geometric Biot–Savart factor of a unit-current loop
// with half extents a and b, evaluated at offset d from its centre.
func rectangleField(a, b float64, d r3.Vec) r3.Vec {
	corners := [4]r3.Vec{
		{X: -a, Y: -b},
		{X: a, Y: -b},
		{X: a, Y: b},
		{X: -a, Y: b},
	}

	var sum r3.Vec
	for i := range corners {
		start := r3.Sub(corners[i], d)
		end := r3.Sub(corners[(i+1)%len(corners)], d)
		sum = r3.Add(sum, segmentField(start, end))
	}
	return sum
}

// segmentField is the field factor of a straight wire from the observation
// point offsets start to end: (s×e)/(|s||e|+s·e) · (1/|s| + 1/|e|).
// Points on the wire contribute nothing.
func segmentField(start, end r3.Vec) r3.Vec {
	ns, ne := r3.Norm(start), r3.Norm(end)
	if ns == 0 || ne == 0 {
		return r3.Vec{}
	}
	denom := ns*ne + r3.Dot(start, end)
	if denom <= 1e-15*ns*ne {
		return r3.Vec{}
	}
	return r3.Scale((1/ns+1/ne)/denom, r3.Cross(start, end))
}

// SpinFlipper is a rectangular coil with a thin-coil approximation of its
// field along the beam axis.
type SpinFlipper struct {
	RectangularCoil
	Thickness float64
}

// DefaultSpinFlipperThickness is the coil thickness used by the approximation.
const DefaultSpinFlipperThickness = 1e-2

func NewSpinFlipper(name string, position r3.Vec, length, width, height, windings, wireD, current, thickness float64) *SpinFlipper {
	return &SpinFlipper{
		RectangularCoil: *NewRectangularCoil(name, position, length, width, height, windings, wireD, current),
		Thickness:       thickness,
	}
}

func (s *SpinFlipper) Kind() string { return KindSpinFlipper }

// BFieldApprox estimates the field magnitude in Gauss at beam position x with
// an arctangent fringe-field model of two thin current sheets.
func (s *SpinFlipper) BFieldApprox(x float64) float64 {
	y := x - s.position.X
	b1 := s.thinSheet(y + s.Thickness/2)
	b2 := -s.thinSheet(y - s.Thickness/2)
	return (b1 + b2) * physics.GaussPerTesla
}

func (s *SpinFlipper) thinSheet(u float64) float64 {
	x0 := s.Length / 2
	n := s.Windings / s.Length

	angle := math.Pi / 2
	if u != 0 {
		angle = math.Atan(x0 / u)
	}
	return n * physics.Mu0 * s.current / math.Pi * angle
}
