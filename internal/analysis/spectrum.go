package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/physics"
	"github.com/san-kum/neutronsim/internal/sim"
)

type Component int

const (
	X Component = iota
	Y
	Z
)

func (c Component) String() string {
	switch c {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return "?"
}

// ParseComponent accepts "x", "y" or "z".
func ParseComponent(s string) (Component, error) {
	switch s {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return 0, sim.Invalid("unknown polarisation component %q", s)
}

func (c Component) of(v r3.Vec) float64 {
	switch c {
	case Y:
		return v.Y
	case Z:
		return v.Z
	}
	return v.X
}

// Series splits a profile into cell positions and one polarisation component.
func Series(profile []beam.CellPolarisation, c Component) (xs, values []float64) {
	xs = make([]float64, len(profile))
	values = make([]float64, len(profile))
	for i, cell := range profile {
		xs[i] = cell.X
		values[i] = c.of(cell.Polarisation)
	}
	return xs, values
}

// PowerSpectrum returns the magnitudes of the non-negative frequency bins of
// the mean-removed data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}

	spectrum := fft.FFTReal(centred)
	ps := make([]float64, len(spectrum)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency is the frequency of the strongest non-zero bin for
// samples spaced step apart, in cycles per unit of step.
func DominantFrequency(data []float64, step float64) (float64, error) {
	if len(data) < 4 {
		return 0, sim.Invalid("need at least 4 samples, got %d", len(data))
	}
	if !(step > 0) {
		return 0, sim.Invalid("sample spacing must be positive, got %g", step)
	}

	ps := PowerSpectrum(data)
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[best] || best == 0 {
			best = i
		}
	}
	return float64(best) / (float64(len(data)) * step), nil
}

// PrecessionFrequency is the spatial Larmor frequency in cycles per metre of a
// neutron at speed m/s in a field of b Gauss.
func PrecessionFrequency(b, speed float64) float64 {
	return physics.LarmorFrequency(b) / (2 * math.Pi * speed)
}

// ExpectedFrequency is the precession frequency for the mean field magnitude
// along axis, the value DominantFrequency should recover for a beam at speed
// crossing a uniform field. Zero without points.
func ExpectedFrequency(axis []field.AxisPoint, speed float64) float64 {
	if len(axis) == 0 {
		return 0
	}
	var sum float64
	for _, p := range axis {
		sum += r3.Norm(p.B)
	}
	return PrecessionFrequency(sum/float64(len(axis)), speed)
}
