// Package physics holds the physical constants shared by the field models and
// the beam integrator.
package physics

import "math"

const (
	// Mu0 is the vacuum permeability in T·m/A.
	Mu0 = 4 * math.Pi * 1e-7

	// Gamma is the neutron gyromagnetic ratio in rad/(s·G).
	Gamma = 1.83247172e4

	// GaussPerTesla converts SI field values to Gauss.
	GaussPerTesla = 1e4

	// SpeedWavelengthProduct relates neutron speed (m/s) and wavelength (Å):
	// v = SpeedWavelengthProduct / λ.
	SpeedWavelengthProduct = 3956.0

	// ArcminToRadians converts minutes of arc to radians.
	ArcminToRadians = math.Pi / (60 * 180)
)

// SpeedFromWavelength returns the neutron speed in m/s for a wavelength in Å.
func SpeedFromWavelength(wavelength float64) float64 {
	return SpeedWavelengthProduct / wavelength
}

// WavelengthFromSpeed returns the neutron wavelength in Å for a speed in m/s.
func WavelengthFromSpeed(speed float64) float64 {
	return SpeedWavelengthProduct / speed
}

// LarmorFrequency is the angular precession frequency in a field of b Gauss.
func LarmorFrequency(b float64) float64 {
	return Gamma * b
}
