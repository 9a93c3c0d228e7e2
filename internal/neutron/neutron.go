// Package neutron holds the kinematic and spin state of a single neutron.
package neutron

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/physics"
)

// Neutron moves along the beam axis x with transverse velocity in y and z.
// It performs no validation; bounds are the beam's concern.
type Neutron struct {
	Position     r3.Vec
	Velocity     r3.Vec
	Polarisation r3.Vec

	initial    r3.Vec
	trajectory []r3.Vec
}

// New returns a neutron whose trajectory starts at position.
func New(polarisation, position, velocity r3.Vec) *Neutron {
	return &Neutron{
		Position:     position,
		Velocity:     velocity,
		Polarisation: polarisation,
		initial:      polarisation,
		trajectory:   []r3.Vec{position},
	}
}

// Speed is the axial speed in m/s.
func (n *Neutron) Speed() float64 { return n.Velocity.X }

func (n *Neutron) AbsSpeed() float64 { return r3.Norm(n.Velocity) }

// RadialSpeed is the speed transverse to the beam axis.
func (n *Neutron) RadialSpeed() float64 { return math.Hypot(n.Velocity.Y, n.Velocity.Z) }

// Wavelength in Å.
func (n *Neutron) Wavelength() float64 {
	return physics.WavelengthFromSpeed(n.AbsSpeed())
}

// Divergence is the angle between the velocity and the beam axis in radians.
func (n *Neutron) Divergence() float64 {
	return math.Atan2(n.RadialSpeed(), n.Velocity.X)
}

func (n *Neutron) UpdatePosition(dt float64) {
	n.Position.X += n.Velocity.X * dt
}

func (n *Neutron) UpdatePositionYZ(dt float64) {
	n.Position.Y += n.Velocity.Y * dt
	n.Position.Z += n.Velocity.Z * dt
}

func (n *Neutron) InitialPolarisation() r3.Vec { return n.initial }

// ResetPolarisation restores the polarisation the neutron was created with.
func (n *Neutron) ResetPolarisation() { n.Polarisation = n.initial }

// Record appends the current position to the trajectory.
func (n *Neutron) Record() {
	n.trajectory = append(n.trajectory, n.Position)
}

// Trajectory returns the recorded positions, oldest first.
func (n *Neutron) Trajectory() []r3.Vec { return n.trajectory }

func (n *Neutron) Clone() *Neutron {
	c := *n
	c.trajectory = append([]r3.Vec(nil), n.trajectory...)
	return &c
}
