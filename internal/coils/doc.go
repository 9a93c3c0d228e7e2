// Package coils provides the magnetic field elements of a beamline.
//
// Each element implements [Element], returning the field vector in Gauss at
// any point for currents in Amperes and lengths in metres:
//
//   - [Coil]: finite solenoid (current sheet), exact off-axis field
//   - [RealCoil]: solenoid wound in radial layers of finite wire
//   - [RectangularCoil]: rectangular loop from four finite straight wires
//   - [HelmholtzPair]: two coils separated by their radius
//   - [CoilSet]: the four-coil MIEZE coil box
//   - [SpinFlipper]: rectangular coil with a thin-coil axial approximation
//   - [Polariser]: field-free beamline marker
//
// The beam travels along x, which is also the axis of every circular coil.
// Elements are built by kind name through [New], which validates parameters:
//
//	c, err := coils.New(coils.KindCoil, "inner", r3.Vec{X: 0.5}, coils.Params{
//	    "radius": 0.0885, "length": 0.086, "windings": 168, "current": 5,
//	})
package coils
