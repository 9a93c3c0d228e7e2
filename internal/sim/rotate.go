package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Rotate rotates v by phi radians about axis using Rodrigues' formula:
//
//	v' = v cos(phi) + (k × v) sin(phi) + k (k · v)(1 - cos(phi))
//
// with k the unit axis. A zero axis leaves v unchanged.
func Rotate(v r3.Vec, phi float64, axis r3.Vec) r3.Vec {
	norm := r3.Norm(axis)
	if norm == 0 {
		return v
	}
	k := r3.Scale(1/norm, axis)
	sin, cos := math.Sincos(phi)

	out := r3.Scale(cos, v)
	out = r3.Add(out, r3.Scale(sin, r3.Cross(k, v)))
	return r3.Add(out, r3.Scale(r3.Dot(k, v)*(1-cos), k))
}
