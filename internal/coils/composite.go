package coils

import "gonum.org/v1/gonum/spatial/r3"

// group is a set of coils placed at fixed axial offsets from a centre.
type group struct {
	base
	coils   []*Coil
	offsets []float64
}

func (g *group) SetPosition(p r3.Vec) {
	g.position = p
	for i, c := range g.coils {
		c.SetPosition(r3.Vec{X: p.X + g.offsets[i], Y: p.Y, Z: p.Z})
	}
}

func (g *group) SetCurrent(current float64) {
	g.current = current
	for _, c := range g.coils {
		c.SetCurrent(current)
	}
}

// Coils returns the sub-coils in axial order.
func (g *group) Coils() []*Coil { return g.coils }

func (g *group) BX(x, rho float64) float64 {
	var sum float64
	for _, c := range g.coils {
		sum += c.BX(x, rho)
	}
	return sum
}

func (g *group) BRho(x, rho float64) float64 {
	var sum float64
	for _, c := range g.coils {
		sum += c.BRho(x, rho)
	}
	return sum
}

func (g *group) BField(p r3.Vec) r3.Vec {
	var sum r3.Vec
	for _, c := range g.coils {
		sum = r3.Add(sum, c.BField(p))
	}
	return sum
}

// HelmholtzPair is two identical coils separated by their radius.
type HelmholtzPair struct {
	group
	Radius float64
}

// DefaultHelmholtzLength is the coil length used when none is configured.
const DefaultHelmholtzLength = 1e-2

func NewHelmholtzPair(name string, position r3.Vec, radius, length, windings, current float64) *HelmholtzPair {
	h := &HelmholtzPair{
		group: group{
			base:    base{name: name, current: current},
			offsets: []float64{-radius / 2, radius / 2},
		},
		Radius: radius,
	}
	for range h.offsets {
		h.coils = append(h.coils, NewCoil(name, r3.Vec{}, radius, length, windings, current))
	}
	h.SetPosition(position)
	return h
}

func (h *HelmholtzPair) Kind() string { return KindHelmholtzPair }

// CoilSetGeometry describes the coil box: two inner coils around a central
// gap, flanked by two outer coils.
type CoilSetGeometry struct {
	InnerLength   float64
	InnerRadius   float64
	InnerWindings float64
	OuterLength   float64
	OuterRadius   float64
	OuterWindings float64
	Gap           float64
}

// DefaultCoilSetGeometry is the MIEZE coil box.
func DefaultCoilSetGeometry() CoilSetGeometry {
	return CoilSetGeometry{
		InnerLength:   86e-3,
		InnerRadius:   177.0 / 2 * 1e-3,
		InnerWindings: 168,
		OuterLength:   50e-3,
		OuterRadius:   130e-3,
		OuterWindings: 48,
		Gap:           115e-3 - 86e-3,
	}
}

// Width is the total axial extent of the set.
func (g CoilSetGeometry) Width() float64 {
	return 2*(g.OuterLength+g.InnerLength) + g.Gap
}

// CoilSet is a symmetric set of four coils centred on its position.
type CoilSet struct {
	group
	Geometry CoilSetGeometry
}

func NewCoilSet(name string, position r3.Vec, geom CoilSetGeometry, current float64) *CoilSet {
	inner := geom.Gap/2 + geom.InnerLength/2
	outer := geom.Gap/2 + geom.InnerLength + geom.OuterLength/2

	s := &CoilSet{
		group: group{
			base:    base{name: name, current: current},
			offsets: []float64{-outer, -inner, inner, outer},
		},
		Geometry: geom,
	}
	s.coils = []*Coil{
		NewCoil(name+"/outer", r3.Vec{}, geom.OuterRadius, geom.OuterLength, geom.OuterWindings, current),
		NewCoil(name+"/inner", r3.Vec{}, geom.InnerRadius, geom.InnerLength, geom.InnerWindings, current),
		NewCoil(name+"/inner", r3.Vec{}, geom.InnerRadius, geom.InnerLength, geom.InnerWindings, current),
		NewCoil(name+"/outer", r3.Vec{}, geom.OuterRadius, geom.OuterLength, geom.OuterWindings, current),
	}
	s.SetPosition(position)
	return s
}

func (s *CoilSet) Kind() string { return KindCoilSet }

// Polariser marks the polariser on the beamline. It produces no field.
type Polariser struct {
	base
}

func NewPolariser(name string, position r3.Vec) *Polariser {
	return &Polariser{base: base{name: name, position: position}}
}

func (p *Polariser) Kind() string         { return KindPolariser }
func (p *Polariser) BField(r3.Vec) r3.Vec { return r3.Vec{} }
