package coils

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

// Element kinds accepted by New.
const (
	KindCoil            = "coil"
	KindRealCoil        = "real_coil"
	KindRectangularCoil = "rectangular_coil"
	KindHelmholtzPair   = "helmholtz_pair"
	KindCoilSet         = "coil_set"
	KindSpinFlipper     = "spin_flipper"
	KindPolariser       = "polariser"
)

type factory func(name string, position r3.Vec, p Params) (Element, error)

var factories = map[string]factory{
	KindCoil:            newCoil,
	KindRealCoil:        newRealCoil,
	KindRectangularCoil: newRectangularCoil,
	KindHelmholtzPair:   newHelmholtzPair,
	KindCoilSet:         newCoilSet,
	KindSpinFlipper:     newSpinFlipper,
	KindPolariser: func(name string, position r3.Vec, _ Params) (Element, error) {
		return NewPolariser(name, position), nil
	},
}

// New builds an element of the given kind. An empty name defaults to the kind.
func New(kind, name string, position r3.Vec, params Params) (Element, error) {
	fn, ok := factories[kind]
	if !ok {
		return nil, sim.Invalid("unknown element kind %q (available: %v)", kind, Kinds())
	}
	if name == "" {
		name = kind
	}
	if params == nil {
		params = Params{}
	}
	return fn(name, position, params)
}

// Kinds lists the element kinds accepted by New.
func Kinds() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type coilParams struct {
	radius, length, windings, current float64
}

func parseCoil(kind string, p Params) (coilParams, error) {
	var (
		cp  coilParams
		err error
	)
	if cp.radius, err = p.positive(kind, "radius"); err != nil {
		return cp, err
	}
	if cp.length, err = p.positive(kind, "length"); err != nil {
		return cp, err
	}
	if cp.windings, err = p.positive(kind, "windings"); err != nil {
		return cp, err
	}
	cp.current, err = p.current(kind)
	return cp, err
}

func newCoil(name string, position r3.Vec, p Params) (Element, error) {
	cp, err := parseCoil(KindCoil, p)
	if err != nil {
		return nil, err
	}
	return NewCoil(name, position, cp.radius, cp.length, cp.windings, cp.current), nil
}

func newRealCoil(name string, position r3.Vec, p Params) (Element, error) {
	cp, err := parseCoil(KindRealCoil, p)
	if err != nil {
		return nil, err
	}
	wireD, err := p.optionalNonNegative(KindRealCoil, "wire_d", 0)
	if err != nil {
		return nil, err
	}
	return NewRealCoil(name, position, cp.radius, cp.length, cp.windings, wireD, cp.current), nil
}

type rectangleParams struct {
	length, width, height, windings, wireD, current float64
}

func parseRectangle(kind string, p Params) (rectangleParams, error) {
	var (
		rp  rectangleParams
		err error
	)
	if rp.length, err = p.positive(kind, "length"); err != nil {
		return rp, err
	}
	if rp.width, err = p.positive(kind, "width"); err != nil {
		return rp, err
	}
	if rp.windings, err = p.positive(kind, "windings"); err != nil {
		return rp, err
	}
	if rp.height, err = p.optionalNonNegative(kind, "height", 0); err != nil {
		return rp, err
	}
	if rp.wireD, err = p.optionalNonNegative(kind, "wire_d", 0); err != nil {
		return rp, err
	}
	rp.current, err = p.current(kind)
	return rp, err
}

func newRectangularCoil(name string, position r3.Vec, p Params) (Element, error) {
	rp, err := parseRectangle(KindRectangularCoil, p)
	if err != nil {
		return nil, err
	}
	return NewRectangularCoil(name, position, rp.length, rp.width, rp.height, rp.windings, rp.wireD, rp.current), nil
}

func newSpinFlipper(name string, position r3.Vec, p Params) (Element, error) {
	rp, err := parseRectangle(KindSpinFlipper, p)
	if err != nil {
		return nil, err
	}
	thickness, err := p.optionalPositive(KindSpinFlipper, "thickness", DefaultSpinFlipperThickness)
	if err != nil {
		return nil, err
	}
	return NewSpinFlipper(name, position, rp.length, rp.width, rp.height, rp.windings, rp.wireD, rp.current, thickness), nil
}

func newHelmholtzPair(name string, position r3.Vec, p Params) (Element, error) {
	radius, err := p.positive(KindHelmholtzPair, "radius")
	if err != nil {
		return nil, err
	}
	length, err := p.optionalPositive(KindHelmholtzPair, "length", DefaultHelmholtzLength)
	if err != nil {
		return nil, err
	}
	windings, err := p.optionalPositive(KindHelmholtzPair, "windings", 1)
	if err != nil {
		return nil, err
	}
	current, err := p.current(KindHelmholtzPair)
	if err != nil {
		return nil, err
	}
	return NewHelmholtzPair(name, position, radius, length, windings, current), nil
}

func newCoilSet(name string, position r3.Vec, p Params) (Element, error) {
	geom := DefaultCoilSetGeometry()
	fields := []struct {
		key string
		dst *float64
	}{
		{"inner_length", &geom.InnerLength},
		{"inner_radius", &geom.InnerRadius},
		{"inner_windings", &geom.InnerWindings},
		{"outer_length", &geom.OuterLength},
		{"outer_radius", &geom.OuterRadius},
		{"outer_windings", &geom.OuterWindings},
	}
	for _, f := range fields {
		v, err := p.optionalPositive(KindCoilSet, f.key, *f.dst)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	gap, err := p.optionalNonNegative(KindCoilSet, "gap", geom.Gap)
	if err != nil {
		return nil, err
	}
	geom.Gap = gap

	current, err := p.current(KindCoilSet)
	if err != nil {
		return nil, err
	}
	return NewCoilSet(name, position, geom, current), nil
}
