package config

import (
	"sort"

	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/field"
)

// MIEZE beamline geometry in metres.
const (
	MiezePolariser       = 0.0
	MiezePolariserToHSF  = 0.45
	MiezeHelmholtzRadius = 53.8e-3
	MiezeHSFPosition     = MiezePolariser + MiezePolariserToHSF + MiezeHelmholtzRadius/2
	MiezeBeamEnd         = MiezeHSFPosition + 0.25
	MiezeGridPoints      = 200
)

// MiezeCoilSetPosition centres the coil box right behind the spin flipper.
func MiezeCoilSetPosition() float64 {
	return MiezeHSFPosition + MiezeHelmholtzRadius/2 + coils.DefaultCoilSetGeometry().Width()/2
}

var presets = map[string]func() *Config{
	"mieze":        miezePreset,
	"coil":         coilPreset,
	"spin_flipper": spinFlipperPreset,
}

func miezePreset() *Config {
	cfg := DefaultConfig()
	cfg.Grid = field.GridConfig{
		XStart: 0, XEnd: MiezeBeamEnd, XStep: MiezeBeamEnd / (MiezeGridPoints - 1),
		YStart: 0, YEnd: 0,
		ZStart: 0, ZEnd: 0,
		YZStep: 0.1,
	}
	cfg.Beam.Polarisation = []float64{0, 0.95, 0.31225}
	cfg.Elements = []ElementConfig{
		{Name: "polariser", Kind: coils.KindPolariser, Position: []float64{MiezePolariser}},
		{Name: "hsf1", Kind: coils.KindHelmholtzPair, Position: []float64{MiezeHSFPosition}, Params: coils.Params{
			"radius": MiezeHelmholtzRadius, "current": 1.6,
		}},
		{Name: "sf1", Kind: coils.KindSpinFlipper, Position: []float64{MiezeHSFPosition}, Params: coils.Params{
			"length": 1e-2, "width": 1e-2, "height": 1e-3, "windings": 1, "wire_d": 5e-3, "current": 1.6,
		}},
		{Name: "coil_set", Kind: coils.KindCoilSet, Position: []float64{MiezeCoilSetPosition()}, Params: coils.Params{
			"current": 100,
		}},
	}
	return cfg
}

func coilPreset() *Config {
	cfg := DefaultConfig()
	cfg.Grid = field.GridConfig{
		XStart: 0, XEnd: 1, XStep: 0.01,
		YStart: -0.02, YEnd: 0.02,
		ZStart: -0.02, ZEnd: 0.02,
		YZStep: 0.01,
	}
	cfg.Beam.Distribution = true
	cfg.Beam.Neutrons = 100
	cfg.Beam.Seed = 1
	cfg.Elements = []ElementConfig{
		{Name: "coil", Kind: coils.KindCoil, Position: []float64{0.5}, Params: coils.Params{
			"radius": 177.0 / 2 * 1e-3, "length": 86e-3, "windings": 168, "current": 5,
		}},
	}
	return cfg
}

func spinFlipperPreset() *Config {
	cfg := coilPreset()
	cfg.Elements = []ElementConfig{
		{Name: "sf", Kind: coils.KindSpinFlipper, Position: []float64{0.5}, Params: coils.Params{
			"length": 0.1, "width": 0.05, "windings": 100, "current": 1.6,
		}},
	}
	return cfg
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
