package config

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/physics"
	"github.com/san-kum/neutronsim/internal/sim"
)

const (
	DefaultBeamSize            = 0.02
	DefaultWavelength          = 4.3
	DefaultWavelengthMin       = 3.5
	DefaultWavelengthMax       = 6.0
	DefaultAngularSpreadArcmin = 45.0
	DefaultNeutrons            = 1
	DefaultLogLevel            = "info"
)

type Config struct {
	Grid     field.GridConfig `yaml:"grid"`
	Beam     BeamConfig       `yaml:"beam"`
	Elements []ElementConfig  `yaml:"elements"`
	Workers  int              `yaml:"workers"`
	LogLevel string           `yaml:"log_level"`
}

// BeamConfig describes the neutron source in beamline units: wavelengths in
// Å, divergence in minutes of arc.
type BeamConfig struct {
	BeamSize            float64   `yaml:"beam_size"`
	Wavelength          float64   `yaml:"wavelength"`
	WavelengthMin       float64   `yaml:"wavelength_min"`
	WavelengthMax       float64   `yaml:"wavelength_max"`
	AngularSpreadArcmin float64   `yaml:"angular_spread_arcmin"`
	Neutrons            int       `yaml:"neutrons"`
	Distribution        bool      `yaml:"distribution"`
	StartingPositionX   float64   `yaml:"starting_position_x"`
	Polarisation        []float64 `yaml:"polarisation,flow"`
	Seed                uint64    `yaml:"seed"`
	MaxAngle            float64   `yaml:"max_angle"`
	Monochromate        bool      `yaml:"monochromate"`
	Steps               int       `yaml:"steps"`
}

type ElementConfig struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind"`
	Position []float64    `yaml:"position,flow"`
	Params   coils.Params `yaml:"params,omitempty"`
}

func DefaultBeamConfig() BeamConfig {
	return BeamConfig{
		BeamSize:            DefaultBeamSize,
		Wavelength:          DefaultWavelength,
		WavelengthMin:       DefaultWavelengthMin,
		WavelengthMax:       DefaultWavelengthMax,
		AngularSpreadArcmin: DefaultAngularSpreadArcmin,
		Neutrons:            DefaultNeutrons,
		Polarisation:        []float64{0, 1, 0},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Grid:     field.DefaultGridConfig(),
		Beam:     DefaultBeamConfig(),
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sim.ErrInvalidConfiguration, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that can be checked without building the setup.
// Element parameters are checked by coils.New.
func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Beam.Params(); err != nil {
		return err
	}
	if c.Beam.Neutrons < 0 {
		return sim.Invalid("beam: neutrons must not be negative, got %d", c.Beam.Neutrons)
	}
	if _, err := c.Beam.PolarisationVec(); err != nil {
		return err
	}
	for i, e := range c.Elements {
		if e.Kind == "" {
			return sim.Invalid("element %d: missing kind", i)
		}
		if _, err := e.PositionVec(); err != nil {
			return err
		}
	}
	return nil
}

// Speed is the neutron speed for the nominal wavelength in m/s.
func (b BeamConfig) Speed() float64 {
	return physics.SpeedFromWavelength(b.Wavelength)
}

// SpeedStd spreads the speed so that the wavelength band covers four standard
// deviations.
func (b BeamConfig) SpeedStd() float64 {
	if b.WavelengthMin <= 0 || b.WavelengthMax <= 0 {
		return 0
	}
	return math.Abs(physics.SpeedFromWavelength(b.WavelengthMin)-physics.SpeedFromWavelength(b.WavelengthMax)) / 4
}

func (b BeamConfig) AngularSpread() float64 {
	return b.AngularSpreadArcmin * physics.ArcminToRadians
}

// Params converts the source description to beam.Config.
func (b BeamConfig) Params() (beam.Config, error) {
	if !(b.Wavelength > 0) || math.IsInf(b.Wavelength, 0) {
		return beam.Config{}, sim.Invalid("beam: wavelength must be positive, got %g", b.Wavelength)
	}
	if b.WavelengthMin > b.WavelengthMax {
		return beam.Config{}, sim.Invalid("beam: wavelength band [%g, %g] is reversed", b.WavelengthMin, b.WavelengthMax)
	}
	cfg := beam.Config{
		BeamSize:      b.BeamSize,
		Speed:         b.Speed(),
		SpeedStd:      b.SpeedStd(),
		AngularSpread: b.AngularSpread(),
		Seed:          b.Seed,
	}
	return cfg, cfg.Validate()
}

func (b BeamConfig) PolarisationVec() (r3.Vec, error) {
	if len(b.Polarisation) != 3 {
		return r3.Vec{}, sim.Invalid("beam: polarisation needs 3 components, got %d", len(b.Polarisation))
	}
	return r3.Vec{X: b.Polarisation[0], Y: b.Polarisation[1], Z: b.Polarisation[2]}, nil
}

// PositionVec reads up to three coordinates; missing ones are zero.
func (e ElementConfig) PositionVec() (r3.Vec, error) {
	if len(e.Position) > 3 {
		return r3.Vec{}, sim.Invalid("element %q: position has %d components", e.Name, len(e.Position))
	}
	var p [3]float64
	copy(p[:], e.Position)
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}, nil
}

// Element returns the configured element with the given name.
func (c *Config) Element(name string) (*ElementConfig, bool) {
	for i := range c.Elements {
		if c.Elements[i].Name == name {
			return &c.Elements[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Beam.Polarisation = append([]float64(nil), c.Beam.Polarisation...)
	out.Elements = nil
	for _, e := range c.Elements {
		e.Position = append([]float64(nil), e.Position...)
		if e.Params != nil {
			params := make(coils.Params, len(e.Params))
			for k, v := range e.Params {
				params[k] = v
			}
			e.Params = params
		}
		out.Elements = append(out.Elements, e)
	}
	return &out
}
