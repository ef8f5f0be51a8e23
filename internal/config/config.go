package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/physics"
)

const (
	DefaultBoxSize       = 20.0
	DefaultDensity       = 0.2
	DefaultVortices      = 80
	DefaultPinRadius     = 0.8
	DefaultPinStrength   = 1.0
	DefaultDt            = 0.05
	DefaultEquilibration = 400
	DefaultMeasurement   = 400
	DefaultMaxCurrent    = 2.5
	DefaultCurrentCount  = 26
	DefaultThreshold     = 0.05
)

type Config struct {
	Domain     DomainConfig  `yaml:"domain"`
	Pinning    PinningConfig `yaml:"pinning"`
	Vortices   int           `yaml:"vortices"`
	Physics    PhysicsConfig `yaml:"physics"`
	Run        RunConfig     `yaml:"run"`
	Currents   CurrentConfig `yaml:"currents"`
	Integrator string        `yaml:"integrator"`
	Topologies []string      `yaml:"topologies,omitempty"`
	Ramp       bool          `yaml:"ramp"`
	Parallel   bool          `yaml:"parallel"`
	Seed       int64         `yaml:"seed"`
	Threshold  float64       `yaml:"threshold"`
}

type DomainConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Boundary string  `yaml:"boundary"`
}

type PinningConfig struct {
	Density  float64 `yaml:"density"`
	Radius   float64 `yaml:"radius"`
	Strength float64 `yaml:"strength"`
}

type PhysicsConfig struct {
	Damping            float64 `yaml:"damping"`
	RepulsionStrength  float64 `yaml:"repulsion_strength"`
	RepulsionSoftening float64 `yaml:"repulsion_softening"`
	RepulsionCutoff    float64 `yaml:"repulsion_cutoff"`
	DriveCoupling      float64 `yaml:"drive_coupling"`
	DriveAngle         float64 `yaml:"drive_angle"` // degrees from +x
	Temperature        float64 `yaml:"temperature"`
}

type RunConfig struct {
	Dt            float64 `yaml:"dt"`
	Equilibration int     `yaml:"equilibration_steps"`
	Measurement   int     `yaml:"measurement_steps"`
}

// CurrentConfig is either an explicit list or an evenly spaced range.
type CurrentConfig struct {
	Values []float64 `yaml:"values,omitempty"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Count  int       `yaml:"count"`
}

func DefaultConfig() *Config {
	p := physics.DefaultParams()
	return &Config{
		Domain: DomainConfig{
			Width:    DefaultBoxSize,
			Height:   DefaultBoxSize,
			Boundary: dynamo.Periodic.String(),
		},
		Pinning: PinningConfig{
			Density:  DefaultDensity,
			Radius:   DefaultPinRadius,
			Strength: DefaultPinStrength,
		},
		Vortices: DefaultVortices,
		Physics: PhysicsConfig{
			Damping:            p.Damping,
			RepulsionStrength:  p.RepulsionStrength,
			RepulsionSoftening: p.RepulsionSoftening,
			DriveCoupling:      p.DriveCoupling,
		},
		Run: RunConfig{
			Dt:            DefaultDt,
			Equilibration: DefaultEquilibration,
			Measurement:   DefaultMeasurement,
		},
		Currents: CurrentConfig{
			Max:   DefaultMaxCurrent,
			Count: DefaultCurrentCount,
		},
		Integrator: "euler",
		Threshold:  DefaultThreshold,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base; keys missing from the file
// keep base's values. base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Topologies = append([]string(nil), c.Topologies...)
	out.Currents.Values = append([]float64(nil), c.Currents.Values...)
	return &out
}

// CurrentValues expands the current sequence.
func (c *Config) CurrentValues() ([]float64, error) {
	js := c.Currents.Values
	if len(js) == 0 {
		if c.Currents.Count < 1 {
			return nil, fmt.Errorf("%w: current count must be positive, got %d", dynamo.ErrConfig, c.Currents.Count)
		}
		if c.Currents.Count > 1 && !(c.Currents.Max > c.Currents.Min) {
			return nil, fmt.Errorf("%w: current max %g must exceed min %g", dynamo.ErrConfig, c.Currents.Max, c.Currents.Min)
		}
		js = experiment.Linspace(c.Currents.Min, c.Currents.Max, c.Currents.Count)
	}
	if err := experiment.ValidateCurrents(js); err != nil {
		return nil, err
	}
	return js, nil
}

func (c *Config) Domain2D() (dynamo.Domain, error) {
	b, err := dynamo.ParseBoundary(c.Domain.Boundary)
	if err != nil {
		return dynamo.Domain{}, err
	}
	d := dynamo.Domain{Width: c.Domain.Width, Height: c.Domain.Height, Boundary: b}
	return d, d.Validate()
}

func (c *Config) TopologyList() ([]landscape.Topology, error) {
	if len(c.Topologies) == 0 {
		return landscape.Topologies(), nil
	}
	out := make([]landscape.Topology, 0, len(c.Topologies))
	for _, name := range c.Topologies {
		t, err := landscape.ParseTopology(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Config) PhysicsParams() physics.Params {
	rad := c.Physics.DriveAngle * math.Pi / 180
	return physics.Params{
		Damping:            c.Physics.Damping,
		RepulsionStrength:  c.Physics.RepulsionStrength,
		RepulsionSoftening: c.Physics.RepulsionSoftening,
		RepulsionCutoff:    c.Physics.RepulsionCutoff,
		DriveCoupling:      c.Physics.DriveCoupling,
		DriveDirection:     dynamo.Vec{X: math.Cos(rad), Y: math.Sin(rad)},
		Temperature:        c.Physics.Temperature,
		Dt:                 c.Run.Dt,
	}
}

// Experiment converts c into the engine configuration.
func (c *Config) Experiment() (experiment.Config, error) {
	d, err := c.Domain2D()
	if err != nil {
		return experiment.Config{}, err
	}
	tops, err := c.TopologyList()
	if err != nil {
		return experiment.Config{}, err
	}
	return experiment.Config{
		Domain:      d,
		Density:     c.Pinning.Density,
		PinRadius:   c.Pinning.Radius,
		PinStrength: c.Pinning.Strength,
		Vortices:    c.Vortices,
		Physics:     c.PhysicsParams(),
		Run: dynamo.RunConfig{
			Dt:                 c.Run.Dt,
			EquilibrationSteps: c.Run.Equilibration,
			MeasurementSteps:   c.Run.Measurement,
			Seed:               c.Seed,
		},
		Integrator: c.Integrator,
		Topologies: tops,
		Ramp:       c.Ramp,
		Parallel:   c.Parallel,
	}, nil
}

// Validate reports the first configuration error, wrapping dynamo.ErrConfig
// or dynamo.ErrGeometry.
func (c *Config) Validate() error {
	ec, err := c.Experiment()
	if err != nil {
		return err
	}
	if _, err := experiment.New(ec); err != nil {
		return err
	}
	if _, err := c.CurrentValues(); err != nil {
		return err
	}
	if c.Threshold < 0 || math.IsNaN(c.Threshold) {
		return fmt.Errorf("%w: threshold must be non-negative, got %g", dynamo.ErrConfig, c.Threshold)
	}
	return nil
}

// Tunable lists the parameter names accepted by SetParam.
var Tunable = []string{
	"damping", "density", "drive_angle", "pin_radius", "pin_strength",
	"repulsion", "softening", "temperature", "vortices",
}

// SetParam sets one numeric parameter by name, for parameter studies.
func (c *Config) SetParam(name string, v float64) error {
	switch name {
	case "damping":
		c.Physics.Damping = v
	case "density":
		c.Pinning.Density = v
	case "drive_angle":
		c.Physics.DriveAngle = v
	case "pin_radius":
		c.Pinning.Radius = v
	case "pin_strength":
		c.Pinning.Strength = v
	case "repulsion":
		c.Physics.RepulsionStrength = v
	case "softening":
		c.Physics.RepulsionSoftening = v
	case "temperature":
		c.Physics.Temperature = v
	case "vortices":
		if v != math.Trunc(v) {
			return fmt.Errorf("%w: vortices must be a whole number, got %g", dynamo.ErrConfig, v)
		}
		c.Vortices = int(v)
	default:
		return fmt.Errorf("%w: unknown parameter %q (tunable: %v)", dynamo.ErrConfig, name, Tunable)
	}
	return nil
}
