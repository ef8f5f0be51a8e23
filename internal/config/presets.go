package config

import "sort"

// Presets are complete configurations selectable by name.
var Presets = map[string]*Config{
	// 80 vortices on 80 pins in a 20x20 box, stiff short-range wells, 40
	// warm-started steps per current. There is no discard phase: every step
	// is measured while the lattice relaxes, and Ramp carries the relaxed
	// state forward so the next current starts settled.
	"paper": {
		Domain:     DomainConfig{Width: 20, Height: 20, Boundary: "periodic"},
		Pinning:    PinningConfig{Density: 0.2, Radius: 0.8, Strength: 6.4},
		Vortices:   80,
		Physics:    PhysicsConfig{Damping: 1, RepulsionStrength: 1, RepulsionSoftening: 0.1, DriveCoupling: 1},
		Run:        RunConfig{Dt: 0.05, Equilibration: 0, Measurement: 40},
		Currents:   CurrentConfig{Min: 0, Max: 2.5, Count: 60},
		Integrator: "euler",
		Ramp:       true,
		Threshold:  DefaultThreshold,
	},
	"quick": {
		Domain:     DomainConfig{Width: 10, Height: 10, Boundary: "periodic"},
		Pinning:    PinningConfig{Density: 0.2, Radius: 0.8, Strength: 1},
		Vortices:   20,
		Physics:    PhysicsConfig{Damping: 1, RepulsionStrength: 1, RepulsionSoftening: 0.1, DriveCoupling: 1},
		Run:        RunConfig{Dt: 0.05, Equilibration: 100, Measurement: 100},
		Currents:   CurrentConfig{Min: 0, Max: 2.5, Count: 11},
		Integrator: "euler",
		Parallel:   true,
		Threshold:  DefaultThreshold,
	},
	"dense": {
		Domain:     DomainConfig{Width: 30, Height: 30, Boundary: "periodic"},
		Pinning:    PinningConfig{Density: 0.4, Radius: 0.6, Strength: 1.5},
		Vortices:   300,
		Physics:    PhysicsConfig{Damping: 1, RepulsionStrength: 1, RepulsionSoftening: 0.1, RepulsionCutoff: 6, DriveCoupling: 1},
		Run:        RunConfig{Dt: 0.05, Equilibration: 400, Measurement: 400},
		Currents:   CurrentConfig{Min: 0, Max: 4, Count: 33},
		Integrator: "heun",
		Parallel:   true,
		Threshold:  DefaultThreshold,
	},
	"hot": {
		Domain:     DomainConfig{Width: 20, Height: 20, Boundary: "periodic"},
		Pinning:    PinningConfig{Density: 0.2, Radius: 0.8, Strength: 1},
		Vortices:   80,
		Physics:    PhysicsConfig{Damping: 1, RepulsionStrength: 1, RepulsionSoftening: 0.1, DriveCoupling: 1, Temperature: 0.05},
		Run:        RunConfig{Dt: 0.02, Equilibration: 1000, Measurement: 1500},
		Currents:   CurrentConfig{Min: 0, Max: 2.5, Count: 26},
		Integrator: "heun",
		Parallel:   true,
		Threshold:  DefaultThreshold,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
