package dynamo

import (
	"fmt"
	"math"
	"math/rand"
)

// Vec is a point or displacement in the simulation plane.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }
func (v Vec) Dot(o Vec) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec) Norm() float64       { return math.Hypot(v.X, v.Y) }
func (v Vec) IsValid() bool       { return isFinite(v.X) && isFinite(v.Y) }
func (v Vec) String() string      { return fmt.Sprintf("(%.4f, %.4f)", v.X, v.Y) }
func (v Vec) Unit() Vec {
	n := v.Norm()
	if n == 0 {
		return Vec{}
	}
	return Vec{v.X / n, v.Y / n}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Positions holds one entry per vortex. Integrators return a new slice
// every step; a Positions value handed to a caller is never mutated again.
type Positions []Vec

func (p Positions) Clone() Positions {
	c := make(Positions, len(p))
	copy(c, p)
	return c
}

func (p Positions) IsValid() bool {
	for _, v := range p {
		if !v.IsValid() {
			return false
		}
	}
	return true
}

// Mean returns the ensemble average, zero for an empty set.
func (p Positions) Mean() Vec {
	if len(p) == 0 {
		return Vec{}
	}
	var sum Vec
	for _, v := range p {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(p)))
}

// ForceField evaluates the net force on every vortex of a configuration.
type ForceField interface {
	Forces(pos Positions, current float64, rng *rand.Rand) Positions
	Domain() Domain
	Damping() float64
}

// Integrator advances a configuration by one time step. Implementations must
// not modify pos and must report divergence as an error.
type Integrator interface {
	Step(f ForceField, pos Positions, current, dt float64, rng *rand.Rand) (Positions, error)
}

// Metric accumulates a scalar over the measurement phase of a run.
// prev and next are consecutive configurations one dt apart.
type Metric interface {
	Name() string
	Observe(prev, next Positions, dt float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(step int, t float64, pos Positions)
}

// RunConfig controls a single run at one current value.
type RunConfig struct {
	Dt                 float64
	EquilibrationSteps int
	MeasurementSteps   int
	Seed               int64
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Dt:                 0.05,
		EquilibrationSteps: 400,
		MeasurementSteps:   400,
	}
}

func (c RunConfig) TotalSteps() int {
	return c.EquilibrationSteps + c.MeasurementSteps
}

func (c RunConfig) Validate() error {
	if !(c.Dt > 0) || !isFinite(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrConfig, c.Dt)
	}
	if c.EquilibrationSteps < 0 {
		return fmt.Errorf("%w: equilibration steps must be non-negative, got %d", ErrConfig, c.EquilibrationSteps)
	}
	if c.MeasurementSteps <= 0 {
		return fmt.Errorf("%w: measurement steps must be positive, got %d", ErrConfig, c.MeasurementSteps)
	}
	return nil
}
