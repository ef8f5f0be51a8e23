package integrators

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// SplitField is a force field whose thermal kick can be drawn apart from the
// deterministic forces. Multi-stage steppers need it to sample the noise
// once per step.
type SplitField interface {
	dynamo.ForceField
	Deterministic(pos dynamo.Positions, current float64) dynamo.Positions
	Thermal(n int, rng *rand.Rand) dynamo.Positions
}

// advance moves every vortex by force*mobility and applies the boundary.
// A non-finite step or one longer than half the smaller side is divergence.
func advance(d dynamo.Domain, pos, force dynamo.Positions, mobility float64) (dynamo.Positions, error) {
	limit := d.MinSide() / 2
	next := make(dynamo.Positions, len(pos))
	for i, p := range pos {
		step := force[i].Scale(mobility)
		if !step.IsValid() || step.Norm() > limit {
			return nil, &dynamo.SimulationError{Vortex: i, Position: p, Wrapped: dynamo.ErrDiverged}
		}
		next[i] = d.Apply(p.Add(step))
	}
	return next, nil
}

// stage returns the boundary-resolved trial configuration pos + force*h.
func stage(d dynamo.Domain, pos, force dynamo.Positions, h float64) dynamo.Positions {
	out := make(dynamo.Positions, len(pos))
	for i, p := range pos {
		out[i] = d.Apply(p.Add(force[i].Scale(h)))
	}
	return out
}
