package integrators

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// Euler is the overdamped Euler-Maruyama step x' = x + F/η·dt.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.ForceField, pos dynamo.Positions, current, dt float64, rng *rand.Rand) (dynamo.Positions, error) {
	force := f.Forces(pos, current, rng)
	return advance(f.Domain(), pos, force, dt/f.Damping())
}
