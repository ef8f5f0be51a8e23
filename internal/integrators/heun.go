package integrators

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// Heun is the stochastic predictor-corrector: the deterministic force is
// averaged over the start and the Euler-predicted end of the step while the
// thermal kick is drawn once and applied to both.
type Heun struct {
	fallback Euler
}

func NewHeun() *Heun {
	return &Heun{}
}

func (h *Heun) Step(f dynamo.ForceField, pos dynamo.Positions, current, dt float64, rng *rand.Rand) (dynamo.Positions, error) {
	sf, ok := f.(SplitField)
	if !ok {
		return h.fallback.Step(f, pos, current, dt, rng)
	}
	d := sf.Domain()
	mob := dt / sf.Damping()
	n := len(pos)

	noise := sf.Thermal(n, rng)
	f0 := sf.Deterministic(pos, current)

	kick := make(dynamo.Positions, n)
	for i := range kick {
		kick[i] = f0[i].Add(noise[i])
	}
	f1 := sf.Deterministic(stage(d, pos, kick, mob), current)

	total := make(dynamo.Positions, n)
	for i := range total {
		total[i] = f0[i].Add(f1[i]).Scale(0.5).Add(noise[i])
	}
	return advance(d, pos, total, mob)
}
