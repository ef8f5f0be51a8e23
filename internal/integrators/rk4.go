package integrators

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// RK4 integrates the deterministic drift with classic fourth-order stages and
// adds the thermal kick once per step. At zero temperature it is the
// reference stepper for convergence checks.
type RK4 struct {
	fallback Euler
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(f dynamo.ForceField, pos dynamo.Positions, current, dt float64, rng *rand.Rand) (dynamo.Positions, error) {
	sf, ok := f.(SplitField)
	if !ok {
		return r.fallback.Step(f, pos, current, dt, rng)
	}
	d := sf.Domain()
	mob := dt / sf.Damping()
	n := len(pos)

	noise := sf.Thermal(n, rng)
	k1 := sf.Deterministic(pos, current)
	k2 := sf.Deterministic(stage(d, pos, k1, mob*0.5), current)
	k3 := sf.Deterministic(stage(d, pos, k2, mob*0.5), current)
	k4 := sf.Deterministic(stage(d, pos, k3, mob), current)

	total := make(dynamo.Positions, n)
	for i := range total {
		sum := k1[i].Add(k2[i].Scale(2)).Add(k3[i].Scale(2)).Add(k4[i])
		total[i] = sum.Scale(1.0 / 6.0).Add(noise[i])
	}
	return advance(d, pos, total, mob)
}
