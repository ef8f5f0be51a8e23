package metrics

import "github.com/san-kum/vortexsim/internal/dynamo"

// Potential reports the energy of a configuration.
type Potential interface {
	Potential(pos dynamo.Positions) float64
}

// Energy averages the potential energy per vortex over the observed steps.
type Energy struct {
	name    string
	model   Potential
	samples int
	total   float64
}

func NewEnergy(model Potential) *Energy {
	return &Energy{
		name:  "energy",
		model: model,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(_, next dynamo.Positions, _ float64) {
	if len(next) == 0 {
		return
	}
	e.total += e.model.Potential(next) / float64(len(next))
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}
