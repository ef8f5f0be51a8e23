package metrics

import "github.com/san-kum/vortexsim/internal/dynamo"

// DriftVelocity averages the per-vortex velocity over every observed step.
// Displacements are taken through the domain's minimum image, so a vortex
// crossing a periodic seam contributes its true unwrapped motion.
type DriftVelocity struct {
	name      string
	domain    dynamo.Domain
	direction dynamo.Vec
	sum       dynamo.Vec
	samples   int
}

func NewDriftVelocity(d dynamo.Domain, direction dynamo.Vec) *DriftVelocity {
	return &DriftVelocity{
		name:      "voltage",
		domain:    d,
		direction: direction.Unit(),
	}
}

func (m *DriftVelocity) Name() string { return m.name }

func (m *DriftVelocity) Observe(prev, next dynamo.Positions, dt float64) {
	if dt <= 0 || len(prev) != len(next) {
		return
	}
	for i := range next {
		m.sum = m.sum.Add(m.domain.Delta(prev[i], next[i]).Scale(1 / dt))
	}
	m.samples += len(next)
}

// Mean is the time and ensemble averaged velocity vector.
func (m *DriftVelocity) Mean() dynamo.Vec {
	if m.samples == 0 {
		return dynamo.Vec{}
	}
	return m.sum.Scale(1 / float64(m.samples))
}

// Value is the magnitude of Mean and is never negative.
func (m *DriftVelocity) Value() float64 { return m.Mean().Norm() }

// Parallel is the signed component of Mean along the drive direction.
func (m *DriftVelocity) Parallel() float64 { return m.Mean().Dot(m.direction) }

func (m *DriftVelocity) Reset() {
	m.sum = dynamo.Vec{}
	m.samples = 0
}
