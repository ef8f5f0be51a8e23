package metrics

import (
	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// PinnedFraction is the mean share of vortices sitting inside a pinning well.
type PinnedFraction struct {
	name    string
	index   *landscape.Index
	sum     float64
	samples int
}

func NewPinnedFraction(ix *landscape.Index) *PinnedFraction {
	return &PinnedFraction{
		name:  "pinned_fraction",
		index: ix,
	}
}

func (m *PinnedFraction) Name() string { return m.name }

func (m *PinnedFraction) Observe(_, next dynamo.Positions, _ float64) {
	if len(next) == 0 || m.index == nil {
		return
	}
	captured := 0
	for _, p := range next {
		if m.index.Captured(p) {
			captured++
		}
	}
	m.sum += float64(captured) / float64(len(next))
	m.samples++
}

func (m *PinnedFraction) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *PinnedFraction) Reset() {
	m.sum = 0
	m.samples = 0
}
