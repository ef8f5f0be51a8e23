package sim

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// Result is the reduction of one run at a fixed current.
type Result struct {
	Current        float64
	Voltage        float64 // |<v>|, never negative
	Parallel       float64 // signed <v> along the drive
	PinnedFraction float64
	Metrics        map[string]float64
	Final          dynamo.Positions
	Steps          int
}

// landscaped fields expose the pinning landscape they act on.
type landscaped interface {
	Landscape() *landscape.Landscape
}

// driven fields expose the unit direction of their drive force.
type driven interface {
	DriveDirection() dynamo.Vec
}

// InitialPositions places n vortices uniformly at random in d.
func InitialPositions(d dynamo.Domain, n int, rng *rand.Rand) dynamo.Positions {
	pos := make(dynamo.Positions, n)
	for i := range pos {
		pos[i] = d.Apply(dynamo.Vec{X: rng.Float64() * d.Width, Y: rng.Float64() * d.Height})
	}
	return pos
}
