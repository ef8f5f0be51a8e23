package experiment

import (
	"fmt"
	"math"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// Point is one (current, voltage) sample of a V-I curve.
type Point struct {
	Current        float64
	Voltage        float64
	Parallel       float64
	PinnedFraction float64
}

// Curve is the V-I response of one topology, ordered by increasing current.
type Curve struct {
	Topology  landscape.Topology
	Landscape *landscape.Landscape
	Points    []Point
}

func (c *Curve) Len() int { return len(c.Points) }

func (c *Curve) Currents() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Current
	}
	return out
}

func (c *Curve) Voltages() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Voltage
	}
	return out
}

// ValidateCurrents checks that a current sequence is non-empty, finite and
// strictly increasing.
func ValidateCurrents(currents []float64) error {
	if len(currents) == 0 {
		return fmt.Errorf("%w: empty current sequence", dynamo.ErrConfig)
	}
	for i, j := range currents {
		if math.IsNaN(j) || math.IsInf(j, 0) {
			return fmt.Errorf("%w: current %d is not finite", dynamo.ErrConfig, i)
		}
		if i > 0 && !(j > currents[i-1]) {
			return fmt.Errorf("%w: currents must strictly increase, got %g after %g", dynamo.ErrConfig, j, currents[i-1])
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
