package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// DefaultThreshold is the voltage criterion used when none is given.
const DefaultThreshold = 0.05

// CriticalCurrent returns the current at which the voltage first exceeds
// threshold. ok is false if it never does.
func CriticalCurrent(c *experiment.Curve, threshold float64) (float64, bool) {
	if c == nil || len(c.Points) == 0 {
		return 0, false
	}
	pts := c.Points
	if pts[0].Voltage > threshold {
		return pts[0].Current, true
	}
	for i := 1; i < len(pts); i++ {
		lo, hi := pts[i-1], pts[i]
		if hi.Voltage <= threshold {
			continue
		}
		frac := (threshold - lo.Voltage) / (hi.Voltage - lo.Voltage)
		return lo.Current + frac*(hi.Current-lo.Current), true
	}
	return 0, false
}

// Fit is a least-squares line V = Slope*J + Intercept.
type Fit struct {
	Slope     float64 // flux-flow resistance
	Intercept float64
	R2        float64
	N         int
}

// OhmicFit fits the points with current >= fromCurrent.
func OhmicFit(c *experiment.Curve, fromCurrent float64) (Fit, error) {
	if c == nil {
		return Fit{}, fmt.Errorf("analysis: nil curve")
	}
	var xs, ys []float64
	for _, p := range c.Points {
		if p.Current >= fromCurrent {
			xs = append(xs, p.Current)
			ys = append(ys, p.Voltage)
		}
	}
	if len(xs) < 2 {
		return Fit{}, fmt.Errorf("analysis: need 2 points above J=%g, have %d", fromCurrent, len(xs))
	}
	return linearFit(xs, ys), nil
}

func linearFit(xs, ys []float64) Fit {
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var sxx, sxy, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	f := Fit{N: len(xs)}
	if sxx == 0 {
		f.Intercept = my
		return f
	}
	f.Slope = sxy / sxx
	f.Intercept = my - f.Slope*mx
	if syy > 0 {
		f.R2 = sxy * sxy / (sxx * syy)
	} else {
		f.R2 = 1
	}
	return f
}

// DifferentialResistance returns dV/dJ at each point, using one-sided
// differences at the ends and central differences inside.
func DifferentialResistance(c *experiment.Curve) []float64 {
	pts := c.Points
	n := len(pts)
	if n < 2 {
		return make([]float64, n)
	}
	out := make([]float64, n)
	for i := range pts {
		lo, hi := max(i-1, 0), min(i+1, n-1)
		out[i] = (pts[hi].Voltage - pts[lo].Voltage) / (pts[hi].Current - pts[lo].Current)
	}
	return out
}

// Summary collects the figures of merit of one curve.
type Summary struct {
	Topology        landscape.Topology
	Sites           int
	CriticalCurrent float64
	Depinned        bool
	Ohmic           Fit
	OhmicOK         bool
	MaxVoltage      float64
	PinnedAtZero    float64
}

// Summarize fits the top half of the current range for the ohmic slope.
func Summarize(curves []*experiment.Curve, threshold float64) []Summary {
	out := make([]Summary, 0, len(curves))
	for _, c := range curves {
		s := Summary{Topology: c.Topology}
		if c.Landscape != nil {
			s.Sites = c.Landscape.Len()
		}
		s.CriticalCurrent, s.Depinned = CriticalCurrent(c, threshold)
		if n := len(c.Points); n > 0 {
			from := c.Points[n/2].Current
			if fit, err := OhmicFit(c, from); err == nil {
				s.Ohmic, s.OhmicOK = fit, true
			}
			s.PinnedAtZero = c.Points[0].PinnedFraction
		}
		for _, p := range c.Points {
			s.MaxVoltage = math.Max(s.MaxVoltage, p.Voltage)
		}
		out = append(out, s)
	}
	return out
}
