package landscape

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// randomSites draws independent uniform coordinates. Clusters are allowed.
func randomSites(cfg Config, rng *rand.Rand) []dynamo.Vec {
	n := cfg.TargetCount()
	d := cfg.Domain
	pts := make([]dynamo.Vec, n)
	for i := range pts {
		pts[i] = dynamo.Vec{X: rng.Float64() * d.Width, Y: rng.Float64() * d.Height}
	}
	return pts
}

// LatticeSpacing is the nearest-neighbour distance of a triangular lattice
// with the given areal density: ρ = 2 / (√3 a²).
func LatticeSpacing(density float64) float64 {
	return math.Sqrt(2 / (math.Sqrt(3) * density))
}

// hexagonalSites fills the domain with a centred triangular lattice.
func hexagonalSites(cfg Config) ([]dynamo.Vec, error) {
	d := cfg.Domain
	a := LatticeSpacing(cfg.Density)
	pitch := a * math.Sqrt(3) / 2

	cols := int(math.Round(d.Width / a))
	rows := int(math.Round(d.Height / pitch))
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: hexagonal spacing %.3f does not fit a %gx%g domain", dynamo.ErrGeometry, a, d.Width, d.Height)
	}

	spanX := float64(cols-1) * a
	if rows > 1 {
		spanX += a / 2
	}
	x0 := (d.Width - spanX) / 2
	y0 := (d.Height - float64(rows-1)*pitch) / 2

	pts := make([]dynamo.Vec, 0, rows*cols)
	for j := 0; j < rows; j++ {
		offset := 0.0
		if j%2 == 1 {
			offset = a / 2
		}
		y := y0 + float64(j)*pitch
		for i := 0; i < cols; i++ {
			p := dynamo.Vec{X: x0 + offset + float64(i)*a, Y: y}
			if d.Contains(p) {
				pts = append(pts, p)
			}
		}
	}

	target := cfg.TargetCount()
	if diff := math.Abs(float64(len(pts) - target)); len(pts) == 0 || diff > DensityTolerance*float64(target) {
		return nil, fmt.Errorf("%w: hexagonal lattice holds %d sites, want %d within %.0f%%",
			dynamo.ErrGeometry, len(pts), target, DensityTolerance*100)
	}
	return pts, nil
}

// spiralSites places sites on a phyllotactic spiral: r_k = c·√k, θ_k = k·GoldenAngle.
func spiralSites(cfg Config) ([]dynamo.Vec, error) {
	d := cfg.Domain
	n := cfg.TargetCount()
	rMax := SpiralFill * d.MinSide() / 2
	if !(rMax > 0) {
		return nil, fmt.Errorf("%w: spiral radius %.3f", dynamo.ErrGeometry, rMax)
	}

	c := 0.0
	if n > 1 {
		c = rMax / math.Sqrt(float64(n-1))
	}
	center := d.Center()
	pts := make([]dynamo.Vec, n)
	for k := range pts {
		r := c * math.Sqrt(float64(k))
		sin, cos := math.Sincos(float64(k) * GoldenAngle)
		pts[k] = dynamo.Vec{X: center.X + r*cos, Y: center.Y + r*sin}
	}
	return pts, nil
}
