package landscape

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// Topology selects the pinning-site geometry.
type Topology int

const (
	Random Topology = iota
	Hexagonal
	Spiral
)

// GoldenAngle is 2π(1 - 1/φ) = π(3 - √5), about 137.50776 degrees.
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// DensityTolerance bounds the relative difference between the lattice site
// count and density * area.
const DensityTolerance = 0.15

// SpiralFill is the fraction of the half side used by the outermost spiral site.
const SpiralFill = 0.95

func Topologies() []Topology { return []Topology{Random, Hexagonal, Spiral} }

func (t Topology) String() string {
	switch t {
	case Random:
		return "random"
	case Hexagonal:
		return "hexagonal"
	case Spiral:
		return "spiral"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// Label is the human readable series name used in figures.
func (t Topology) Label() string {
	switch t {
	case Random:
		return "Random"
	case Hexagonal:
		return "Hexagonal"
	case Spiral:
		return "Golden spiral"
	default:
		return t.String()
	}
}

func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "rand":
		return Random, nil
	case "hexagonal", "hex", "triangular":
		return Hexagonal, nil
	case "spiral", "golden", "golden-spiral", "phyllotactic":
		return Spiral, nil
	}
	return 0, fmt.Errorf("%w: unknown topology %q", dynamo.ErrConfig, s)
}

// Site is a pinning centre. Radius is the attraction cutoff and Strength
// the restoring force at the rim of the well.
type Site struct {
	Pos      dynamo.Vec
	Radius   float64
	Strength float64
}

type Config struct {
	Topology    Topology
	Density     float64
	Domain      dynamo.Domain
	PinRadius   float64
	PinStrength float64
}

// TargetCount is round(density * area).
func (c Config) TargetCount() int {
	return int(math.Round(c.Density * c.Domain.Area()))
}

func (c Config) Validate() error {
	if err := c.Domain.Validate(); err != nil {
		return err
	}
	if !(c.Density > 0) || math.IsInf(c.Density, 0) {
		return fmt.Errorf("%w: pin density must be positive, got %g", dynamo.ErrConfig, c.Density)
	}
	if n := c.TargetCount(); n < 1 {
		return fmt.Errorf("%w: density %g over area %g yields %d sites", dynamo.ErrConfig, c.Density, c.Domain.Area(), n)
	}
	if !(c.PinRadius > 0) || math.IsInf(c.PinRadius, 0) {
		return fmt.Errorf("%w: pin radius must be positive, got %g", dynamo.ErrConfig, c.PinRadius)
	}
	if c.PinStrength < 0 || math.IsNaN(c.PinStrength) || math.IsInf(c.PinStrength, 0) {
		return fmt.Errorf("%w: pin strength must be non-negative, got %g", dynamo.ErrConfig, c.PinStrength)
	}
	return nil
}

// Landscape is an immutable set of pinning sites. It is shared read-only by
// every run of a sweep.
type Landscape struct {
	Topology Topology
	Domain   dynamo.Domain
	Sites    []Site
	Target   int
	index    *Index
}

// New wraps explicit sites, mainly for hand-built test layouts.
func New(t Topology, d dynamo.Domain, sites []Site) (*Landscape, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	for i, s := range sites {
		if !s.Pos.IsValid() || !d.Contains(s.Pos) {
			return nil, fmt.Errorf("%w: site %d at %v outside domain", dynamo.ErrGeometry, i, s.Pos)
		}
		if !(s.Radius > 0) {
			return nil, fmt.Errorf("%w: site %d has radius %g", dynamo.ErrConfig, i, s.Radius)
		}
	}
	l := &Landscape{
		Topology: t,
		Domain:   d,
		Sites:    append([]Site(nil), sites...),
		Target:   len(sites),
	}
	l.index = NewIndex(l.Sites, d)
	return l, nil
}

// Generate places round(density*area) sites for the configured topology.
// rng is only consumed by the random topology.
func Generate(cfg Config, rng *rand.Rand) (*Landscape, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var pts []dynamo.Vec
	var err error
	switch cfg.Topology {
	case Random:
		if rng == nil {
			return nil, fmt.Errorf("%w: random topology needs a random source", dynamo.ErrConfig)
		}
		pts = randomSites(cfg, rng)
	case Hexagonal:
		pts, err = hexagonalSites(cfg)
	case Spiral:
		pts, err = spiralSites(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown topology %v", dynamo.ErrConfig, cfg.Topology)
	}
	if err != nil {
		return nil, err
	}

	sites := make([]Site, len(pts))
	for i, p := range pts {
		sites[i] = Site{Pos: p, Radius: cfg.PinRadius, Strength: cfg.PinStrength}
	}
	l := &Landscape{
		Topology: cfg.Topology,
		Domain:   cfg.Domain,
		Sites:    sites,
		Target:   cfg.TargetCount(),
	}
	l.index = NewIndex(l.Sites, cfg.Domain)
	return l, nil
}

func (l *Landscape) Len() int { return len(l.Sites) }

// Density is the realised number of sites per unit area.
func (l *Landscape) Density() float64 { return float64(len(l.Sites)) / l.Domain.Area() }

func (l *Landscape) Index() *Index { return l.index }

func (l *Landscape) Positions() dynamo.Positions {
	pos := make(dynamo.Positions, len(l.Sites))
	for i, s := range l.Sites {
		pos[i] = s.Pos
	}
	return pos
}
