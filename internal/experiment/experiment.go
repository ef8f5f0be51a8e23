package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/metrics"
	"github.com/san-kum/vortexsim/internal/physics"
	"github.com/san-kum/vortexsim/internal/sim"
)

const (
	// SeedStride separates the seed ranges of the topologies.
	SeedStride = 1_000_000
	// layoutOffset keys the landscape and initial-position stream of a
	// topology inside its seed range, clear of the per-current noise seeds.
	layoutOffset = SeedStride / 2
)

type Config struct {
	Domain      dynamo.Domain
	Density     float64
	PinRadius   float64
	PinStrength float64
	Vortices    int
	Physics     physics.Params
	Run         dynamo.RunConfig
	Integrator  string
	Topologies  []landscape.Topology
	Ramp        bool // carry final positions to the next current
	Parallel    bool // sweep topologies concurrently
}

func DefaultConfig() Config {
	return Config{
		Domain:      dynamo.NewSquareDomain(20, dynamo.Periodic),
		Density:     0.2,
		PinRadius:   0.8,
		PinStrength: 1.0,
		Vortices:    80,
		Physics:     physics.DefaultParams(),
		Run:         dynamo.DefaultRunConfig(),
		Integrator:  "euler",
		Topologies:  landscape.Topologies(),
	}
}

// Progress is reported after every completed run.
type Progress struct {
	Topology landscape.Topology
	Index    int
	Total    int
	Point    Point
}

type Experiment struct {
	cfg      Config
	registry *Registry

	mu       sync.Mutex
	progress func(Progress)
}

func New(cfg Config) (*Experiment, error) {
	return NewWithRegistry(cfg, NewRegistry())
}

func NewWithRegistry(cfg Config, r *Registry) (*Experiment, error) {
	if len(cfg.Topologies) == 0 {
		cfg.Topologies = landscape.Topologies()
	}
	cfg.Physics.Dt = cfg.Run.Dt
	e := &Experiment{cfg: cfg, registry: r}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) validate() error {
	c := e.cfg
	if c.Vortices < 1 {
		return fmt.Errorf("%w: need at least one vortex, got %d", dynamo.ErrConfig, c.Vortices)
	}
	if err := e.landscapeConfig(landscape.Random).Validate(); err != nil {
		return err
	}
	if err := c.Physics.Validate(); err != nil {
		return err
	}
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if _, err := e.registry.GetIntegrator(c.Integrator); err != nil {
		return err
	}
	seen := map[landscape.Topology]bool{}
	for _, t := range c.Topologies {
		if _, err := landscape.ParseTopology(t.String()); err != nil {
			return err
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate topology %v", dynamo.ErrConfig, t)
		}
		seen[t] = true
	}
	return nil
}

func (e *Experiment) Config() Config { return e.cfg }

// OnProgress installs a callback invoked after every run. Calls are
// serialised even when topologies run in parallel.
func (e *Experiment) OnProgress(fn func(Progress)) {
	e.mu.Lock()
	e.progress = fn
	e.mu.Unlock()
}

func (e *Experiment) report(p Progress) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.progress != nil {
		e.progress(p)
	}
}

func (e *Experiment) landscapeConfig(t landscape.Topology) landscape.Config {
	return landscape.Config{
		Topology:    t,
		Density:     e.cfg.Density,
		Domain:      e.cfg.Domain,
		PinRadius:   e.cfg.PinRadius,
		PinStrength: e.cfg.PinStrength,
	}
}

// RunSeed is the noise seed of the i-th current of topology t.
func (e *Experiment) RunSeed(t landscape.Topology, i int) int64 {
	return e.cfg.Run.Seed + int64(t)*SeedStride + int64(i)
}

func (e *Experiment) layoutRand(t landscape.Topology) *rand.Rand {
	return rand.New(rand.NewSource(e.cfg.Run.Seed + int64(t)*SeedStride + layoutOffset))
}

// Landscape generates the landscape a sweep of t would use.
func (e *Experiment) Landscape(t landscape.Topology) (*landscape.Landscape, error) {
	return landscape.Generate(e.landscapeConfig(t), e.layoutRand(t))
}

type setup struct {
	landscape *landscape.Landscape
	model     *physics.ForceModel
	sim       *sim.Simulator
	layout    *rand.Rand
}

func (e *Experiment) prepare(t landscape.Topology) (*setup, error) {
	layout := e.layoutRand(t)
	l, err := landscape.Generate(e.landscapeConfig(t), layout)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", t, err)
	}
	fm, err := physics.NewForceModel(l, e.cfg.Physics)
	if err != nil {
		return nil, err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	s, err := sim.New(fm, integ, e.cfg.Run)
	if err != nil {
		return nil, err
	}
	return &setup{landscape: l, model: fm, sim: s, layout: layout}, nil
}

// Sweep builds the landscape of t once and runs every current in order.
// A failed run aborts the sweep.
func (e *Experiment) Sweep(ctx context.Context, t landscape.Topology, currents []float64) (*Curve, error) {
	if err := ValidateCurrents(currents); err != nil {
		return nil, err
	}
	st, err := e.prepare(t)
	if err != nil {
		return nil, err
	}
	return e.sweep(ctx, t, st, currents)
}

func (e *Experiment) sweep(ctx context.Context, t landscape.Topology, st *setup, currents []float64) (*Curve, error) {
	domain := st.landscape.Domain

	curve := &Curve{
		Topology:  t,
		Landscape: st.landscape,
		Points:    make([]Point, 0, len(currents)),
	}
	pos := sim.InitialPositions(domain, e.cfg.Vortices, st.layout)
	for i, j := range currents {
		if i > 0 && !e.cfg.Ramp {
			pos = sim.InitialPositions(domain, e.cfg.Vortices, st.layout)
		}
		st.sim.SetSeed(e.RunSeed(t, i))
		res, err := st.sim.Run(ctx, j, pos)
		if err != nil {
			return nil, fmt.Errorf("topology %s: current %.3f: %w", t, j, err)
		}
		if e.cfg.Ramp {
			pos = res.Final
		}

		p := Point{
			Current:        j,
			Voltage:        res.Voltage,
			Parallel:       res.Parallel,
			PinnedFraction: res.PinnedFraction,
		}
		curve.Points = append(curve.Points, p)
		e.report(Progress{Topology: t, Index: i, Total: len(currents), Point: p})
	}
	return curve, nil
}

// SweepAll sweeps every configured topology, concurrently when Parallel is
// set. Every landscape is built before the first run, so a layout that
// cannot be placed fails the whole sweep up front. Curves come back in
// configuration order; the first error wins.
func (e *Experiment) SweepAll(ctx context.Context, currents []float64) ([]*Curve, error) {
	if err := ValidateCurrents(currents); err != nil {
		return nil, err
	}
	setups := make([]*setup, len(e.cfg.Topologies))
	for i, t := range e.cfg.Topologies {
		st, err := e.prepare(t)
		if err != nil {
			return nil, err
		}
		setups[i] = st
	}
	curves := make([]*Curve, len(e.cfg.Topologies))

	if !e.cfg.Parallel {
		for i, t := range e.cfg.Topologies {
			c, err := e.sweep(ctx, t, setups[i], currents)
			if err != nil {
				return nil, err
			}
			curves[i] = c
		}
		return curves, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range e.cfg.Topologies {
		i, t := i, t // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			c, err := e.sweep(gctx, t, setups[i], currents)
			if err != nil {
				return err
			}
			curves[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return curves, nil
}

// Snapshot runs a single current on topology t with extra observers
// attached, for trajectory figures and the live view.
func (e *Experiment) Snapshot(ctx context.Context, t landscape.Topology, current float64, observers ...dynamo.Observer) (*sim.Result, *landscape.Landscape, error) {
	st, err := e.prepare(t)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range observers {
		st.sim.AddObserver(o)
	}
	st.sim.AddMetric(metrics.NewEnergy(st.model))
	st.sim.SetSeed(e.RunSeed(t, 0))
	x0 := sim.InitialPositions(st.landscape.Domain, e.cfg.Vortices, st.layout)
	res, err := st.sim.Run(ctx, current, x0)
	if err != nil {
		return nil, nil, fmt.Errorf("topology %s: current %.3f: %w", t, current, err)
	}
	return res, st.landscape, nil
}

// Stream steps topology t at current until fn returns false or ctx ends.
func (e *Experiment) Stream(ctx context.Context, t landscape.Topology, current float64, fn func(step int, tm float64, pos dynamo.Positions) bool) (*landscape.Landscape, error) {
	st, err := e.prepare(t)
	if err != nil {
		return nil, err
	}
	st.sim.SetSeed(e.RunSeed(t, 0))
	x0 := sim.InitialPositions(st.landscape.Domain, e.cfg.Vortices, st.layout)
	return st.landscape, st.sim.RunWithCallback(ctx, current, x0, 0, fn)
}

// Session starts an interactive stepping session on topology t with the
// same landscape, seed and initial layout as Stream.
func (e *Experiment) Session(t landscape.Topology, current float64) (*sim.Session, *landscape.Landscape, error) {
	st, err := e.prepare(t)
	if err != nil {
		return nil, nil, err
	}
	st.sim.SetSeed(e.RunSeed(t, 0))
	x0 := sim.InitialPositions(st.landscape.Domain, e.cfg.Vortices, st.layout)
	ss, err := st.sim.Start(current, x0)
	if err != nil {
		return nil, nil, err
	}
	return ss, st.landscape, nil
}
