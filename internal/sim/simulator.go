package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/metrics"
)

// Simulator runs one vortex ensemble at a fixed current: an equilibration
// phase followed by a measurement phase whose mean drift velocity is the
// voltage. A Simulator may be reused for many runs but not concurrently.
type Simulator struct {
	field      dynamo.ForceField
	integrator dynamo.Integrator
	cfg        dynamo.RunConfig
	direction  dynamo.Vec
	pins       *landscape.Index
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(field dynamo.ForceField, integrator dynamo.Integrator, cfg dynamo.RunConfig) (*Simulator, error) {
	if field == nil || integrator == nil {
		return nil, fmt.Errorf("%w: simulator needs a force field and an integrator", dynamo.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := field.Domain().Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		field:      field,
		integrator: integrator,
		cfg:        cfg,
		direction:  dynamo.Vec{X: 1},
	}
	if d, ok := field.(driven); ok {
		s.direction = d.DriveDirection()
	}
	if l, ok := field.(landscaped); ok && l.Landscape() != nil {
		s.pins = l.Landscape().Index()
	}
	return s, nil
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() dynamo.RunConfig { return s.cfg }

// SetSeed changes the noise seed for subsequent runs.
func (s *Simulator) SetSeed(seed int64) { s.cfg.Seed = seed }

// Run advances x0 through the equilibration and measurement phases at the
// given current. x0 is not modified. Observers see the initial
// configuration as step 0 and then every step.
func (s *Simulator) Run(ctx context.Context, current float64, x0 dynamo.Positions) (*Result, error) {
	if err := s.checkInitial(x0); err != nil {
		return nil, err
	}

	domain := s.field.Domain()
	drift := metrics.NewDriftVelocity(domain, s.direction)
	pinned := metrics.NewPinnedFraction(s.pins)
	for _, m := range s.metrics {
		m.Reset()
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	dt := s.cfg.Dt
	pos := s.initial(x0)
	s.notify(0, 0, pos)

	total := s.cfg.TotalSteps()
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next, err := s.integrator.Step(s.field, pos, current, dt, rng)
		if err != nil {
			return nil, stepError(err, i, float64(i)*dt)
		}

		if i >= s.cfg.EquilibrationSteps {
			drift.Observe(pos, next, dt)
			pinned.Observe(pos, next, dt)
			for _, m := range s.metrics {
				m.Observe(pos, next, dt)
			}
		}

		pos = next
		s.notify(i+1, float64(i+1)*dt, pos)
	}

	result := &Result{
		Current:        current,
		Voltage:        drift.Value(),
		Parallel:       drift.Parallel(),
		PinnedFraction: pinned.Value(),
		Metrics:        make(map[string]float64, len(s.metrics)),
		Final:          pos.Clone(),
		Steps:          total,
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// RunWithCallback steps x0 at the given current until callback returns
// false, steps is reached (steps <= 0 means no limit) or ctx is done.
// No measurement is taken.
func (s *Simulator) RunWithCallback(ctx context.Context, current float64, x0 dynamo.Positions, steps int, callback func(step int, t float64, pos dynamo.Positions) bool) error {
	if err := s.checkInitial(x0); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	dt := s.cfg.Dt
	pos := s.initial(x0)
	if !callback(0, 0, pos) {
		return nil
	}

	for i := 0; steps <= 0 || i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next, err := s.integrator.Step(s.field, pos, current, dt, rng)
		if err != nil {
			return stepError(err, i, float64(i)*dt)
		}
		pos = next
		if !callback(i+1, float64(i+1)*dt, pos) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) checkInitial(x0 dynamo.Positions) error {
	if len(x0) == 0 {
		return fmt.Errorf("%w: no vortices to simulate", dynamo.ErrConfig)
	}
	if !x0.IsValid() {
		return fmt.Errorf("%w: initial positions contain NaN or Inf", dynamo.ErrConfig)
	}
	return nil
}

func (s *Simulator) initial(x0 dynamo.Positions) dynamo.Positions {
	d := s.field.Domain()
	pos := make(dynamo.Positions, len(x0))
	for i, p := range x0 {
		pos[i] = d.Apply(p)
	}
	return pos
}

func (s *Simulator) notify(step int, t float64, pos dynamo.Positions) {
	for _, o := range s.observers {
		o.OnStep(step, t, pos)
	}
}

// stepError stamps the step and time onto an integrator failure.
func stepError(err error, step int, t float64) error {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		simErr.Step = step
		simErr.Time = t
		return simErr
	}
	return &dynamo.SimulationError{Step: step, Time: t, Vortex: -1, Wrapped: err}
}
