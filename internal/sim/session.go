package sim

import (
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/metrics"
)

// Session steps one ensemble on demand, one integrator step per call. It is
// what interactive views drive; batch runs go through Run.
type Session struct {
	sim     *Simulator
	current float64
	pos     dynamo.Positions
	rng     *rand.Rand
	step    int
	last    dynamo.Vec
	pinned  float64
}

// Start begins a session at the given current from x0, seeded from the
// simulator's configuration. x0 is not modified.
func (s *Simulator) Start(current float64, x0 dynamo.Positions) (*Session, error) {
	if err := s.checkInitial(x0); err != nil {
		return nil, err
	}
	ss := &Session{
		sim:     s,
		current: current,
		pos:     s.initial(x0),
		rng:     rand.New(rand.NewSource(s.cfg.Seed)),
	}
	ss.pinned = ss.capturedFraction()
	return ss, nil
}

// Step advances one dt. After an error the session keeps its last good
// configuration.
func (ss *Session) Step() error {
	s := ss.sim
	dt := s.cfg.Dt
	next, err := s.integrator.Step(s.field, ss.pos, ss.current, dt, ss.rng)
	if err != nil {
		return stepError(err, ss.step, ss.Time())
	}
	drift := metrics.NewDriftVelocity(s.field.Domain(), s.direction)
	drift.Observe(ss.pos, next, dt)
	ss.last = drift.Mean()
	ss.pos = next
	ss.step++
	ss.pinned = ss.capturedFraction()
	s.notify(ss.step, ss.Time(), ss.pos)
	return nil
}

func (ss *Session) capturedFraction() float64 {
	if ss.sim.pins == nil || len(ss.pos) == 0 {
		return 0
	}
	n := 0
	for _, p := range ss.pos {
		if ss.sim.pins.Captured(p) {
			n++
		}
	}
	return float64(n) / float64(len(ss.pos))
}

// Positions returns the current configuration. Callers must not modify it.
func (ss *Session) Positions() dynamo.Positions { return ss.pos }

func (ss *Session) Steps() int           { return ss.step }
func (ss *Session) Time() float64        { return float64(ss.step) * ss.sim.cfg.Dt }
func (ss *Session) Current() float64     { return ss.current }
func (ss *Session) SetCurrent(j float64) { ss.current = j }

// Velocity is the ensemble mean velocity of the last step.
func (ss *Session) Velocity() dynamo.Vec { return ss.last }

// Parallel is the last step's mean velocity along the drive.
func (ss *Session) Parallel() float64 { return ss.last.Dot(ss.sim.direction) }

// PinnedFraction is the fraction of vortices inside a pinning site now.
func (ss *Session) PinnedFraction() float64 { return ss.pinned }
