package physics

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// Params holds the physical constants of one model. It is passed by value
// and never shared mutably between runs.
type Params struct {
	Damping float64 // viscous drag η; velocity = F/η

	RepulsionStrength  float64 // A in A/(r+ε)
	RepulsionSoftening float64 // ε, caps the pair force at A/ε
	RepulsionCutoff    float64 // 0 means all pairs

	DriveCoupling  float64    // force per unit current
	DriveDirection dynamo.Vec // normalised on construction

	Temperature float64 // thermal noise level, 0 disables noise
	Dt          float64 // step the noise variance is calibrated for
}

func DefaultParams() Params {
	return Params{
		Damping:            1.0,
		RepulsionStrength:  1.0,
		RepulsionSoftening: 0.1,
		DriveCoupling:      1.0,
		DriveDirection:     dynamo.Vec{X: 1},
		Dt:                 0.05,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.Damping > 0) || math.IsInf(p.Damping, 0):
		return fmt.Errorf("%w: damping must be positive, got %g", dynamo.ErrConfig, p.Damping)
	case p.RepulsionStrength < 0 || math.IsNaN(p.RepulsionStrength):
		return fmt.Errorf("%w: repulsion strength must be non-negative, got %g", dynamo.ErrConfig, p.RepulsionStrength)
	case !(p.RepulsionSoftening > 0):
		return fmt.Errorf("%w: repulsion softening must be positive, got %g", dynamo.ErrConfig, p.RepulsionSoftening)
	case p.RepulsionCutoff < 0 || math.IsNaN(p.RepulsionCutoff):
		return fmt.Errorf("%w: repulsion cutoff must be non-negative, got %g", dynamo.ErrConfig, p.RepulsionCutoff)
	case math.IsNaN(p.DriveCoupling) || math.IsInf(p.DriveCoupling, 0):
		return fmt.Errorf("%w: drive coupling must be finite", dynamo.ErrConfig)
	case p.DriveDirection.Norm() == 0 || !p.DriveDirection.IsValid():
		return fmt.Errorf("%w: drive direction must be a non-zero vector", dynamo.ErrConfig)
	case p.Temperature < 0 || math.IsNaN(p.Temperature) || math.IsInf(p.Temperature, 0):
		return fmt.Errorf("%w: temperature must be non-negative, got %g", dynamo.ErrConfig, p.Temperature)
	case p.Temperature > 0 && !(p.Dt > 0):
		return fmt.Errorf("%w: thermal noise needs a positive dt, got %g", dynamo.ErrConfig, p.Dt)
	}
	return nil
}

// ForceModel evaluates the net force on each vortex against a frozen
// landscape. It holds no per-run state, so one model can serve concurrent
// runs as long as each run brings its own random source.
type ForceModel struct {
	params    Params
	landscape *landscape.Landscape
	domain    dynamo.Domain
	drive     dynamo.Vec
	noiseStd  float64
}

func NewForceModel(l *landscape.Landscape, p Params) (*ForceModel, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: nil landscape", dynamo.ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.DriveDirection = p.DriveDirection.Unit()
	m := &ForceModel{
		params:    p,
		landscape: l,
		domain:    l.Domain,
		drive:     p.DriveDirection.Scale(p.DriveCoupling),
	}
	if p.Temperature > 0 {
		m.noiseStd = math.Sqrt(2 * p.Damping * p.Temperature / p.Dt)
	}
	return m, nil
}

func (m *ForceModel) Domain() dynamo.Domain           { return m.domain }
func (m *ForceModel) Damping() float64                { return m.params.Damping }
func (m *ForceModel) Params() Params                  { return m.params }
func (m *ForceModel) Landscape() *landscape.Landscape { return m.landscape }
func (m *ForceModel) DriveDirection() dynamo.Vec      { return m.params.DriveDirection }

// NoiseStd is the per-component standard deviation of the thermal force.
func (m *ForceModel) NoiseStd() float64 { return m.noiseStd }

// Forces returns pinning + repulsion + drive + thermal for every vortex.
func (m *ForceModel) Forces(pos dynamo.Positions, current float64, rng *rand.Rand) dynamo.Positions {
	f := m.Deterministic(pos, current)
	m.addThermal(f, rng)
	return f
}

// Deterministic is Forces without the thermal term.
func (m *ForceModel) Deterministic(pos dynamo.Positions, current float64) dynamo.Positions {
	f := make(dynamo.Positions, len(pos))
	m.addPinning(f, pos)
	m.addRepulsion(f, pos)
	m.addDrive(f, current)
	return f
}

func (m *ForceModel) Pinning(pos dynamo.Positions) dynamo.Positions {
	f := make(dynamo.Positions, len(pos))
	m.addPinning(f, pos)
	return f
}

func (m *ForceModel) Repulsion(pos dynamo.Positions) dynamo.Positions {
	f := make(dynamo.Positions, len(pos))
	m.addRepulsion(f, pos)
	return f
}

func (m *ForceModel) Drive(n int, current float64) dynamo.Positions {
	f := make(dynamo.Positions, n)
	m.addDrive(f, current)
	return f
}

func (m *ForceModel) Thermal(n int, rng *rand.Rand) dynamo.Positions {
	f := make(dynamo.Positions, n)
	m.addThermal(f, rng)
	return f
}

// pinningChunk is the smallest vortex range evaluated on its own goroutine.
const pinningChunk = 512

// harmonic well: F = Strength * delta / Radius inside the radius
func (m *ForceModel) addPinning(f, pos dynamo.Positions) {
	ix := m.landscape.Index()
	dynamo.ParallelFor(len(pos), pinningChunk, func(start, end int) {
		for i := start; i < end; i++ {
			ix.Attracting(pos[i], func(s landscape.Site, delta dynamo.Vec, _ float64) {
				f[i] = f[i].Add(delta.Scale(s.Strength / s.Radius))
			})
		}
	})
}

// softened 2D point-vortex repulsion, F = A/(r+ε) along the separation
func (m *ForceModel) addRepulsion(f, pos dynamo.Positions) {
	a := m.params.RepulsionStrength
	if a == 0 || len(pos) < 2 {
		return
	}
	eps := m.params.RepulsionSoftening
	pair := func(i, j int, delta dynamo.Vec, r float64) {
		if r == 0 {
			// coincident vortices: no defined direction, softening keeps the
			// rest of the ensemble finite
			return
		}
		push := delta.Scale(a / ((r + eps) * r))
		f[i] = f[i].Sub(push)
		f[j] = f[j].Add(push)
	}

	cutoff := m.params.RepulsionCutoff
	if cutoff > 0 && cutoff < m.domain.MinSide()/2 {
		g := landscape.NewGrid(pos, m.domain, cutoff)
		for i, p := range pos {
			g.Visit(p, cutoff, func(j int, delta dynamo.Vec, r float64) {
				if j > i {
					pair(i, j, delta, r)
				}
			})
		}
		return
	}

	for i := 0; i < len(pos); i++ {
		for j := i + 1; j < len(pos); j++ {
			delta := m.domain.Delta(pos[i], pos[j])
			r := delta.Norm()
			if cutoff > 0 && r >= cutoff {
				continue
			}
			pair(i, j, delta, r)
		}
	}
}

func (m *ForceModel) addDrive(f dynamo.Positions, current float64) {
	if current == 0 {
		return
	}
	d := m.drive.Scale(current)
	for i := range f {
		f[i] = f[i].Add(d)
	}
}

func (m *ForceModel) addThermal(f dynamo.Positions, rng *rand.Rand) {
	if m.noiseStd == 0 || rng == nil {
		return
	}
	for i := range f {
		f[i].X += rng.NormFloat64() * m.noiseStd
		f[i].Y += rng.NormFloat64() * m.noiseStd
	}
}

// Potential returns the deterministic energy of a configuration at zero
// current: harmonic wells plus the -A ln(r+ε) pair interaction.
func (m *ForceModel) Potential(pos dynamo.Positions) float64 {
	e := 0.0
	ix := m.landscape.Index()
	for _, p := range pos {
		ix.Attracting(p, func(s landscape.Site, _ dynamo.Vec, dist float64) {
			k := s.Strength / s.Radius
			e += 0.5 * k * (dist*dist - s.Radius*s.Radius)
		})
	}
	a, eps := m.params.RepulsionStrength, m.params.RepulsionSoftening
	for i := 0; i < len(pos); i++ {
		for j := i + 1; j < len(pos); j++ {
			e -= a * math.Log(m.domain.Distance(pos[i], pos[j])+eps)
		}
	}
	return e
}
