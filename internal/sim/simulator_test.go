package sim_test

import (
	"context"
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/integrators"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/physics"
	"github.com/san-kum/vortexsim/internal/sim"
)

// failingIntegrator diverges on the call numbered failAt (1-based).
type failingIntegrator struct {
	calls  int
	failAt int
}

func (f *failingIntegrator) Step(field dynamo.ForceField, pos dynamo.Positions, current, dt float64, rng *rand.Rand) (dynamo.Positions, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, &dynamo.SimulationError{Vortex: 1, Position: pos[1], Wrapped: dynamo.ErrDiverged}
	}
	return pos.Clone(), nil
}

type countingObserver struct {
	steps []int
}

func (c *countingObserver) OnStep(step int, _ float64, _ dynamo.Positions) {
	c.steps = append(c.steps, step)
}

func hexModel(size, density float64, p physics.Params) *physics.ForceModel {
	l, err := landscape.Generate(landscape.Config{
		Topology:    landscape.Hexagonal,
		Density:     density,
		Domain:      dynamo.NewSquareDomain(size, dynamo.Periodic),
		PinRadius:   0.8,
		PinStrength: 1,
	}, nil)
	Expect(err).NotTo(HaveOccurred())
	fm, err := physics.NewForceModel(l, p)
	Expect(err).NotTo(HaveOccurred())
	return fm
}

var _ = Describe("Simulator", func() {
	var (
		ctx    context.Context
		params physics.Params
		cfg    dynamo.RunConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		params = physics.DefaultParams()
		cfg = dynamo.RunConfig{Dt: 0.05, EquilibrationSteps: 400, MeasurementSteps: 400, Seed: 1}
	})

	Describe("New", func() {
		It("rejects a missing field or integrator", func() {
			_, err := sim.New(nil, integrators.NewEuler(), cfg)
			Expect(err).To(MatchError(dynamo.ErrConfig))
			_, err = sim.New(hexModel(10, 0.2, params), nil, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		DescribeTable("rejects an invalid run config",
			func(rc dynamo.RunConfig) {
				_, err := sim.New(hexModel(10, 0.2, params), integrators.NewEuler(), rc)
				Expect(err).To(MatchError(dynamo.ErrConfig))
			},
			Entry("zero dt", dynamo.RunConfig{Dt: 0, MeasurementSteps: 10}),
			Entry("negative dt", dynamo.RunConfig{Dt: -0.1, MeasurementSteps: 10}),
			Entry("no measurement", dynamo.RunConfig{Dt: 0.1}),
			Entry("negative equilibration", dynamo.RunConfig{Dt: 0.1, EquilibrationSteps: -1, MeasurementSteps: 10}),
		)
	})

	Describe("Run", func() {
		It("rejects an empty ensemble", func() {
			s, err := sim.New(hexModel(10, 0.2, params), integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx, 1, nil)
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("measures almost no voltage without current or noise", func() {
			fm := hexModel(10, 0.2, params)
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())

			x0 := sim.InitialPositions(fm.Domain(), 20, rand.New(rand.NewSource(4)))
			res, err := s.Run(ctx, 0, x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Voltage).To(BeNumerically(">=", 0))
			Expect(res.Voltage).To(BeNumerically("<", 0.02))
			Expect(res.Parallel).To(BeNumerically("~", 0, 0.02))
		})

		DescribeTable("reaches the ohmic limit V = J/η at large current",
			func(current float64) {
				fm := hexModel(10, 0.2, params)
				rc := dynamo.RunConfig{Dt: 0.01, EquilibrationSteps: 100, MeasurementSteps: 200, Seed: 2}
				s, err := sim.New(fm, integrators.NewEuler(), rc)
				Expect(err).NotTo(HaveOccurred())

				x0 := sim.InitialPositions(fm.Domain(), 20, rand.New(rand.NewSource(5)))
				res, err := s.Run(ctx, current, x0)
				Expect(err).NotTo(HaveOccurred())
				want := current / params.Damping
				Expect(res.Voltage).To(BeNumerically("~", want, 0.05*want))
				Expect(res.Parallel).To(BeNumerically("~", want, 0.05*want))
			},
			Entry("J = 20", 20.0),
			Entry("J = 40", 40.0),
		)

		It("is reproducible for a fixed seed with thermal noise", func() {
			params.Temperature = 0.05
			fm := hexModel(10, 0.2, params)
			x0 := sim.InitialPositions(fm.Domain(), 15, rand.New(rand.NewSource(6)))
			cfg.EquilibrationSteps, cfg.MeasurementSteps = 50, 50

			run := func(seed int64) *sim.Result {
				s, err := sim.New(fm, integrators.NewHeun(), cfg)
				Expect(err).NotTo(HaveOccurred())
				s.SetSeed(seed)
				res, err := s.Run(ctx, 0.5, x0)
				Expect(err).NotTo(HaveOccurred())
				return res
			}
			a, b, c := run(7), run(7), run(8)
			Expect(a.Voltage).To(Equal(b.Voltage))
			Expect(a.Final).To(Equal(b.Final))
			Expect(a.Final).NotTo(Equal(c.Final))
		})

		It("leaves the initial positions untouched and returns a fresh final copy", func() {
			fm := hexModel(10, 0.2, params)
			x0 := sim.InitialPositions(fm.Domain(), 10, rand.New(rand.NewSource(3)))
			before := x0.Clone()
			cfg.EquilibrationSteps, cfg.MeasurementSteps = 5, 5

			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Run(ctx, 1, x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(x0).To(Equal(before))
			Expect(res.Final).To(HaveLen(10))
			Expect(res.Steps).To(Equal(10))
			Expect(res.Current).To(Equal(1.0))
		})

		It("reports every step to observers", func() {
			fm := hexModel(10, 0.2, params)
			cfg.EquilibrationSteps, cfg.MeasurementSteps = 3, 4
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())
			obs := &countingObserver{}
			s.AddObserver(obs)

			_, err = s.Run(ctx, 0.5, sim.InitialPositions(fm.Domain(), 4, rand.New(rand.NewSource(1))))
			Expect(err).NotTo(HaveOccurred())
			Expect(obs.steps).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}))
		})

		It("aborts on divergence with the failing step", func() {
			fm := hexModel(10, 0.2, params)
			s, err := sim.New(fm, &failingIntegrator{failAt: 5}, cfg)
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx, 1, sim.InitialPositions(fm.Domain(), 3, rand.New(rand.NewSource(1))))
			Expect(res).To(BeNil())
			Expect(errors.Is(err, dynamo.ErrDiverged)).To(BeTrue())

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(4))
			Expect(simErr.Vortex).To(Equal(1))
			Expect(simErr.Time).To(BeNumerically("~", 4*cfg.Dt, 1e-12))
		})

		It("stops when the context is cancelled", func() {
			fm := hexModel(10, 0.2, params)
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = s.Run(cancelled, 1, sim.InitialPositions(fm.Domain(), 3, rand.New(rand.NewSource(1))))
			Expect(err).To(MatchError(context.Canceled))
		})

		It("records pinned vortices when parked on the sites", func() {
			fm := hexModel(10, 0.2, params)
			cfg.EquilibrationSteps, cfg.MeasurementSteps = 0, 10
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())

			x0 := fm.Landscape().Positions()[:5]
			res, err := s.Run(ctx, 0, x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.PinnedFraction).To(BeNumerically("~", 1, 1e-12))
		})
	})

	Describe("RunWithCallback", func() {
		It("stops when the callback declines", func() {
			fm := hexModel(10, 0.2, params)
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())

			seen := 0
			err = s.RunWithCallback(ctx, 1, sim.InitialPositions(fm.Domain(), 3, rand.New(rand.NewSource(1))), 0,
				func(step int, _ float64, pos dynamo.Positions) bool {
					seen++
					Expect(pos).To(HaveLen(3))
					return step < 9
				})
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(Equal(10))
		})

		It("honours the step limit", func() {
			fm := hexModel(10, 0.2, params)
			s, err := sim.New(fm, integrators.NewEuler(), cfg)
			Expect(err).NotTo(HaveOccurred())

			last := -1
			err = s.RunWithCallback(ctx, 1, sim.InitialPositions(fm.Domain(), 3, rand.New(rand.NewSource(1))), 25,
				func(step int, _ float64, _ dynamo.Positions) bool {
					last = step
					return true
				})
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(Equal(25))
		})
	})
})

var _ = Describe("InitialPositions", func() {
	It("places every vortex inside the domain reproducibly", func() {
		d := dynamo.Domain{Width: 12, Height: 5, Boundary: dynamo.Reflective}
		a := sim.InitialPositions(d, 100, rand.New(rand.NewSource(2)))
		b := sim.InitialPositions(d, 100, rand.New(rand.NewSource(2)))
		Expect(a).To(Equal(b))
		for _, p := range a {
			Expect(d.Contains(p)).To(BeTrue())
		}
	})
})

var _ = Describe("Recorder", func() {
	It("keeps the most recent frames at the requested stride", func() {
		r := sim.NewRecorder(2, 3)
		for step := 0; step <= 10; step++ {
			r.OnStep(step, float64(step), dynamo.Positions{{X: float64(step)}})
		}
		frames := r.Frames()
		Expect(frames).To(HaveLen(3))
		Expect(frames[0].Step).To(Equal(6))
		Expect(frames[2].Step).To(Equal(10))

		trails := r.Trails()
		Expect(trails).To(HaveLen(1))
		Expect(trails[0]).To(Equal(dynamo.Positions{{X: 6}, {X: 8}, {X: 10}}))
	})
})
