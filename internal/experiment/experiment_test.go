package experiment_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

type divergingIntegrator struct{}

func (divergingIntegrator) Step(_ dynamo.ForceField, pos dynamo.Positions, _, _ float64, _ *rand.Rand) (dynamo.Positions, error) {
	return nil, &dynamo.SimulationError{Vortex: 0, Position: pos[0], Wrapped: dynamo.ErrDiverged}
}

func smallConfig() experiment.Config {
	cfg := experiment.DefaultConfig()
	cfg.Domain = dynamo.NewSquareDomain(10, dynamo.Periodic)
	cfg.Vortices = 10
	cfg.Run = dynamo.RunConfig{Dt: 0.05, EquilibrationSteps: 40, MeasurementSteps: 40, Seed: 11}
	return cfg
}

var _ = Describe("Experiment", func() {
	var (
		ctx      context.Context
		cfg      experiment.Config
		currents []float64
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = smallConfig()
		currents = experiment.Linspace(0, 2, 5)
	})

	Describe("New", func() {
		DescribeTable("rejects invalid configuration",
			func(mut func(*experiment.Config)) {
				mut(&cfg)
				_, err := experiment.New(cfg)
				Expect(err).To(MatchError(dynamo.ErrConfig))
			},
			Entry("no vortices", func(c *experiment.Config) { c.Vortices = 0 }),
			Entry("zero density", func(c *experiment.Config) { c.Density = 0 }),
			Entry("zero pin radius", func(c *experiment.Config) { c.PinRadius = 0 }),
			Entry("zero damping", func(c *experiment.Config) { c.Physics.Damping = 0 }),
			Entry("zero dt", func(c *experiment.Config) { c.Run.Dt = 0 }),
			Entry("unknown integrator", func(c *experiment.Config) { c.Integrator = "leapfrog" }),
			Entry("duplicate topology", func(c *experiment.Config) {
				c.Topologies = []landscape.Topology{landscape.Spiral, landscape.Spiral}
			}),
		)

		It("fills in every topology by default", func() {
			cfg.Topologies = nil
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Config().Topologies).To(Equal(landscape.Topologies()))
		})
	})

	Describe("Sweep", func() {
		It("produces an increasing, non-negative curve on one landscape", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			curve, err := e.Sweep(ctx, landscape.Hexagonal, currents)
			Expect(err).NotTo(HaveOccurred())
			Expect(curve.Topology).To(Equal(landscape.Hexagonal))
			Expect(curve.Landscape).NotTo(BeNil())
			Expect(curve.Len()).To(Equal(len(currents)))
			Expect(curve.Currents()).To(Equal(currents))
			for i, p := range curve.Points {
				Expect(p.Voltage).To(BeNumerically(">=", 0))
				if i > 0 {
					Expect(p.Current).To(BeNumerically(">", curve.Points[i-1].Current))
				}
			}
		})

		DescribeTable("rejects bad current sequences",
			func(js []float64) {
				e, err := experiment.New(cfg)
				Expect(err).NotTo(HaveOccurred())
				_, err = e.Sweep(ctx, landscape.Random, js)
				Expect(err).To(MatchError(dynamo.ErrConfig))
			},
			Entry("empty", []float64{}),
			Entry("repeated", []float64{0, 1, 1}),
			Entry("decreasing", []float64{1, 0.5}),
		)

		It("reports progress for every run", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			var got []experiment.Progress
			e.OnProgress(func(p experiment.Progress) { got = append(got, p) })

			_, err = e.Sweep(ctx, landscape.Spiral, currents)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(len(currents)))
			Expect(got[4].Index).To(Equal(4))
			Expect(got[4].Total).To(Equal(5))
			Expect(got[4].Point.Current).To(Equal(2.0))
		})

		It("is deterministic with and without ramping", func() {
			for _, ramp := range []bool{false, true} {
				cfg.Ramp = ramp
				cfg.Physics.Temperature = 0.02
				e, err := experiment.New(cfg)
				Expect(err).NotTo(HaveOccurred())
				a, err := e.Sweep(ctx, landscape.Random, currents)
				Expect(err).NotTo(HaveOccurred())
				b, err := e.Sweep(ctx, landscape.Random, currents)
				Expect(err).NotTo(HaveOccurred())
				Expect(a.Points).To(Equal(b.Points))
			}
		})

		It("aborts the sweep on divergence", func() {
			r := experiment.NewRegistry()
			r.Register("boom", func() dynamo.Integrator { return divergingIntegrator{} })
			cfg.Integrator = "boom"
			e, err := experiment.NewWithRegistry(cfg, r)
			Expect(err).NotTo(HaveOccurred())

			curve, err := e.Sweep(ctx, landscape.Spiral, currents)
			Expect(curve).To(BeNil())
			Expect(errors.Is(err, dynamo.ErrDiverged)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("topology spiral"))
		})
	})

	Describe("SweepAll", func() {
		It("returns one curve per topology in order", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			curves, err := e.SweepAll(ctx, currents)
			Expect(err).NotTo(HaveOccurred())
			Expect(curves).To(HaveLen(3))
			for i, t := range landscape.Topologies() {
				Expect(curves[i].Topology).To(Equal(t))
			}
		})

		It("gives the same curves in parallel as in series", func() {
			cfg.Physics.Temperature = 0.02
			serial, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			want, err := serial.SweepAll(ctx, currents)
			Expect(err).NotTo(HaveOccurred())

			cfg.Parallel = true
			par, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			var reports atomic.Int32
			par.OnProgress(func(experiment.Progress) { reports.Add(1) })
			got, err := par.SweepAll(ctx, currents)
			Expect(err).NotTo(HaveOccurred())

			Expect(reports.Load()).To(Equal(int32(3 * len(currents))))
			for i := range want {
				Expect(got[i].Points).To(Equal(want[i].Points))
			}
		})

		It("rejects an unplaceable layout before any run", func() {
			cfg.Domain = dynamo.Domain{Width: 20, Height: 1.4, Boundary: dynamo.Periodic}
			cfg.Density = 1
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			reports := 0
			e.OnProgress(func(experiment.Progress) { reports++ })

			_, err = e.SweepAll(ctx, currents)
			Expect(err).To(MatchError(dynamo.ErrGeometry))
			Expect(reports).To(BeZero())
		})

		DescribeTable("leaves the vortices pinned without current",
			func(t landscape.Topology) {
				cfg.Physics.Temperature = 0.05
				cfg.Vortices = 20
				cfg.Run.MeasurementSteps = 400
				cfg.Topologies = []landscape.Topology{t}
				e, err := experiment.New(cfg)
				Expect(err).NotTo(HaveOccurred())
				curves, err := e.SweepAll(ctx, []float64{0})
				Expect(err).NotTo(HaveOccurred())
				v := curves[0].Points[0].Voltage
				Expect(v).To(BeNumerically(">=", 0))
				Expect(v).To(BeNumerically("<", 0.1))
			},
			Entry("random", landscape.Random),
			Entry("hexagonal", landscape.Hexagonal),
			Entry("spiral", landscape.Spiral),
		)

		It("returns the first error from a parallel sweep", func() {
			r := experiment.NewRegistry()
			r.Register("boom", func() dynamo.Integrator { return divergingIntegrator{} })
			cfg.Integrator = "boom"
			cfg.Parallel = true
			e, err := experiment.NewWithRegistry(cfg, r)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.SweepAll(ctx, currents)
			Expect(errors.Is(err, dynamo.ErrDiverged)).To(BeTrue())
		})

		It("reaches the ohmic regime for every topology", func() {
			cfg.Run = dynamo.RunConfig{Dt: 0.01, EquilibrationSteps: 100, MeasurementSteps: 200, Seed: 3}
			cfg.Vortices = 20
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			curves, err := e.SweepAll(ctx, []float64{20, 40})
			Expect(err).NotTo(HaveOccurred())
			for _, c := range curves {
				for _, p := range c.Points {
					want := p.Current / cfg.Physics.Damping
					Expect(p.Voltage).To(BeNumerically("~", want, 0.05*want), "%v at J=%g", c.Topology, p.Current)
				}
			}
			for i := range curves[0].Points {
				v0 := curves[0].Points[i].Voltage
				for _, c := range curves[1:] {
					Expect(c.Points[i].Voltage).To(BeNumerically("~", v0, 0.05*v0))
				}
			}
		})
	})

	Describe("seeding", func() {
		It("offsets each topology's run seeds", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.RunSeed(landscape.Random, 0)).To(Equal(int64(11)))
			Expect(e.RunSeed(landscape.Hexagonal, 3)).To(Equal(int64(11 + 1_000_000 + 3)))
			Expect(e.RunSeed(landscape.Spiral, 2)).To(Equal(int64(11 + 2_000_000 + 2)))
		})

		It("rebuilds the landscape a sweep uses", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			l, err := e.Landscape(landscape.Random)
			Expect(err).NotTo(HaveOccurred())
			curve, err := e.Sweep(ctx, landscape.Random, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Sites).To(Equal(curve.Landscape.Sites))
		})
	})

	Describe("Snapshot", func() {
		It("runs a single current and feeds the observers", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			steps := 0
			obs := observerFunc(func(int, float64, dynamo.Positions) { steps++ })
			res, l, err := e.Snapshot(ctx, landscape.Hexagonal, 1.5, obs)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Topology).To(Equal(landscape.Hexagonal))
			Expect(res.Final).To(HaveLen(cfg.Vortices))
			Expect(steps).To(Equal(cfg.Run.TotalSteps() + 1))
			Expect(res.Metrics).To(HaveKey("energy"))
			Expect(math.IsNaN(res.Metrics["energy"])).To(BeFalse())
		})
	})

	Describe("Stream and Session", func() {
		It("step the same trajectory", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			var streamed dynamo.Positions
			_, err = e.Stream(ctx, landscape.Spiral, 1.0, func(step int, _ float64, pos dynamo.Positions) bool {
				if step == 25 {
					streamed = pos.Clone()
					return false
				}
				return true
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(streamed).To(HaveLen(cfg.Vortices))

			ss, l, err := e.Session(landscape.Spiral, 1.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Topology).To(Equal(landscape.Spiral))
			for i := 0; i < 25; i++ {
				Expect(ss.Step()).To(Succeed())
			}
			Expect(ss.Steps()).To(Equal(25))
			Expect(ss.Time()).To(BeNumerically("~", 25*cfg.Run.Dt, 1e-12))
			Expect(ss.Positions()).To(Equal(streamed))
		})

		It("follows a changed current", func() {
			cfg.Physics.RepulsionStrength = 0
			cfg.PinStrength = 0.01
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			ss, _, err := e.Session(landscape.Hexagonal, 0)
			Expect(err).NotTo(HaveOccurred())

			ss.SetCurrent(5)
			Expect(ss.Current()).To(Equal(5.0))
			Expect(ss.Step()).To(Succeed())
			Expect(ss.Velocity().X).To(BeNumerically("~", 5, 0.1))
			Expect(ss.PinnedFraction()).To(BeNumerically(">=", 0))
			Expect(ss.PinnedFraction()).To(BeNumerically("<=", 1))
		})

		It("stops streaming when the context ends", func() {
			e, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			cctx, cancel := context.WithCancel(ctx)
			_, err = e.Stream(cctx, landscape.Random, 1.0, func(step int, _ float64, _ dynamo.Positions) bool {
				if step == 3 {
					cancel()
				}
				return true
			})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})

type observerFunc func(step int, t float64, pos dynamo.Positions)

func (f observerFunc) OnStep(step int, t float64, pos dynamo.Positions) { f(step, t, pos) }

var _ = Describe("Linspace", func() {
	It("includes both ends", func() {
		Expect(experiment.Linspace(0, 2.5, 6)).To(Equal([]float64{0, 0.5, 1, 1.5, 2, 2.5}))
		Expect(experiment.Linspace(1, 3, 1)).To(Equal([]float64{1}))
		Expect(experiment.Linspace(1, 3, 0)).To(BeEmpty())
	})
})
