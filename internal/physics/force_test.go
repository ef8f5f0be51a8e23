package physics_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/physics"
)

func singlePin(at dynamo.Vec, radius, strength float64) *landscape.Landscape {
	d := dynamo.NewSquareDomain(10, dynamo.Periodic)
	l, err := landscape.New(landscape.Random, d, []landscape.Site{{Pos: at, Radius: radius, Strength: strength}})
	Expect(err).NotTo(HaveOccurred())
	return l
}

func emptyLandscape(size float64) *landscape.Landscape {
	l, err := landscape.New(landscape.Random, dynamo.NewSquareDomain(size, dynamo.Periodic), nil)
	Expect(err).NotTo(HaveOccurred())
	return l
}

func randomPositions(n int, size float64, seed int64) dynamo.Positions {
	rng := rand.New(rand.NewSource(seed))
	pos := make(dynamo.Positions, n)
	for i := range pos {
		pos[i] = dynamo.Vec{X: rng.Float64() * size, Y: rng.Float64() * size}
	}
	return pos
}

var _ = Describe("ForceModel", func() {
	var params physics.Params

	BeforeEach(func() {
		params = physics.DefaultParams()
	})

	Describe("construction", func() {
		It("rejects a nil landscape", func() {
			_, err := physics.NewForceModel(nil, params)
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		DescribeTable("rejects invalid parameters",
			func(mut func(*physics.Params)) {
				mut(&params)
				_, err := physics.NewForceModel(emptyLandscape(10), params)
				Expect(err).To(MatchError(dynamo.ErrConfig))
			},
			Entry("zero damping", func(p *physics.Params) { p.Damping = 0 }),
			Entry("negative repulsion", func(p *physics.Params) { p.RepulsionStrength = -1 }),
			Entry("zero softening", func(p *physics.Params) { p.RepulsionSoftening = 0 }),
			Entry("negative cutoff", func(p *physics.Params) { p.RepulsionCutoff = -2 }),
			Entry("zero drive direction", func(p *physics.Params) { p.DriveDirection = dynamo.Vec{} }),
			Entry("negative temperature", func(p *physics.Params) { p.Temperature = -0.1 }),
			Entry("noise without dt", func(p *physics.Params) {
				p.Temperature = 0.1
				p.Dt = 0
			}),
		)

		It("normalises the drive direction", func() {
			params.DriveDirection = dynamo.Vec{X: 3, Y: 4}
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			Expect(fm.DriveDirection().Norm()).To(BeNumerically("~", 1, 1e-12))
		})
	})

	Describe("pinning", func() {
		var fm *physics.ForceModel
		center := dynamo.Vec{X: 5, Y: 5}

		BeforeEach(func() {
			var err error
			fm, err = physics.NewForceModel(singlePin(center, 0.8, 2.0), params)
			Expect(err).NotTo(HaveOccurred())
		})

		It("pulls toward the site with a harmonic profile", func() {
			f := fm.Pinning(dynamo.Positions{{X: 5.4, Y: 5}})
			Expect(f[0].X).To(BeNumerically("~", -2.0*0.4/0.8, 1e-12))
			Expect(f[0].Y).To(BeNumerically("~", 0, 1e-12))
		})

		It("is zero beyond the cutoff radius", func() {
			f := fm.Pinning(dynamo.Positions{{X: 5.81, Y: 5}, {X: 1, Y: 1}})
			Expect(f[0]).To(Equal(dynamo.Vec{}))
			Expect(f[1]).To(Equal(dynamo.Vec{}))
		})

		It("is zero at the site centre", func() {
			f := fm.Pinning(dynamo.Positions{center})
			Expect(f[0].Norm()).To(BeNumerically("<", 1e-12))
		})

		It("acts across the periodic seam", func() {
			edge, err := physics.NewForceModel(singlePin(dynamo.Vec{X: 0.1, Y: 5}, 0.8, 1.0), params)
			Expect(err).NotTo(HaveOccurred())
			f := edge.Pinning(dynamo.Positions{{X: 9.8, Y: 5}})
			Expect(f[0].X).To(BeNumerically(">", 0))
		})
	})

	Describe("repulsion", func() {
		It("pushes a pair apart along their separation", func() {
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			f := fm.Repulsion(dynamo.Positions{{X: 4, Y: 5}, {X: 5, Y: 5}})
			want := params.RepulsionStrength / (1 + params.RepulsionSoftening)
			Expect(f[0].X).To(BeNumerically("~", -want, 1e-12))
			Expect(f[1].X).To(BeNumerically("~", want, 1e-12))
			Expect(f[0].Y).To(BeNumerically("~", 0, 1e-12))
		})

		It("obeys Newton's third law", func() {
			fm, err := physics.NewForceModel(emptyLandscape(12), params)
			Expect(err).NotTo(HaveOccurred())
			f := fm.Repulsion(randomPositions(60, 12, 11))
			var sum dynamo.Vec
			for _, v := range f {
				sum = sum.Add(v)
			}
			Expect(sum.Norm()).To(BeNumerically("<", 1e-9))
		})

		It("stays capped as the separation vanishes", func() {
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			f := fm.Repulsion(dynamo.Positions{{X: 5, Y: 5}, {X: 5 + 1e-9, Y: 5}, {X: 5, Y: 5}})
			Expect(f.IsValid()).To(BeTrue())
			limit := 2 * params.RepulsionStrength / params.RepulsionSoftening
			for _, v := range f {
				Expect(v.Norm()).To(BeNumerically("<=", limit))
			}
		})

		It("matches the all-pairs sum restricted to the cutoff", func() {
			params.RepulsionCutoff = 2.5
			fm, err := physics.NewForceModel(emptyLandscape(12), params)
			Expect(err).NotTo(HaveOccurred())
			pos := randomPositions(80, 12, 5)

			got := fm.Repulsion(pos)

			d := fm.Domain()
			want := make(dynamo.Positions, len(pos))
			for i := range pos {
				for j := range pos {
					if i == j {
						continue
					}
					delta := d.Delta(pos[j], pos[i])
					r := delta.Norm()
					if r >= params.RepulsionCutoff {
						continue
					}
					want[i] = want[i].Add(delta.Scale(params.RepulsionStrength / ((r + params.RepulsionSoftening) * r)))
				}
			}
			for i := range pos {
				Expect(got[i].Sub(want[i]).Norm()).To(BeNumerically("<", 1e-9), "vortex %d", i)
			}
		})
	})

	Describe("drive", func() {
		It("is uniform and proportional to the current", func() {
			params.DriveCoupling = 0.5
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			f := fm.Drive(4, 3.0)
			for _, v := range f {
				Expect(v).To(Equal(dynamo.Vec{X: 1.5}))
			}
			Expect(fm.Drive(2, 0)).To(Equal(dynamo.Positions{{}, {}}))
		})
	})

	Describe("thermal noise", func() {
		It("is absent at zero temperature", func() {
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			f := fm.Thermal(5, rand.New(rand.NewSource(1)))
			for _, v := range f {
				Expect(v).To(Equal(dynamo.Vec{}))
			}
		})

		It("has the calibrated variance and is reproducible", func() {
			params.Temperature = 0.2
			params.Dt = 0.05
			fm, err := physics.NewForceModel(emptyLandscape(10), params)
			Expect(err).NotTo(HaveOccurred())
			want := math.Sqrt(2 * params.Damping * params.Temperature / params.Dt)
			Expect(fm.NoiseStd()).To(BeNumerically("~", want, 1e-12))

			f := fm.Thermal(20000, rand.New(rand.NewSource(42)))
			sumSq, sum := 0.0, 0.0
			for _, v := range f {
				sum += v.X + v.Y
				sumSq += v.X*v.X + v.Y*v.Y
			}
			n := float64(2 * len(f))
			mean := sum / n
			std := math.Sqrt(sumSq/n - mean*mean)
			Expect(mean).To(BeNumerically("~", 0, 0.05*want))
			Expect(std).To(BeNumerically("~", want, 0.03*want))

			again := fm.Thermal(20000, rand.New(rand.NewSource(42)))
			Expect(again).To(Equal(f))
		})
	})

	Describe("Forces", func() {
		It("sums the independent terms", func() {
			params.Temperature = 0.1
			l, err := landscape.Generate(landscape.Config{
				Topology:    landscape.Spiral,
				Density:     0.3,
				Domain:      dynamo.NewSquareDomain(10, dynamo.Periodic),
				PinRadius:   0.8,
				PinStrength: 1,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			fm, err := physics.NewForceModel(l, params)
			Expect(err).NotTo(HaveOccurred())

			pos := randomPositions(25, 10, 9)
			total := fm.Forces(pos, 1.2, rand.New(rand.NewSource(3)))
			pin := fm.Pinning(pos)
			rep := fm.Repulsion(pos)
			drv := fm.Drive(len(pos), 1.2)
			th := fm.Thermal(len(pos), rand.New(rand.NewSource(3)))
			for i := range pos {
				sum := pin[i].Add(rep[i]).Add(drv[i]).Add(th[i])
				Expect(total[i].Sub(sum).Norm()).To(BeNumerically("<", 1e-9))
			}
		})
	})
})
