package beam_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/beam"
	"github.com/san-kum/neutronsim/internal/coils"
	"github.com/san-kum/neutronsim/internal/field"
	"github.com/san-kum/neutronsim/internal/physics"
	"github.com/san-kum/neutronsim/internal/sim"
)

// A power of two keeps x_step/speed*speed exact.
const speed = 512.0

var gridCfg = field.GridConfig{
	XStart: 0, XEnd: 0.1, XStep: 0.01,
	YStart: -0.01, YEnd: 0.01,
	ZStart: -0.01, ZEnd: 0.01,
	YZStep: 0.005,
}

func uniformField(cfg field.GridConfig, bf r3.Vec) *field.Cache {
	g, err := field.NewGrid(cfg)
	Expect(err).NotTo(HaveOccurred())
	c := field.NewCache(g)
	for _, idx := range c.Keys() {
		c.Set(idx, bf)
	}
	return c
}

func newBeam(cfg beam.Config, bf r3.Vec) *beam.Beam {
	b, err := beam.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	Expect(b.InitializeComputationalSpace(gridCfg)).To(Succeed())
	Expect(b.LoadField(uniformField(gridCfg, bf))).To(Succeed())
	return b
}

var _ = Describe("Beam", func() {
	var b *beam.Beam

	BeforeEach(func() {
		b = newBeam(beam.Config{Speed: speed, BeamSize: 0.02}, r3.Vec{})
	})

	Describe("configuration", func() {
		It("rejects a non-positive speed", func() {
			_, err := beam.New(beam.Config{Speed: 0})
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))

			_, err = beam.New(beam.Config{Speed: -1})
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("rejects negative spreads", func() {
			_, err := beam.New(beam.Config{Speed: speed, SpeedStd: -1})
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("rejects an invalid grid", func() {
			cfg := gridCfg
			cfg.XStep = 0
			Expect(b.InitializeComputationalSpace(cfg)).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("rejects a nil field", func() {
			Expect(b.LoadField(nil)).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("derives the time step from the nominal speed", func() {
			dt, err := b.TimeStep()
			Expect(err).NotTo(HaveOccurred())
			Expect(dt).To(BeNumerically("~", 0.01/speed, 1e-18))
		})

		It("needs a grid and a field before stepping", func() {
			bare, err := beam.New(beam.Config{Speed: speed})
			Expect(err).NotTo(HaveOccurred())
			Expect(bare.ComputeBeam()).To(MatchError(sim.ErrInvalidConfiguration))

			Expect(bare.InitializeComputationalSpace(gridCfg)).To(Succeed())
			Expect(bare.ComputeBeam()).To(MatchError(sim.ErrInvalidConfiguration))
		})
	})

	Describe("CreateNeutrons", func() {
		It("starts undistributed neutrons on the axis at the nominal speed", func() {
			Expect(b.CreateNeutrons(false, 5, r3.Vec{Y: 1}, 0.02)).To(Succeed())
			Expect(b.Len()).To(Equal(5))

			for _, n := range b.Neutrons() {
				Expect(n.Velocity).To(Equal(r3.Vec{X: speed}))
				Expect(n.Position).To(Equal(r3.Vec{X: 0.02}))
				Expect(n.Polarisation).To(Equal(r3.Vec{Y: 1}))
			}
		})

		It("rejects a negative count", func() {
			Expect(b.CreateNeutrons(false, -1, r3.Vec{Y: 1}, 0)).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("draws reproducible distributions from the seed", func() {
			cfg := beam.Config{Speed: speed, SpeedStd: 20, BeamSize: 0.02, AngularSpread: 0.01, Seed: 42}
			a := newBeam(cfg, r3.Vec{})
			c := newBeam(cfg, r3.Vec{})
			Expect(a.CreateNeutrons(true, 50, r3.Vec{Y: 1}, 0)).To(Succeed())
			Expect(c.CreateNeutrons(true, 50, r3.Vec{Y: 1}, 0)).To(Succeed())

			for i := 0; i < 50; i++ {
				na, _ := a.Neutron(i)
				nc, _ := c.Neutron(i)
				Expect(na.Position).To(Equal(nc.Position))
				Expect(na.Velocity).To(Equal(nc.Velocity))
			}
		})

		It("points the radial velocity along the radial position", func() {
			cfg := beam.Config{Speed: speed, SpeedStd: 20, BeamSize: 0.02, AngularSpread: 0.01, Seed: 7}
			d := newBeam(cfg, r3.Vec{})
			Expect(d.CreateNeutrons(true, 200, r3.Vec{Y: 1}, 0)).To(Succeed())

			var spreadY, sumSpeed float64
			for _, n := range d.Neutrons() {
				Expect(n.Position.X).To(Equal(0.0))
				Expect(n.Velocity.Y*n.Position.Z - n.Velocity.Z*n.Position.Y).To(BeNumerically("~", 0, 1e-12))
				spreadY += n.Position.Y * n.Position.Y
				sumSpeed += n.Speed()
			}
			Expect(math.Sqrt(spreadY / 200)).To(BeNumerically("~", 0.02/5, 0.001))
			Expect(sumSpeed / 200).To(BeNumerically("~", speed, 5))
		})
	})

	Describe("ComputeBeam", func() {
		It("precesses by gamma |B| dt about the field", func() {
			bz := 1.0
			u := newBeam(beam.Config{Speed: speed}, r3.Vec{Z: bz})
			Expect(u.CreateNeutrons(false, 1, r3.Vec{Y: 1}, 0)).To(Succeed())
			Expect(u.ComputeBeam()).To(Succeed())

			n, ok := u.Neutron(0)
			Expect(ok).To(BeTrue())
			phi := physics.Gamma * bz * 0.01 / speed
			Expect(n.Polarisation.X).To(BeNumerically("~", -math.Sin(phi), 1e-9))
			Expect(n.Polarisation.Y).To(BeNumerically("~", math.Cos(phi), 1e-9))
			Expect(n.Polarisation.Z).To(BeNumerically("~", 0, 1e-12))
			Expect(n.Position.X).To(BeNumerically("~", 0.01, 1e-12))
			Expect(n.Trajectory()).To(HaveLen(2))
		})

		It("preserves the polarisation norm in a coil field", func() {
			s := field.NewSetup()
			_, err := s.CreateElement(coils.KindCoil, "", r3.Vec{X: 0.05}, coils.Params{
				"radius": 0.02, "length": 0.03, "windings": 200, "current": 1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.InitializeComputationalSpace(gridCfg)).To(Succeed())
			c, err := s.CalculateField(context.Background())
			Expect(err).NotTo(HaveOccurred())

			cb, err := beam.New(beam.Config{Speed: speed, BeamSize: 0.01, SpeedStd: 10, AngularSpread: 0.005, Seed: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.InitializeComputationalSpace(gridCfg)).To(Succeed())
			Expect(cb.LoadField(c)).To(Succeed())
			Expect(cb.CreateNeutrons(true, 20, r3.Vec{Y: 1}, 0)).To(Succeed())

			_, err = cb.Propagate(context.Background(), 8)
			Expect(err).NotTo(HaveOccurred())
			for _, n := range cb.Neutrons() {
				Expect(r3.Norm(n.Polarisation)).To(BeNumerically("~", 1, 1e-9))
			}
		})

		It("removes neutrons that diverged in y or z", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			stray, _ := b.Neutron(1)
			stray.Velocity.Z = 2 * speed

			Expect(b.ComputeBeam()).To(Succeed())
			Expect(b.Len()).To(Equal(3))
			Expect(stray.Position.Z).To(BeNumerically(">", gridCfg.ZEnd))

			Expect(b.ComputeBeam()).To(Succeed())
			Expect(b.Len()).To(Equal(2))
			for _, n := range b.Neutrons() {
				Expect(n).NotTo(BeIdenticalTo(stray))
			}
		})

		It("removes neutrons outside the grid in x", func() {
			Expect(b.CreateNeutrons(false, 2, r3.Vec{Y: 1}, 0.5)).To(Succeed())
			Expect(b.ComputeBeam()).To(Succeed())
			Expect(b.Len()).To(BeZero())
		})

		It("removes neutrons that do not move forward", func() {
			Expect(b.CreateNeutrons(false, 2, r3.Vec{Y: 1}, 0)).To(Succeed())
			n, _ := b.Neutron(0)
			n.Velocity.X = 0

			Expect(b.ComputeBeam()).To(Succeed())
			Expect(b.Len()).To(Equal(1))
		})

		It("fails on a field computed over another grid", func() {
			coarse := gridCfg
			coarse.XStep = 0.02
			Expect(b.LoadField(uniformField(coarse, r3.Vec{X: 1}))).To(Succeed())
			Expect(b.CreateNeutrons(false, 4, r3.Vec{Y: 1}, 0)).To(Succeed())

			err := b.ComputeBeam()
			var lookupErr *sim.LookupError
			Expect(errors.As(err, &lookupErr)).To(BeTrue())
			Expect(err).To(MatchError(sim.ErrFieldLookupMiss))
			Expect(lookupErr.Position.X).To(BeNumerically("~", 0.01, 1e-12))
			Expect(b.Len()).To(Equal(4))
		})

		It("leaves the neutron that missed the field unstepped", func() {
			coarse := gridCfg
			coarse.XStep = 0.02
			Expect(b.LoadField(uniformField(coarse, r3.Vec{X: 1}))).To(Succeed())
			Expect(b.CreateNeutrons(false, 2, r3.Vec{Y: 1}, 0)).To(Succeed())

			Expect(b.ComputeBeam()).To(MatchError(sim.ErrFieldLookupMiss))
			for i := 0; i < 2; i++ {
				n, ok := b.Neutron(i)
				Expect(ok).To(BeTrue())
				Expect(n.Position).To(Equal(r3.Vec{}))
				Expect(n.Trajectory()).To(Equal([]r3.Vec{{}}))
				Expect(n.Polarisation).To(Equal(r3.Vec{Y: 1}))
			}
		})

		It("never grows the population", func() {
			cfg := beam.Config{Speed: speed, SpeedStd: 50, BeamSize: 0.02, AngularSpread: 0.2, Seed: 11}
			d := newBeam(cfg, r3.Vec{X: 0.5})
			Expect(d.CreateNeutrons(true, 100, r3.Vec{Y: 1}, 0)).To(Succeed())

			prev := d.Len()
			for i := 0; i < 15; i++ {
				Expect(d.ComputeBeam()).To(Succeed())
				Expect(d.Len()).To(BeNumerically("<=", prev))
				prev = d.Len()
			}
			Expect(prev).To(BeZero())
		})
	})

	Describe("Propagate", func() {
		It("runs until the beam has left the grid", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			steps, err := b.Propagate(context.Background(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(BeNumerically(">=", 11))
			Expect(steps).To(BeNumerically("<=", 12))
			Expect(b.Len()).To(BeZero())
			Expect(len(b.Profile())).To(BeNumerically(">=", len(b.Grid().X)-1))
		})

		It("stops after maxSteps", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			steps, err := b.Propagate(context.Background(), 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(Equal(4))
			Expect(b.Len()).To(Equal(3))
		})

		It("honours cancellation", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			steps, err := b.Propagate(ctx, 0)
			Expect(err).To(MatchError(context.Canceled))
			Expect(steps).To(BeZero())
		})
	})

	Describe("polarisation statistics", func() {
		It("fails on an empty population", func() {
			_, err := b.Pol()
			Expect(err).To(MatchError(sim.ErrEmptyPopulation))
		})

		It("averages the live neutrons", func() {
			Expect(b.CreateNeutrons(false, 2, r3.Vec{Y: 1}, 0)).To(Succeed())
			n, _ := b.Neutron(1)
			n.Polarisation = r3.Vec{X: 1}

			p, err := b.Pol()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(r3.Vec{X: 0.5, Y: 0.5}))

			b.ResetPolarisation()
			p, _ = b.Pol()
			Expect(p).To(Equal(r3.Vec{Y: 1}))
		})

		It("bins neutrons into half-open cells", func() {
			Expect(b.CreateNeutrons(false, 4, r3.Vec{Y: 1}, 0)).To(Succeed())
			xs := b.Grid().X
			positions := []float64{0.012, 0.018, xs[3], 0.053}
			pols := []r3.Vec{{Y: 1}, {X: 1}, {Z: 1}, {Y: -1}}
			for i, n := range b.Neutrons() {
				n.Position.X = positions[i]
				n.Polarisation = pols[i]
			}

			cells := b.ComputeAveragePolarisation()
			Expect(cells).To(HaveLen(3))
			Expect(cells[0].X).To(Equal(xs[1]))
			Expect(cells[0].Count).To(Equal(2))
			Expect(cells[0].Polarisation).To(Equal(r3.Vec{X: 0.5, Y: 0.5}))
			Expect(cells[1].X).To(Equal(xs[3]))
			Expect(cells[1].Polarisation).To(Equal(r3.Vec{Z: 1}))
			Expect(cells[2].X).To(Equal(xs[5]))
		})

		It("accumulates the profile across passes", func() {
			Expect(b.CreateNeutrons(false, 1, r3.Vec{Y: 1}, 0)).To(Succeed())
			Expect(b.ComputeAveragePolarisation()).To(HaveLen(1))

			Expect(b.ComputeBeam()).To(Succeed())
			Expect(b.ComputeAveragePolarisation()).To(HaveLen(1))

			profile := b.Profile()
			Expect(profile).To(HaveLen(2))
			Expect(profile[0].X).To(BeNumerically("<", profile[1].X))
		})
	})

	Describe("cuts", func() {
		It("collimates by divergence", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			wide, _ := b.Neutron(2)
			wide.Velocity.Y = speed * math.Tan(0.05)

			Expect(b.Collimate(0.01)).To(Equal(1))
			Expect(b.Len()).To(Equal(2))
			Expect(b.Collimate(0.01)).To(BeZero())
		})

		It("monochromates by wavelength", func() {
			Expect(b.CreateNeutrons(false, 3, r3.Vec{Y: 1}, 0)).To(Succeed())
			slow, _ := b.Neutron(0)
			slow.Velocity.X = physics.SpeedFromWavelength(12)
			fast, _ := b.Neutron(1)
			fast.Velocity.X = physics.SpeedFromWavelength(2)

			lambda := physics.WavelengthFromSpeed(speed)
			Expect(b.Monochromate(lambda-1, lambda+1)).To(Equal(2))
			Expect(b.Len()).To(Equal(1))
		})

		It("does not reach outside the population", func() {
			_, ok := b.Neutron(0)
			Expect(ok).To(BeFalse())
		})
	})
})
