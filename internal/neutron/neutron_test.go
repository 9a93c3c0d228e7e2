package neutron_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/neutron"
)

var _ = Describe("Neutron", func() {
	var n *neutron.Neutron

	BeforeEach(func() {
		n = neutron.New(r3.Vec{Y: 1}, r3.Vec{X: 0.1, Y: 0.01}, r3.Vec{X: 500, Y: 3, Z: -4})
	})

	It("derives speeds and wavelength from the velocity", func() {
		Expect(n.Speed()).To(Equal(500.0))
		Expect(n.RadialSpeed()).To(BeNumerically("~", 5, 1e-12))
		Expect(n.AbsSpeed()).To(BeNumerically("~", math.Sqrt(500*500+25), 1e-9))
		Expect(n.Wavelength()).To(BeNumerically("~", 3956/math.Sqrt(500*500+25), 1e-12))
		Expect(n.Divergence()).To(BeNumerically("~", math.Atan(5.0/500), 1e-12))
	})

	It("advances the axial position only", func() {
		n.UpdatePosition(1e-3)
		Expect(n.Position.X).To(BeNumerically("~", 0.6, 1e-12))
		Expect(n.Position.Y).To(Equal(0.01))
		Expect(n.Position.Z).To(Equal(0.0))
	})

	It("advances the transverse position only", func() {
		n.UpdatePositionYZ(1e-3)
		Expect(n.Position.X).To(Equal(0.1))
		Expect(n.Position.Y).To(BeNumerically("~", 0.013, 1e-12))
		Expect(n.Position.Z).To(BeNumerically("~", -0.004, 1e-12))
	})

	It("restores the initial polarisation", func() {
		n.Polarisation = r3.Vec{X: 1}
		n.ResetPolarisation()
		Expect(n.Polarisation).To(Equal(r3.Vec{Y: 1}))
		Expect(n.InitialPolarisation()).To(Equal(r3.Vec{Y: 1}))
	})

	It("records the trajectory in order", func() {
		Expect(n.Trajectory()).To(HaveLen(1))

		for i := 0; i < 3; i++ {
			n.UpdatePosition(1e-4)
			n.Record()
		}

		tr := n.Trajectory()
		Expect(tr).To(HaveLen(4))
		Expect(tr[0]).To(Equal(r3.Vec{X: 0.1, Y: 0.01}))
		for i := 1; i < len(tr); i++ {
			Expect(tr[i].X).To(BeNumerically(">", tr[i-1].X))
		}
	})

	It("clones independently", func() {
		c := n.Clone()
		c.Record()
		c.Position.X = 5
		c.Polarisation = r3.Vec{Z: 1}

		Expect(n.Trajectory()).To(HaveLen(1))
		Expect(n.Position.X).To(Equal(0.1))
		Expect(n.Polarisation).To(Equal(r3.Vec{Y: 1}))
	})

	It("does not validate its state", func() {
		n.Velocity = r3.Vec{X: -10}
		n.UpdatePosition(1)
		Expect(n.Position.X).To(BeNumerically("~", -9.9, 1e-12))
	})
})
