package qlearn

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCircuit(t *testing.T) {
	Convey("Given a basis embedding on three wires", t, func() {
		c := NewCircuit(3).BasisEmbedding(0, 1, 2)

		Convey("It should prepare exactly the named basis state", func() {
			state, err := c.Run(nil, []float64{1, 0, 1})
			So(err, ShouldBeNil)
			So(state.Probabilities()[5], ShouldEqual, 1)
		})

		Convey("It should reject non-binary features", func() {
			_, err := c.Run(nil, []float64{1, 2, 0})
			So(errors.Is(err, ErrInvalidBit), ShouldBeTrue)
		})

		Convey("It should reject too few features", func() {
			_, err := c.Run(nil, []float64{1})
			So(errors.Is(err, ErrParamCount), ShouldBeTrue)
		})
	})

	Convey("Given a strongly entangling layer", t, func() {
		c := NewCircuit(4).StronglyEntanglingLayer(0)

		Convey("It should need three angles per wire", func() {
			So(c.NumParams(), ShouldEqual, 12)
		})

		Convey("It should close the CNOT ring", func() {
			So(c.Ops, ShouldHaveLength, 8)
			So(c.Ops[7].Gate, ShouldEqual, GateCNOT)
			So(c.Ops[7].Wires, ShouldResemble, []int{3, 0})
		})

		Convey("It should reject a parameter vector of the wrong length", func() {
			_, err := c.Run(make([]float64, 11), nil)
			So(errors.Is(err, ErrParamCount), ShouldBeTrue)
		})

		Convey("At zero angles it should act as a CNOT ring", func() {
			full := NewCircuit(4).BasisEmbedding(0, 1, 2, 3).StronglyEntanglingLayer(0)
			state, err := full.Run(make([]float64, 12), []float64{1, 0, 0, 0})
			So(err, ShouldBeNil)
			// 1000 -> 1100 -> 1110 -> 1111 -> 0111
			So(state.Probabilities()[0b0111], ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("It should draw every op", func() {
			So(c.String(), ShouldContainSubstring, "Rot[0](θ0, θ1, θ2)")
			So(c.String(), ShouldContainSubstring, "CNOT[3 0]")
		})
	})

	Convey("Given a strongly entangling layer on two wires", t, func() {
		c := NewCircuit(2).StronglyEntanglingLayer(0)

		Convey("The ring should run both ways", func() {
			So(c.Ops, ShouldHaveLength, 4)
			So(c.Ops[2].Wires, ShouldResemble, []int{0, 1})
			So(c.Ops[3].Wires, ShouldResemble, []int{1, 0})
		})

		Convey("At zero angles |10> should go to |11> and then |01>", func() {
			full := NewCircuit(2).BasisEmbedding(0, 1).StronglyEntanglingLayer(0)
			state, err := full.Run(make([]float64, 6), []float64{1, 0})
			So(err, ShouldBeNil)
			So(state.Probabilities()[0b01], ShouldAlmostEqual, 1, 1e-12)
		})
	})

	Convey("Given a circuit with a feature rotation", t, func() {
		c := NewCircuit(1).ApplyFeature(GateRY, 0, 0)

		Convey("The angle should come from the input", func() {
			state, err := c.Run(nil, []float64{3.141592653589793})
			So(err, ShouldBeNil)
			z, _ := state.ExpvalZ(0)
			So(z, ShouldAlmostEqual, -1, 1e-12)
		})
	})
}
