package qlearn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDevice(t *testing.T) {
	Convey("Given device sizes", t, func() {
		_, err := NewDevice(0)
		So(errors.Is(err, ErrInvalidWires), ShouldBeTrue)

		_, err = NewDevice(MaxWires + 1)
		So(errors.Is(err, ErrInvalidWires), ShouldBeTrue)
	})

	Convey("Given an analytic device", t, func() {
		dev, err := NewDevice(2, WithSeed(1))
		So(err, ShouldBeNil)

		c := NewCircuit(2).ApplyParam(GateRX, 0, 0)

		Convey("Expectation values should be exact", func() {
			state, err := dev.Execute(c, []float64{1.2}, nil)
			So(err, ShouldBeNil)
			z, err := dev.ExpvalZ(state, 0)
			So(err, ShouldBeNil)
			So(z, ShouldAlmostEqual, math.Cos(1.2), 1e-12)
		})

		Convey("A circuit for another register size should be refused", func() {
			_, err := dev.Execute(NewCircuit(3), nil, nil)
			So(errors.Is(err, ErrInvalidWires), ShouldBeTrue)
		})
	})

	Convey("Given a seeded shot-based device", t, func() {
		c := NewCircuit(2).ApplyParam(GateRX, 0, 0).Apply(GateCNOT, []int{0, 1})

		dev, err := NewDevice(2, WithShots(20000), WithSeed(42))
		So(err, ShouldBeNil)
		state, err := dev.Execute(c, []float64{1.0}, nil)
		So(err, ShouldBeNil)

		Convey("Estimates should land near the exact value", func() {
			z, err := dev.ExpvalZ(state, 1)
			So(err, ShouldBeNil)
			So(z, ShouldAlmostEqual, math.Cos(1.0), 0.05)

			zz, err := dev.ExpvalZZ(state, 0, 1)
			So(err, ShouldBeNil)
			So(zz, ShouldEqual, 1)
		})

		Convey("The same seed should reproduce the same samples", func() {
			again, err := NewDevice(2, WithShots(20000), WithSeed(42))
			So(err, ShouldBeNil)
			So(again.Sample(state), ShouldResemble, dev.Sample(state))
		})

		Convey("Counts should only contain correlated outcomes", func() {
			counts := state.Counts(dev.Sample(state))
			So(counts["01"], ShouldEqual, 0)
			So(counts["10"], ShouldEqual, 0)
			So(counts["00"]+counts["11"], ShouldEqual, 20000)
		})
	})
}
