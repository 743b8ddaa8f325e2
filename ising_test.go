package qlearn

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIsingEnergy(t *testing.T) {
	Convey("Given the frustrated three spin triangle", t, func() {
		model, err := NewIsing([][]float64{{0, 1, -1}, {0, 0, 1}, {0, 0, 0}}, nil)
		So(err, ShouldBeNil)

		Convey("[1,-1,-1] should have the hand-computed energy", func() {
			// -(1·(1·-1) + (-1)·(1·-1) + 1·(-1·-1)) = -(-1 + 1 + 1)
			e, err := model.Energy([]int{1, -1, -1})
			So(err, ShouldBeNil)
			So(e, ShouldEqual, -1)
		})

		Convey("The ground state should be degenerate at -1 and found first at [1,1,1]", func() {
			spins, e := model.GroundState()
			So(e, ShouldEqual, -1)
			So(spins, ShouldResemble, []int{1, 1, 1})
		})

		Convey("Spins other than ±1 should be refused", func() {
			_, err := model.Energy([]int{1, 0, -1})
			So(errors.Is(err, ErrInvalidSpin), ShouldBeTrue)
		})

		Convey("A configuration of the wrong size should be refused", func() {
			_, err := model.Energy([]int{1, -1})
			So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)
		})
	})

	Convey("Given malformed models", t, func() {
		_, err := NewIsing([][]float64{{0, 1}, {0}}, nil)
		So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)

		_, err = NewIsing([][]float64{{0, 1}, {0, 0}}, []float64{1})
		So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)

		_, err = NewIsing(nil, nil)
		So(errors.Is(err, ErrInvalidWires), ShouldBeTrue)
	})
}

func TestIsingVariational(t *testing.T) {
	Convey("Given a ferromagnet in a field", t, func() {
		model, err := NewIsing(
			[][]float64{{0, 1, 1}, {0, 0, 1}, {0, 0, 0}},
			[]float64{0.5, 0.5, 0.5},
		)
		So(err, ShouldBeNil)

		dev, err := NewDevice(3, WithSeed(3))
		So(err, ShouldBeNil)
		cost := model.Cost(dev)

		Convey("<H> at the poles should match the classical energies", func() {
			up, err := cost([]float64{0, 0, 0})
			So(err, ShouldBeNil)
			So(up, ShouldAlmostEqual, -4.5, 1e-9)

			down, err := cost([]float64{math.Pi, math.Pi, math.Pi})
			So(err, ShouldBeNil)
			So(down, ShouldAlmostEqual, -1.5, 1e-9)
		})

		Convey("Gradient descent should find the aligned ground state", func() {
			q := NewQ(context.Background(), 2, 4, nil)
			defer q.Close()

			sol, err := model.Solve(context.Background(), dev, q,
				&GradientDescent{Stepsize: 0.1}, []float64{0.6, 0.8, 1.0}, 100, nil)
			So(err, ShouldBeNil)
			So(sol.Spins, ShouldResemble, []int{1, 1, 1})
			So(sol.Energy, ShouldEqual, -4.5)
			So(sol.History.Last().Cost, ShouldAlmostEqual, -4.5, 1e-3)
			So(sol.History.Records, ShouldHaveLength, 101)
		})

		Convey("BFGS should agree", func() {
			sol, err := model.Solve(context.Background(), dev, nil, nil, []float64{0.6, 0.8, 1.0}, 50, nil)
			So(err, ShouldBeNil)
			So(sol.Spins, ShouldResemble, []int{1, 1, 1})
			So(sol.Energy, ShouldEqual, -4.5)
		})

		Convey("Spins should be read through the device's estimator", func() {
			shots, err := NewDevice(3, WithShots(1), WithSeed(5))
			So(err, ShouldBeNil)

			// cos θ is just above zero, so exact readout always gives +1.
			theta := math.Pi/2 - 0.01
			params := []float64{theta, theta, theta}

			exact, err := model.ReadSpins(dev, params)
			So(err, ShouldBeNil)
			So(exact, ShouldResemble, []int{1, 1, 1})

			flipped := false
			for i := 0; i < 50 && !flipped; i++ {
				spins, err := model.ReadSpins(shots, params)
				So(err, ShouldBeNil)
				for _, s := range spins {
					flipped = flipped || s == -1
				}
			}
			So(flipped, ShouldBeTrue)
		})

		Convey("The initial angles must match the spins", func() {
			_, err := model.Solve(context.Background(), dev, nil, &GradientDescent{Stepsize: 0.1}, []float64{0}, 10, nil)
			So(errors.Is(err, ErrParamCount), ShouldBeTrue)
		})
	})
}
