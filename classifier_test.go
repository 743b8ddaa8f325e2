package qlearn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func toyData() *Dataset {
	return &Dataset{
		Features: []string{"a", "b", "c", "d"},
		X: [][]float64{
			{0, 0, 0, 0},
			{1, 0, 1, 0},
			{0, 1, 1, 1},
			{1, 1, 0, 1},
			{1, 0, 0, 1},
			{0, 1, 0, 0},
		},
		Y: []float64{1, -1, 1, -1, -1, 1},
	}
}

func TestLosses(t *testing.T) {
	Convey("Given labels and predictions", t, func() {
		labels := []float64{1, -1, 1, -1}
		preds := []float64{0.5, -0.5, -0.2, 0}

		Convey("SquareLoss should be the mean squared residual", func() {
			So(SquareLoss(labels, preds), ShouldAlmostEqual, (0.25+0.25+1.44+1)/4, 1e-12)
		})

		Convey("Accuracy should compare signs, with zero counted as +1", func() {
			So(Accuracy(labels, preds), ShouldEqual, 0.5)
		})

		Convey("Empty inputs should score zero", func() {
			So(SquareLoss(nil, nil), ShouldEqual, 0)
			So(Accuracy(nil, nil), ShouldEqual, 0)
		})
	})
}

func TestClassifier(t *testing.T) {
	Convey("Given a two layer classifier on four qubits", t, func() {
		dev, err := NewDevice(4, WithSeed(11))
		So(err, ShouldBeNil)
		clf, err := NewClassifier(dev, nil, 2)
		So(err, ShouldBeNil)
		data := toyData()

		Convey("Weights should form a layers x qubits x 3 tensor of small angles", func() {
			So(clf.Weights, ShouldHaveLength, 2*4*3)
			So(clf.Weight(1, 3, 2), ShouldEqual, clf.Weights[23])
			for _, w := range clf.Weights {
				So(w, ShouldBeBetween, -0.1, 0.1)
			}
		})

		Convey("Predictions should be <Z_0> plus the bias", func() {
			before, err := clf.Predict(data.X[1])
			So(err, ShouldBeNil)
			clf.Bias = 0.25
			after, err := clf.Predict(data.X[1])
			So(err, ShouldBeNil)
			So(after-before, ShouldAlmostEqual, 0.25, 1e-12)
		})

		Convey("Inputs must have one bit per qubit", func() {
			_, err := clf.Predict([]float64{1, 0})
			So(errors.Is(err, ErrFeatureCount), ShouldBeTrue)
		})

		Convey("The analytic gradient should match central differences", func() {
			params := clf.Params()
			params[len(params)-1] = 0.1
			grad, err := clf.Grad(context.Background(), params, data)
			So(err, ShouldBeNil)
			So(grad, ShouldHaveLength, len(params))

			const h = 1e-6
			for _, k := range []int{0, 4, 13, 23, 24} {
				up := append([]float64(nil), params...)
				down := append([]float64(nil), params...)
				up[k] += h
				down[k] -= h
				cu, err := clf.Cost(up, data)
				So(err, ShouldBeNil)
				cd, err := clf.Cost(down, data)
				So(err, ShouldBeNil)
				So(grad[k], ShouldAlmostEqual, (cu-cd)/(2*h), 1e-5)
			}
		})

		Convey("The pooled gradient should equal the serial one", func() {
			q := NewQ(context.Background(), 2, 4, nil)
			defer q.Close()
			pooled, err := NewClassifier(dev, q, 2)
			So(err, ShouldBeNil)
			So(pooled.SetParams(clf.Params()), ShouldBeNil)

			a, err := clf.Grad(context.Background(), clf.Params(), data)
			So(err, ShouldBeNil)
			b, err := pooled.Grad(context.Background(), clf.Params(), data)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, a)
		})

		Convey("A cancelled context should stop the pooled gradient", func() {
			q := NewQ(context.Background(), 2, 4, nil)
			defer q.Close()
			pooled, err := NewClassifier(dev, q, 2)
			So(err, ShouldBeNil)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			for i := 0; i < 50; i++ {
				grad, err := pooled.Grad(ctx, pooled.Params(), data)
				So(grad, ShouldBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			}
			So(q.Metrics().Snapshot().JobCount, ShouldEqual, 0)
		})

		Convey("Full-batch gradient descent should lower the cost", func() {
			problem := Problem{
				Cost: func(p []float64) (float64, error) { return clf.Cost(p, data) },
				Grad: func(ctx context.Context, p []float64) ([]float64, error) { return clf.Grad(ctx, p, data) },
			}
			_, history, err := Minimize(context.Background(), problem, clf.Params(), &GradientDescent{Stepsize: 0.05}, 15, nil)
			So(err, ShouldBeNil)
			So(history.Last().Cost, ShouldBeLessThan, history.Records[0].Cost)
		})

		Convey("Train should record every step and keep the final parameters", func() {
			train, val := data.Split(0.5)
			history, err := clf.Train(context.Background(), train, val, TrainConfig{
				Steps:     4,
				BatchSize: 2,
				Optimizer: &NesterovMomentum{Momentum: Momentum{Stepsize: 0.01, Momentum: 0.9}},
				Seed:      5,
			}, nil)
			So(err, ShouldBeNil)
			So(history.Accuracy, ShouldBeTrue)
			So(history.Records, ShouldHaveLength, 4)
			So(history.Last().Params, ShouldResemble, clf.Params())
			for _, r := range history.Records {
				So(r.TrainAcc, ShouldBeBetweenOrEqual, 0, 1)
				So(r.ValAcc, ShouldBeBetweenOrEqual, 0, 1)
			}
		})

		Convey("A checkpoint should round-trip", func() {
			clf.Bias = -0.3
			path := filepath.Join(t.TempDir(), "model.msgpack")
			So(clf.Save(path, data.Features), ShouldBeNil)

			loaded, features, err := LoadClassifier(path, dev, nil)
			So(err, ShouldBeNil)
			So(features, ShouldResemble, data.Features)
			So(loaded.Params(), ShouldResemble, clf.Params())
			if loaded.Layers != clf.Layers {
				spew.Dump(loaded)
			}
			So(loaded.Layers, ShouldEqual, 2)

			small, err := NewDevice(3)
			So(err, ShouldBeNil)
			_, _, err = LoadClassifier(path, small, nil)
			So(errors.Is(err, ErrInvalidWires), ShouldBeTrue)
		})
	})
}
