package qlearn

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const tinyCSV = `age,sex,fare,class,survived
22,male,7.25,3,0
38,female,71.28,1,1
26,female,7.92,3,1
35,male,8.05,3,0
`

func tinySpec() FeatureSpec {
	return FeatureSpec{
		Features:      []string{"age", "sex", "fare", "class"},
		Rules:         []string{"<30", "=female", ">10", "!=3"},
		Label:         "survived",
		PositiveLabel: "1",
	}
}

func TestRule(t *testing.T) {
	Convey("Given rules", t, func() {
		Convey("Numeric comparisons should threshold", func() {
			r, err := ParseRule(">=7")
			So(err, ShouldBeNil)
			b, _ := r.Bit("7")
			So(b, ShouldEqual, 1)
			b, _ = r.Bit(" 6.5 ")
			So(b, ShouldEqual, 0)
		})

		Convey("Equality should work on numbers and strings", func() {
			r, _ := ParseRule("=1")
			b, _ := r.Bit("1.0")
			So(b, ShouldEqual, 1)

			r, _ = ParseRule("!=S")
			b, _ = r.Bit("C")
			So(b, ShouldEqual, 1)
		})

		Convey("Malformed rules and cells should error", func() {
			_, err := ParseRule("7")
			So(err, ShouldNotBeNil)

			_, err = ParseRule(">abc")
			So(err, ShouldNotBeNil)

			r, _ := ParseRule(">1")
			_, err = r.Bit("n/a")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestReadCSV(t *testing.T) {
	Convey("Given a small table", t, func() {
		ds, err := ReadCSV(strings.NewReader(tinyCSV), tinySpec())
		So(err, ShouldBeNil)

		Convey("Rows should become bit vectors and ±1 labels", func() {
			So(ds.Len(), ShouldEqual, 4)
			So(ds.X[0], ShouldResemble, []float64{1, 0, 0, 0})
			So(ds.X[1], ShouldResemble, []float64{0, 1, 1, 1})
			So(ds.Y, ShouldResemble, []float64{-1, 1, 1, -1})
		})

		Convey("Split should keep every row exactly once", func() {
			train, val := ds.Split(0.75)
			So(train.Len(), ShouldEqual, 3)
			So(val.Len(), ShouldEqual, 1)
			So(val.Y[0], ShouldEqual, -1)
		})

		Convey("Shuffle should keep rows paired with their labels", func() {
			ds.Shuffle(newRand(9))
			for i, x := range ds.X {
				So(ds.Y[i] == 1, ShouldEqual, x[1] == 1)
			}
		})

		Convey("Batch should draw the requested number of rows", func() {
			b := ds.Batch(newRand(1), 10)
			So(b.Len(), ShouldEqual, 10)
			So(b.Features, ShouldResemble, ds.Features)
		})

		Convey("An emptied dataset should split and batch to nothing", func() {
			_, none := ds.Split(1)
			So(none.Len(), ShouldEqual, 0)

			train, val := none.Split(0.75)
			So(train.Len(), ShouldEqual, 0)
			So(val.Len(), ShouldEqual, 0)
			So(none.Batch(newRand(1), 5).Len(), ShouldEqual, 0)
		})
	})

	Convey("Given bad inputs", t, func() {
		Convey("A missing column should be named", func() {
			spec := tinySpec()
			spec.Features[2] = "ticket"
			_, err := ReadCSV(strings.NewReader(tinyCSV), spec)
			So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "ticket")
		})

		Convey("Features and rules must pair up", func() {
			spec := tinySpec()
			spec.Rules = spec.Rules[:3]
			_, err := ReadCSV(strings.NewReader(tinyCSV), spec)
			So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)
		})

		Convey("A header without rows should be refused", func() {
			_, err := ReadCSV(strings.NewReader("age,sex,fare,class,survived\n"), tinySpec())
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given the bundled exam dataset", t, func() {
		ds, err := LoadCSV("testdata/exam.csv", FeatureSpec{
			Features:      []string{"hours_studied", "hours_slept", "attended", "breakfast"},
			Rules:         []string{">4", ">=7", "=yes", "=yes"},
			Label:         "passed",
			PositiveLabel: "1",
		})
		So(err, ShouldBeNil)
		So(ds.Len(), ShouldEqual, 40)
	})
}
