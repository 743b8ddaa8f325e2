package qlearn

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Record is the state of a run after one optimizer step.
type Record struct {
	Step     int
	Cost     float64
	TrainAcc float64
	ValAcc   float64
	Params   []float64
}

// History is the ordered list of records of one optimization run.
type History struct {
	Name    string
	Records []Record

	// Accuracy marks classifier runs, whose records carry accuracies.
	Accuracy bool
}

func NewHistory(name string) *History {
	return &History{Name: name}
}

func (h *History) Record(r Record) {
	params := make([]float64, len(r.Params))
	copy(params, r.Params)
	r.Params = params
	h.Records = append(h.Records, r)
}

// Last returns the most recent record, or the zero Record when empty.
func (h *History) Last() Record {
	if len(h.Records) == 0 {
		return Record{}
	}
	return h.Records[len(h.Records)-1]
}

// Costs returns the cost column.
func (h *History) Costs() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.Cost
	}
	return out
}

// Print writes one line per record, every `every` steps.
func (h *History) Print(w io.Writer, every int) error {
	if every < 1 {
		every = 1
	}
	for _, r := range h.Records {
		if r.Step%every != 0 && r.Step != h.Last().Step {
			continue
		}
		var err error
		if h.Accuracy {
			_, err = fmt.Fprintf(w, "Iter: %5d | Cost: %0.7f | Acc train: %0.7f | Acc validation: %0.7f\n",
				r.Step, r.Cost, r.TrainAcc, r.ValAcc)
		} else {
			_, err = fmt.Fprintf(w, "Cost after step %5d: %0.7f | params %v\n", r.Step, r.Cost, roundAll(r.Params, 4))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Plot saves the convergence curve as an image; the extension picks the format.
func (h *History) Plot(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Convergence (%s)", h.Name)
	p.X.Label.Text = "step"
	p.Y.Label.Text = "cost"

	lines := []interface{}{"cost", h.xys(func(r Record) float64 { return r.Cost })}
	if h.Accuracy {
		lines = append(lines,
			"train accuracy", h.xys(func(r Record) float64 { return r.TrainAcc }),
			"validation accuracy", h.xys(func(r Record) float64 { return r.ValAcc }),
		)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "plotting history")
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot %s", path)
	}
	return nil
}

func (h *History) xys(value func(Record) float64) plotter.XYs {
	pts := make(plotter.XYs, len(h.Records))
	for i, r := range h.Records {
		pts[i].X = float64(r.Step)
		pts[i].Y = value(r)
	}
	return pts
}

func roundAll(xs []float64, places int) []float64 {
	scale := math.Pow(10, float64(places))
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*scale) / scale
	}
	return out
}
