package qlearn

import (
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

/*
Rule turns one raw CSV cell into a bit. It is written as an operator and an
operand: ">0.5", "<=30", "=female", "!=S". Inequalities compare numerically;
"=" and "!=" compare numerically when both sides parse as numbers and as
trimmed strings otherwise.
*/
type Rule struct {
	Op      string
	Operand string
}

func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	for _, op := range []string{">=", "<=", "!=", ">", "<", "="} {
		if strings.HasPrefix(s, op) {
			r := Rule{Op: op, Operand: strings.TrimSpace(s[len(op):])}
			if op != "=" && op != "!=" {
				if _, err := strconv.ParseFloat(r.Operand, 64); err != nil {
					return Rule{}, errors.Errorf("rule %q needs a numeric operand", s)
				}
			}
			return r, nil
		}
	}
	return Rule{}, errors.Errorf("rule %q has no operator", s)
}

// Bit applies the rule; unparsable numbers are an error rather than a zero.
func (r Rule) Bit(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)

	switch r.Op {
	case "=", "!=":
		eq := cell == r.Operand
		if a, errA := strconv.ParseFloat(cell, 64); errA == nil {
			if b, errB := strconv.ParseFloat(r.Operand, 64); errB == nil {
				eq = a == b
			}
		}
		if eq == (r.Op == "=") {
			return 1, nil
		}
		return 0, nil
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.Errorf("value %q is not numeric", cell)
	}
	operand, _ := strconv.ParseFloat(r.Operand, 64)

	var ok bool
	switch r.Op {
	case ">":
		ok = v > operand
	case ">=":
		ok = v >= operand
	case "<":
		ok = v < operand
	case "<=":
		ok = v <= operand
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// FeatureSpec says which columns become the classifier's bits and label.
type FeatureSpec struct {
	Features      []string
	Rules         []string
	Label         string
	PositiveLabel string
}

// Dataset holds bit features and ±1 labels, one row per sample.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []float64
}

func (d *Dataset) Len() int {
	return len(d.Y)
}

// LoadCSV opens path and hands it to ReadCSV.
func LoadCSV(path string, spec FeatureSpec) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f, spec)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	errnie.Info("LoadCSV - %s: %d rows, features %v", path, ds.Len(), ds.Features)
	return ds, nil
}

/*
ReadCSV loads a headed CSV and reduces it to the bit features named in spec.
Every column is read as text so that rules see exactly what the file holds.
*/
func ReadCSV(r io.Reader, spec FeatureSpec) (*Dataset, error) {
	if len(spec.Features) != len(spec.Rules) {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d features but %d rules", len(spec.Features), len(spec.Rules))
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "parsing csv")
	}
	if df.Nrow() == 0 {
		return nil, ErrEmptyDataset
	}

	names := make(map[string]bool)
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, col := range append([]string{spec.Label}, spec.Features...) {
		if !names[col] {
			return nil, errors.Wrapf(ErrMissingColumn, "%q", col)
		}
	}

	ds := &Dataset{
		Features: append([]string(nil), spec.Features...),
		X:        make([][]float64, df.Nrow()),
		Y:        make([]float64, df.Nrow()),
	}
	for i := range ds.X {
		ds.X[i] = make([]float64, len(spec.Features))
	}

	for k, col := range spec.Features {
		rule, err := ParseRule(spec.Rules[k])
		if err != nil {
			return nil, err
		}
		for i, cell := range df.Col(col).Records() {
			bit, err := rule.Bit(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", i+1, col)
			}
			ds.X[i][k] = bit
		}
	}

	positive := strings.TrimSpace(spec.PositiveLabel)
	for i, cell := range df.Col(spec.Label).Records() {
		ds.Y[i] = -1
		if strings.TrimSpace(cell) == positive {
			ds.Y[i] = 1
		}
	}
	return ds, nil
}

// Shuffle permutes rows in place.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(d.Len(), func(i, j int) {
		d.X[i], d.X[j] = d.X[j], d.X[i]
		d.Y[i], d.Y[j] = d.Y[j], d.Y[i]
	})
}

/*
Split cuts the dataset into the first fraction of rows and the rest. Both
halves share row slices with d. A fraction of 1 gives an empty validation
set, and an empty dataset splits into two empty halves.
*/
func (d *Dataset) Split(fraction float64) (*Dataset, *Dataset) {
	if d.Len() == 0 {
		return d.slice(0, 0), d.slice(0, 0)
	}
	n := int(float64(d.Len()) * fraction)
	n = max(1, min(n, d.Len()))
	return d.slice(0, n), d.slice(n, d.Len())
}

func (d *Dataset) slice(from, to int) *Dataset {
	return &Dataset{Features: d.Features, X: d.X[from:to], Y: d.Y[from:to]}
}

// Batch draws size rows with replacement. An empty dataset yields an empty batch.
func (d *Dataset) Batch(rng *rand.Rand, size int) *Dataset {
	if d.Len() == 0 {
		size = 0
	}
	out := &Dataset{
		Features: d.Features,
		X:        make([][]float64, size),
		Y:        make([]float64, size),
	}
	for i := 0; i < size; i++ {
		k := rng.IntN(d.Len())
		out.X[i], out.Y[i] = d.X[k], d.Y[k]
	}
	return out
}
