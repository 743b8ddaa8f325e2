package qlearn

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

/*
Classifier is a variational quantum classifier. An input of one bit per
wire is basis-embedded, then Layers strongly entangling layers act on it,
and the prediction is <Z_0> plus a classical bias. The sign of the
prediction is the class.

Weights are laid out layer-major as a Layers x Wires x 3 tensor of
Rot(φ,θ,ω) angles.
*/
type Classifier struct {
	Layers  int
	Wires   int
	Weights []float64
	Bias    float64

	dev     *Device
	pool    *Q
	circuit *Circuit
}

// NewClassifier builds the circuit and draws weights from 0.01·N(0,1).
func NewClassifier(dev *Device, pool *Q, layers int) (*Classifier, error) {
	if layers < 1 {
		return nil, errors.Errorf("classifier needs at least one layer, got %d", layers)
	}

	c := &Classifier{
		Layers: layers,
		Wires:  dev.Wires,
		dev:    dev,
		pool:   pool,
	}
	c.circuit = c.build()

	c.Weights = make([]float64, c.circuit.NumParams())
	for i := range c.Weights {
		c.Weights[i] = 0.01 * dev.NormFloat64()
	}
	errnie.Info("NewClassifier - %d layers on %d wires, %d weights", layers, c.Wires, len(c.Weights))
	return c, nil
}

func (c *Classifier) build() *Circuit {
	circuit := NewCircuit(c.Wires)
	wires := make([]int, c.Wires)
	for w := range wires {
		wires[w] = w
	}
	circuit.BasisEmbedding(wires...)
	for l := 0; l < c.Layers; l++ {
		circuit.StronglyEntanglingLayer(l * c.Wires * 3)
	}
	return circuit
}

// Circuit exposes the underlying circuit for drawing.
func (c *Classifier) Circuit() *Circuit {
	return c.circuit
}

// Weight indexes the weight tensor.
func (c *Classifier) Weight(layer, wire, k int) float64 {
	return c.Weights[(layer*c.Wires+wire)*3+k]
}

// Params flattens weights and bias into one vector with the bias last.
func (c *Classifier) Params() []float64 {
	out := make([]float64, len(c.Weights)+1)
	copy(out, c.Weights)
	out[len(c.Weights)] = c.Bias
	return out
}

func (c *Classifier) SetParams(params []float64) error {
	if len(params) != len(c.Weights)+1 {
		return errors.Wrapf(ErrParamCount, "want %d, got %d", len(c.Weights)+1, len(params))
	}
	copy(c.Weights, params[:len(c.Weights)])
	c.Bias = params[len(c.Weights)]
	return nil
}

func (c *Classifier) expval(weights, x []float64) (float64, error) {
	if len(x) != c.Wires {
		return 0, errors.Wrapf(ErrFeatureCount, "%d features for %d wires", len(x), c.Wires)
	}
	state, err := c.dev.Execute(c.circuit, weights, x)
	if err != nil {
		return 0, err
	}
	return c.dev.ExpvalZ(state, 0)
}

func (c *Classifier) predict(params, x []float64) (float64, error) {
	e, err := c.expval(params[:len(c.Weights)], x)
	if err != nil {
		return 0, err
	}
	return e + params[len(c.Weights)], nil
}

// Predict returns the raw score in [-1+b, 1+b].
func (c *Classifier) Predict(x []float64) (float64, error) {
	return c.predict(c.Params(), x)
}

// Classify returns the predicted label, +1 or -1.
func (c *Classifier) Classify(x []float64) (float64, error) {
	p, err := c.Predict(x)
	if err != nil {
		return 0, err
	}
	return sign(p), nil
}

func (c *Classifier) predictAll(params []float64, data *Dataset) ([]float64, error) {
	preds := make([]float64, data.Len())
	for i, x := range data.X {
		p, err := c.predict(params, x)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		preds[i] = p
	}
	return preds, nil
}

// Cost is the square loss of params over data.
func (c *Classifier) Cost(params []float64, data *Dataset) (float64, error) {
	preds, err := c.predictAll(params, data)
	if err != nil {
		return 0, err
	}
	return SquareLoss(data.Y, preds), nil
}

// Accuracy scores the current parameters on data.
func (c *Classifier) Accuracy(data *Dataset) (float64, error) {
	preds, err := c.predictAll(c.Params(), data)
	if err != nil {
		return 0, err
	}
	return Accuracy(data.Y, preds), nil
}

/*
Grad differentiates the square loss over data. The loss is not linear in
<Z_0>, so the chain rule is applied by hand:

	dL/dθk = (2/N) Σ_i (p_i - y_i) · d<Z_0>_i/dθk
	dL/db  = (2/N) Σ_i (p_i - y_i)

with every d<Z_0>_i/dθk from the parameter-shift rule, all evaluated as one
batch on the pool.
*/
func (c *Classifier) Grad(ctx context.Context, params []float64, data *Dataset) ([]float64, error) {
	if data.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	nw := len(c.Weights)
	weights := params[:nw]

	// Per sample: the unshifted expectation, then +/- shifts for every weight.
	per := 1 + 2*nw
	fns := make([]func(ctx context.Context) (float64, error), 0, data.Len()*per)
	for _, x := range data.X {
		fns = append(fns, func(context.Context) (float64, error) {
			return c.expval(weights, x)
		})
		for k := 0; k < nw; k++ {
			for _, shift := range []float64{math.Pi / 2, -math.Pi / 2} {
				shifted := make([]float64, nw)
				copy(shifted, weights)
				shifted[k] += shift
				fns = append(fns, func(ctx context.Context) (float64, error) {
					if err := ctx.Err(); err != nil {
						return 0, err
					}
					return c.expval(shifted, x)
				})
			}
		}
	}

	values, err := evaluate(ctx, c.pool, fns)
	if err != nil {
		return nil, err
	}

	grad := make([]float64, nw+1)
	n := float64(data.Len())
	for i, y := range data.Y {
		row := values[i*per : (i+1)*per]
		residual := 2 * (row[0] + params[nw] - y) / n
		for k := 0; k < nw; k++ {
			grad[k] += residual * (row[1+2*k] - row[2+2*k]) / 2
		}
		grad[nw] += residual
	}
	return grad, nil
}

// TrainConfig controls one training run.
type TrainConfig struct {
	Steps     int
	BatchSize int
	Optimizer Optimizer
	Seed      uint64
}

/*
Train runs cfg.Steps optimizer steps, each on a mini-batch of
cfg.BatchSize rows drawn with replacement from train. After every step it
records the cost over all of train and the accuracy on train and val, and
passes the record to cb. The classifier keeps the final parameters.
*/
func (c *Classifier) Train(
	ctx context.Context,
	train, val *Dataset,
	cfg TrainConfig,
	cb func(Record),
) (*History, error) {
	if train.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	rng := newRand(cfg.Seed)
	history := NewHistory(cfg.Optimizer.Name())
	history.Accuracy = true

	params := c.Params()
	for step := 1; step <= cfg.Steps; step++ {
		batch := train.Batch(rng, cfg.BatchSize)

		var err error
		params, err = cfg.Optimizer.Step(ctx, func(ctx context.Context, p []float64) ([]float64, error) {
			return c.Grad(ctx, p, batch)
		}, params)
		if err != nil {
			return history, errors.Wrapf(err, "step %d", step)
		}
		if err := c.SetParams(params); err != nil {
			return history, err
		}

		record, err := c.score(step, params, train, val)
		if err != nil {
			return history, errors.Wrapf(err, "step %d", step)
		}
		history.Record(record)
		if cb != nil {
			cb(record)
		}
	}

	last := history.Last()
	errnie.Info("Train - %d steps, cost %.4f, train acc %.4f, val acc %.4f",
		cfg.Steps, last.Cost, last.TrainAcc, last.ValAcc)
	return history, nil
}

func (c *Classifier) score(step int, params []float64, train, val *Dataset) (Record, error) {
	trainPreds, err := c.predictAll(params, train)
	if err != nil {
		return Record{}, err
	}
	record := Record{
		Step:     step,
		Cost:     SquareLoss(train.Y, trainPreds),
		TrainAcc: Accuracy(train.Y, trainPreds),
		Params:   params,
	}
	if val != nil && val.Len() > 0 {
		valPreds, err := c.predictAll(params, val)
		if err != nil {
			return Record{}, err
		}
		record.ValAcc = Accuracy(val.Y, valPreds)
	}
	return record, nil
}

// SquareLoss is the mean of (label - prediction)^2.
func SquareLoss(labels, predictions []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var loss float64
	for i, l := range labels {
		loss += (l - predictions[i]) * (l - predictions[i])
	}
	return loss / float64(len(labels))
}

// Accuracy is the fraction of predictions whose sign matches the label.
func Accuracy(labels, predictions []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	var hits float64
	for i, l := range labels {
		if math.Abs(l-sign(predictions[i])) < 1e-5 {
			hits++
		}
	}
	return hits / float64(len(labels))
}

// sign maps zero to +1 so every prediction names a class.
func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
