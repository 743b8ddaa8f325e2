package qlearn

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/optimize"
)

/*
Optimizer takes one gradient step. It receives the gradient as a function
rather than a vector because look-ahead methods such as Nesterov momentum
evaluate it away from the current parameters.
*/
type Optimizer interface {
	Step(ctx context.Context, grad GradFunc, params []float64) ([]float64, error)
	Name() string
}

// NewOptimizer builds an optimizer by config name.
func NewOptimizer(name string, stepsize, momentum float64) (Optimizer, error) {
	switch name {
	case "gd":
		return &GradientDescent{Stepsize: stepsize}, nil
	case "momentum":
		return &Momentum{Stepsize: stepsize, Momentum: momentum}, nil
	case "nesterov":
		return &NesterovMomentum{Momentum: Momentum{Stepsize: stepsize, Momentum: momentum}}, nil
	case "adam":
		return NewAdam(stepsize), nil
	}
	return nil, errors.Errorf("unknown optimizer %q", name)
}

// GradientDescent: θ ← θ - η∇f(θ).
type GradientDescent struct {
	Stepsize float64
}

func (o *GradientDescent) Name() string { return "gd" }

func (o *GradientDescent) Step(ctx context.Context, grad GradFunc, params []float64) ([]float64, error) {
	g, err := grad(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(params))
	for i := range params {
		out[i] = params[i] - o.Stepsize*g[i]
	}
	return out, nil
}

// Momentum: a ← m·a + η∇f(θ), θ ← θ - a.
type Momentum struct {
	Stepsize float64
	Momentum float64

	accumulation []float64
}

func (o *Momentum) Name() string { return "momentum" }

func (o *Momentum) reset(n int) {
	if len(o.accumulation) != n {
		o.accumulation = make([]float64, n)
	}
}

func (o *Momentum) Step(ctx context.Context, grad GradFunc, params []float64) ([]float64, error) {
	o.reset(len(params))
	g, err := grad(ctx, params)
	if err != nil {
		return nil, err
	}
	return o.apply(params, g), nil
}

func (o *Momentum) apply(params, g []float64) []float64 {
	out := make([]float64, len(params))
	for i := range params {
		o.accumulation[i] = o.Momentum*o.accumulation[i] + o.Stepsize*g[i]
		out[i] = params[i] - o.accumulation[i]
	}
	return out
}

// NesterovMomentum evaluates the gradient at θ - m·a before updating.
type NesterovMomentum struct {
	Momentum
}

func (o *NesterovMomentum) Name() string { return "nesterov" }

func (o *NesterovMomentum) Step(ctx context.Context, grad GradFunc, params []float64) ([]float64, error) {
	o.reset(len(params))
	shifted := make([]float64, len(params))
	for i := range params {
		shifted[i] = params[i] - o.Momentum.Momentum*o.accumulation[i]
	}
	g, err := grad(ctx, shifted)
	if err != nil {
		return nil, err
	}
	return o.apply(params, g), nil
}

/*
Adam keeps bias-corrected running moments of the gradient and its square.
The bias correction is folded into the step size:

	η_t = η·√(1-β2^t)/(1-β1^t)
	θ ← θ - η_t·m/(√v + ε)
*/
type Adam struct {
	Stepsize float64
	Beta1    float64
	Beta2    float64
	Epsilon  float64

	t  int
	fm []float64
	sm []float64
}

func NewAdam(stepsize float64) *Adam {
	return &Adam{Stepsize: stepsize, Beta1: 0.9, Beta2: 0.99, Epsilon: 1e-8}
}

func (o *Adam) Name() string { return "adam" }

func (o *Adam) Step(ctx context.Context, grad GradFunc, params []float64) ([]float64, error) {
	if len(o.fm) != len(params) {
		o.t = 0
		o.fm = make([]float64, len(params))
		o.sm = make([]float64, len(params))
	}
	g, err := grad(ctx, params)
	if err != nil {
		return nil, err
	}

	o.t++
	lr := o.Stepsize * math.Sqrt(1-math.Pow(o.Beta2, float64(o.t))) / (1 - math.Pow(o.Beta1, float64(o.t)))
	out := make([]float64, len(params))
	for i := range params {
		o.fm[i] = o.Beta1*o.fm[i] + (1-o.Beta1)*g[i]
		o.sm[i] = o.Beta2*o.sm[i] + (1-o.Beta2)*g[i]*g[i]
		out[i] = params[i] - lr*o.fm[i]/(math.Sqrt(o.sm[i])+o.Epsilon)
	}
	return out, nil
}

// Problem pairs a cost with its gradient.
type Problem struct {
	Cost Objective
	Grad GradFunc
}

// StepFunc observes the optimizer after each step; returning an error stops it.
type StepFunc func(step int, cost float64, params []float64) error

/*
Minimize runs opt for exactly steps iterations starting at init. The
history holds the initial cost as step 0 followed by the cost after each
step.
*/
func Minimize(
	ctx context.Context,
	p Problem,
	init []float64,
	opt Optimizer,
	steps int,
	cb StepFunc,
) ([]float64, *History, error) {
	params := make([]float64, len(init))
	copy(params, init)

	history := NewHistory(opt.Name())
	cost, err := p.Cost(params)
	if err != nil {
		return nil, nil, err
	}
	history.Record(Record{Step: 0, Cost: cost, Params: params})

	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return params, history, err
		}

		params, err = opt.Step(ctx, p.Grad, params)
		if err != nil {
			return nil, history, errors.Wrapf(err, "step %d", step)
		}
		if cost, err = p.Cost(params); err != nil {
			return nil, history, errors.Wrapf(err, "step %d", step)
		}
		history.Record(Record{Step: step, Cost: cost, Params: params})

		if cb != nil {
			if err := cb(step, cost, params); err != nil {
				return params, history, err
			}
		}
	}

	errnie.Info("Minimize - %s finished %d steps, cost %.6f", opt.Name(), steps, cost)
	return params, history, nil
}

/*
MinimizeBFGS is the classical baseline: gonum's quasi-Newton BFGS fed with
the same cost and parameter-shift gradient. It stops at convergence or
after maxIter major iterations.
*/
func MinimizeBFGS(ctx context.Context, p Problem, init []float64, maxIter int) ([]float64, *History, error) {
	var evalErr error
	history := NewHistory("bfgs")

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			c, err := p.Cost(x)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.NaN()
			}
			return c
		},
		Grad: func(grad, x []float64) {
			g, err := p.Grad(ctx, x)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				for i := range grad {
					grad[i] = math.NaN()
				}
				return
			}
			copy(grad, g)
		},
	}

	step := 0
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Recorder:        recorderFunc(func(loc *optimize.Location, op optimize.Operation) {
			if op != optimize.MajorIteration && op != optimize.InitIteration {
				return
			}
			params := make([]float64, len(loc.X))
			copy(params, loc.X)
			history.Record(Record{Step: step, Cost: loc.F, Params: params})
			step++
		}),
	}

	result, err := optimize.Minimize(problem, init, settings, &optimize.BFGS{})
	if evalErr != nil {
		return nil, history, evalErr
	}
	if err != nil && result == nil {
		return nil, history, errors.Wrap(err, "bfgs")
	}
	errnie.Info("MinimizeBFGS - status %v, cost %.6f", result.Status, result.F)
	return result.X, history, nil
}

// recorderFunc satisfies optimize.Recorder with a plain function.
type recorderFunc func(loc *optimize.Location, op optimize.Operation)

func (r recorderFunc) Init() error { return nil }

func (r recorderFunc) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	r(loc, op)
	return nil
}
