package qlearn

import (
	"context"
	"math"
)

// Objective maps a parameter vector to a scalar.
type Objective func(params []float64) (float64, error)

// GradFunc returns the gradient of some objective at params.
type GradFunc func(ctx context.Context, params []float64) ([]float64, error)

/*
ParameterShift differentiates an objective that is a linear combination of
expectation values of a circuit in which every parameter feeds exactly one
rotation gate:

	df/dθk = [f(θ + π/2·ek) - f(θ - π/2·ek)] / 2

This is exact, not a finite difference. The 2·len(params) evaluations run on
the pool when one is given and serially otherwise; both give the same vector.
*/
func ParameterShift(ctx context.Context, q *Q, f Objective, params []float64) ([]float64, error) {
	fns := make([]func(ctx context.Context) (float64, error), 0, 2*len(params))
	for k := range params {
		for _, shift := range []float64{math.Pi / 2, -math.Pi / 2} {
			shifted := make([]float64, len(params))
			copy(shifted, params)
			shifted[k] += shift
			fns = append(fns, func(ctx context.Context) (float64, error) {
				if err := ctx.Err(); err != nil {
					return 0, err
				}
				return f(shifted)
			})
		}
	}

	values, err := evaluate(ctx, q, fns)
	if err != nil {
		return nil, err
	}

	grad := make([]float64, len(params))
	for k := range grad {
		grad[k] = (values[2*k] - values[2*k+1]) / 2
	}
	return grad, nil
}

// ShiftGrad adapts ParameterShift to a GradFunc bound to one pool.
func ShiftGrad(q *Q, f Objective) GradFunc {
	return func(ctx context.Context, params []float64) ([]float64, error) {
		return ParameterShift(ctx, q, f, params)
	}
}

func evaluate(ctx context.Context, q *Q, fns []func(ctx context.Context) (float64, error)) ([]float64, error) {
	if q != nil {
		return q.Map(ctx, fns)
	}
	out := make([]float64, len(fns))
	for i, fn := range fns {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
