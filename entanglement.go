package qlearn

import (
	"context"
	"math"
	"math/cmplx"
	"sort"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ReducedDensity traces out every wire but one and returns its 2x2 density matrix.
func (s *StateVector) ReducedDensity(wire int) (*mat.CDense, error) {
	if err := s.checkWire(wire); err != nil {
		return nil, err
	}
	bit := s.bit(wire)
	rho := mat.NewCDense(2, 2, nil)
	for i, a := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		b := s.Amplitudes[i|bit]
		rho.Set(0, 0, rho.At(0, 0)+a*cmplx.Conj(a))
		rho.Set(0, 1, rho.At(0, 1)+a*cmplx.Conj(b))
		rho.Set(1, 0, rho.At(1, 0)+b*cmplx.Conj(a))
		rho.Set(1, 1, rho.At(1, 1)+b*cmplx.Conj(b))
	}
	return rho, nil
}

// purity is Tr(ρ²), which for a Hermitian ρ is the sum of |ρ_ij|².
func purity(rho *mat.CDense) float64 {
	r, c := rho.Dims()
	var p float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := cmplx.Abs(rho.At(i, j))
			p += v * v
		}
	}
	return p
}

/*
MeyerWallach is the global entanglement measure

	Q = 2 (1 - 1/n Σ_k Tr(ρ_k²))

It is 0 for product states and 1 for GHZ states.
*/
func MeyerWallach(s *StateVector) float64 {
	var total float64
	for k := 0; k < s.NumQubits; k++ {
		rho, _ := s.ReducedDensity(k)
		total += purity(rho)
	}
	q := 2 * (1 - total/float64(s.NumQubits))
	// Rounding can push a product state a hair below zero.
	return math.Max(0, q)
}

// CircuitMetrics are the expressibility and entangling capability of an ansatz.
type CircuitMetrics struct {
	Expressibility       float64
	EntanglingCapability float64
	Samples              int
}

/*
MeasureCircuit samples pairs of uniformly random parameter vectors in
[0, 2π) for a circuit without feature inputs.

Expressibility is the KL divergence between the histogram of pairwise
fidelities and the Haar distribution P(F) = (N-1)(1-F)^(N-2), N = 2^n,
integrated over the same bins. Lower is more expressive. Entangling
capability is the mean Meyer-Wallach measure over every sampled state.
*/
func MeasureCircuit(ctx context.Context, q *Q, c *Circuit, samples, bins int, seed uint64) (*CircuitMetrics, error) {
	if samples < 1 || bins < 1 {
		return nil, errors.Errorf("need positive samples and bins, got %d and %d", samples, bins)
	}
	if c.NumFeatures() > 0 {
		return nil, errors.Errorf("circuit reads %d features; metrics need a feature-free ansatz", c.NumFeatures())
	}

	rng := newRand(seed)
	draw := func() []float64 {
		p := make([]float64, c.NumParams())
		for i := range p {
			p[i] = 2 * math.Pi * rng.Float64()
		}
		return p
	}

	entanglement := make([]float64, 2*samples)
	fns := make([]func(ctx context.Context) (float64, error), samples)
	for i := range fns {
		a, b := draw(), draw()
		fns[i] = func(ctx context.Context) (float64, error) {
			sa, err := c.Run(a, nil)
			if err != nil {
				return 0, err
			}
			sb, err := c.Run(b, nil)
			if err != nil {
				return 0, err
			}
			entanglement[2*i] = MeyerWallach(sa)
			entanglement[2*i+1] = MeyerWallach(sb)
			return sa.Fidelity(sb), nil
		}
	}

	fidelities, err := evaluate(ctx, q, fns)
	if err != nil {
		return nil, err
	}

	kl := expressibility(fidelities, bins, 1<<c.Wires)
	metrics := &CircuitMetrics{
		Expressibility:       kl,
		EntanglingCapability: stat.Mean(entanglement, nil),
		Samples:              samples,
	}
	errnie.Info("MeasureCircuit - expressibility %.4f, entangling capability %.4f", kl, metrics.EntanglingCapability)
	return metrics, nil
}

func expressibility(fidelities []float64, bins, dim int) float64 {
	dividers := make([]float64, bins+1)
	for i := range dividers {
		dividers[i] = float64(i) / float64(bins)
	}
	// stat.Histogram wants every value strictly below the last divider.
	dividers[bins] = math.Nextafter(1, 2)

	sorted := make([]float64, len(fidelities))
	for i, f := range fidelities {
		sorted[i] = math.Min(math.Max(f, 0), 1)
	}
	sort.Float64s(sorted)

	counts := stat.Histogram(make([]float64, bins), dividers, sorted, nil)
	for i := range counts {
		counts[i] /= float64(len(sorted))
	}

	// Haar bin mass: ∫_a^b (N-1)(1-F)^(N-2) dF = (1-a)^(N-1) - (1-b)^(N-1).
	haar := make([]float64, bins)
	for i := range haar {
		a := float64(i) / float64(bins)
		b := float64(i+1) / float64(bins)
		haar[i] = math.Pow(1-a, float64(dim-1)) - math.Pow(1-b, float64(dim-1))
		// Far bins underflow for large N; keep KL finite.
		haar[i] = math.Max(haar[i], 1e-300)
	}

	return stat.KullbackLeibler(counts, haar)
}
