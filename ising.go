package qlearn

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

/*
Ising is a classical spin model on n sites:

	E(s) = -Σ_{i<j} J_ij s_i s_j - Σ_i h_i s_i,   s_i ∈ {+1, -1}

Only the upper triangle of J is read, so J[i][j] with i < j is the
coupling between sites i and j.
*/
type Ising struct {
	J [][]float64
	H []float64
}

// NewIsing checks that J is n x n and h is empty or of length n.
func NewIsing(j [][]float64, h []float64) (*Ising, error) {
	n := len(j)
	if n == 0 || n > MaxWires {
		return nil, errors.Wrapf(ErrInvalidWires, "%d spins", n)
	}
	for i, row := range j {
		if len(row) != n {
			return nil, errors.Wrapf(ErrSizeMismatch, "coupling row %d has %d entries, want %d", i, len(row), n)
		}
	}
	if len(h) == 0 {
		h = make([]float64, n)
	}
	if len(h) != n {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d fields for %d spins", len(h), n)
	}
	return &Ising{J: j, H: h}, nil
}

func (m *Ising) Size() int {
	return len(m.H)
}

// Energy evaluates a spin configuration.
func (m *Ising) Energy(spins []int) (float64, error) {
	if len(spins) != m.Size() {
		return 0, errors.Wrapf(ErrSizeMismatch, "%d spins for a %d site model", len(spins), m.Size())
	}
	for i, s := range spins {
		if s != 1 && s != -1 {
			return 0, errors.Wrapf(ErrInvalidSpin, "spin %d is %d", i, s)
		}
	}

	s := make([]float64, len(spins))
	for i, v := range spins {
		s[i] = float64(v)
	}
	return m.energy(s), nil
}

// energy accepts relaxed spins in [-1, 1] so it doubles as the quantum cost.
func (m *Ising) energy(s []float64) float64 {
	var e float64
	for i := range s {
		for j := i + 1; j < len(s); j++ {
			e -= m.J[i][j] * s[i] * s[j]
		}
		e -= m.H[i] * s[i]
	}
	return e
}

/*
GroundState enumerates all 2^n configurations and returns the one with the
lowest energy. Bit k of the enumeration index set means spin k is -1, with
spin 0 as the most significant bit, so ties go to the configuration with
the most leading +1 spins.
*/
func (m *Ising) GroundState() ([]int, float64) {
	n := m.Size()
	best := math.Inf(1)
	var bestSpins []int

	for idx := 0; idx < 1<<n; idx++ {
		spins := make([]float64, n)
		for k := 0; k < n; k++ {
			spins[k] = 1
			if idx&(1<<(n-1-k)) != 0 {
				spins[k] = -1
			}
		}
		if e := m.energy(spins); e < best-1e-12 {
			best = e
			bestSpins = make([]int, n)
			for k, v := range spins {
				bestSpins[k] = int(v)
			}
		}
	}
	return bestSpins, best
}

/*
Ansatz is one RX(θ_i) per wire. Measuring Z_i then gives cos θ_i, a relaxed
spin, and the expected energy is the classical energy at those spins.
*/
func (m *Ising) Ansatz() *Circuit {
	c := NewCircuit(m.Size())
	for w := 0; w < m.Size(); w++ {
		c.ApplyParam(GateRX, w, w)
	}
	return c
}

/*
Cost returns the objective <H> for the ansatz on dev, where H replaces each
s_i with Z_i. It is linear in the measured expectation values, so its
gradient comes straight from the parameter-shift rule.
*/
func (m *Ising) Cost(dev *Device) Objective {
	circuit := m.Ansatz()
	return func(params []float64) (float64, error) {
		state, err := dev.Execute(circuit, params, nil)
		if err != nil {
			return 0, err
		}

		var e float64
		for i := 0; i < m.Size(); i++ {
			for j := i + 1; j < m.Size(); j++ {
				if m.J[i][j] == 0 {
					continue
				}
				zz, err := dev.ExpvalZZ(state, i, j)
				if err != nil {
					return 0, err
				}
				e -= m.J[i][j] * zz
			}
			if m.H[i] == 0 {
				continue
			}
			z, err := dev.ExpvalZ(state, i)
			if err != nil {
				return 0, err
			}
			e -= m.H[i] * z
		}
		return e, nil
	}
}

// Solution is the outcome of a variational Ising run.
type Solution struct {
	Params  []float64
	Spins   []int
	Energy  float64
	History *History
}

/*
Solve minimizes <H> from init with opt for steps iterations, or with BFGS
when opt is nil, and reads spins off the sign of each <Z_i> (zero reads +1).
Energy is the classical energy of those spins.
*/
func (m *Ising) Solve(
	ctx context.Context,
	dev *Device,
	q *Q,
	opt Optimizer,
	init []float64,
	steps int,
	cb StepFunc,
) (*Solution, error) {
	if len(init) != m.Size() {
		return nil, errors.Wrapf(ErrParamCount, "%d initial angles for %d spins", len(init), m.Size())
	}

	cost := m.Cost(dev)
	problem := Problem{Cost: cost, Grad: ShiftGrad(q, cost)}

	var (
		params  []float64
		history *History
		err     error
	)
	if opt == nil {
		params, history, err = MinimizeBFGS(ctx, problem, init, steps)
	} else {
		params, history, err = Minimize(ctx, problem, init, opt, steps, cb)
	}
	if err != nil {
		return nil, err
	}

	spins, err := m.ReadSpins(dev, params)
	if err != nil {
		return nil, err
	}
	energy, err := m.Energy(spins)
	if err != nil {
		return nil, err
	}

	errnie.Info("Solve - spins %v, energy %.4f", spins, energy)
	return &Solution{Params: params, Spins: spins, Energy: energy, History: history}, nil
}

// ReadSpins runs the ansatz and rounds each <Z_i> to a spin, estimating
// <Z_i> the same way the cost does on dev.
func (m *Ising) ReadSpins(dev *Device, params []float64) ([]int, error) {
	state, err := dev.Execute(m.Ansatz(), params, nil)
	if err != nil {
		return nil, err
	}
	spins := make([]int, m.Size())
	for i := range spins {
		z, err := dev.ExpvalZ(state, i)
		if err != nil {
			return nil, err
		}
		spins[i] = 1
		if z < 0 {
			spins[i] = -1
		}
	}
	return spins, nil
}

func (s *Solution) String() string {
	return fmt.Sprintf("spins %v energy %.4f", s.Spins, s.Energy)
}
