package qlearn

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

/*
StateVector holds the 2^n complex amplitudes of an n qubit register.

Wire 0 is the most significant bit of a basis index, so the basis state
|b0 b1 ... bn-1> lives at index b0*2^(n-1) + ... + bn-1.
*/
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector returns the all-zeros state |0...0>.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

func (s *StateVector) bit(wire int) int {
	return 1 << (s.NumQubits - 1 - wire)
}

func (s *StateVector) checkWire(wire int) error {
	if wire < 0 || wire >= s.NumQubits {
		return errors.Wrapf(ErrInvalidWire, "wire %d on %d qubits", wire, s.NumQubits)
	}
	return nil
}

// Apply runs a gate on the given wires with the given angles.
func (s *StateVector) Apply(g Gate, wires []int, angles []float64) error {
	nw, np, ok := g.arity()
	if !ok {
		return errors.Wrapf(ErrUnknownGate, "%q", g)
	}
	if len(wires) != nw {
		return errors.Wrapf(ErrInvalidWire, "%s takes %d wires, got %d", g, nw, len(wires))
	}
	if len(angles) != np {
		return errors.Wrapf(ErrParamCount, "%s takes %d angles, got %d", g, np, len(angles))
	}
	for _, w := range wires {
		if err := s.checkWire(w); err != nil {
			return err
		}
	}

	switch g {
	case GateCNOT:
		return s.applyControlled(wires[0], wires[1], Matrix2{0, 1, 1, 0})
	case GateCZ:
		return s.applyControlled(wires[0], wires[1], Matrix2{1, 0, 0, -1})
	}

	m, err := g.matrix(angles)
	if err != nil {
		return err
	}
	s.applySingle(wires[0], m)
	return nil
}

func (s *StateVector) applySingle(wire int, m Matrix2) {
	bit := s.bit(wire)
	for i := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0]*a0 + m[1]*a1
		s.Amplitudes[j] = m[2]*a0 + m[3]*a1
	}
}

func (s *StateVector) applyControlled(control, target int, m Matrix2) error {
	if control == target {
		return errors.Wrapf(ErrInvalidWire, "control and target are both wire %d", control)
	}
	cbit, tbit := s.bit(control), s.bit(target)
	for i := range s.Amplitudes {
		if i&cbit == 0 || i&tbit != 0 {
			continue
		}
		j := i | tbit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0]*a0 + m[1]*a1
		s.Amplitudes[j] = m[2]*a0 + m[3]*a1
	}
	return nil
}

// Probabilities returns the Born-rule distribution over basis states.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amplitude := range s.Amplitudes {
		prob := cmplx.Abs(amplitude)
		probs[i] = prob * prob
	}
	return probs
}

// Norm is the squared length of the state; 1 for any valid state.
func (s *StateVector) Norm() float64 {
	var total float64
	for _, p := range s.Probabilities() {
		total += p
	}
	return total
}

// ExpvalZ returns <Z> on one wire.
func (s *StateVector) ExpvalZ(wire int) (float64, error) {
	if err := s.checkWire(wire); err != nil {
		return 0, err
	}
	bit := s.bit(wire)
	var e float64
	for i, p := range s.Probabilities() {
		if i&bit == 0 {
			e += p
		} else {
			e -= p
		}
	}
	return e, nil
}

// ExpvalZZ returns <Z_i Z_j>.
func (s *StateVector) ExpvalZZ(i, j int) (float64, error) {
	if err := s.checkWire(i); err != nil {
		return 0, err
	}
	if err := s.checkWire(j); err != nil {
		return 0, err
	}
	bi, bj := s.bit(i), s.bit(j)
	var e float64
	for k, p := range s.Probabilities() {
		if (k&bi == 0) == (k&bj == 0) {
			e += p
		} else {
			e -= p
		}
	}
	return e, nil
}

// Fidelity is |<s|o>|^2.
func (s *StateVector) Fidelity(o *StateVector) float64 {
	var overlap complex128
	for i, a := range s.Amplitudes {
		overlap += cmplx.Conj(a) * o.Amplitudes[i]
	}
	return math.Pow(cmplx.Abs(overlap), 2)
}
