package qlearn

import (
	"math"
	"math/cmplx"
)

// Gate names a primitive operation a circuit can apply.
type Gate string

const (
	GateH    Gate = "H"
	GateX    Gate = "X"
	GateY    Gate = "Y"
	GateZ    Gate = "Z"
	GateRX   Gate = "RX"
	GateRY   Gate = "RY"
	GateRZ   Gate = "RZ"
	GateRot  Gate = "Rot"
	GateCNOT Gate = "CNOT"
	GateCZ   Gate = "CZ"
)

/*
Matrix2 is a single qubit unitary in row-major order:

	[a b]
	[c d]
*/
type Matrix2 [4]complex128

// arity reports how many wires and how many angles a gate takes.
func (g Gate) arity() (wires, params int, ok bool) {
	switch g {
	case GateH, GateX, GateY, GateZ:
		return 1, 0, true
	case GateRX, GateRY, GateRZ:
		return 1, 1, true
	case GateRot:
		return 1, 3, true
	case GateCNOT, GateCZ:
		return 2, 0, true
	}
	return 0, 0, false
}

// Parametric reports whether the gate obeys the two-term parameter-shift rule.
func (g Gate) Parametric() bool {
	_, p, _ := g.arity()
	return p > 0
}

// matrix builds the unitary for a single qubit gate.
func (g Gate) matrix(angles []float64) (Matrix2, error) {
	switch g {
	case GateH:
		// H = 1/√2 * [1  1]
		//           [1 -1]
		h := complex(1/math.Sqrt2, 0)
		return Matrix2{h, h, h, -h}, nil
	case GateX:
		return Matrix2{0, 1, 1, 0}, nil
	case GateY:
		return Matrix2{0, -1i, 1i, 0}, nil
	case GateZ:
		return Matrix2{1, 0, 0, -1}, nil
	case GateRX:
		return rx(angles[0]), nil
	case GateRY:
		return ry(angles[0]), nil
	case GateRZ:
		return rz(angles[0]), nil
	case GateRot:
		// Rot(φ,θ,ω) = RZ(ω) RY(θ) RZ(φ)
		return rz(angles[2]).mul(ry(angles[1])).mul(rz(angles[0])), nil
	}
	return Matrix2{}, ErrUnknownGate
}

func rx(theta float64) Matrix2 {
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	return Matrix2{c, js, js, c}
}

func ry(theta float64) Matrix2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return Matrix2{c, -s, s, c}
}

func rz(theta float64) Matrix2 {
	return Matrix2{cmplx.Exp(complex(0, -theta/2)), 0, 0, cmplx.Exp(complex(0, theta/2))}
}

func (m Matrix2) mul(o Matrix2) Matrix2 {
	return Matrix2{
		m[0]*o[0] + m[1]*o[2], m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2], m[2]*o[1] + m[3]*o[3],
	}
}
