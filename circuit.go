package qlearn

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ParamSource says where an angle comes from when a circuit executes.
type ParamSource int

const (
	// Literal angles are fixed when the circuit is built.
	Literal ParamSource = iota
	// Trainable angles index into the flat parameter vector.
	Trainable
	// Feature angles index into the input vector.
	Feature
)

// ParamRef resolves to a single angle at execution time.
type ParamRef struct {
	Source ParamSource
	Index  int
	Value  float64
}

// Op is one gate application.
type Op struct {
	Gate   Gate
	Wires  []int
	Params []ParamRef

	// basis marks a BasisState embedding op; Wires are then in feature order.
	basis bool
}

/*
Circuit is an ordered list of gate applications over a fixed number of
wires. It carries no state of its own, so the same circuit can be executed
concurrently with different parameter vectors.
*/
type Circuit struct {
	Wires int
	Ops   []Op

	numParams   int
	numFeatures int
}

func NewCircuit(wires int) *Circuit {
	return &Circuit{Wires: wires}
}

// Apply adds a gate with literal angles.
func (c *Circuit) Apply(g Gate, wires []int, angles ...float64) *Circuit {
	refs := make([]ParamRef, len(angles))
	for i, a := range angles {
		refs[i] = ParamRef{Source: Literal, Value: a}
	}
	c.Ops = append(c.Ops, Op{Gate: g, Wires: wires, Params: refs})
	return c
}

// ApplyParam adds a gate whose angles are trainable parameters.
func (c *Circuit) ApplyParam(g Gate, wire int, idx ...int) *Circuit {
	refs := make([]ParamRef, len(idx))
	for i, k := range idx {
		refs[i] = ParamRef{Source: Trainable, Index: k}
		if k+1 > c.numParams {
			c.numParams = k + 1
		}
	}
	c.Ops = append(c.Ops, Op{Gate: g, Wires: []int{wire}, Params: refs})
	return c
}

// ApplyFeature adds a rotation whose angle is an input feature.
func (c *Circuit) ApplyFeature(g Gate, wire int, feature int) *Circuit {
	if feature+1 > c.numFeatures {
		c.numFeatures = feature + 1
	}
	c.Ops = append(c.Ops, Op{
		Gate:   g,
		Wires:  []int{wire},
		Params: []ParamRef{{Source: Feature, Index: feature}},
	})
	return c
}

/*
BasisEmbedding prepares the computational basis state named by the input
vector on the given wires. It must come first, since it assumes |0...0>
and flips the wires whose feature is 1.
*/
func (c *Circuit) BasisEmbedding(wires ...int) *Circuit {
	if len(wires) > c.numFeatures {
		c.numFeatures = len(wires)
	}
	c.Ops = append(c.Ops, Op{Gate: GateX, Wires: wires, basis: true})
	return c
}

/*
StronglyEntanglingLayer applies Rot(φ,θ,ω) to every wire followed by a
ring of CNOTs (i -> i+1, last -> first; on two wires 0 -> 1 then
1 -> 0). Parameters for the layer start at
offset and are laid out wire by wire, three per wire.
*/
func (c *Circuit) StronglyEntanglingLayer(offset int) *Circuit {
	for w := 0; w < c.Wires; w++ {
		base := offset + 3*w
		c.ApplyParam(GateRot, w, base, base+1, base+2)
	}
	if c.Wires < 2 {
		return c
	}
	for w := 0; w < c.Wires; w++ {
		next := (w + 1) % c.Wires
		c.Apply(GateCNOT, []int{w, next})
	}
	return c
}

func (c *Circuit) NumParams() int   { return c.numParams }
func (c *Circuit) NumFeatures() int { return c.numFeatures }

// Run evolves |0...0> through the circuit.
func (c *Circuit) Run(params, input []float64) (*StateVector, error) {
	if len(params) != c.numParams {
		return nil, errors.Wrapf(ErrParamCount, "circuit needs %d parameters, got %d", c.numParams, len(params))
	}
	if len(input) < c.numFeatures {
		return nil, errors.Wrapf(ErrParamCount, "circuit needs %d features, got %d", c.numFeatures, len(input))
	}

	state := NewStateVector(c.Wires)
	for i, op := range c.Ops {
		if op.basis {
			if err := embedBasis(state, op.Wires, input); err != nil {
				return nil, err
			}
			continue
		}

		angles := make([]float64, len(op.Params))
		for k, ref := range op.Params {
			switch ref.Source {
			case Literal:
				angles[k] = ref.Value
			case Trainable:
				angles[k] = params[ref.Index]
			case Feature:
				angles[k] = input[ref.Index]
			}
		}
		if err := state.Apply(op.Gate, op.Wires, angles); err != nil {
			return nil, errors.Wrapf(err, "op %d", i)
		}
	}
	return state, nil
}

func embedBasis(state *StateVector, wires []int, bits []float64) error {
	for i, w := range wires {
		switch bits[i] {
		case 0:
		case 1:
			if err := state.Apply(GateX, []int{w}, nil); err != nil {
				return err
			}
		default:
			return errors.Wrapf(ErrInvalidBit, "feature %d is %v", i, bits[i])
		}
	}
	return nil
}

// String draws the circuit one op per line.
func (c *Circuit) String() string {
	var b strings.Builder
	for _, op := range c.Ops {
		if op.basis {
			fmt.Fprintf(&b, "BasisState%v\n", op.Wires)
			continue
		}
		fmt.Fprintf(&b, "%s%v", op.Gate, op.Wires)
		if len(op.Params) > 0 {
			parts := make([]string, len(op.Params))
			for i, p := range op.Params {
				switch p.Source {
				case Literal:
					parts[i] = fmt.Sprintf("%.4f", p.Value)
				case Trainable:
					parts[i] = fmt.Sprintf("θ%d", p.Index)
				case Feature:
					parts[i] = fmt.Sprintf("x%d", p.Index)
				}
			}
			fmt.Fprintf(&b, "(%s)", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
