package qlearn

import "github.com/pkg/errors"

var (
	ErrInvalidWires  = errors.New("device needs between 1 and MaxWires wires")
	ErrInvalidWire   = errors.New("wire index out of range")
	ErrParamCount    = errors.New("wrong number of parameters")
	ErrInvalidBit    = errors.New("basis state bits must be 0 or 1")
	ErrInvalidSpin   = errors.New("spins must be +1 or -1")
	ErrSizeMismatch  = errors.New("size mismatch")
	ErrFeatureCount  = errors.New("classifier needs exactly one feature per qubit")
	ErrEmptyDataset  = errors.New("dataset has no rows")
	ErrMissingColumn = errors.New("column not found")
	ErrUnknownGate   = errors.New("unknown gate")
	ErrPoolClosed    = errors.New("pool is closed")
)
