package qlearn

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

// MaxWires bounds the simulator; 2^12 amplitudes is plenty for teaching.
const MaxWires = 12

/*
Device is a simulated qubit register. With Shots == 0 expectation values
are exact; otherwise they are estimated from that many samples drawn with
the device RNG, so a seeded device gives reproducible estimates.
*/
type Device struct {
	Wires int
	Shots int

	mu  sync.Mutex
	rng *rand.Rand
}

// DeviceOption configures a device.
type DeviceOption func(*Device)

func WithShots(shots int) DeviceOption {
	return func(d *Device) {
		d.Shots = shots
	}
}

func WithSeed(seed uint64) DeviceOption {
	return func(d *Device) {
		d.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func NewDevice(wires int, opts ...DeviceOption) (*Device, error) {
	if wires < 1 || wires > MaxWires {
		return nil, errors.Wrapf(ErrInvalidWires, "got %d", wires)
	}
	d := &Device{Wires: wires}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	errnie.Info("NewDevice - wires %d, shots %d", d.Wires, d.Shots)
	return d, nil
}

// Execute runs a circuit built for this device.
func (d *Device) Execute(c *Circuit, params, input []float64) (*StateVector, error) {
	if c.Wires != d.Wires {
		return nil, errors.Wrapf(ErrInvalidWires, "circuit has %d wires, device %d", c.Wires, d.Wires)
	}
	return c.Run(params, input)
}

// ExpvalZ measures <Z> on a wire of an executed state.
func (d *Device) ExpvalZ(state *StateVector, wire int) (float64, error) {
	if d.Shots == 0 {
		return state.ExpvalZ(wire)
	}
	if err := state.checkWire(wire); err != nil {
		return 0, err
	}
	return state.sampledExpval(d.Sample(state), wire), nil
}

// ExpvalZZ measures <Z_i Z_j> on an executed state.
func (d *Device) ExpvalZZ(state *StateVector, i, j int) (float64, error) {
	if d.Shots == 0 {
		return state.ExpvalZZ(i, j)
	}
	if err := state.checkWire(i); err != nil {
		return 0, err
	}
	if err := state.checkWire(j); err != nil {
		return 0, err
	}
	return state.sampledExpval(d.Sample(state), i, j), nil
}

// Sample draws d.Shots outcomes, or one when the device is analytic.
func (d *Device) Sample(state *StateVector) []int {
	shots := d.Shots
	if shots == 0 {
		shots = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return state.Sample(d.rng, shots)
}

// Float64 exposes the device RNG for seeded parameter initialisation.
func (d *Device) Float64() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()
}

// NormFloat64 draws from N(0,1) with the device RNG.
func (d *Device) NormFloat64() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.NormFloat64()
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}
