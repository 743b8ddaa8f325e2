// wavefunction.go
package qlearn

import (
	"math/rand/v2"
	"sort"
)

/*
Sample collapses the state shots times and returns the measured basis
indices. The state itself is left untouched so one simulation can serve
many measurements, which is how a shot-based device behaves between runs.
*/
func (s *StateVector) Sample(rng *rand.Rand, shots int) []int {
	probs := s.Probabilities()

	cumulative := make([]float64, len(probs))
	var total float64
	for i, p := range probs {
		total += p
		cumulative[i] = total
	}

	out := make([]int, shots)
	for k := range out {
		r := rng.Float64() * total
		idx := sort.SearchFloat64s(cumulative, r)
		if idx >= len(cumulative) {
			idx = len(cumulative) - 1
		}
		out[k] = idx
	}
	return out
}

// sampledExpval estimates <Z...Z> over wires from measured outcomes.
func (s *StateVector) sampledExpval(samples []int, wires ...int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, idx := range samples {
		parity := 1.0
		for _, w := range wires {
			if idx&s.bit(w) != 0 {
				parity = -parity
			}
		}
		sum += parity
	}
	return sum / float64(len(samples))
}

// Counts tallies samples into bitstring keys such as "010".
func (s *StateVector) Counts(samples []int) map[string]int {
	counts := make(map[string]int)
	for _, idx := range samples {
		counts[s.Bitstring(idx)]++
	}
	return counts
}

// Bitstring renders a basis index with wire 0 first.
func (s *StateVector) Bitstring(idx int) string {
	b := make([]byte, s.NumQubits)
	for w := 0; w < s.NumQubits; w++ {
		if idx&s.bit(w) != 0 {
			b[w] = '1'
		} else {
			b[w] = '0'
		}
	}
	return string(b)
}
