// Package sim implements the local statevector backend. It executes the
// parsed gate list over a dense complex128 amplitude vector and samples
// measurement outcomes, which is exactly what the tool needs to run small
// circuits without a cloud account.
package sim

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/vk/qasmrun/internal/circuit"
)

// MaxQubits caps the statevector size; 25 qubits is a 512 MiB vector.
const MaxQubits = 25

// StateVector holds 2^n complex amplitudes in little-endian qubit order:
// bit q of an amplitude index is the state of qubit q.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector returns the |0...0> state over numQubits qubits.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

type matrix2 [2][2]complex128

var (
	matX = matrix2{{0, 1}, {1, 0}}
	matY = matrix2{{0, -1i}, {1i, 0}}
	matH = matrix2{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
	matSX = matrix2{
		{complex(0.5, 0.5), complex(0.5, -0.5)},
		{complex(0.5, -0.5), complex(0.5, 0.5)},
	}
)

func matPhase(lambda float64) matrix2 {
	return matrix2{{1, 0}, {0, cmplx.Exp(complex(0, lambda))}}
}

func matRX(theta float64) matrix2 {
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	return matrix2{{c, js}, {js, c}}
}

func matRY(theta float64) matrix2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return matrix2{{c, -s}, {s, c}}
}

func matRZ(theta float64) matrix2 {
	p := cmplx.Exp(complex(0, theta/2))
	return matrix2{{cmplx.Conj(p), 0}, {0, p}}
}

func matU3(theta, phi, lambda float64) matrix2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return matrix2{
		{c, -cmplx.Exp(complex(0, lambda)) * s},
		{cmplx.Exp(complex(0, phi)) * s, cmplx.Exp(complex(0, phi+lambda)) * c},
	}
}

// apply applies a single-qubit matrix to target, restricted to amplitude
// indices where every control bit is set.
func (s *StateVector) apply(m matrix2, target int, controls ...int) {
	tbit := 1 << target
	cmask := 0
	for _, c := range controls {
		cmask |= 1 << c
	}
	for i := range s.Amplitudes {
		if i&tbit != 0 || i&cmask != cmask {
			continue
		}
		j := i | tbit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
		s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

func (s *StateVector) applySwap(q1, q2 int) {
	b1, b2 := 1<<q1, 1<<q2
	for i := range s.Amplitudes {
		if i&b1 != 0 && i&b2 == 0 {
			j := (i &^ b1) | b2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// applyReset collapses the target qubit to |0> and renormalizes, matching
// the qelib reset semantics for states with non-zero |0> support.
func (s *StateVector) applyReset(q int) {
	bit := 1 << q
	prob0 := 0.0
	for i, a := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(a * cmplx.Conj(a))
		}
	}
	if prob0 <= 0 {
		// Deterministic |1>; reset maps it to |0> by relabeling.
		for i := range s.Amplitudes {
			if i&bit == 0 {
				j := i | bit
				s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], 0
			}
		}
		return
	}
	norm := complex(math.Sqrt(prob0), 0)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			s.Amplitudes[i] /= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
}

// ApplyGate dispatches one parsed gate onto the state. Measurements and
// barriers are structural and handled by the caller.
func (s *StateVector) ApplyGate(g circuit.Gate) error {
	q := g.Qubits
	switch g.Name {
	case "id", "barrier", "measure":
		return nil
	case "h":
		s.apply(matH, q[0])
	case "x":
		s.apply(matX, q[0])
	case "y":
		s.apply(matY, q[0])
	case "z":
		s.apply(matPhase(math.Pi), q[0])
	case "s":
		s.apply(matPhase(math.Pi/2), q[0])
	case "sdg":
		s.apply(matPhase(-math.Pi/2), q[0])
	case "t":
		s.apply(matPhase(math.Pi/4), q[0])
	case "tdg":
		s.apply(matPhase(-math.Pi/4), q[0])
	case "sx":
		s.apply(matSX, q[0])
	case "rx":
		s.apply(matRX(g.Params[0]), q[0])
	case "ry":
		s.apply(matRY(g.Params[0]), q[0])
	case "rz":
		s.apply(matRZ(g.Params[0]), q[0])
	case "p":
		s.apply(matPhase(g.Params[0]), q[0])
	case "u2":
		s.apply(matU3(math.Pi/2, g.Params[0], g.Params[1]), q[0])
	case "u3":
		s.apply(matU3(g.Params[0], g.Params[1], g.Params[2]), q[0])
	case "cx":
		s.apply(matX, q[1], q[0])
	case "cy":
		s.apply(matY, q[1], q[0])
	case "cz":
		s.apply(matPhase(math.Pi), q[1], q[0])
	case "ch":
		s.apply(matH, q[1], q[0])
	case "crz":
		s.apply(matRZ(g.Params[0]), q[1], q[0])
	case "cp":
		s.apply(matPhase(g.Params[0]), q[1], q[0])
	case "swap":
		s.applySwap(q[0], q[1])
	case "ccx":
		s.apply(matX, q[2], q[0], q[1])
	case "reset":
		s.applyReset(q[0])
	default:
		return fmt.Errorf("simulator does not implement gate %q", g.Name)
	}
	return nil
}

// Probabilities returns |amplitude|^2 for every basis state.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		probs[i] = real(a * cmplx.Conj(a))
	}
	return probs
}

// Sample draws shots basis states from the final distribution and folds each
// into a classical bitstring through the measure map (qubit -> clbit). The
// returned keys follow the usual convention: leftmost character is the
// highest classical bit.
func (s *StateVector) Sample(rng *rand.Rand, shots int, measures map[int]int, numClbits int) map[string]int {
	probs := s.Probabilities()
	counts := make(map[string]int)
	for shot := 0; shot < shots; shot++ {
		r := rng.Float64()
		acc := 0.0
		idx := len(probs) - 1
		for i, p := range probs {
			acc += p
			if r < acc {
				idx = i
				break
			}
		}
		counts[bitstring(idx, measures, numClbits)]++
	}
	return counts
}

func bitstring(basis int, measures map[int]int, numClbits int) string {
	bits := make([]byte, numClbits)
	for i := range bits {
		bits[i] = '0'
	}
	for qubit, clbit := range measures {
		if clbit < 0 || clbit >= numClbits {
			continue
		}
		if basis&(1<<qubit) != 0 {
			bits[numClbits-1-clbit] = '1'
		}
	}
	return string(bits)
}
