package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/qasmrun/internal/circuit"
)

func applyAll(t *testing.T, s *StateVector, gates ...circuit.Gate) {
	t.Helper()
	for _, g := range gates {
		require.NoError(t, s.ApplyGate(g))
	}
}

func gate(name string, qubits ...int) circuit.Gate {
	return circuit.Gate{Name: name, Qubits: qubits, Cbit: -1}
}

func pgate(name string, param float64, qubits ...int) circuit.Gate {
	return circuit.Gate{Name: name, Qubits: qubits, Params: []float64{param}, Cbit: -1}
}

func TestStateVector_PauliX(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	applyAll(t, s, gate("x", 0))

	probs := s.Probabilities()
	require.InDelta(t, 0.0, probs[0], 1e-12)
	require.InDelta(t, 1.0, probs[1], 1e-12)
}

func TestStateVector_Hadamard(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	applyAll(t, s, gate("h", 0))

	probs := s.Probabilities()
	require.InDelta(t, 0.5, probs[0], 1e-12)
	require.InDelta(t, 0.5, probs[1], 1e-12)

	// H is self-inverse.
	applyAll(t, s, gate("h", 0))
	probs = s.Probabilities()
	require.InDelta(t, 1.0, probs[0], 1e-12)
}

func TestStateVector_BellState(t *testing.T) {
	t.Parallel()

	s := NewStateVector(2)
	applyAll(t, s, gate("h", 0), gate("cx", 0, 1))

	probs := s.Probabilities()
	require.InDelta(t, 0.5, probs[0b00], 1e-12)
	require.InDelta(t, 0.0, probs[0b01], 1e-12)
	require.InDelta(t, 0.0, probs[0b10], 1e-12)
	require.InDelta(t, 0.5, probs[0b11], 1e-12)
}

func TestStateVector_GHZ(t *testing.T) {
	t.Parallel()

	s := NewStateVector(3)
	applyAll(t, s, gate("h", 0), gate("cx", 0, 1), gate("cx", 1, 2))

	probs := s.Probabilities()
	require.InDelta(t, 0.5, probs[0b000], 1e-12)
	require.InDelta(t, 0.5, probs[0b111], 1e-12)
}

func TestStateVector_Toffoli(t *testing.T) {
	t.Parallel()

	// Both controls set: target flips.
	s := NewStateVector(3)
	applyAll(t, s, gate("x", 0), gate("x", 1), gate("ccx", 0, 1, 2))
	require.InDelta(t, 1.0, s.Probabilities()[0b111], 1e-12)

	// One control set: target stays.
	s = NewStateVector(3)
	applyAll(t, s, gate("x", 0), gate("ccx", 0, 1, 2))
	require.InDelta(t, 1.0, s.Probabilities()[0b001], 1e-12)
}

func TestStateVector_Swap(t *testing.T) {
	t.Parallel()

	s := NewStateVector(2)
	applyAll(t, s, gate("x", 0), gate("swap", 0, 1))
	require.InDelta(t, 1.0, s.Probabilities()[0b10], 1e-12)
}

func TestStateVector_RotationGates(t *testing.T) {
	t.Parallel()

	// rx(pi) acts like X up to global phase.
	s := NewStateVector(1)
	applyAll(t, s, pgate("rx", math.Pi, 0))
	require.InDelta(t, 1.0, s.Probabilities()[1], 1e-12)

	// ry(pi/2) puts |0> into an equal superposition.
	s = NewStateVector(1)
	applyAll(t, s, pgate("ry", math.Pi/2, 0))
	probs := s.Probabilities()
	require.InDelta(t, 0.5, probs[0], 1e-12)
	require.InDelta(t, 0.5, probs[1], 1e-12)

	// rz only changes phase, never probabilities.
	s = NewStateVector(1)
	applyAll(t, s, gate("h", 0), pgate("rz", math.Pi/3, 0))
	probs = s.Probabilities()
	require.InDelta(t, 0.5, probs[0], 1e-12)
	require.InDelta(t, 0.5, probs[1], 1e-12)
}

func TestStateVector_PhaseGatesPreserveProbabilities(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	applyAll(t, s, gate("h", 0), gate("s", 0), gate("t", 0), gate("sdg", 0), gate("tdg", 0), gate("z", 0))
	probs := s.Probabilities()
	require.InDelta(t, 0.5, probs[0], 1e-12)
	require.InDelta(t, 0.5, probs[1], 1e-12)
}

func TestStateVector_Reset(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	applyAll(t, s, gate("x", 0), gate("reset", 0))
	require.InDelta(t, 1.0, s.Probabilities()[0], 1e-12)

	// Reset of a superposed qubit collapses to |0>.
	s = NewStateVector(1)
	applyAll(t, s, gate("h", 0), gate("reset", 0))
	require.InDelta(t, 1.0, s.Probabilities()[0], 1e-12)
}

func TestStateVector_UnknownGate(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	err := s.ApplyGate(gate("frobnicate", 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "frobnicate")
}

func TestSample_Deterministic(t *testing.T) {
	t.Parallel()

	s := NewStateVector(1)
	applyAll(t, s, gate("x", 0))

	rng := rand.New(rand.NewSource(7))
	counts := s.Sample(rng, 100, map[int]int{0: 0}, 1)
	require.Equal(t, map[string]int{"1": 100}, counts)
}

func TestSample_BellCounts(t *testing.T) {
	t.Parallel()

	s := NewStateVector(2)
	applyAll(t, s, gate("h", 0), gate("cx", 0, 1))

	rng := rand.New(rand.NewSource(42))
	counts := s.Sample(rng, 1000, map[int]int{0: 0, 1: 1}, 2)

	total := 0
	for outcome, n := range counts {
		require.Contains(t, []string{"00", "11"}, outcome)
		total += n
	}
	require.Equal(t, 1000, total)
	require.Greater(t, counts["00"], 300)
	require.Greater(t, counts["11"], 300)
}

func TestSample_BitOrdering(t *testing.T) {
	t.Parallel()

	// Only qubit 0 is excited and it maps to clbit 0, which is the
	// rightmost character of the outcome string.
	s := NewStateVector(2)
	applyAll(t, s, gate("x", 0))

	rng := rand.New(rand.NewSource(1))
	counts := s.Sample(rng, 10, map[int]int{0: 0, 1: 1}, 2)
	require.Equal(t, map[string]int{"01": 10}, counts)
}

func TestSample_PartialMeasurement(t *testing.T) {
	t.Parallel()

	// Only one of two qubits measured into a single clbit.
	s := NewStateVector(2)
	applyAll(t, s, gate("x", 1))

	rng := rand.New(rand.NewSource(1))
	counts := s.Sample(rng, 10, map[int]int{1: 0}, 1)
	require.Equal(t, map[string]int{"1": 10}, counts)
}
