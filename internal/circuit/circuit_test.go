package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// bell builds the canonical two-qubit entangling circuit used across
// these tests.
func bell() *Circuit {
	c := &Circuit{
		NumQubits: 2,
		NumClbits: 2,
		Qregs:     []Register{{Name: "q", Size: 2, Offset: 0}},
		Cregs:     []Register{{Name: "c", Size: 2, Offset: 0}},
	}
	c.AddGate("h", []int{0}, nil)
	c.AddGate("cx", []int{0, 1}, nil)
	c.AddMeasure(0, 0)
	c.AddMeasure(1, 1)
	return c
}

func TestDepth(t *testing.T) {
	t.Parallel()

	// h -> cx -> measure gives three levels on qubit 0.
	require.Equal(t, 3, bell().Depth())

	// Parallel single-qubit gates share a level.
	c := &Circuit{NumQubits: 2}
	c.AddGate("h", []int{0}, nil)
	c.AddGate("h", []int{1}, nil)
	require.Equal(t, 1, c.Depth())

	// Barriers never add depth.
	c.AddGate("barrier", []int{0, 1}, nil)
	require.Equal(t, 1, c.Depth())

	require.Equal(t, 0, (&Circuit{}).Depth())
}

func TestCountOps(t *testing.T) {
	t.Parallel()

	ops := bell().CountOps()
	require.Equal(t, map[string]int{"h": 1, "cx": 1, "measure": 2}, ops)
}

func TestMeasureMap_LaterMeasurementWins(t *testing.T) {
	t.Parallel()

	c := &Circuit{NumQubits: 1, NumClbits: 2}
	c.AddMeasure(0, 0)
	c.AddMeasure(0, 1)

	require.Equal(t, map[int]int{0: 1}, c.MeasureMap())
}

func TestHasMeasurements(t *testing.T) {
	t.Parallel()

	require.True(t, bell().HasMeasurements())

	c := &Circuit{NumQubits: 1}
	c.AddGate("h", []int{0}, nil)
	require.False(t, c.HasMeasurements())
}

func TestQubitLabels(t *testing.T) {
	t.Parallel()

	c := &Circuit{
		NumQubits: 4,
		Qregs: []Register{
			{Name: "a", Size: 2, Offset: 0},
			{Name: "b", Size: 2, Offset: 2},
		},
	}
	require.Equal(t, []string{"a[0]", "a[1]", "b[0]", "b[1]"}, c.QubitLabels())
}
