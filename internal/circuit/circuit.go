// Package circuit defines the in-memory representation of a parsed OpenQASM
// 2.0 circuit. The model is deliberately flat: a circuit is an ordered list
// of gates over absolute qubit indices, plus register bookkeeping so that
// diagrams and results can refer back to the user's declarations.
package circuit

import (
	"sort"
	"strconv"
)

// Gate is a single circuit operation. Qubits holds absolute indices; for
// controlled gates the controls come first and the target is last. Cbit is
// the classical target of a measurement, -1 for everything else.
type Gate struct {
	Name   string
	Qubits []int
	Params []float64
	Cbit   int
}

// IsMeasure reports whether the gate records a qubit into a classical bit.
func (g Gate) IsMeasure() bool {
	return g.Name == "measure"
}

// Register is a declared qreg or creg.
type Register struct {
	Name   string
	Size   int
	Offset int // absolute index of bit [0]
}

// Circuit is an ordered gate list with register metadata. Source retains
// the original QASM text so remote backends can submit it verbatim.
type Circuit struct {
	NumQubits int
	NumClbits int
	Qregs     []Register
	Cregs     []Register
	Gates     []Gate
	Source    string
}

// AddGate appends a gate acting on the given qubits.
func (c *Circuit) AddGate(name string, qubits []int, params []float64) {
	c.Gates = append(c.Gates, Gate{Name: name, Qubits: qubits, Params: params, Cbit: -1})
}

// AddMeasure appends a measurement of qubit into clbit.
func (c *Circuit) AddMeasure(qubit, clbit int) {
	c.Gates = append(c.Gates, Gate{Name: "measure", Qubits: []int{qubit}, Cbit: clbit})
}

// Depth returns the circuit depth: the longest chain of gates on any wire,
// computed the way transpiler reports do. Barriers do not add depth.
func (c *Circuit) Depth() int {
	if c.NumQubits == 0 {
		return 0
	}
	wires := make([]int, c.NumQubits+c.NumClbits)
	depth := 0
	for _, g := range c.Gates {
		if g.Name == "barrier" {
			continue
		}
		level := 0
		for _, q := range g.Qubits {
			if wires[q] > level {
				level = wires[q]
			}
		}
		if g.Cbit >= 0 {
			cw := c.NumQubits + g.Cbit
			if wires[cw] > level {
				level = wires[cw]
			}
		}
		level++
		for _, q := range g.Qubits {
			wires[q] = level
		}
		if g.Cbit >= 0 {
			wires[c.NumQubits+g.Cbit] = level
		}
		if level > depth {
			depth = level
		}
	}
	return depth
}

// CountOps returns the number of occurrences of each gate name.
func (c *Circuit) CountOps() map[string]int {
	ops := make(map[string]int)
	for _, g := range c.Gates {
		ops[g.Name]++
	}
	return ops
}

// MeasureMap returns the qubit-to-clbit mapping defined by the circuit's
// measurement gates. A later measurement of the same qubit wins, matching
// execution order.
func (c *Circuit) MeasureMap() map[int]int {
	m := make(map[int]int)
	for _, g := range c.Gates {
		if g.IsMeasure() {
			m[g.Qubits[0]] = g.Cbit
		}
	}
	return m
}

// HasMeasurements reports whether any measurement gate is present.
func (c *Circuit) HasMeasurements() bool {
	for _, g := range c.Gates {
		if g.IsMeasure() {
			return true
		}
	}
	return false
}

// QubitLabels returns one display label per absolute qubit index, derived
// from the declared quantum registers (for example "q[3]").
func (c *Circuit) QubitLabels() []string {
	return registerLabels(c.Qregs, c.NumQubits)
}

// ClbitLabels returns one display label per absolute classical bit index.
func (c *Circuit) ClbitLabels() []string {
	return registerLabels(c.Cregs, c.NumClbits)
}

func registerLabels(regs []Register, n int) []string {
	labels := make([]string, n)
	sorted := make([]Register, len(regs))
	copy(sorted, regs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for _, r := range sorted {
		for i := 0; i < r.Size && r.Offset+i < n; i++ {
			labels[r.Offset+i] = r.Name + "[" + strconv.Itoa(i) + "]"
		}
	}
	for i, l := range labels {
		if l == "" {
			labels[i] = "q[" + strconv.Itoa(i) + "]"
		}
	}
	return labels
}
