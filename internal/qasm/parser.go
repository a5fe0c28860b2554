package qasm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/qasmrun/internal/circuit"
)

// gateSpec describes the arity of a supported gate.
type gateSpec struct {
	qubits int
	params int
}

// gateTable is the supported OpenQASM 2.0 subset: the common qelib1 names
// plus the builtin U/CX spellings. Constructs outside the subset (gate
// definitions, opaque declarations, classical conditionals) are rejected
// with a positioned error instead of being silently mis-executed.
var gateTable = map[string]gateSpec{
	"id":   {1, 0},
	"h":    {1, 0},
	"x":    {1, 0},
	"y":    {1, 0},
	"z":    {1, 0},
	"s":    {1, 0},
	"sdg":  {1, 0},
	"t":    {1, 0},
	"tdg":  {1, 0},
	"sx":   {1, 0},
	"rx":   {1, 1},
	"ry":   {1, 1},
	"rz":   {1, 1},
	"p":    {1, 1},
	"u1":   {1, 1},
	"u2":   {1, 2},
	"u3":   {1, 3},
	"u":    {1, 3},
	"cx":   {2, 0},
	"cz":   {2, 0},
	"cy":   {2, 0},
	"ch":   {2, 0},
	"swap": {2, 0},
	"crz":  {2, 1},
	"cp":   {2, 1},
	"cu1":  {2, 1},
	"ccx":  {3, 0},
}

// canonicalName maps accepted aliases onto the name the rest of the system
// (simulator, diagram) works with.
var canonicalName = map[string]string{
	"id":  "id",
	"u":   "u3",
	"u1":  "p",
	"cu1": "cp",
	"CX":  "cx",
	"U":   "u3",
}

// ParseError reports a syntax or semantic error with its source line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func errorf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// statement is one semicolon-terminated unit with the line it started on.
type statement struct {
	text string
	line int
}

var (
	regDeclRe = regexp.MustCompile(`^(qreg|creg)\s+([A-Za-z_]\w*)\s*\[\s*(\d+)\s*\]$`)
	operandRe = regexp.MustCompile(`^([A-Za-z_]\w*)(?:\s*\[\s*(\d+)\s*\])?$`)
	gateRe    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s+(.+)$`)
	measureRe = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
)

// Parse builds a circuit from OpenQASM 2.0 source. Only the subset in
// gateTable is accepted; the error identifies the offending line.
func Parse(src string) (*circuit.Circuit, error) {
	stmts, err := split(src)
	if err != nil {
		return nil, err
	}

	p := &parser{
		circ:  &circuit.Circuit{Source: src},
		qregs: map[string]circuit.Register{},
		cregs: map[string]circuit.Register{},
	}

	sawVersion := false
	for i, st := range stmts {
		if i == 0 && strings.HasPrefix(st.text, "OPENQASM") {
			if err := p.version(st); err != nil {
				return nil, err
			}
			sawVersion = true
			continue
		}
		if strings.HasPrefix(st.text, "OPENQASM") {
			return nil, errorf(st.line, "OPENQASM directive must be the first statement")
		}
		if err := p.statement(st); err != nil {
			return nil, err
		}
	}
	if !sawVersion && len(stmts) == 0 {
		return nil, errorf(1, "empty program")
	}
	return p.circ, nil
}

// split strips comments and cuts the source into semicolon-terminated
// statements, preserving starting line numbers. Curly braces mean a gate or
// opaque body, which the subset does not allow.
func split(src string) ([]statement, error) {
	stripped := blockCommentRe.ReplaceAllStringFunc(src, func(m string) string {
		// Preserve line count so later errors still point at the right line.
		return strings.Repeat("\n", strings.Count(m, "\n"))
	})
	stripped = lineCommentRe.ReplaceAllString(stripped, "")

	var stmts []statement
	line := 1
	start := 1
	// Tracks whether buf holds any non-space rune yet; buf itself collects
	// spaces for newlines, so its length cannot tell us where a statement
	// really begins.
	open := false
	var buf strings.Builder
	for _, r := range stripped {
		switch r {
		case '\n':
			line++
			buf.WriteRune(' ')
		case ';':
			text := strings.TrimSpace(buf.String())
			if text != "" {
				stmts = append(stmts, statement{text: text, line: start})
			}
			buf.Reset()
			open = false
		case '{', '}':
			return nil, errorf(line, "gate and opaque definitions are not supported")
		default:
			if !open && !isSpace(r) {
				open = true
				start = line
			}
			buf.WriteRune(r)
		}
	}
	if text := strings.TrimSpace(buf.String()); text != "" {
		return nil, errorf(start, "statement missing terminating semicolon: %q", text)
	}
	return stmts, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}

type parser struct {
	circ  *circuit.Circuit
	qregs map[string]circuit.Register
	cregs map[string]circuit.Register
}

func (p *parser) version(st statement) error {
	rest := strings.TrimSpace(strings.TrimPrefix(st.text, "OPENQASM"))
	if !strings.HasPrefix(rest, "2.") {
		return errorf(st.line, "unsupported OpenQASM version %q, only 2.0 is supported", rest)
	}
	return nil
}

func (p *parser) statement(st statement) error {
	switch {
	case strings.HasPrefix(st.text, "include"):
		// qelib1.inc definitions are built in; all includes are ignored.
		return nil
	case strings.HasPrefix(st.text, "qreg"), strings.HasPrefix(st.text, "creg"):
		return p.register(st)
	case strings.HasPrefix(st.text, "measure"):
		return p.measure(st)
	case strings.HasPrefix(st.text, "barrier"):
		return p.barrier(st)
	case strings.HasPrefix(st.text, "reset"):
		return p.reset(st)
	case strings.HasPrefix(st.text, "if"):
		return errorf(st.line, "classical conditionals (if) are not supported")
	case strings.HasPrefix(st.text, "opaque"), strings.HasPrefix(st.text, "gate"):
		return errorf(st.line, "gate and opaque definitions are not supported")
	default:
		return p.gate(st)
	}
}

func (p *parser) register(st statement) error {
	m := regDeclRe.FindStringSubmatch(st.text)
	if m == nil {
		return errorf(st.line, "malformed register declaration: %q", st.text)
	}
	size, err := strconv.Atoi(m[3])
	if err != nil || size <= 0 {
		return errorf(st.line, "register %s must have a positive size", m[2])
	}
	name := m[2]
	if _, dup := p.qregs[name]; dup {
		return errorf(st.line, "register %s already declared", name)
	}
	if _, dup := p.cregs[name]; dup {
		return errorf(st.line, "register %s already declared", name)
	}
	if m[1] == "qreg" {
		reg := circuit.Register{Name: name, Size: size, Offset: p.circ.NumQubits}
		p.qregs[name] = reg
		p.circ.Qregs = append(p.circ.Qregs, reg)
		p.circ.NumQubits += size
	} else {
		reg := circuit.Register{Name: name, Size: size, Offset: p.circ.NumClbits}
		p.cregs[name] = reg
		p.circ.Cregs = append(p.circ.Cregs, reg)
		p.circ.NumClbits += size
	}
	return nil
}

// operand is a register reference, either a single bit or a whole register.
type operand struct {
	reg   circuit.Register
	index int // -1 for a whole register
}

func (p *parser) operand(text string, line int, classical bool) (operand, error) {
	m := operandRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return operand{}, errorf(line, "malformed operand: %q", text)
	}
	regs := p.qregs
	kind := "quantum"
	if classical {
		regs = p.cregs
		kind = "classical"
	}
	reg, ok := regs[m[1]]
	if !ok {
		return operand{}, errorf(line, "unknown %s register %q", kind, m[1])
	}
	if m[2] == "" {
		return operand{reg: reg, index: -1}, nil
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil || idx < 0 || idx >= reg.Size {
		return operand{}, errorf(line, "index %s out of range for register %s[%d]", m[2], reg.Name, reg.Size)
	}
	return operand{reg: reg, index: idx}, nil
}

// broadcastLen validates mixed whole-register/indexed operands and returns
// the number of gate instances to emit.
func broadcastLen(ops []operand, line int) (int, error) {
	n := 1
	for _, op := range ops {
		if op.index >= 0 {
			continue
		}
		if n == 1 {
			n = op.reg.Size
		} else if op.reg.Size != n {
			return 0, errorf(line, "register size mismatch in broadcast: %s[%d] vs %d", op.reg.Name, op.reg.Size, n)
		}
	}
	return n, nil
}

func (op operand) bit(i int) int {
	if op.index >= 0 {
		return op.reg.Offset + op.index
	}
	return op.reg.Offset + i
}

func (p *parser) gate(st statement) error {
	m := gateRe.FindStringSubmatch(st.text)
	if m == nil {
		return errorf(st.line, "malformed statement: %q", st.text)
	}
	name := strings.ToLower(m[1])
	if m[1] == "CX" || m[1] == "U" {
		name = canonicalName[m[1]]
	}
	spec, ok := gateTable[name]
	if !ok {
		return errorf(st.line, "unsupported gate %q", m[1])
	}

	var params []float64
	if m[2] != "" || spec.params > 0 {
		var err error
		params, err = parseParams(m[2], st.line)
		if err != nil {
			return err
		}
	}
	if len(params) != spec.params {
		return errorf(st.line, "gate %s expects %d parameter(s), got %d", name, spec.params, len(params))
	}

	args := strings.Split(m[3], ",")
	if len(args) != spec.qubits {
		return errorf(st.line, "gate %s expects %d qubit operand(s), got %d", name, spec.qubits, len(args))
	}
	ops := make([]operand, len(args))
	for i, a := range args {
		op, err := p.operand(a, st.line, false)
		if err != nil {
			return err
		}
		ops[i] = op
	}

	n, err := broadcastLen(ops, st.line)
	if err != nil {
		return err
	}
	if canon, ok := canonicalName[name]; ok {
		name = canon
	}
	for i := 0; i < n; i++ {
		qubits := make([]int, len(ops))
		for j, op := range ops {
			qubits[j] = op.bit(i)
		}
		if err := distinct(qubits, st.line); err != nil {
			return err
		}
		p.circ.AddGate(name, qubits, params)
	}
	return nil
}

func distinct(qubits []int, line int) error {
	for i := 0; i < len(qubits); i++ {
		for j := i + 1; j < len(qubits); j++ {
			if qubits[i] == qubits[j] {
				return errorf(line, "duplicate qubit operand q%d", qubits[i])
			}
		}
	}
	return nil
}

func (p *parser) measure(st statement) error {
	m := measureRe.FindStringSubmatch(st.text)
	if m == nil {
		return errorf(st.line, "malformed measure statement: %q", st.text)
	}
	qop, err := p.operand(m[1], st.line, false)
	if err != nil {
		return err
	}
	cop, err := p.operand(m[2], st.line, true)
	if err != nil {
		return err
	}
	switch {
	case qop.index >= 0 && cop.index >= 0:
		p.circ.AddMeasure(qop.bit(0), cop.bit(0))
	case qop.index < 0 && cop.index < 0:
		if qop.reg.Size != cop.reg.Size {
			return errorf(st.line, "measure register size mismatch: %s[%d] -> %s[%d]",
				qop.reg.Name, qop.reg.Size, cop.reg.Name, cop.reg.Size)
		}
		for i := 0; i < qop.reg.Size; i++ {
			p.circ.AddMeasure(qop.bit(i), cop.bit(i))
		}
	default:
		return errorf(st.line, "measure operands must both be bits or both be registers")
	}
	return nil
}

func (p *parser) barrier(st statement) error {
	rest := strings.TrimSpace(strings.TrimPrefix(st.text, "barrier"))
	if rest == "" {
		return errorf(st.line, "barrier requires at least one operand")
	}
	var qubits []int
	for _, a := range strings.Split(rest, ",") {
		op, err := p.operand(a, st.line, false)
		if err != nil {
			return err
		}
		if op.index >= 0 {
			qubits = append(qubits, op.bit(0))
			continue
		}
		for i := 0; i < op.reg.Size; i++ {
			qubits = append(qubits, op.bit(i))
		}
	}
	p.circ.AddGate("barrier", qubits, nil)
	return nil
}

func (p *parser) reset(st statement) error {
	rest := strings.TrimSpace(strings.TrimPrefix(st.text, "reset"))
	op, err := p.operand(rest, st.line, false)
	if err != nil {
		return err
	}
	if op.index >= 0 {
		p.circ.AddGate("reset", []int{op.bit(0)}, nil)
		return nil
	}
	for i := 0; i < op.reg.Size; i++ {
		p.circ.AddGate("reset", []int{op.bit(i)}, nil)
	}
	return nil
}

func parseParams(list string, line int) ([]float64, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, ok := parseParamExpr(part)
		if !ok {
			return nil, errorf(line, "invalid gate parameter %q", strings.TrimSpace(part))
		}
		out[i] = v
	}
	return out, nil
}

var paramPiRe = regexp.MustCompile(`^(-)?\s*(?:(\d+(?:\.\d+)?)\s*\*?\s*)?pi\s*(?:/\s*(\d+(?:\.\d+)?))?$`)

// parseParamExpr evaluates the small expression language found in gate
// parameters: plain numbers, pi, and the coefficient/divisor forms such as
// "pi/2", "2*pi", "3*pi/4", "-4*pi/3".
func parseParamExpr(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	m := paramPiRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v := math.Pi
	if m[2] != "" {
		coef, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		v *= coef
	}
	if m[3] != "" {
		div, err := strconv.ParseFloat(m[3], 64)
		if err != nil || div == 0 {
			return 0, false
		}
		v /= div
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}
