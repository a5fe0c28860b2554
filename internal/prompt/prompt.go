// Package prompt implements the interactive setup flow. All reads and
// writes go through injected streams so the flow is testable without a TTY.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/config"
)

// ErrQuit is returned when the user abandons a selection.
var ErrQuit = fmt.Errorf("selection cancelled")

// Prompter runs line-oriented prompts over the given streams.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// New creates a Prompter reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Shots asks for a shot count, re-prompting until a valid value or an empty
// line (which accepts the default).
func (p *Prompter) Shots(def int) (int, error) {
	for {
		fmt.Fprintf(p.out, "Number of shots [%d]: ", def)
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(p.out, "❌ Please enter a whole number.")
			continue
		}
		if err := config.ValidateShots(n); err != nil {
			fmt.Fprintf(p.out, "❌ %v\n", err)
			continue
		}
		return n, nil
	}
}

// Backend presents a numbered list of backends and returns the chosen one.
// Entering 'q' aborts with ErrQuit.
func (p *Prompter) Backend(backends []backend.Backend) (backend.Backend, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("no backends available")
	}
	fmt.Fprintln(p.out, "\nAvailable backends:")
	for i, b := range backends {
		info := b.Info()
		kind := "hardware"
		if info.Simulator {
			kind = "simulator"
		}
		fmt.Fprintf(p.out, "  %d. %s (%d qubits, %s)\n", i+1, info.Name, info.NumQubits, kind)
	}
	for {
		fmt.Fprintf(p.out, "Select backend [1-%d, q to quit]: ", len(backends))
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(line, "q") {
			return nil, ErrQuit
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(backends) {
			fmt.Fprintln(p.out, "❌ Invalid selection.")
			continue
		}
		return backends[n-1], nil
	}
}

// YesNo asks a 1/2 question and returns true for option 1. Empty input
// accepts def.
func (p *Prompter) YesNo(question string, def bool) (bool, error) {
	defLabel := "2"
	if def {
		defLabel = "1"
	}
	for {
		fmt.Fprintf(p.out, "%s\n  1. Yes\n  2. No\nChoice [%s]: ", question, defLabel)
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch line {
		case "":
			return def, nil
		case "1":
			return true, nil
		case "2":
			return false, nil
		}
		fmt.Fprintln(p.out, "❌ Please enter 1 or 2.")
	}
}

// OutputFormat asks whether results should be rendered as text or JSON.
// Returns true for JSON.
func (p *Prompter) OutputFormat() (bool, error) {
	for {
		fmt.Fprint(p.out, "Output format:\n  1. Text\n  2. JSON\nChoice [1]: ")
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch line {
		case "", "1":
			return false, nil
		case "2":
			return true, nil
		}
		fmt.Fprintln(p.out, "❌ Please enter 1 or 2.")
	}
}

// Files asks for one or more QASM paths, space separated. Re-prompts on an
// empty line.
func (p *Prompter) Files() ([]string, error) {
	for {
		fmt.Fprint(p.out, "QASM file(s) or directory to run: ")
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return fields, nil
		}
		fmt.Fprintln(p.out, "❌ Please enter at least one path.")
	}
}
