// Package qasm reads OpenQASM 2.0 source text. It exposes two layers: a
// lightweight declaration scanner used for pre-flight qubit accounting, and a
// subset parser that builds a circuit.Circuit for local execution.
package qasm

import (
	"regexp"
	"strconv"
)

// Pre-compiled regexps for the declaration scanner.
var (
	lineCommentRe  = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	qregRe         = regexp.MustCompile(`(?i)qreg\s+(\w+)\s*\[\s*(\d+)\s*\]\s*;`)
)

// CountQubits sums the sizes of all qreg declarations in src. Comments are
// stripped first so declarations inside them are not counted, and registers
// with a non-positive size are ignored. It never fails: malformed input
// simply contributes no registers, the parser reports the real error later.
func CountQubits(src string) int {
	stripped := lineCommentRe.ReplaceAllString(src, "")
	stripped = blockCommentRe.ReplaceAllString(stripped, "")

	total := 0
	for _, m := range qregRe.FindAllStringSubmatch(stripped, -1) {
		size, err := strconv.Atoi(m[2])
		if err != nil || size <= 0 {
			continue
		}
		total += size
	}
	return total
}
