// Package report shapes execution outcomes into the tool's two output
// contracts: the human-readable progress stream and the JSON batch schema.
// Stdout carries results only; logs belong to the logger.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Measurement is one observed outcome with its statistics.
type Measurement struct {
	Outcome     string  `json:"outcome"`
	Probability float64 `json:"probability"`
	Percentage  float64 `json:"percentage"`
	Count       int     `json:"count"`
	Note        string  `json:"note,omitempty"`
}

// BackendMeta records the backend a file ran on.
type BackendMeta struct {
	Name        string `json:"name"`
	Qubits      int    `json:"qubits"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
	Simulator   bool   `json:"simulator"`
}

// CircuitMeta records the circuit shape before and after transpilation.
type CircuitMeta struct {
	OriginalQubits   int `json:"original_qubits"`
	OriginalClbits   int `json:"original_clbits"`
	TranspiledQubits int `json:"transpiled_qubits"`
	TranspiledDepth  int `json:"transpiled_depth"`
}

// ExecutionMeta records timing and shot count.
type ExecutionMeta struct {
	Shots           int     `json:"shots"`
	StartTime       string  `json:"start_time"`
	CompletionTime  string  `json:"completion_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Metadata is the per-file execution record.
type Metadata struct {
	JobID     string        `json:"job_id"`
	Backend   BackendMeta   `json:"backend"`
	Circuit   CircuitMeta   `json:"circuit"`
	Execution ExecutionMeta `json:"execution"`
}

// Visualization points at generated artifacts.
type Visualization struct {
	CircuitDiagram string `json:"circuit_diagram"`
}

// FileResult is the outcome for one QASM file.
type FileResult struct {
	File          string         `json:"file"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Results       []Measurement  `json:"results,omitempty"`
	Metadata      *Metadata      `json:"metadata,omitempty"`
	Visualization *Visualization `json:"visualization,omitempty"`
}

// Summary totals a batch.
type Summary struct {
	TotalFiles      int    `json:"total_files"`
	SuccessfulFiles int    `json:"successful_files"`
	FailedFiles     int    `json:"failed_files"`
	Timestamp       string `json:"timestamp"`
}

// Batch is the top-level JSON output schema.
type Batch struct {
	Summary Summary      `json:"summary"`
	Results []FileResult `json:"results"`
}

// NewBatch totals the given results under the provided timestamp.
func NewBatch(results []FileResult, now time.Time) *Batch {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	return &Batch{
		Summary: Summary{
			TotalFiles:      len(results),
			SuccessfulFiles: succeeded,
			FailedFiles:     len(results) - succeeded,
			Timestamp:       now.Format(time.RFC3339),
		},
		Results: results,
	}
}

// AllSucceeded reports whether every file in the batch executed.
func (b *Batch) AllSucceeded() bool {
	return b.Summary.FailedFiles == 0 && b.Summary.TotalFiles > 0
}

// MeasurementsFromCounts converts raw counts into the measurement records,
// sorted by count descending with ties broken by outcome for stable output.
func MeasurementsFromCounts(counts map[string]int, shots int) []Measurement {
	out := make([]Measurement, 0, len(counts))
	for outcome, count := range counts {
		p := float64(count) / float64(shots)
		out = append(out, Measurement{
			Outcome:     outcome,
			Probability: p,
			Percentage:  p * 100,
			Count:       count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}

// Placeholder marks a run that produced no measurement data, which happens
// for circuits without measure statements.
func Placeholder() []Measurement {
	return []Measurement{{
		Outcome: "N/A",
		Note:    "Circuit executed successfully but no measurement results available",
	}}
}

// Writer renders progress and results. In JSON mode all prose is
// suppressed so stdout stays machine-readable.
type Writer struct {
	out  io.Writer
	json bool
}

// NewWriter creates a result writer. jsonMode silences everything except
// the final batch document.
func NewWriter(out io.Writer, jsonMode bool) *Writer {
	return &Writer{out: out, json: jsonMode}
}

// JSONMode reports whether the writer is in JSON output mode.
func (w *Writer) JSONMode() bool { return w.json }

// Progressf prints a progress line in text mode.
func (w *Writer) Progressf(format string, args ...any) {
	if w.json {
		return
	}
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Rule prints a separator line in text mode.
func (w *Writer) Rule(ch string, n int) {
	if w.json {
		return
	}
	fmt.Fprintln(w.out, strings.Repeat(ch, n))
}

// PrintMeasurements renders the outcome table in ket notation.
func (w *Writer) PrintMeasurements(results []Measurement) {
	if w.json {
		return
	}
	fmt.Fprintln(w.out, "📊 Results:")
	if len(results) == 0 {
		fmt.Fprintln(w.out, "   No measurement results found")
		return
	}
	fmt.Fprintln(w.out, "   Measurement outcomes:")
	for _, m := range results {
		if m.Note != "" {
			fmt.Fprintf(w.out, "     %s (%s)\n", m.Outcome, m.Note)
			continue
		}
		fmt.Fprintf(w.out, "     |%s⟩: %d counts (%.4f = %.2f%%)\n",
			m.Outcome, m.Count, m.Probability, m.Percentage)
	}
}

// PrintBatch renders the final batch: the JSON document in JSON mode, the
// SUMMARY banner otherwise.
func (w *Writer) PrintBatch(b *Batch) error {
	if w.json {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	fmt.Fprintln(w.out)
	w.Rule("=", 60)
	fmt.Fprintln(w.out, "SUMMARY")
	w.Rule("=", 60)
	fmt.Fprintf(w.out, "✅ Successfully executed: %d/%d files\n",
		b.Summary.SuccessfulFiles, b.Summary.TotalFiles)
	if b.AllSucceeded() {
		fmt.Fprintln(w.out, "🎉 All circuits executed successfully!")
	} else {
		fmt.Fprintln(w.out, "⚠️  Some circuits failed to execute")
	}
	return nil
}

// SaveFileResult writes one file's result next to the working directory as
// <stem>_results_<timestamp>.json and returns the path written.
func SaveFileResult(result FileResult, qasmPath string, now time.Time) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(qasmPath), filepath.Ext(qasmPath))
	path := fmt.Sprintf("%s_results_%s.json", stem, now.Format("20060102_150405"))

	doc := struct {
		Summary struct {
			File      string `json:"file"`
			Timestamp string `json:"timestamp"`
			Success   bool   `json:"success"`
		} `json:"summary"`
		Result FileResult `json:"result"`
	}{Result: result}
	doc.Summary.File = result.File
	doc.Summary.Timestamp = now.Format(time.RFC3339)
	doc.Summary.Success = result.Success

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return path, nil
}
