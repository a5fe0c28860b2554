// Package runner drives batch execution: for each QASM file it validates,
// parses, optionally renders a diagram, executes on the selected backend,
// and assembles the per-file result. One failing file never aborts the
// batch.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/circuit"
	"github.com/vk/qasmrun/internal/ctxlog"
	"github.com/vk/qasmrun/internal/qasm"
	"github.com/vk/qasmrun/internal/report"
)

// Options control one batch.
type Options struct {
	Shots      int
	QubitLimit int
	Visualize  bool
	SaveJSON   bool
}

// Runner executes batches of QASM files against a single backend.
type Runner struct {
	be   backend.Backend
	out  *report.Writer
	opts Options

	// now is swapped in tests for stable timestamps.
	now func() time.Time
}

// New creates a Runner.
func New(be backend.Backend, out *report.Writer, opts Options) *Runner {
	return &Runner{be: be, out: out, opts: opts, now: time.Now}
}

// RunBatch executes every file in order and returns the assembled batch.
// Individual failures are recorded in the batch, not returned as errors.
func (r *Runner) RunBatch(ctx context.Context, paths []string) (*report.Batch, error) {
	info := r.be.Info()
	r.out.Progressf("🚀 Executing %d file(s) on %s (%d shots each)", len(paths), info.Name, r.opts.Shots)

	results := make([]report.FileResult, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.out.Progressf("")
		r.out.Rule("-", 60)
		r.out.Progressf("[%d/%d] %s", i+1, len(paths), path)
		results = append(results, r.runFile(ctx, path))
	}

	batch := report.NewBatch(results, r.now())
	if err := r.out.PrintBatch(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *Runner) runFile(ctx context.Context, path string) report.FileResult {
	result := report.FileResult{File: path}
	logger := ctxlog.FromContext(ctx)

	fail := func(err error) report.FileResult {
		result.Success = false
		result.Error = err.Error()
		r.out.Progressf("❌ %v", err)
		return result
	}

	if !strings.EqualFold(filepath.Ext(path), ".qasm") {
		return fail(fmt.Errorf("not a QASM file: %s", path))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("failed to read %s: %w", path, err))
	}

	// The lightweight scanner gives a fast preflight count. The parser is
	// authoritative; a mismatch means an unusual source layout and is only
	// worth a warning.
	scanned := qasm.CountQubits(string(src))
	if scanned > r.opts.QubitLimit {
		return fail(fmt.Errorf("circuit requires %d qubits, exceeding the configured limit of %d", scanned, r.opts.QubitLimit))
	}

	circ, err := qasm.Parse(string(src))
	if err != nil {
		return fail(fmt.Errorf("failed to parse %s: %w", path, err))
	}
	if circ.NumQubits != scanned {
		logger.Warn("Scanner and parser disagree on qubit count.",
			"file", path, "scanned", scanned, "parsed", circ.NumQubits)
	}
	if circ.NumQubits > r.opts.QubitLimit {
		return fail(fmt.Errorf("circuit requires %d qubits, exceeding the configured limit of %d", circ.NumQubits, r.opts.QubitLimit))
	}

	info := r.be.Info()
	if circ.NumQubits > info.NumQubits {
		return fail(fmt.Errorf("circuit requires %d qubits but backend %s has %d", circ.NumQubits, info.Name, info.NumQubits))
	}

	if r.opts.Visualize {
		diagram, err := circuit.SaveDiagram(circ, path)
		if err != nil {
			logger.Warn("Failed to render circuit diagram.", "file", path, "error", err)
		} else {
			result.Visualization = &report.Visualization{CircuitDiagram: diagram}
			r.out.Progressf("🎨 Circuit diagram saved to %s", diagram)
		}
	}

	status, err := r.be.Status(ctx)
	if err != nil {
		return fail(fmt.Errorf("backend %s is unavailable: %w", info.Name, err))
	}
	if !status.Operational {
		return fail(fmt.Errorf("backend %s is not operational", info.Name))
	}

	exec, err := r.be.Run(ctx, circ, r.opts.Shots)
	if err != nil {
		return fail(fmt.Errorf("execution failed: %w", err))
	}

	result.Success = true
	if len(exec.Counts) > 0 {
		result.Results = report.MeasurementsFromCounts(exec.Counts, r.opts.Shots)
	} else {
		result.Results = report.Placeholder()
	}
	result.Metadata = &report.Metadata{
		JobID: exec.JobID,
		Backend: report.BackendMeta{
			Name:        info.Name,
			Qubits:      info.NumQubits,
			Operational: status.Operational,
			PendingJobs: status.PendingJobs,
			Simulator:   info.Simulator,
		},
		Circuit: report.CircuitMeta{
			OriginalQubits:   circ.NumQubits,
			OriginalClbits:   circ.NumClbits,
			TranspiledQubits: exec.TranspiledQubits,
			TranspiledDepth:  exec.TranspiledDepth,
		},
		Execution: report.ExecutionMeta{
			Shots:           r.opts.Shots,
			StartTime:       exec.Started.Format(time.RFC3339),
			CompletionTime:  exec.Completed.Format(time.RFC3339),
			DurationSeconds: exec.Duration().Seconds(),
		},
	}

	r.out.Progressf("✅ Completed in %.2fs (job %s)", exec.Duration().Seconds(), exec.JobID)
	r.out.PrintMeasurements(result.Results)

	if r.opts.SaveJSON {
		saved, err := report.SaveFileResult(result, path, r.now())
		if err != nil {
			logger.Warn("Failed to save results file.", "file", path, "error", err)
		} else {
			r.out.Progressf("💾 Results saved to %s", saved)
		}
	}
	return result
}
