package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/circuit"
	"github.com/vk/qasmrun/internal/report"
)

const bellQASM = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
h q[0];
cx q[0], q[1];
measure q -> c;
`

const noMeasureQASM = `OPENQASM 2.0;
qreg q[1];
h q[0];
`

// stubBackend returns canned executions and records the circuits it ran.
type stubBackend struct {
	info   backend.Info
	status backend.Status
	runErr error
	ran    []*circuit.Circuit
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		info:   backend.Info{Name: "stub", NumQubits: 10, Simulator: true},
		status: backend.Status{Operational: true},
	}
}

func (s *stubBackend) Info() backend.Info { return s.info }

func (s *stubBackend) Status(ctx context.Context) (backend.Status, error) {
	return s.status, nil
}

func (s *stubBackend) Run(ctx context.Context, circ *circuit.Circuit, shots int) (*backend.Execution, error) {
	if s.runErr != nil {
		return nil, s.runErr
	}
	s.ran = append(s.ran, circ)
	counts := map[string]int{}
	if circ.HasMeasurements() {
		counts["00"] = shots
	}
	now := time.Now()
	return &backend.Execution{
		JobID:            "stub-1",
		Counts:           counts,
		TranspiledQubits: circ.NumQubits,
		TranspiledDepth:  circ.Depth(),
		Started:          now,
		Completed:        now.Add(5 * time.Millisecond),
	}, nil
}

func writeQASM(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func newTestRunner(be backend.Backend, opts Options) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := New(be, report.NewWriter(out, false), opts)
	r.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return r, out
}

func TestRunBatch_Success(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bell := writeQASM(t, dir, "bell.qasm", bellQASM)

	be := newStubBackend()
	r, out := newTestRunner(be, Options{Shots: 100, QubitLimit: 100})

	batch, err := r.RunBatch(context.Background(), []string{bell})
	require.NoError(t, err)
	require.True(t, batch.AllSucceeded())
	require.Len(t, be.ran, 1)

	result := batch.Results[0]
	require.True(t, result.Success)
	require.Equal(t, "stub-1", result.Metadata.JobID)
	require.Equal(t, "00", result.Results[0].Outcome)
	require.Equal(t, 100, result.Results[0].Count)
	require.Equal(t, 2, result.Metadata.Circuit.OriginalQubits)

	require.Contains(t, out.String(), "All circuits executed successfully")
}

func TestRunBatch_FailSoft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	broken := writeQASM(t, dir, "broken.qasm", "OPENQASM 2.0;\nqreg q[1];\nh q[0]\n")
	bell := writeQASM(t, dir, "bell.qasm", bellQASM)

	be := newStubBackend()
	r, _ := newTestRunner(be, Options{Shots: 100, QubitLimit: 100})

	batch, err := r.RunBatch(context.Background(), []string{broken, bell})
	require.NoError(t, err)

	// The broken file fails, the good one still runs.
	require.Equal(t, 1, batch.Summary.FailedFiles)
	require.Equal(t, 1, batch.Summary.SuccessfulFiles)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "failed to parse")
	require.True(t, batch.Results[1].Success)
	require.Len(t, be.ran, 1)
}

func TestRunBatch_WrongExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeQASM(t, dir, "bell.txt", bellQASM)

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100})
	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "not a QASM file")
}

func TestRunBatch_MissingFile(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100})
	batch, err := r.RunBatch(context.Background(), []string{filepath.Join(t.TempDir(), "ghost.qasm")})
	require.NoError(t, err)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "failed to read")
}

func TestRunBatch_QubitLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeQASM(t, dir, "wide.qasm", "OPENQASM 2.0;\nqreg q[5];\nh q;\n")

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 3})
	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "exceeding the configured limit")
}

func TestRunBatch_BackendTooSmall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeQASM(t, dir, "wide.qasm", "OPENQASM 2.0;\nqreg q[5];\nh q;\n")

	be := newStubBackend()
	be.info.NumQubits = 2
	r, _ := newTestRunner(be, Options{Shots: 100, QubitLimit: 100})

	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "backend stub has 2")
}

func TestRunBatch_ExecutionError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeQASM(t, dir, "bell.qasm", bellQASM)

	be := newStubBackend()
	be.runErr = errors.New("queue exploded")
	r, _ := newTestRunner(be, Options{Shots: 100, QubitLimit: 100})

	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.False(t, batch.Results[0].Success)
	require.Contains(t, batch.Results[0].Error, "queue exploded")
}

func TestRunBatch_NoMeasurementsPlaceholder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeQASM(t, dir, "nomeasure.qasm", noMeasureQASM)

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100})
	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)

	result := batch.Results[0]
	require.True(t, result.Success)
	require.Equal(t, "N/A", result.Results[0].Outcome)
}

func TestRunBatch_SaveJSON(t *testing.T) {
	wd, err0 := os.Getwd()
	require.NoError(t, err0)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path := writeQASM(t, ".", "bell.qasm", bellQASM)

	r, out := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100, SaveJSON: true})
	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.True(t, batch.AllSucceeded())

	_, err = os.Stat("bell_results_20250314_092653.json")
	require.NoError(t, err)
	require.Contains(t, out.String(), "Results saved to")
}

func TestRunBatch_Visualize(t *testing.T) {
	wd, err0 := os.Getwd()
	require.NoError(t, err0)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path := writeQASM(t, ".", "bell.qasm", bellQASM)

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100, Visualize: true})
	batch, err := r.RunBatch(context.Background(), []string{path})
	require.NoError(t, err)

	require.NotNil(t, batch.Results[0].Visualization)
	require.Equal(t, "bell_circuit_diagram.png", batch.Results[0].Visualization.CircuitDiagram)
	_, err = os.Stat("bell_circuit_diagram.png")
	require.NoError(t, err)
}

func TestRunBatch_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRunner(newStubBackend(), Options{Shots: 100, QubitLimit: 100})
	_, err := r.RunBatch(ctx, []string{"bell.qasm"})
	require.ErrorIs(t, err, context.Canceled)
}
