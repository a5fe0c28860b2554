package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/circuit"
	"github.com/vk/qasmrun/internal/ctxlog"
)

// BackendName is the catalog name of the local simulator.
const BackendName = "local_statevector"

// ProviderName is the provider key for the local simulator.
const ProviderName = "local"

// Backend is the in-process statevector simulator.
type Backend struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a simulator backend seeded from the wall clock.
func New() *Backend {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a simulator backend with a caller-supplied RNG
// source, which makes shot sampling reproducible in tests.
func NewWithSource(src rand.Source) *Backend {
	return &Backend{rng: rand.New(src)}
}

// Info implements backend.Backend.
func (b *Backend) Info() backend.Info {
	return backend.Info{Name: BackendName, NumQubits: MaxQubits, Simulator: true}
}

// Status implements backend.Backend. The local simulator has no queue.
func (b *Backend) Status(ctx context.Context) (backend.Status, error) {
	return backend.Status{Operational: true, PendingJobs: 0}, nil
}

// Run executes the circuit and samples measurement counts. Circuits without
// measurements yield empty counts; the caller decides how to present that.
func (b *Backend) Run(ctx context.Context, circ *circuit.Circuit, shots int) (*backend.Execution, error) {
	logger := ctxlog.FromContext(ctx)
	if circ.NumQubits > MaxQubits {
		return nil, fmt.Errorf("circuit needs %d qubits, simulator supports at most %d", circ.NumQubits, MaxQubits)
	}
	if shots < 1 {
		return nil, fmt.Errorf("shots must be at least 1, got %d", shots)
	}

	started := time.Now()
	state := NewStateVector(circ.NumQubits)
	for _, g := range circ.Gates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := state.ApplyGate(g); err != nil {
			return nil, err
		}
	}

	counts := map[string]int{}
	measures := circ.MeasureMap()
	if len(measures) > 0 {
		b.mu.Lock()
		counts = state.Sample(b.rng, shots, measures, circ.NumClbits)
		b.mu.Unlock()
	} else {
		logger.Warn("Circuit has no measurements, no counts to sample.")
	}

	exec := &backend.Execution{
		JobID:            "local-" + uuid.NewString(),
		Counts:           counts,
		TranspiledQubits: circ.NumQubits,
		TranspiledDepth:  circ.Depth(),
		Started:          started,
		Completed:        time.Now(),
	}
	logger.Debug("Simulation finished.", "job_id", exec.JobID, "duration", exec.Duration(), "outcomes", len(counts))
	return exec, nil
}

// Provider exposes the single local backend through the provider interface.
type Provider struct {
	backend *Backend
}

// NewProvider wraps a simulator backend as a provider.
func NewProvider(b *Backend) *Provider {
	return &Provider{backend: b}
}

// Name implements backend.Provider.
func (p *Provider) Name() string { return ProviderName }

// Backends implements backend.Provider.
func (p *Provider) Backends(ctx context.Context) ([]backend.Backend, error) {
	return []backend.Backend{p.backend}, nil
}

// Backend implements backend.Provider. The names "local" and
// "local_statevector" both resolve to the simulator.
func (p *Provider) Backend(ctx context.Context, name string) (backend.Backend, error) {
	if name == BackendName || name == ProviderName {
		return p.backend, nil
	}
	return nil, fmt.Errorf("unknown local backend %q", name)
}
