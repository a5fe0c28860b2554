package ibm

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/circuit"
	"github.com/vk/qasmrun/internal/ctxlog"
)

// ProviderName is the provider key for IBM Quantum backends.
const ProviderName = "ibm"

// Backend adapts one platform device to the backend interface.
type Backend struct {
	client *Client
	device Device
	tags   []string
}

// Info implements backend.Backend.
func (b *Backend) Info() backend.Info {
	return backend.Info{
		Name:      b.device.Name,
		NumQubits: b.device.NumQubits,
		Simulator: b.device.Simulator,
	}
}

// Status implements backend.Backend. The device snapshot from discovery is
// refreshed so queue lengths are current at selection time.
func (b *Backend) Status(ctx context.Context) (backend.Status, error) {
	devices, err := b.client.Backends(ctx)
	if err != nil {
		return backend.Status{}, err
	}
	for _, d := range devices {
		if d.Name == b.device.Name {
			b.device = d
			return backend.Status{Operational: d.Operational, PendingJobs: d.PendingJobs}, nil
		}
	}
	return backend.Status{}, fmt.Errorf("backend %q no longer listed by the platform", b.device.Name)
}

// Run submits the circuit's QASM source as a sampler job and blocks until
// the job finishes. Transpilation happens on the platform.
func (b *Backend) Run(ctx context.Context, circ *circuit.Circuit, shots int) (*backend.Execution, error) {
	logger := ctxlog.FromContext(ctx)
	if circ.Source == "" {
		return nil, fmt.Errorf("circuit has no QASM source to submit")
	}

	started := time.Now()
	jobID, err := b.client.SubmitJob(ctx, b.device.Name, circ.Source, shots, b.tags)
	if err != nil {
		return nil, fmt.Errorf("job submission failed: %w", err)
	}
	logger.Info("🚀 Job submitted.", "job_id", jobID, "backend", b.device.Name, "shots", shots)

	job, err := b.client.WaitForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobCompleted {
		if job.Reason != "" {
			return nil, fmt.Errorf("job %s finished with status %s: %s", jobID, job.Status, job.Reason)
		}
		return nil, fmt.Errorf("job %s finished with status %s", jobID, job.Status)
	}

	results, err := b.client.JobResults(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results for job %s: %w", jobID, err)
	}

	return &backend.Execution{
		JobID:  jobID,
		Counts: results.Counts,
		// The platform transpiles server-side and does not report the
		// transpiled shape, so the submitted circuit's shape stands in.
		TranspiledQubits: circ.NumQubits,
		TranspiledDepth:  circ.Depth(),
		Started:          started,
		Completed:        time.Now(),
	}, nil
}

// Provider lists IBM Quantum devices as backends.
type Provider struct {
	client *Client
	tags   []string
}

// NewProvider wraps an authenticated client. Tags, when set, are attached
// to every submitted job (populated from the run manifest's options block).
func NewProvider(client *Client, tags []string) *Provider {
	return &Provider{client: client, tags: tags}
}

// Name implements backend.Provider.
func (p *Provider) Name() string { return ProviderName }

// Backends implements backend.Provider.
func (p *Provider) Backends(ctx context.Context) ([]backend.Backend, error) {
	devices, err := p.client.Backends(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Backend, 0, len(devices))
	for _, d := range devices {
		out = append(out, &Backend{client: p.client, device: d, tags: p.tags})
	}
	return out, nil
}

// Backend implements backend.Provider.
func (p *Provider) Backend(ctx context.Context, name string) (backend.Backend, error) {
	devices, err := p.client.Backends(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name {
			return &Backend{client: p.client, device: d, tags: p.tags}, nil
		}
	}
	return nil, fmt.Errorf("backend %q not found on IBM Quantum", name)
}
