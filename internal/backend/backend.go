// Package backend defines the execution surface shared by the local
// simulator and the IBM Quantum Platform: a backend runs a circuit for a
// number of shots and returns measurement counts plus job metadata.
package backend

import (
	"context"
	"time"

	"github.com/vk/qasmrun/internal/circuit"
)

// Info describes a backend's static properties.
type Info struct {
	Name      string
	NumQubits int
	Simulator bool
}

// Status describes a backend's momentary availability.
type Status struct {
	Operational bool
	PendingJobs int
}

// Execution is the outcome of one circuit run.
type Execution struct {
	JobID            string
	Counts           map[string]int
	TranspiledQubits int
	TranspiledDepth  int
	Started          time.Time
	Completed        time.Time
}

// Duration returns the wall-clock execution time.
func (e *Execution) Duration() time.Duration {
	return e.Completed.Sub(e.Started)
}

// Backend executes circuits. Run blocks until the job finishes or ctx is
// done; cancellation and timeouts are the caller's policy.
type Backend interface {
	Info() Info
	Status(ctx context.Context) (Status, error)
	Run(ctx context.Context, circ *circuit.Circuit, shots int) (*Execution, error)
}

// Provider exposes a family of backends, such as "local" or "ibm".
type Provider interface {
	Name() string
	Backends(ctx context.Context) ([]Backend, error)
	Backend(ctx context.Context, name string) (Backend, error)
}
