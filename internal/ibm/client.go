// Package ibm talks to the IBM Quantum Platform runtime API: backend
// discovery, sampler job submission, status polling and result retrieval.
// The tool is a thin client; transpilation and queueing happen on the
// platform side.
package ibm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"resty.dev/v3"

	"github.com/vk/qasmrun/internal/ctxlog"
)

// DefaultBaseURL is the runtime API endpoint.
const DefaultBaseURL = "https://api.quantum-computing.ibm.com/runtime"

// Polling policy for submitted jobs.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultJobTimeout   = 10 * time.Minute
)

// Job states reported by the runtime API.
const (
	JobQueued    = "Queued"
	JobRunning   = "Running"
	JobCompleted = "Completed"
	JobFailed    = "Failed"
	JobCancelled = "Cancelled"
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("IBM Quantum API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("IBM Quantum API error (HTTP %d)", e.StatusCode)
}

// IsAuthError reports whether the error is an authentication failure, so
// callers can suggest checking the API key rather than the network.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Device is one backend as reported by the platform.
type Device struct {
	Name        string `json:"name"`
	NumQubits   int    `json:"n_qubits"`
	Simulator   bool   `json:"simulator"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

// Job is the submission status of a runtime job.
type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j Job) Terminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// JobResults carries the measurement counts of a completed sampler job.
type JobResults struct {
	Counts    map[string]int `json:"counts"`
	Shots     int            `json:"shots"`
	TimeTaken float64        `json:"time_taken"`
}

type jobRequest struct {
	ProgramID string    `json:"program_id"`
	Backend   string    `json:"backend"`
	Params    jobParams `json:"params"`
	Tags      []string  `json:"tags,omitempty"`
}

type jobParams struct {
	QASM  string `json:"qasm"`
	Shots int    `json:"shots"`
}

// Client is a thin resty-based wrapper over the runtime API.
type Client struct {
	http         *resty.Client
	pollInterval time.Duration
	jobTimeout   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(url) }
}

// WithPollInterval overrides the job status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithJobTimeout overrides the overall job wait timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(c *Client) { c.jobTimeout = d }
}

// NewClient creates a client authenticated with the given API token.
func NewClient(token string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:         httpClient,
		pollInterval: DefaultPollInterval,
		jobTimeout:   DefaultJobTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the client's idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// asAPIError converts a response into an error when the request failed.
func asAPIError(res *resty.Response, apiErr *APIError, err error) error {
	if err != nil {
		return fmt.Errorf("cannot reach IBM Quantum: %w", err)
	}
	if res.IsSuccess() {
		return nil
	}
	apiErr.StatusCode = res.StatusCode()
	return apiErr
}

// Backends lists every backend visible to the account.
func (c *Client) Backends(ctx context.Context) ([]Device, error) {
	var list deviceList
	apiErr := &APIError{}
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&list).
		SetError(apiErr).
		Get("/backends")
	if err := asAPIError(res, apiErr, err); err != nil {
		return nil, err
	}
	return list.Devices, nil
}

// OperationalBackends lists backends currently accepting jobs.
func (c *Client) OperationalBackends(ctx context.Context) ([]Device, error) {
	devices, err := c.Backends(ctx)
	if err != nil {
		return nil, err
	}
	out := devices[:0]
	for _, d := range devices {
		if d.Operational {
			out = append(out, d)
		}
	}
	return out, nil
}

// LeastBusy returns the operational hardware backend with the shortest
// queue, falling back to simulators when no hardware is available.
func (c *Client) LeastBusy(ctx context.Context) (Device, error) {
	devices, err := c.OperationalBackends(ctx)
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("no operational backends available")
	}
	sort.SliceStable(devices, func(i, j int) bool {
		// Hardware before simulators, then shortest queue first.
		if devices[i].Simulator != devices[j].Simulator {
			return !devices[i].Simulator
		}
		return devices[i].PendingJobs < devices[j].PendingJobs
	})
	return devices[0], nil
}

// SubmitJob submits a sampler job and returns its ID.
func (c *Client) SubmitJob(ctx context.Context, backendName, qasm string, shots int, tags []string) (string, error) {
	var created Job
	apiErr := &APIError{}
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(jobRequest{
			ProgramID: "sampler",
			Backend:   backendName,
			Params:    jobParams{QASM: qasm, Shots: shots},
			Tags:      tags,
		}).
		SetResult(&created).
		SetError(apiErr).
		Post("/jobs")
	if err := asAPIError(res, apiErr, err); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Job fetches the current status of a job.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var job Job
	apiErr := &APIError{}
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&job).
		SetError(apiErr).
		Get("/jobs/" + id)
	if err := asAPIError(res, apiErr, err); err != nil {
		return Job{}, err
	}
	return job, nil
}

// CancelJob asks the platform to cancel a job. Used on timeout; a failed
// cancellation is reported but the job is abandoned either way.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	apiErr := &APIError{}
	res, err := c.http.R().
		SetContext(ctx).
		SetError(apiErr).
		Post("/jobs/" + id + "/cancel")
	return asAPIError(res, apiErr, err)
}

// JobResults fetches the counts of a completed job.
func (c *Client) JobResults(ctx context.Context, id string) (JobResults, error) {
	var results JobResults
	apiErr := &APIError{}
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&results).
		SetError(apiErr).
		Get("/jobs/" + id + "/results")
	if err := asAPIError(res, apiErr, err); err != nil {
		return JobResults{}, err
	}
	return results, nil
}

// WaitForJob polls the job status until it reaches a terminal state, the
// configured timeout elapses, or ctx is cancelled. On timeout the job is
// cancelled best-effort before the error is returned.
func (c *Client) WaitForJob(ctx context.Context, id string) (Job, error) {
	logger := ctxlog.FromContext(ctx)
	deadline := time.Now().Add(c.jobTimeout)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Terminal() {
			return job, nil
		}
		logger.Info("⏳ Waiting for job completion...", "job_id", id, "status", job.Status)

		if time.Now().After(deadline) {
			logger.Warn("Job timed out, requesting cancellation.", "job_id", id)
			if cancelErr := c.CancelJob(ctx, id); cancelErr != nil {
				logger.Warn("Job cancellation failed.", "job_id", id, "error", cancelErr)
			}
			return job, fmt.Errorf("job %s timed out after %s", id, c.jobTimeout)
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
