package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/config"
	"github.com/vk/qasmrun/internal/ctxlog"
	"github.com/vk/qasmrun/internal/fsutil"
	"github.com/vk/qasmrun/internal/ibm"
	"github.com/vk/qasmrun/internal/manifest"
	"github.com/vk/qasmrun/internal/prompt"
	"github.com/vk/qasmrun/internal/report"
	"github.com/vk/qasmrun/internal/runner"
)

// ErrBatchFailed signals that at least one file in a batch did not execute.
var ErrBatchFailed = errors.New("some circuits failed to execute")

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	switch {
	case appConfig.Test:
		return a.runSelfTest(ctx)
	case appConfig.ListBackends:
		return a.listBackends(ctx)
	case appConfig.ManifestPath != "":
		return a.runManifest(ctx, appConfig)
	default:
		return a.runBatch(ctx, appConfig)
	}
}

// runSelfTest exercises the IBM Quantum API end to end and reports each step.
func (a *App) runSelfTest(ctx context.Context) error {
	return ibm.SelfTest(ctx, a.outW, a.settings.APIKey(), a.newIBMClient)
}

// listBackends prints every known backend grouped by kind, with live status.
func (a *App) listBackends(ctx context.Context) error {
	backends, err := a.registry.Backends(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backends: %w", err)
	}

	var simulators, hardware []backend.Backend
	for _, b := range backends {
		if b.Info().Simulator {
			simulators = append(simulators, b)
		} else {
			hardware = append(hardware, b)
		}
	}

	printGroup := func(title string, group []backend.Backend) {
		fmt.Fprintf(a.outW, "\n%s:\n", title)
		if len(group) == 0 {
			fmt.Fprintln(a.outW, "  (none)")
			return
		}
		for _, b := range group {
			info := b.Info()
			icon := "🔴"
			pending := "status unknown"
			if status, err := b.Status(ctx); err == nil {
				if status.Operational {
					icon = "🟢"
				}
				pending = fmt.Sprintf("%d pending jobs", status.PendingJobs)
			}
			fmt.Fprintf(a.outW, "  %s %s (%d qubits, %s)\n", icon, info.Name, info.NumQubits, pending)
		}
	}

	printGroup("SIMULATORS", simulators)
	printGroup("REAL QUANTUM DEVICES", hardware)
	return nil
}

// runManifest executes every run block in the manifest, in document order.
func (a *App) runManifest(ctx context.Context, appConfig *Config) error {
	m, err := manifest.Load(appConfig.ManifestPath)
	if err != nil {
		return err
	}
	a.logger.Info("📋 Manifest loaded.", "path", appConfig.ManifestPath, "runs", len(m.Runs))

	failed := false
	for _, run := range m.Runs {
		a.logger.Info("🚀 Starting manifest run.", "run", run.Name)

		reg := a.registry
		if len(run.Tags) > 0 {
			reg = a.buildRegistry(ctx, run.Tags)
		}

		shots := appConfig.Shots
		if run.Shots != nil {
			shots = *run.Shots
		}
		if err := config.ValidateShots(shots); err != nil {
			return fmt.Errorf("run %q: %w", run.Name, err)
		}

		backendName := appConfig.Backend
		if run.Backend != nil {
			backendName = *run.Backend
		}
		be, err := a.selectBackend(ctx, reg, backendName, nil)
		if err != nil {
			return fmt.Errorf("run %q: %w", run.Name, err)
		}

		files, err := fsutil.ExpandPaths(run.Files, ".qasm")
		if err != nil {
			return fmt.Errorf("run %q: %w", run.Name, err)
		}

		out := report.NewWriter(a.outW, run.JSONOutput() || appConfig.JSON)
		opts := runner.Options{
			Shots:      shots,
			QubitLimit: a.settings.QubitLimit,
			Visualize:  appConfig.Visualize || (run.Visualize != nil && *run.Visualize),
			SaveJSON:   appConfig.SaveJSON || (run.SaveJSON != nil && *run.SaveJSON),
		}
		batch, err := runner.New(be, out, opts).RunBatch(ctx, files)
		if err != nil {
			return fmt.Errorf("run %q: %w", run.Name, err)
		}
		if !batch.AllSucceeded() {
			failed = true
		}
		a.logger.Info("🏁 Manifest run finished.", "run", run.Name,
			"succeeded", batch.Summary.SuccessfulFiles, "failed", batch.Summary.FailedFiles)
	}

	if failed {
		return ErrBatchFailed
	}
	return nil
}

// runBatch handles the direct CLI path, including the interactive setup
// when no files were given.
func (a *App) runBatch(ctx context.Context, appConfig *Config) error {
	paths := appConfig.Files
	shots := appConfig.Shots
	jsonOut := appConfig.JSON
	visualize := appConfig.Visualize
	saveJSON := appConfig.SaveJSON
	interactive := appConfig.Interactive

	pr := prompt.New(a.inR, a.outW)

	if len(paths) == 0 {
		if appConfig.NonInteractive {
			return errors.New("no QASM files given and prompting is disabled")
		}
		// Full interactive setup.
		var err error
		if paths, err = pr.Files(); err != nil {
			return err
		}
		if shots, err = pr.Shots(shots); err != nil {
			return err
		}
		if jsonOut, err = pr.OutputFormat(); err != nil {
			return err
		}
		if visualize, err = pr.YesNo("Render circuit diagrams?", false); err != nil {
			return err
		}
		if saveJSON, err = pr.YesNo("Save results to JSON files?", false); err != nil {
			return err
		}
		interactive = true
	}

	files, err := fsutil.ExpandPaths(paths, ".qasm")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no .qasm files found in the given paths")
	}

	var picker *prompt.Prompter
	if interactive && !appConfig.NonInteractive {
		picker = pr
	}
	be, err := a.selectBackend(ctx, a.registry, appConfig.Backend, picker)
	if err != nil {
		return err
	}

	out := report.NewWriter(a.outW, jsonOut)
	opts := runner.Options{
		Shots:      shots,
		QubitLimit: a.settings.QubitLimit,
		Visualize:  visualize,
		SaveJSON:   saveJSON,
	}
	batch, err := runner.New(be, out, opts).RunBatch(ctx, files)
	if err != nil {
		return err
	}
	if !batch.AllSucceeded() {
		return ErrBatchFailed
	}
	return nil
}

// selectBackend resolves a backend in precedence order: explicit name,
// interactive picker (when a prompter is given), first operational.
func (a *App) selectBackend(ctx context.Context, reg *backend.Registry, name string, picker *prompt.Prompter) (backend.Backend, error) {
	if name != "" {
		return reg.Lookup(ctx, name)
	}
	if picker != nil {
		backends, err := reg.Backends(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list backends: %w", err)
		}
		return picker.Backend(backends)
	}
	return reg.FirstOperational(ctx)
}
