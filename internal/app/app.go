package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/vk/qasmrun/internal/backend"
	"github.com/vk/qasmrun/internal/config"
	"github.com/vk/qasmrun/internal/ctxlog"
	"github.com/vk/qasmrun/internal/ibm"
	"github.com/vk/qasmrun/internal/sim"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	inR      io.Reader
	logger   *slog.Logger
	settings *config.Config
	registry *backend.Registry

	// newIBMClient is swapped in tests to point the client at a test server.
	newIBMClient func(apiKey string) *ibm.Client
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and backend
// registry. Results go to outW, logs to logW, prompts read from inR.
func NewApp(outW, logW io.Writer, inR io.Reader, appConfig *Config) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	settings, err := config.Load(appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded.", "path", appConfig.ConfigPath, "qubit_limit", settings.QubitLimit)

	a := &App{
		outW:         outW,
		inR:          inR,
		logger:       logger,
		settings:     settings,
		newIBMClient: func(apiKey string) *ibm.Client { return ibm.NewClient(apiKey) },
	}
	a.registry = a.buildRegistry(ctx, nil)
	return a
}

// buildRegistry assembles the backend providers. The local simulator is
// always available; the IBM provider is wired in only when an API key
// resolves. Manifest runs rebuild the registry so their option tags reach
// the platform.
func (a *App) buildRegistry(ctx context.Context, tags map[string]string) *backend.Registry {
	logger := ctxlog.FromContext(ctx)
	reg := backend.NewRegistry()
	reg.Register(sim.NewProvider(sim.New()))
	logger.Debug("Local simulator provider registered.")

	if key := a.settings.APIKey(); key != "" {
		client := a.newIBMClient(key)
		reg.Register(ibm.NewProvider(client, tagList(tags)))
		logger.Debug("IBM Quantum provider registered.")
	} else {
		logger.Debug("No IBM API key configured, running with local backends only.")
	}
	return reg
}

// Registry returns the application's backend registry. This is primarily
// for testing.
func (a *App) Registry() *backend.Registry {
	return a.registry
}

// tagList flattens manifest option tags into the key=value strings the
// platform expects, sorted for stable submissions.
func tagList(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for k, v := range tags {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
