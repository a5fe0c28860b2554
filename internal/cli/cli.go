package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/qasmrun/internal/app"
	"github.com/vk/qasmrun/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("qasmrun", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
qasmrun - Run OpenQASM 2.0 circuits on local or IBM Quantum backends.

Usage:
  qasmrun [options] [QASM_FILE ...]

Arguments:
  QASM_FILE
    One or more .qasm files, or directories to scan for .qasm files.
    With no files, an interactive setup starts unless --non-interactive
    is set.

Options:
`)
		flagSet.PrintDefaults()
	}

	shotsFlag := flagSet.Int("shots", config.DefaultShots, "Number of shots per circuit.")
	backendFlag := flagSet.String("backend", "", "Backend to run on. Empty selects automatically.")
	interactiveFlag := flagSet.Bool("interactive", false, "Force the interactive backend picker even when files are given.")
	nonInteractiveFlag := flagSet.Bool("non-interactive", false, "Never prompt; fail instead of asking.")
	jsonFlag := flagSet.Bool("json", false, "Emit the batch result as JSON on stdout.")
	visualizeFlag := flagSet.Bool("visualize", false, "Render a PNG circuit diagram next to each file.")
	saveJSONFlag := flagSet.Bool("save-json", false, "Save each file's result to <name>_results_<timestamp>.json.")
	testFlag := flagSet.Bool("test", false, "Test IBM Quantum API connectivity and exit.")
	listBackendsFlag := flagSet.Bool("list-backends", false, "List available backends and exit.")
	manifestFlag := flagSet.String("manifest", "", "Path to an HCL run manifest.")
	configFlag := flagSet.String("config", config.DefaultPath, "Path to the JSON configuration file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if err := config.ValidateShots(*shotsFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if *interactiveFlag && *nonInteractiveFlag {
		return nil, false, &ExitError{Code: 2, Message: "--interactive and --non-interactive are mutually exclusive"}
	}
	if *manifestFlag != "" && flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: "--manifest cannot be combined with file arguments"}
	}
	slog.Debug("CLI parameter validation complete.")

	appConfig, err := app.NewConfig(app.Config{
		Files:          flagSet.Args(),
		Shots:          *shotsFlag,
		Backend:        *backendFlag,
		Interactive:    *interactiveFlag,
		NonInteractive: *nonInteractiveFlag,
		JSON:           *jsonFlag,
		Visualize:      *visualizeFlag,
		SaveJSON:       *saveJSONFlag,
		Test:           *testFlag,
		ListBackends:   *listBackendsFlag,
		ManifestPath:   *manifestFlag,
		ConfigPath:     *configFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", appConfig)
	return appConfig, false, nil
}
