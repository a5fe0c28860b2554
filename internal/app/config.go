package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Files        []string // .qasm files or directories
	ManifestPath string   // hcl run manifest, exclusive with Files

	Shots          int
	Backend        string
	Interactive    bool
	NonInteractive bool
	JSON           bool
	Visualize      bool
	SaveJSON       bool
	Test           bool
	ListBackends   bool

	ConfigPath string
	LogFormat  string
	LogLevel   string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Interactive && cfg.NonInteractive {
		return nil, errors.New("Interactive and NonInteractive cannot both be set")
	}

	// Future validations for other fields can be added here.

	return &cfg, nil
}
