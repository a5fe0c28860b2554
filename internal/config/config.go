// Package config loads the tool's settings from config.json and the
// environment. The file carries the IBM Quantum API key and the pre-flight
// qubit limit; environment variables override the file so CI and shared
// machines never need a key on disk.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Defaults and bounds shared across the CLI and the interactive prompts.
const (
	DefaultPath       = "config.json"
	DefaultQubitLimit = 100
	DefaultShots      = 1024
	MinShots          = 1
	MaxShots          = 1_000_000
)

// Config is the resolved configuration.
type Config struct {
	IBMAPIKey  string `json:"ibm_api_key" env:"IBM_API_KEY"`
	QubitLimit int    `json:"qubit_limit" validate:"gte=1"`

	// QiskitToken mirrors the qiskit-ibm-runtime convention and, when set,
	// takes precedence over every other key source.
	QiskitToken string `json:"-" env:"QISKIT_IBM_TOKEN"`
}

// APIKey returns the effective IBM Quantum API key, empty when none is
// configured.
func (c *Config) APIKey() string {
	if c.QiskitToken != "" {
		return c.QiskitToken
	}
	return c.IBMAPIKey
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the config file at path and applies environment overrides. A
// missing file is not an error: the defaults work for local simulation, and
// operations that need an API key report its absence themselves. Invalid
// JSON is always an error.
func Load(path string) (*Config, error) {
	cfg := &Config{QubitLimit: DefaultQubitLimit}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fall through to env overrides.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
		if cfg.QubitLimit == 0 {
			cfg.QubitLimit = DefaultQubitLimit
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ValidateShots checks the shot count against the supported range.
func ValidateShots(shots int) error {
	if shots < MinShots || shots > MaxShots {
		return fmt.Errorf("shots must be between %d and %d, got %d", MinShots, MaxShots, shots)
	}
	return nil
}

// ValidateAPIKeyFormat applies the same sanity checks the platform's own
// tooling uses: at least 40 characters, drawn from letters, digits, '_'
// and '-'.
func ValidateAPIKeyFormat(key string) error {
	if key == "" {
		return errors.New("API key is empty")
	}
	if len(key) < 40 {
		return fmt.Errorf("API key seems too short (%d characters, expected 40+)", len(key))
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("API key contains unexpected character %q", r)
		}
	}
	return nil
}
