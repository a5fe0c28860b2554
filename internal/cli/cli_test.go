package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/qasmrun/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"bell.qasm"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, []string{"bell.qasm"}, cfg.Files)
	require.Equal(t, config.DefaultShots, cfg.Shots)
	require.Empty(t, cfg.Backend)
	require.False(t, cfg.JSON)
	require.Equal(t, config.DefaultPath, cfg.ConfigPath)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"--shots", "4096",
		"--backend", "ibm_kyiv",
		"--json",
		"--visualize",
		"--save-json",
		"--config", "custom.json",
		"--log-level", "debug",
		"--log-format", "json",
		"a.qasm", "b.qasm",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, 4096, cfg.Shots)
	require.Equal(t, "ibm_kyiv", cfg.Backend)
	require.True(t, cfg.JSON)
	require.True(t, cfg.Visualize)
	require.True(t, cfg.SaveJSON)
	require.Equal(t, "custom.json", cfg.ConfigPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, []string{"a.qasm", "b.qasm"}, cfg.Files)
}

func TestParse_ModeFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, _, err := Parse([]string{"--test"}, out)
	require.NoError(t, err)
	require.True(t, cfg.Test)

	cfg, _, err = Parse([]string{"--list-backends"}, out)
	require.NoError(t, err)
	require.True(t, cfg.ListBackends)

	cfg, _, err = Parse([]string{"--manifest", "runs.hcl"}, out)
	require.NoError(t, err)
	require.Equal(t, "runs.hcl", cfg.ManifestPath)
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "bad log format",
			args:    []string{"--log-format", "xml", "a.qasm"},
			wantMsg: "invalid log-format",
		},
		{
			name:    "bad log level",
			args:    []string{"--log-level", "loud", "a.qasm"},
			wantMsg: "invalid log-level",
		},
		{
			name:    "zero shots",
			args:    []string{"--shots", "0", "a.qasm"},
			wantMsg: "shots must be between",
		},
		{
			name:    "interactive conflict",
			args:    []string{"--interactive", "--non-interactive", "a.qasm"},
			wantMsg: "mutually exclusive",
		},
		{
			name:    "manifest with files",
			args:    []string{"--manifest", "runs.hcl", "a.qasm"},
			wantMsg: "cannot be combined",
		},
		{
			name:    "unknown flag",
			args:    []string{"--frobnicate"},
			wantMsg: "flag provided but not defined",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			require.Error(t, err)

			exitErr, ok := err.(*ExitError)
			require.True(t, ok, "expected an ExitError")
			require.Equal(t, 2, exitErr.Code)
			require.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
