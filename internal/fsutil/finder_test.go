package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.qasm"))
	touch(t, filepath.Join(dir, "a.qasm"))
	touch(t, filepath.Join(dir, "nested", "c.qasm"))
	touch(t, filepath.Join(dir, "readme.md"))

	files, err := FindFilesByExtension(dir, ".qasm")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.qasm"),
		filepath.Join(dir, "b.qasm"),
		filepath.Join(dir, "nested", "c.qasm"),
	}, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		_, _ = FindFilesByExtension(t.TempDir(), "")
	})
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "circuits", "a.qasm"))
	touch(t, filepath.Join(dir, "circuits", "b.qasm"))
	single := filepath.Join(dir, "single.qasm")
	touch(t, single)

	out, err := ExpandPaths([]string{single, filepath.Join(dir, "circuits")}, ".qasm")
	require.NoError(t, err)
	require.Equal(t, []string{
		single,
		filepath.Join(dir, "circuits", "a.qasm"),
		filepath.Join(dir, "circuits", "b.qasm"),
	}, out)
}

func TestExpandPaths_KeepsMissingFiles(t *testing.T) {
	t.Parallel()

	// Missing paths stay in the list so callers report per-file errors.
	ghost := filepath.Join(t.TempDir(), "ghost.qasm")
	out, err := ExpandPaths([]string{ghost}, ".qasm")
	require.NoError(t, err)
	require.Equal(t, []string{ghost}, out)
}
