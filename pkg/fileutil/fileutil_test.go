package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	require.NoError(t, WriteFileAtomic(path, []byte("port: 7891\n"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "port: 7891\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	// Overwrite leaves no temp files around.
	require.NoError(t, WriteFileAtomic(path, []byte("port: 7890\n"), 0644))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihomo.service")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	removed, err := RemoveIfExists(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = RemoveIfExists(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := Expand("~/.local/bin/mihomo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/bin/mihomo"), got)

	got, err = Expand("/usr/local/bin/mihomo")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/mihomo", got)
}
