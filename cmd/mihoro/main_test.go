package main

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/mihoro/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestBootstrapThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".x", "settings.toml")

	err := execute(t, "-m", path, "proxy", "export")
	assert.ErrorIs(t, err, settings.ErrBootstrapped)
	assert.FileExists(t, path)

	// The bootstrapped file has no remote_config_url yet.
	err = execute(t, "-m", path, "proxy", "export")
	var missing *settings.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "remote_config_url", missing.Field)

	s := settings.Default()
	s.RemoteConfigURL = "https://example.com/sub.yaml"
	require.NoError(t, settings.Save(s, path))

	require.NoError(t, execute(t, "-m", path, "proxy", "export"))
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(7891), cfg.Mihomo.Port)
}

func TestCommandsWithoutSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	require.NoError(t, execute(t, "-m", path, "proxy", "unset"))
	require.NoError(t, execute(t, "-m", path, "completions", "fish"))
	assert.NoFileExists(t, path)
	assert.Nil(t, cfg)
}

func TestCompletionsRejectsUnknownShell(t *testing.T) {
	assert.Error(t, execute(t, "completions", "powershell"))
}
