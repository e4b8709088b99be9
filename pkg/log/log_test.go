package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	closer := Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	defer closer.Close()

	logger := WithComponent("settings")
	logger.Info().Str("path", "/tmp/x").Msg("Loaded settings")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "settings", line["component"])
	assert.Equal(t, "Loaded settings", line["message"])
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	closer := Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	defer closer.Close()
	defer Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}})

	Logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitFileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihoro.log")
	var buf bytes.Buffer
	closer := Init(Config{Level: InfoLevel, Output: &buf, File: path})

	id := WithRunID()
	Logger.Info().Msg("scheduled update")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scheduled update")
	assert.Contains(t, string(data), id)
	assert.Contains(t, buf.String(), "scheduled update")
}
