package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 20*time.Millisecond)
}

func TestObserve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihoro.prom")
	rec := NewRecorder(path)
	require.True(t, rec.Enabled())

	rec.Observe("update", NewTimer(), nil)
	rec.Observe("apply", NewTimer(), errors.New("boom"))
	require.NoError(t, rec.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="update"} 1`)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="apply"} 0`)

	families, err := rec.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "mihoro_last_run_timestamp_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			assert.InDelta(t, float64(time.Now().Unix()), m.GetGauge().GetValue(), 5)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "mihoro.prom")
	rec := NewRecorder(path)
	rec.Observe("setup", NewTimer(), nil)

	require.NoError(t, rec.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="setup"} 1`)
	assert.Contains(t, string(data), `mihoro_last_run_duration_seconds{operation="setup"}`)
	assert.Contains(t, string(data), "# TYPE mihoro_last_run_timestamp_seconds gauge")
}

func TestDisabledRecorder(t *testing.T) {
	rec := NewRecorder("")
	assert.False(t, rec.Enabled())

	rec.Observe("update", NewTimer(), nil)
	assert.NoError(t, rec.WriteTextfile())

	var nilRec *Recorder
	nilRec.Observe("update", NewTimer(), nil)
	assert.NoError(t, nilRec.WriteTextfile())
}

func TestWriteTextfileKeepsOtherOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihoro.prom")

	setup := NewRecorder(path)
	setup.Observe("setup", NewTimer(), nil)
	require.NoError(t, setup.WriteTextfile())

	update := NewRecorder(path)
	update.Observe("update", NewTimer(), errors.New("boom"))
	require.NoError(t, update.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="setup"} 1`)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="update"} 0`)
	assert.Contains(t, string(data), `mihoro_last_run_duration_seconds{operation="setup"}`)

	// A later run of the same operation replaces its own samples.
	again := NewRecorder(path)
	again.Observe("update", NewTimer(), nil)
	require.NoError(t, again.WriteTextfile())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="update"} 1`)
	assert.NotContains(t, string(data), `mihoro_last_run_success{operation="update"} 0`)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="setup"} 1`)
}

func TestWriteTextfileReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihoro.prom")
	require.NoError(t, os.WriteFile(path, []byte("}{ garbage\n"), 0644))

	rec := NewRecorder(path)
	rec.Observe("apply", NewTimer(), nil)
	require.NoError(t, rec.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mihoro_last_run_success{operation="apply"} 1`)
	assert.NotContains(t, string(data), "garbage")
}
