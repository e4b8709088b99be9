package cron

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCrontab struct {
	installed  []string
	removals   int
	installErr error
	removeErr  error
}

func (f *fakeCrontab) Install(_ context.Context, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	f.installed = append(f.installed, string(data))
	return f.installErr
}

func (f *fakeCrontab) RemoveAll(context.Context) error {
	f.removals++
	return f.removeErr
}

func newScheduler(t *testing.T) (*Scheduler, *fakeCrontab) {
	t.Helper()
	ct := &fakeCrontab{}
	return &Scheduler{
		ReferencePath: filepath.Join(t.TempDir(), "run", "mihoro-crontab"),
		Executable:    "/home/u/.local/bin/mihoro",
		Crontab:       ct,
	}, ct
}

func TestEntry(t *testing.T) {
	assert.Equal(t, "0 */12 * * * /usr/bin/mihoro update", Entry(12, "/usr/bin/mihoro"))
	assert.Equal(t, "0 */6 * * * /usr/bin/mihoro update", Entry(6, "/usr/bin/mihoro"))
}

func TestEnable(t *testing.T) {
	s, ct := newScheduler(t)

	require.NoError(t, s.Enable(context.Background(), 6))

	data, err := os.ReadFile(s.ReferencePath)
	require.NoError(t, err)
	assert.Equal(t, "0 */6 * * * /home/u/.local/bin/mihoro update\n", string(data))
	assert.Equal(t, []string{string(data)}, ct.installed)
}

func TestEnableZeroDisables(t *testing.T) {
	enabled, enabledCt := newScheduler(t)
	require.NoError(t, enabled.Enable(context.Background(), 3))
	require.NoError(t, enabled.Enable(context.Background(), 0))

	disabled, disabledCt := newScheduler(t)
	require.NoError(t, disabled.Enable(context.Background(), 3))
	require.NoError(t, disabled.Disable(context.Background()))

	assert.NoFileExists(t, enabled.ReferencePath)
	assert.NoFileExists(t, disabled.ReferencePath)
	assert.Equal(t, disabledCt.removals, enabledCt.removals)
	assert.Equal(t, 1, enabledCt.removals)
}

func TestEnableRejectsLargeInterval(t *testing.T) {
	s, ct := newScheduler(t)

	err := s.Enable(context.Background(), 25)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Empty(t, ct.installed)
	assert.Zero(t, ct.removals)
	assert.NoDirExists(t, filepath.Dir(s.ReferencePath))
}

func TestEnableAcceptsBounds(t *testing.T) {
	for _, hours := range []uint16{1, 24} {
		s, _ := newScheduler(t)
		assert.NoError(t, s.Enable(context.Background(), hours))
	}
}

func TestEnableInstallFailureKeepsReference(t *testing.T) {
	s, ct := newScheduler(t)
	ct.installErr = errors.New("exit status 1")

	err := s.Enable(context.Background(), 12)
	assert.ErrorIs(t, err, ErrInstallFailed)
	assert.FileExists(t, s.ReferencePath)
}

func TestDisableIsIdempotent(t *testing.T) {
	s, ct := newScheduler(t)

	require.NoError(t, s.Disable(context.Background()))
	require.NoError(t, s.Disable(context.Background()))
	assert.Equal(t, 2, ct.removals)
}

func TestDisablePropagatesToolFailure(t *testing.T) {
	s, ct := newScheduler(t)
	ct.removeErr = errors.New("executable file not found in $PATH")

	assert.Error(t, s.Disable(context.Background()))
}

func TestStatus(t *testing.T) {
	s, _ := newScheduler(t)
	live := filepath.Join(t.TempDir(), "config.yaml")

	st, err := s.Status(live)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.Nil(t, st.LastUpdate)

	require.NoError(t, s.Enable(context.Background(), 12))
	require.NoError(t, os.WriteFile(live, []byte("port: 1\n"), 0644))
	mtime := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(live, mtime, mtime))

	st, err = s.Status(live)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.True(t, strings.HasPrefix(st.Entry, "0 */12 * * * "))
	require.NotNil(t, st.LastUpdate)
	// Last update is read from the config's mtime.
	assert.True(t, st.LastUpdate.Equal(mtime))
}

func TestDefaultReferencePath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/4242")
	assert.Equal(t, "/run/user/4242/mihoro-crontab", DefaultReferencePath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	path := DefaultReferencePath()
	assert.True(t, strings.HasPrefix(path, "/run/user/"))
	assert.True(t, strings.HasSuffix(path, "/mihoro-crontab"))
}
