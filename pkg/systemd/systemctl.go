package systemd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cuemby/mihoro/pkg/log"
)

// CommandError is returned when systemctl or journalctl exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("`%s` failed", strings.Join(e.Args, " "))
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s with exit status %d", msg, e.ExitCode)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	} else if e.Err != nil && e.ExitCode <= 0 {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes a command and returns its stderr on failure. It exists so
// tests can observe invocations without a running systemd.
type Runner func(ctx context.Context, stdout io.Writer, name string, args ...string) error

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	cmdErr := &CommandError{
		Args:   append([]string{name}, args...),
		Stderr: strings.TrimSpace(stderr.String()),
		Err:    err,
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return cmdErr
}

// Systemctl drives systemd through the systemctl and journalctl binaries.
type Systemctl struct {
	// User selects the per-user service manager (--user).
	User bool
	Run  Runner
}

// NewUser returns a Systemctl bound to the user service manager.
func NewUser() *Systemctl {
	return &Systemctl{User: true, Run: ExecRunner}
}

func (s *Systemctl) systemctl(ctx context.Context, stdout io.Writer, args ...string) error {
	if s.User {
		args = append([]string{"--user"}, args...)
	}
	logger := log.WithComponent("systemd")
	logger.Debug().Strs("args", args).Msg("Running systemctl")
	return s.Run(ctx, stdout, "systemctl", args...)
}

func (s *Systemctl) Enable(ctx context.Context, unit string) error {
	return s.systemctl(ctx, io.Discard, "enable", unit)
}

func (s *Systemctl) Start(ctx context.Context, unit string) error {
	return s.systemctl(ctx, io.Discard, "start", unit)
}

func (s *Systemctl) Stop(ctx context.Context, unit string) error {
	return s.systemctl(ctx, io.Discard, "stop", unit)
}

func (s *Systemctl) Restart(ctx context.Context, unit string) error {
	return s.systemctl(ctx, io.Discard, "restart", unit)
}

func (s *Systemctl) Disable(ctx context.Context, unit string) error {
	return s.systemctl(ctx, io.Discard, "disable", unit)
}

func (s *Systemctl) DaemonReload(ctx context.Context) error {
	return s.systemctl(ctx, io.Discard, "daemon-reload")
}

func (s *Systemctl) ResetFailed(ctx context.Context) error {
	return s.systemctl(ctx, io.Discard, "reset-failed")
}

// Status writes `systemctl status` output for unit to w. A non-zero exit is
// still reported; systemctl uses it for inactive units.
func (s *Systemctl) Status(ctx context.Context, unit string, w io.Writer) error {
	return s.systemctl(ctx, w, "status", "--no-pager", unit)
}

// Journal writes the last lines of the unit's journal to w, following new
// entries until ctx is done when follow is set.
func (s *Systemctl) Journal(ctx context.Context, unit string, lines int, follow bool, w io.Writer) error {
	args := []string{}
	if s.User {
		args = append(args, "--user")
	}
	args = append(args, "-xeu", unit, "-n", strconv.Itoa(lines), "--no-pager")
	if follow {
		args = append(args, "-f")
	}
	return s.Run(ctx, w, "journalctl", args...)
}
