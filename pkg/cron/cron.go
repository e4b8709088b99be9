package cron

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/log"
	"golang.org/x/sys/unix"
)

// MaxInterval is the largest auto-update interval in hours.
const MaxInterval = 24

const referenceFileName = "mihoro-crontab"

var (
	// ErrInvalidInterval is returned for intervals above MaxInterval.
	ErrInvalidInterval = errors.New("auto-update interval must be between 1 and 24 hours")

	// ErrInstallFailed is returned when crontab rejects the generated file.
	ErrInstallFailed = errors.New("failed to install crontab")
)

// Crontab installs and removes the user's crontab.
type Crontab interface {
	// Install replaces the user's crontab with the contents of file.
	Install(ctx context.Context, file string) error
	// RemoveAll deletes the user's crontab. A missing crontab is not an
	// error.
	RemoveAll(ctx context.Context) error
}

// Command runs the crontab binary.
type Command struct {
	Path string
}

// NewCommand returns a Command that resolves crontab from PATH.
func NewCommand() *Command {
	return &Command{Path: "crontab"}
}

func (c *Command) Install(ctx context.Context, file string) error {
	out, err := exec.CommandContext(ctx, c.Path, file).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s", ErrInstallFailed, strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("failed to run %s: %w", c.Path, err)
	}
	return nil
}

func (c *Command) RemoveAll(ctx context.Context) error {
	err := exec.CommandContext(ctx, c.Path, "-r").Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// crontab -r exits non-zero when there is no crontab.
		logger := log.WithComponent("cron")
		logger.Debug().Int("exit_code", exitErr.ExitCode()).Msg("No crontab to remove")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run %s -r: %w", c.Path, err)
	}
	return nil
}

// Status describes the installed schedule.
type Status struct {
	Enabled bool
	Entry   string
	// LastUpdate is the modification time of the live mihomo config. It is
	// inferred, not recorded, so manual applies also move it.
	LastUpdate *time.Time
}

// Scheduler keeps a reference copy of the installed entry at ReferencePath.
// The file's presence is what marks auto-update as enabled.
type Scheduler struct {
	ReferencePath string
	Executable    string
	Crontab       Crontab
}

// NewScheduler creates a scheduler for the running executable.
func NewScheduler(referencePath string) (*Scheduler, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mihoro binary path: %w", err)
	}
	return &Scheduler{
		ReferencePath: referencePath,
		Executable:    exe,
		Crontab:       NewCommand(),
	}, nil
}

// DefaultReferencePath returns $XDG_RUNTIME_DIR/mihoro-crontab, or
// /run/user/<uid>/mihoro-crontab when the variable is unset.
func DefaultReferencePath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = filepath.Join("/run/user", strconv.Itoa(unix.Getuid()))
	}
	return filepath.Join(dir, referenceFileName)
}

// Entry returns the cron line that runs `update` every hours hours.
func Entry(hours uint16, executable string) string {
	return fmt.Sprintf("0 */%d * * * %s update", hours, executable)
}

// Enable installs a crontab that runs update every hours hours. Zero
// disables auto-update.
func (s *Scheduler) Enable(ctx context.Context, hours uint16) error {
	if hours == 0 {
		return s.Disable(ctx)
	}
	if hours > MaxInterval {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, hours)
	}

	entry := Entry(hours, s.Executable)
	if err := os.MkdirAll(filepath.Dir(s.ReferencePath), 0700); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.ReferencePath, []byte(entry+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write crontab reference: %w", err)
	}

	if err := s.Crontab.Install(ctx, s.ReferencePath); err != nil {
		if errors.Is(err, ErrInstallFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}

	logger := log.WithComponent("cron")
	logger.Info().
		Uint16("interval_hours", hours).
		Str("entry", entry).
		Msg("Auto-update enabled")
	return nil
}

// Disable removes the reference file and the user's crontab.
func (s *Scheduler) Disable(ctx context.Context) error {
	if _, err := fileutil.RemoveIfExists(s.ReferencePath); err != nil {
		return fmt.Errorf("failed to remove crontab reference: %w", err)
	}
	if err := s.Crontab.RemoveAll(ctx); err != nil {
		return fmt.Errorf("failed to disable crontab: %w", err)
	}
	logger := log.WithComponent("cron")
	logger.Info().Msg("Auto-update disabled")
	return nil
}

// Status reports whether auto-update is enabled and when liveConfig was last
// written.
func (s *Scheduler) Status(liveConfig string) (Status, error) {
	f, err := os.Open(s.ReferencePath)
	if errors.Is(err, os.ErrNotExist) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read crontab reference: %w", err)
	}
	defer f.Close()

	st := Status{Enabled: true}
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		st.Entry = scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		return Status{}, fmt.Errorf("failed to read crontab reference: %w", err)
	}

	if info, err := os.Stat(liveConfig); err == nil {
		mtime := info.ModTime()
		st.LastUpdate = &mtime
	}
	return st, nil
}
