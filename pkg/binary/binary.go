// Package binary makes sure the mihomo executable exists at its target path.
package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuemby/mihoro/pkg/fetch"
	"github.com/cuemby/mihoro/pkg/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"
)

// ErrBinaryBusy is returned when the target binary cannot be replaced because
// a running process is executing it.
var ErrBinaryBusy = errors.New("mihomo binary is in use, stop the running service before overwriting")

// Action describes what Ensure did.
type Action int

const (
	Skipped Action = iota
	Installed
	Replaced
)

func (a Action) String() string {
	switch a {
	case Installed:
		return "installed"
	case Replaced:
		return "replaced"
	default:
		return "skipped"
	}
}

// Provisioner downloads and unpacks the gzip-compressed mihomo release.
type Provisioner struct {
	Fetcher fetch.Fetcher
}

// Ensure guarantees that target holds an executable. An existing file is left
// alone unless overwrite is set.
func (p *Provisioner) Ensure(ctx context.Context, url, target string, overwrite bool) (Action, error) {
	logger := log.WithComponent("binary")

	info, err := os.Stat(target)
	present := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Skipped, fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if present && info.IsDir() {
		return Skipped, fmt.Errorf("%s is a directory", target)
	}

	if present && !overwrite {
		logger.Info().Str("path", target).Msg("Binary already installed, skipping download")
		return Skipped, nil
	}

	if present {
		// Fail before touching the network if the file cannot be rewritten.
		if err := probeWritable(target); err != nil {
			return Skipped, err
		}
	}

	if url == "" {
		return Skipped, errors.New("`remote_mihomo_binary_url` undefined in settings")
	}

	archive, err := os.CreateTemp("", "mihomo-downloaded-binary-*.gz")
	if err != nil {
		return Skipped, fmt.Errorf("failed to create temp file: %w", err)
	}
	archivePath := archive.Name()
	archive.Close()
	defer os.Remove(archivePath)

	if err := p.Fetcher.Download(ctx, url, archivePath); err != nil {
		return Skipped, err
	}

	if err := extractGzip(archivePath, target); err != nil {
		return Skipped, err
	}

	action := Installed
	if present {
		action = Replaced
	}
	logger.Info().Str("path", target).Stringer("action", action).Msg("Binary ready")
	return action, nil
}

func probeWritable(target string) error {
	f, err := os.OpenFile(target, os.O_WRONLY, 0)
	if err != nil {
		return classify(target, err)
	}
	return f.Close()
}

// extractGzip decompresses src next to dst and renames the result over dst,
// so a failed extraction leaves any previous binary in place.
func extractGzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to decompress binary: %w", err)
	}
	defer zr.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+"-*")
	if err != nil {
		return classify(dst, err)
	}
	tmp := out.Name()
	defer os.Remove(tmp)

	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return fmt.Errorf("failed to decompress binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := os.Chmod(tmp, 0755); err != nil {
		return fmt.Errorf("failed to make %s executable: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}

// classify turns "text file busy" into ErrBinaryBusy and wraps everything
// else with the path.
func classify(path string, err error) error {
	if errors.Is(err, unix.ETXTBSY) {
		return fmt.Errorf("%s: %w", path, ErrBinaryBusy)
	}
	return fmt.Errorf("failed to open %s for writing: %w", path, err)
}
