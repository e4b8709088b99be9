// Package fetch downloads remote binaries, configs and geo-data over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/mihoro/pkg/log"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
)

// Fetcher downloads a URL into a local file.
type Fetcher interface {
	Download(ctx context.Context, url, dest string) error
}

// Error is returned for any failure talking to the remote side. Failed
// downloads are never retried.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	// ProgressInterval throttles progress log lines; zero disables them.
	ProgressInterval time.Duration

	logger zerolog.Logger
}

// NewClient creates a client with a pooled cleanhttp transport.
func NewClient(userAgent string) *Client {
	return &Client{
		HTTP:             cleanhttp.DefaultPooledClient(),
		UserAgent:        userAgent,
		ProgressInterval: time.Second,
		logger:           log.WithComponent("fetch"),
	}
}

// Download streams url into dest. The body lands in a temporary file next to
// dest first and is renamed into place only once it is complete.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	c.logger.Info().Str("url", url).Msg("Downloading")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{URL: url, StatusCode: resp.StatusCode}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	counter := &progressCounter{
		logger:   c.logger,
		total:    resp.ContentLength,
		interval: c.ProgressInterval,
	}
	n, err := io.Copy(tmp, io.TeeReader(resp.Body, counter))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &Error{URL: url, Err: err}
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move download to %s: %w", dest, err)
	}

	c.logger.Info().
		Str("path", dest).
		Str("size", humanize.Bytes(uint64(n))).
		Msg("Downloaded")
	return nil
}

// progressCounter logs download progress at most once per interval.
type progressCounter struct {
	logger   zerolog.Logger
	total    int64
	written  uint64
	interval time.Duration
	last     time.Time
}

func (p *progressCounter) Write(b []byte) (int, error) {
	p.written += uint64(len(b))
	if p.interval <= 0 || time.Since(p.last) < p.interval {
		return len(b), nil
	}
	p.last = time.Now()

	ev := p.logger.Debug().Str("downloaded", humanize.Bytes(p.written))
	if p.total > 0 {
		ev = ev.Str("total", humanize.Bytes(uint64(p.total))).
			Float64("percent", float64(p.written)*100/float64(p.total))
	}
	ev.Msg("Download progress")
	return len(b), nil
}
