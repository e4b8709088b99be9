package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("port: 7890\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mihomo", "config.yaml")
	c := NewClient("clash-verge/v1.6.0")

	require.NoError(t, c.Download(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "port: 7890\n", string(data))
	assert.Equal(t, "clash-verge/v1.6.0", gotUA)

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp download file left behind")
}

func TestDownloadBadStatusKeepsExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	err := NewClient("mihoro").Download(context.Background(), srv.URL, dest)
	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.True(t, strings.Contains(err.Error(), "404"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestDownloadConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient("mihoro").Download(context.Background(), url, filepath.Join(t.TempDir(), "x"))
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, url, fetchErr.URL)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestProgressCounter(t *testing.T) {
	p := &progressCounter{total: 10}
	n, err := p.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(5), p.written)
}
