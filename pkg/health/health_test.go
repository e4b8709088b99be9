package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/mihoro/pkg/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func u16Ptr(v uint16) *uint16 { return &v }

func names(targets []Target) []string {
	var out []string
	for _, t := range targets {
		out = append(out, t.Name)
	}
	return out
}

func TestTargets(t *testing.T) {
	spec := overlay.Spec{Port: 7891, SocksPort: 7892}
	targets := Targets(spec)
	assert.Equal(t, []string{"port", "socks-port"}, names(targets))
	assert.Equal(t, "127.0.0.1:7891", targets[0].Checker.(*TCPChecker).Address)

	spec.MixedPort = u16Ptr(7890)
	spec.ExternalController = strPtr("0.0.0.0:9090")
	spec.Secret = strPtr("s3cret")
	targets = Targets(spec)
	assert.Equal(t, []string{"mixed-port", "port", "socks-port", "external-controller"}, names(targets))

	ctl := targets[3].Checker.(*HTTPChecker)
	assert.Equal(t, "http://127.0.0.1:9090/version", ctl.URL)
	assert.Equal(t, "Bearer s3cret", ctl.Headers["Authorization"])
	assert.Equal(t, CheckTypeHTTP, ctl.Type())
}

func TestTargetsSkipsPortsEqualToMixed(t *testing.T) {
	spec := overlay.Spec{Port: 7890, SocksPort: 7892, MixedPort: u16Ptr(7890)}
	assert.Equal(t, []string{"mixed-port", "socks-port"}, names(Targets(spec)))
}

func TestTargetsIgnoresBadController(t *testing.T) {
	spec := overlay.Spec{Port: 1, SocksPort: 2, ExternalController: strPtr("not-an-address")}
	assert.Equal(t, []string{"port", "socks-port"}, names(Targets(spec)))
}

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	result := NewTCPChecker(addr).Check(context.Background())
	assert.True(t, result.Healthy, result.Message)

	require.NoError(t, ln.Close())
	result = NewTCPChecker(addr).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "not listening")
}

func TestHTTPCheckerVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"meta":true,"version":"v1.19.0"}`))
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL + "/version").WithHeader("Authorization", "Bearer s3cret").Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Equal(t, "mihomo v1.19.0", result.Message)

	result = NewHTTPChecker(server.URL + "/version").Check(context.Background())
	assert.False(t, result.Healthy)
	assert.True(t, strings.HasPrefix(result.Message, "HTTP 401"))
	assert.Contains(t, result.Message, "secret")
}

func TestCheckAll(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	outcomes := CheckAll(context.Background(), []Target{
		{Name: "port", Checker: NewTCPChecker(ln.Addr().String())},
	})
	require.Len(t, outcomes, 1)
	assert.Equal(t, "port", outcomes[0].Name)
	assert.True(t, outcomes[0].Healthy)
}

func TestOutcomeString(t *testing.T) {
	ok := Outcome{
		Target: Target{Name: "external-controller", Checker: NewHTTPChecker("http://127.0.0.1:9090/version")},
		Result: Result{Healthy: true, Message: "mihomo v1.19.0"},
	}
	assert.Equal(t, "✓ external-controller  http mihomo v1.19.0", ok.String())

	down := Outcome{
		Target: Target{Name: "port", Checker: NewTCPChecker("127.0.0.1:7891")},
		Result: Result{Healthy: false, Message: "127.0.0.1:7891 not listening"},
	}
	assert.Equal(t, "✗ port                 tcp  127.0.0.1:7891 not listening", down.String())
}
