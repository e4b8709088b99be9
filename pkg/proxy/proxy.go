// Package proxy builds the shell commands that point a terminal session at
// the local mihomo proxy.
package proxy

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/cuemby/mihoro/pkg/overlay"
)

// Shell is the syntax family used for environment variable commands.
type Shell int

const (
	// Posix covers bash, zsh and other sh-compatible shells.
	Posix Shell = iota
	Fish
)

func (s Shell) String() string {
	switch s {
	case Fish:
		return "fish"
	default:
		return "posix"
	}
}

// DetectShell picks the syntax from a $SHELL value. Anything that is not
// fish gets POSIX syntax.
func DetectShell(shellEnv string) Shell {
	if filepath.Base(shellEnv) == "fish" {
		return Fish
	}
	return Posix
}

// Endpoint returns the HTTP and SOCKS ports clients should use. A mixed
// port serves both protocols and takes precedence.
func Endpoint(spec overlay.Spec) (httpPort, socksPort uint16) {
	if spec.MixedPort != nil {
		return *spec.MixedPort, *spec.MixedPort
	}
	return spec.Port, spec.SocksPort
}

// ExportCommand returns the command that sets https_proxy, http_proxy and
// all_proxy for host.
func ExportCommand(shell Shell, host string, spec overlay.Spec) string {
	httpPort, socksPort := Endpoint(spec)
	httpURL := fmt.Sprintf("http://%s:%d", host, httpPort)
	socksURL := fmt.Sprintf("socks5://%s:%d", host, socksPort)

	switch shell {
	case Fish:
		return fmt.Sprintf("set -gx https_proxy %s; set -gx http_proxy %s; set -gx all_proxy %s",
			httpURL, httpURL, socksURL)
	default:
		return fmt.Sprintf("export https_proxy=%s http_proxy=%s all_proxy=%s",
			httpURL, httpURL, socksURL)
	}
}

// UnsetCommand returns the command that clears the proxy variables.
func UnsetCommand(shell Shell) string {
	switch shell {
	case Fish:
		return "set -e https_proxy http_proxy all_proxy"
	default:
		return "unset https_proxy http_proxy all_proxy"
	}
}

// LocalIP returns the address of the interface used for outbound traffic.
// No packets are sent; dialing UDP only selects a route.
func LocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", "1.1.1.1:80")
	if err != nil {
		return nil, fmt.Errorf("failed to determine local IP address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address %s", conn.LocalAddr())
	}
	return addr.IP, nil
}
