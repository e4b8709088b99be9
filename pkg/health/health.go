package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cuemby/mihoro/pkg/overlay"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Target is a named listener of the running daemon.
type Target struct {
	Name    string
	Checker Checker
}

// Outcome pairs a target with its result.
type Outcome struct {
	Target
	Result
}

// String renders o as one line of `status` output.
func (o Outcome) String() string {
	mark := "✓"
	if !o.Healthy {
		mark = "✗"
	}
	return fmt.Sprintf("%s %-20s %-4s %s", mark, o.Name, o.Checker.Type(), o.Message)
}

// Targets returns the listeners mihomo should expose for spec: the proxy
// ports and, when configured, the external controller API.
func Targets(spec overlay.Spec) []Target {
	var targets []Target

	if spec.MixedPort != nil {
		targets = append(targets, Target{Name: "mixed-port", Checker: NewTCPChecker(localAddr("", *spec.MixedPort))})
	}
	httpPort, socksPort := spec.Port, spec.SocksPort
	if spec.MixedPort == nil || httpPort != *spec.MixedPort {
		targets = append(targets, Target{Name: "port", Checker: NewTCPChecker(localAddr("", httpPort))})
	}
	if spec.MixedPort == nil || socksPort != *spec.MixedPort {
		targets = append(targets, Target{Name: "socks-port", Checker: NewTCPChecker(localAddr("", socksPort))})
	}

	if spec.ExternalController != nil && *spec.ExternalController != "" {
		if addr, err := controllerAddr(*spec.ExternalController); err == nil {
			checker := NewHTTPChecker("http://" + addr + "/version")
			if spec.Secret != nil && *spec.Secret != "" {
				checker.WithHeader("Authorization", "Bearer "+*spec.Secret)
			}
			targets = append(targets, Target{Name: "external-controller", Checker: checker})
		}
	}
	return targets
}

// CheckAll runs every target in order.
func CheckAll(ctx context.Context, targets []Target) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))
	for _, t := range targets {
		outcomes = append(outcomes, Outcome{Target: t, Result: t.Checker.Check(ctx)})
	}
	return outcomes
}

func controllerAddr(controller string) (string, error) {
	host, portStr, err := net.SplitHostPort(controller)
	if err != nil {
		return "", err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", err
	}
	return localAddr(host, uint16(port)), nil
}

// localAddr maps wildcard bind addresses to loopback.
func localAddr(host string, port uint16) string {
	switch host {
	case "", "0.0.0.0", "::", "*":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
