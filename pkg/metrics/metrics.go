package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/mihoro/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Timer measures the wall time of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Recorder collects run outcomes for one process.
type Recorder struct {
	path     string
	registry *prometheus.Registry

	lastRun      *prometheus.GaugeVec
	lastDuration *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec

	// observed holds the operations recorded by this process. Samples for
	// any other operation are carried over from the existing textfile.
	observed map[string]bool
}

// NewRecorder creates a recorder writing to path. An empty path disables
// recording.
func NewRecorder(path string) *Recorder {
	r := &Recorder{path: path, observed: make(map[string]bool)}
	if path == "" {
		return r
	}

	r.registry = prometheus.NewRegistry()
	r.lastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mihoro_last_run_timestamp_seconds",
			Help: "Unix time the operation last finished",
		},
		[]string{"operation"},
	)
	r.lastDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mihoro_last_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		},
		[]string{"operation"},
	)
	r.lastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mihoro_last_run_success",
			Help: "Whether the last run succeeded (1 = success, 0 = failure)",
		},
		[]string{"operation"},
	)
	r.registry.MustRegister(r.lastRun, r.lastDuration, r.lastSuccess)
	return r
}

// Enabled reports whether the recorder writes anything.
func (r *Recorder) Enabled() bool {
	return r != nil && r.registry != nil
}

// Observe records the outcome of op.
func (r *Recorder) Observe(op string, timer *Timer, err error) {
	if !r.Enabled() {
		return
	}
	r.lastRun.WithLabelValues(op).Set(float64(time.Now().Unix()))
	r.lastDuration.WithLabelValues(op).Set(timer.Duration().Seconds())
	success := 1.0
	if err != nil {
		success = 0
	}
	r.lastSuccess.WithLabelValues(op).Set(success)
	r.observed[op] = true
}

// WriteTextfile writes the collected samples to the recorder's path, keeping
// the samples other operations left there.
func (r *Recorder) WriteTextfile() error {
	if !r.Enabled() {
		return nil
	}
	if err := r.carryOver(); err != nil {
		logger := log.WithComponent("metrics")
		logger.Warn().Err(err).Str("path", r.path).Msg("Discarding unreadable metrics textfile")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// carryOver loads samples from the current textfile for operations this
// process has not observed.
func (r *Recorder) carryOver() error {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var parser expfmt.TextParser // UTF8Validation is the default name validation scheme in prometheus/common v0.63
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return err
	}

	gauges := map[string]*prometheus.GaugeVec{
		"mihoro_last_run_timestamp_seconds": r.lastRun,
		"mihoro_last_run_duration_seconds":  r.lastDuration,
		"mihoro_last_run_success":           r.lastSuccess,
	}
	for name, vec := range gauges {
		mf, ok := families[name]
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			op := ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "operation" {
					op = lp.GetValue()
				}
			}
			if op == "" || r.observed[op] {
				continue
			}
			vec.WithLabelValues(op).Set(m.GetGauge().GetValue())
		}
	}
	return nil
}
