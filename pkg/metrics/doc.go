/*
Package metrics records the outcome of mihoro runs in Prometheus text format.

mihoro is a short-lived command, usually triggered from cron, so there is no
endpoint to scrape. Instead each run updates a private registry and writes it
to a file picked up by node_exporter's textfile collector.

# Architecture

	┌──────────── mihoro update ────────────┐
	│                                        │
	│  Timer ──► Recorder.Observe(op, err)   │
	│                 │                      │
	│                 ▼                      │
	│        prometheus.Registry (private)   │
	│                 │                      │
	│                 ▼                      │
	│   prometheus.WriteToTextfile(path)     │
	└─────────────────┬──────────────────────┘
	                  │
	                  ▼
	   node_exporter --collector.textfile.directory

The file is rewritten atomically by WriteToTextfile, so a collector never
reads a half-written sample.

# Metrics Catalog

mihoro_last_run_timestamp_seconds{operation}:
  - Type: Gauge
  - Description: Unix time the operation last finished
  - Example: mihoro_last_run_timestamp_seconds{operation="update"} 1.7e+09

mihoro_last_run_duration_seconds{operation}:
  - Type: Gauge
  - Description: Wall time of the last run
  - Example: mihoro_last_run_duration_seconds{operation="setup"} 4.2

mihoro_last_run_success{operation}:
  - Type: Gauge
  - Description: 1 when the last run succeeded, 0 otherwise
  - Example: mihoro_last_run_success{operation="update"} 1

Each write keeps the samples other operations left in the file, so a cron
`update` does not erase the last `setup` or `apply`. The file is rewritten
atomically. A file that no longer parses is replaced.

# Usage

	rec := metrics.NewRecorder(paths.Metrics)
	timer := metrics.NewTimer()
	err := inst.Update(ctx)
	rec.Observe("update", timer, err)
	if werr := rec.WriteTextfile(); werr != nil {
		logger.Warn().Err(werr).Msg("Failed to write metrics textfile")
	}

A Recorder created with an empty path is disabled; every method is a no-op.
*/
package metrics
