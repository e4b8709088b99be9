/*
Package installer implements mihoro's top-level workflows: setup, update,
update-geodata, apply and uninstall.

Each workflow is a straight sequence of steps over the collaborators held by
Installer. A failing step stops the sequence and its error is returned as-is,
so callers can match it with errors.Is/As (binary.ErrBinaryBusy,
*overlay.ParseError, *fetch.Error, *systemd.CommandError, ...). Nothing is
retried.

# Workflows

	setup     binary ─► config ─► base64 ─► overlay ─► geo-data ─► unit ─► reload ─► enable ─► start
	update              config ─► base64 ─► overlay ─► geo-data ───────────────────────────► restart
	apply                                   overlay ─────────────────────────────────────► restart
	uninstall stop/disable (if unit exists) ─► delete unit+config ─► reload ─► reset-failed ─► cron off

Config downloads land in a temp file before being renamed over the live
config, and both the base64 unwrap and the overlay rewrite go through
fileutil.WriteFileAtomic, so an interrupted run leaves either the old or the
new document, never a truncated one.

# Base64 Configs

Some subscription endpoints return the YAML document base64-encoded. After
every download the file is checked with DecodeBase64; it is replaced only when
the payload decodes cleanly to UTF-8 text that parses as a YAML mapping. Plain
YAML that happens to be valid base64 (rare, but possible for tiny documents)
therefore stays untouched unless its decoding is itself a YAML mapping.

# Metrics

Every workflow records its duration and outcome through metrics.Recorder and
rewrites the textfile when metrics_textfile is configured.
*/
package installer
