/*
Package overlay merges mihoro's managed fields into a downloaded mihomo
configuration while leaving everything else alone.

# Architecture

A remote config is an arbitrary YAML mapping. mihoro only cares about a fixed
set of top-level keys (ports, mode, log level, controller, geo-data sources).
Document keeps the whole parsed yaml.Node tree and only swaps the value nodes
of those keys:

	┌──────────── remote config.yaml ────────────┐
	│ port: "1080"          ──▶ value replaced    │
	│ x-dns: &d {...}       ──▶ untouched         │
	│ dns: *d               ──▶ untouched         │
	│ mode: Rule            ──▶ value replaced    │
	│ proxies: [...]        ──▶ untouched         │
	└────────────────────────────────────────────┘
	                 │ Merge(Spec)
	                 ▼
	managed keys keep their position, missing ones are appended,
	unset optional ones are removed

Because managed values are replaced rather than decoded, a remote config that
spells a port as a string or uses an odd mode still applies. Every other key
keeps its position, quoting style, comments, anchors and aliases. When a
replaced value carried an anchor, aliases to it are expanded in place so the
output always parses. Apply over its own output is a no-op.

# Errors

Parse failures are reported as *ParseError. Read failures keep the underlying
*fs.PathError reachable through errors.As. ApplyFile writes through a temporary
file and a rename, so a failed or interrupted overlay leaves the previous
config in place.
*/
package overlay
