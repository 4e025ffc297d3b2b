// Package audit runs the read-only diagnostics behind the db and provider
// commands: duplicate episode rows, episodes carrying several streams, the
// grouping cross-check, stream and episode lookups, the dedup check, and the
// raw provider feed scan.
//
// Every function returns a typed report. Rendering belongs to the CLI.
package audit
