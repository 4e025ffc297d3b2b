// Package logging assembles structured slog loggers and formatting helpers used
// across vodaudit.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so diagnostics can tag log lines
// with run IDs, account names, and episode IDs. Log output goes to stderr;
// reports own stdout.
package logging
