// Package services defines shared utilities consumed by the diagnostics and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, account names, and episode IDs for
//     logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which turns
//     those markers into process exit statuses.
//
// Use these helpers when wiring new diagnostics so error handling and
// observability stay uniform across commands.
package services
