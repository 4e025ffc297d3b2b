// Package config loads, normalizes, and validates vodaudit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VODAUDIT_DATABASE_DSN, DATABASE_URL, and VODAUDIT_API_URL. The Config type
// centralizes every knob the CLI needs: database access, ffprobe limits,
// comparison tolerances, and provider feed throttling.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
