// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Options: binary, timeout, and analysis limits for one invocation
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect runs ffprobe against a file path or a network stream URL. Helper
// methods on Result pick the first video and audio streams and parse the
// string-typed numeric fields ffprobe emits.
package ffprobe
