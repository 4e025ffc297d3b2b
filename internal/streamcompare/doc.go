// Package streamcompare decides whether several provider streams for the same
// episode carry the same media.
//
// Each stream is flattened into a Probe (resolution, codec, bitrate, container
// size, frame rate, audio). Compare treats the first successful probe as the
// baseline and checks every other successful probe against it: streams are
// equivalent when the resolution strings match exactly and bitrate and size
// stay within the configured tolerance. Fewer than two successful probes is
// reported as insufficient rather than as a verdict.
//
// Analyzer drives a Prober over a list of targets sequentially and feeds the
// samples into Compare.
package streamcompare
