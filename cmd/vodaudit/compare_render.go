package main

import (
	"fmt"
	"io"
	"strings"

	"vodaudit/internal/streamcompare"
	"vodaudit/internal/textutil"
)

const urlDisplayWidth = 80

func formatKbps(p *streamcompare.Probe) string {
	return fmt.Sprintf("%.0f kbps", p.BitrateKbps())
}

func formatMB(p *streamcompare.Probe) string {
	return fmt.Sprintf("%.1f MB", p.FileSizeMB())
}

// writeSampleProgress prints what one probe returned, as it completes.
func writeSampleProgress(w io.Writer, target streamcompare.Target, sample streamcompare.Sample, colorize bool) {
	fmt.Fprintf(w, "Analyzing %s...\n", target.Label)
	fmt.Fprintf(w, "  URL: %s\n", textutil.Truncate(target.URL, urlDisplayWidth))
	if !sample.OK() {
		fmt.Fprintln(w, paint(fmt.Sprintf("  ✗ Failed to probe stream: %v", sample.Err), ansiRed, colorize))
		fmt.Fprintln(w)
		return
	}
	p := sample.Probe
	fmt.Fprintf(w, "  ✓ Resolution: %s\n", p.Resolution)
	fmt.Fprintf(w, "  ✓ Codec: %s\n", p.Codec)
	fmt.Fprintf(w, "  ✓ Bitrate: %s\n", formatKbps(p))
	fmt.Fprintf(w, "  ✓ File size: %s\n", formatMB(p))
	if p.FPS > 0 {
		fmt.Fprintf(w, "  ✓ FPS: %.2f\n", p.FPS)
	}
	if p.HasAudio {
		fmt.Fprintf(w, "  ✓ Audio: %s (%d channels)\n", p.AudioCodec, p.AudioChannels)
	}
	fmt.Fprintln(w)
}

// writeComparison prints the verdict block.
func writeComparison(w io.Writer, report streamcompare.Report, colorize bool) {
	writeBanner(w, "COMPARISON RESULTS", colorize)

	switch report.Verdict {
	case streamcompare.VerdictInsufficient:
		fmt.Fprintln(w, "Not enough valid streams to compare")
	case streamcompare.VerdictIdentical:
		base := report.Baseline.Probe
		fmt.Fprintln(w)
		fmt.Fprintln(w, paint("⚠️  WARNING: All streams appear IDENTICAL!", ansiYellow, colorize))
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   Resolution: %s\n", base.Resolution)
		fmt.Fprintf(w, "   Bitrate:    %s\n", formatKbps(base))
		fmt.Fprintf(w, "   Codec:      %s\n", base.Codec)
		fmt.Fprintf(w, "   File size:  %s\n", formatMB(base))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "   These are likely DUPLICATES, not different quality versions.")
		fmt.Fprintln(w, "   The provider may be sending the same stream with multiple IDs.")
	case streamcompare.VerdictDifferent:
		fmt.Fprintln(w)
		fmt.Fprintln(w, paint("✓ Streams have DIFFERENT characteristics:", ansiGreen, colorize))
		fmt.Fprintln(w)
		tbl := reportTable{
			headers: []string{"Stream ID", "Resolution", "Bitrate", "Size", "Codec", "FPS"},
			aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
		}
		for _, sample := range report.Valid {
			p := sample.Probe
			tbl.add(sample.Label, p.Resolution, formatKbps(p), formatMB(p), p.Codec, fmt.Sprintf("%.1f", p.FPS))
		}
		fmt.Fprintln(w, tbl.render())
		fmt.Fprintf(w, "\n   First difference: %s (%s)\n", report.MismatchLabel, strings.ReplaceAll(string(report.Mismatch), "_", " "))
		fmt.Fprintln(w, "   These appear to be legitimate quality variants.")
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(w, "\nFailed probes: %s\n", strings.Join(report.Failed, ", "))
	}
}

// comparisonOutput is the JSON form of a comparison run.
type comparisonOutput struct {
	RunID   string                 `json:"run_id"`
	Targets []streamcompare.Target `json:"targets"`
	Samples []sampleOutput         `json:"samples"`
	Report  streamcompare.Report   `json:"report"`
}

type sampleOutput struct {
	Label string               `json:"label"`
	Probe *streamcompare.Probe `json:"probe,omitempty"`
	Error string               `json:"error,omitempty"`
}

func newComparisonOutput(runID string, targets []streamcompare.Target, samples []streamcompare.Sample, report streamcompare.Report) comparisonOutput {
	out := comparisonOutput{RunID: runID, Targets: targets, Report: report, Samples: make([]sampleOutput, 0, len(samples))}
	for _, sample := range samples {
		entry := sampleOutput{Label: sample.Label, Probe: sample.Probe}
		if sample.Err != nil {
			entry.Error = sample.Err.Error()
		}
		out.Samples = append(out.Samples, entry)
	}
	return out
}
