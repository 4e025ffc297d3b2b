package streamcompare

import (
	"errors"
	"testing"

	"vodaudit/internal/media/ffprobe"
)

func probe(res string, bitrate, size int64) *Probe {
	return &Probe{Resolution: res, Bitrate: bitrate, FileSize: size, Codec: "h264"}
}

func TestCheckBoundaries(t *testing.T) {
	base := *probe("1920x1080", 5_000_000, 1_000_000_000)
	tol := DefaultTolerance()

	cases := []struct {
		name  string
		other Probe
		want  Mismatch
	}{
		{"same", base, MismatchNone},
		{"bitrate at limit", *probe("1920x1080", 5_250_000, 1_000_000_000), MismatchNone},
		{"bitrate past limit", *probe("1920x1080", 5_250_001, 1_000_000_000), MismatchBitrate},
		{"bitrate below limit", *probe("1920x1080", 4_750_000, 1_000_000_000), MismatchNone},
		{"size at limit", *probe("1920x1080", 5_000_000, 1_050_000_000), MismatchNone},
		{"size past limit", *probe("1920x1080", 5_000_000, 949_999_999), MismatchFileSize},
		{"resolution", *probe("1280x720", 5_000_000, 1_000_000_000), MismatchResolution},
		{"resolution wins over bitrate", *probe("1280x720", 1, 1), MismatchResolution},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Check(base, tc.other, tol); got != tc.want {
				t.Fatalf("Check = %q, want %q", got, tc.want)
			}
			if Equivalent(base, tc.other, tol) != (tc.want == MismatchNone) {
				t.Fatalf("Equivalent disagrees with Check")
			}
		})
	}
}

func TestCheckZeroBaseline(t *testing.T) {
	base := *probe("1920x1080", 0, 0)
	if !Equivalent(base, *probe("1920x1080", 0, 0), DefaultTolerance()) {
		t.Fatal("expected zero metrics to be equivalent")
	}
	if Equivalent(base, *probe("1920x1080", 1, 0), DefaultTolerance()) {
		t.Fatal("expected any bitrate to exceed a zero baseline")
	}
}

func TestAbsoluteToleranceIgnoresSize(t *testing.T) {
	tol := AbsoluteTolerance(100_000)
	base := *probe("1920x1080", 5_000_000, 1_000_000_000)
	if !Equivalent(base, *probe("1920x1080", 5_100_000, 10), tol) {
		t.Fatal("expected bitrate within 100kbps and size ignored")
	}
	if got := Check(base, *probe("1920x1080", 4_899_999, 1_000_000_000), tol); got != MismatchBitrate {
		t.Fatalf("expected bitrate mismatch, got %q", got)
	}
}

func TestCompareInsufficient(t *testing.T) {
	report := Compare([]Sample{
		{Label: "a", Probe: probe("1920x1080", 1, 1)},
		{Label: "b", Err: errors.New("timeout")},
	}, DefaultTolerance())
	if report.Verdict != VerdictInsufficient {
		t.Fatalf("expected insufficient, got %q", report.Verdict)
	}
	if report.Baseline != nil {
		t.Fatal("expected no baseline without a comparison")
	}
	if len(report.Failed) != 1 || report.Failed[0] != "b" {
		t.Fatalf("unexpected failed labels: %v", report.Failed)
	}

	if got := Compare(nil, DefaultTolerance()).Verdict; got != VerdictInsufficient {
		t.Fatalf("expected insufficient for no samples, got %q", got)
	}
}

func TestCompareBaselineIsFirstSuccess(t *testing.T) {
	samples := []Sample{
		{Label: "failed", Err: errors.New("boom")},
		{Label: "base", Probe: probe("1920x1080", 5_000_000, 1_000_000_000)},
		{Label: "close", Probe: probe("1920x1080", 5_200_000, 1_040_000_000)},
		{Label: "also-close", Probe: probe("1920x1080", 4_800_000, 960_000_000)},
	}
	report := Compare(samples, DefaultTolerance())
	if report.Verdict != VerdictIdentical {
		t.Fatalf("expected identical, got %q (%s on %s)", report.Verdict, report.Mismatch, report.MismatchLabel)
	}
	if report.Baseline == nil || report.Baseline.Label != "base" {
		t.Fatalf("expected first successful sample as baseline, got %+v", report.Baseline)
	}
	if len(report.Valid) != 3 {
		t.Fatalf("expected 3 valid samples, got %d", len(report.Valid))
	}
}

func TestCompareNotPairwise(t *testing.T) {
	// high and low are each within 5% of base but about 8% apart.
	samples := []Sample{
		{Label: "base", Probe: probe("1920x1080", 5_000_000, 1_000_000_000)},
		{Label: "high", Probe: probe("1920x1080", 5_200_000, 1_000_000_000)},
		{Label: "low", Probe: probe("1920x1080", 4_800_000, 1_000_000_000)},
	}
	if got := Compare(samples, DefaultTolerance()).Verdict; got != VerdictIdentical {
		t.Fatalf("expected identical against baseline, got %q", got)
	}
}

func TestCompareDifferentRecordsFirstMismatch(t *testing.T) {
	samples := []Sample{
		{Label: "1080p", Probe: probe("1920x1080", 5_000_000, 1_000_000_000)},
		{Label: "dup", Probe: probe("1920x1080", 5_000_000, 1_000_000_000)},
		{Label: "720p", Probe: probe("1280x720", 2_500_000, 500_000_000)},
		{Label: "big", Probe: probe("1920x1080", 9_000_000, 1_000_000_000)},
	}
	report := Compare(samples, DefaultTolerance())
	if report.Verdict != VerdictDifferent {
		t.Fatalf("expected different, got %q", report.Verdict)
	}
	if report.MismatchLabel != "720p" || report.Mismatch != MismatchResolution {
		t.Fatalf("unexpected first mismatch: %s (%s)", report.MismatchLabel, report.Mismatch)
	}
	if len(report.Valid) != 4 {
		t.Fatalf("expected all valid samples reported, got %d", len(report.Valid))
	}
}

func TestFromResult(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "", Width: 1280, Height: 720, RFrameRate: "30000/1001"},
			{CodecType: "audio", CodecName: "aac", Channels: 2},
		},
		Format: ffprobe.Format{BitRate: "2500000", Size: "524288000", Duration: "1320.5"},
	}
	p, err := FromResult(result)
	if err != nil {
		t.Fatalf("FromResult: %v", err)
	}
	if p.Resolution != "1280x720" || p.Codec != "unknown" {
		t.Fatalf("unexpected probe: %+v", p)
	}
	if p.Bitrate != 2_500_000 || p.FileSize != 524_288_000 || p.Duration != 1320.5 {
		t.Fatalf("unexpected numbers: %+v", p)
	}
	if p.FPS < 29.96 || p.FPS > 29.98 {
		t.Fatalf("unexpected fps: %v", p.FPS)
	}
	if !p.HasAudio || p.AudioCodec != "aac" || p.AudioChannels != 2 {
		t.Fatalf("unexpected audio: %+v", p)
	}
	if p.FileSizeMB() != 500 || p.BitrateKbps() != 2500 {
		t.Fatalf("unexpected unit helpers: %v MB %v kbps", p.FileSizeMB(), p.BitrateKbps())
	}

	if _, err := FromResult(ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}); !errors.Is(err, ErrNoVideoStream) {
		t.Fatalf("expected ErrNoVideoStream, got %v", err)
	}
}
