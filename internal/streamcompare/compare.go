package streamcompare

// Tolerance bounds how far a stream may drift from the baseline and still
// count as the same media.
type Tolerance struct {
	// BitrateRatio is the allowed |Δbitrate| as a fraction of the baseline.
	BitrateRatio float64 `json:"bitrate_ratio"`
	// SizeRatio is the allowed |Δsize| as a fraction of the baseline.
	SizeRatio float64 `json:"size_ratio"`
	// BitrateAbsolute, when positive, replaces the ratio bitrate check with a
	// fixed bits/sec window and disables the size check.
	BitrateAbsolute int64 `json:"bitrate_absolute,omitempty"`
}

// DefaultTolerance is 5% on both bitrate and container size.
func DefaultTolerance() Tolerance {
	return Tolerance{BitrateRatio: 0.05, SizeRatio: 0.05}
}

// AbsoluteTolerance compares bitrate within a fixed window and ignores size.
func AbsoluteTolerance(bitsPerSecond int64) Tolerance {
	return Tolerance{BitrateAbsolute: bitsPerSecond}
}

// Mismatch names the first property that made two probes differ.
type Mismatch string

const (
	MismatchNone       Mismatch = ""
	MismatchResolution Mismatch = "resolution"
	MismatchBitrate    Mismatch = "bitrate"
	MismatchFileSize   Mismatch = "file_size"
)

// Verdict is the outcome of comparing a set of samples.
type Verdict string

const (
	VerdictIdentical    Verdict = "identical"
	VerdictDifferent    Verdict = "different"
	VerdictInsufficient Verdict = "insufficient"
)

// Sample is one probed stream. Probe is nil when probing failed.
type Sample struct {
	Label string `json:"label"`
	Probe *Probe `json:"probe,omitempty"`
	Err   error  `json:"-"`
}

// OK reports whether the sample carries a probe.
func (s Sample) OK() bool {
	return s.Probe != nil
}

// Report summarizes Compare.
type Report struct {
	Verdict       Verdict   `json:"verdict"`
	Tolerance     Tolerance `json:"tolerance"`
	Baseline      *Sample   `json:"baseline,omitempty"`
	Valid         []Sample  `json:"valid"`
	Failed        []string  `json:"failed,omitempty"`
	MismatchLabel string    `json:"mismatch_label,omitempty"`
	Mismatch      Mismatch  `json:"mismatch,omitempty"`
}

// Check returns the first property on which other falls outside tol relative
// to base, or MismatchNone.
func Check(base, other Probe, tol Tolerance) Mismatch {
	if other.Resolution != base.Resolution {
		return MismatchResolution
	}
	if tol.BitrateAbsolute > 0 {
		if absInt64(other.Bitrate-base.Bitrate) > tol.BitrateAbsolute {
			return MismatchBitrate
		}
		return MismatchNone
	}
	if float64(absInt64(other.Bitrate-base.Bitrate)) > float64(base.Bitrate)*tol.BitrateRatio {
		return MismatchBitrate
	}
	if float64(absInt64(other.FileSize-base.FileSize)) > float64(base.FileSize)*tol.SizeRatio {
		return MismatchFileSize
	}
	return MismatchNone
}

// Equivalent reports whether other matches base within tol.
func Equivalent(base, other Probe, tol Tolerance) bool {
	return Check(base, other, tol) == MismatchNone
}

// Compare evaluates samples against the first successful one. Failed samples
// are excluded. With fewer than two successful samples no comparison is made.
func Compare(samples []Sample, tol Tolerance) Report {
	report := Report{Tolerance: tol, Valid: []Sample{}}
	for _, sample := range samples {
		if !sample.OK() {
			report.Failed = append(report.Failed, sample.Label)
			continue
		}
		report.Valid = append(report.Valid, sample)
	}
	if len(report.Valid) < 2 {
		report.Verdict = VerdictInsufficient
		return report
	}

	baseline := report.Valid[0]
	report.Baseline = &baseline
	report.Verdict = VerdictIdentical
	for _, sample := range report.Valid[1:] {
		if mismatch := Check(*baseline.Probe, *sample.Probe, tol); mismatch != MismatchNone {
			report.Verdict = VerdictDifferent
			report.Mismatch = mismatch
			report.MismatchLabel = sample.Label
			break
		}
	}
	return report
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
