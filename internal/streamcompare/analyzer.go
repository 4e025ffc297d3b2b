package streamcompare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vodaudit/internal/logging"
	"vodaudit/internal/media/ffprobe"
	"vodaudit/internal/services"
)

// Target is a stream to probe, labelled for reporting.
type Target struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Account string `json:"account,omitempty"`
}

// Prober turns a stream URL into a Probe.
type Prober interface {
	Probe(ctx context.Context, url string) (Probe, error)
}

// FFprobeProber probes streams with the ffprobe binary.
type FFprobeProber struct {
	Options ffprobe.Options
}

// Probe implements Prober.
func (p FFprobeProber) Probe(ctx context.Context, url string) (Probe, error) {
	result, err := ffprobe.Inspect(ctx, p.Options, url)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, ffprobe.ErrTimeout) {
			marker = services.ErrTimeout
		}
		return Probe{}, services.Wrap(marker, "ffprobe", "inspect", "", err)
	}
	probe, err := FromResult(result)
	if err != nil {
		return Probe{}, services.Wrap(services.ErrValidation, "ffprobe", "flatten", "", err)
	}
	return probe, nil
}

// Analyzer probes targets one at a time and compares the results.
type Analyzer struct {
	prober    Prober
	tolerance Tolerance
	logger    *slog.Logger

	// OnSample, when set, is called after each target is probed.
	OnSample func(Target, Sample)
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(prober Prober, tolerance Tolerance, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		prober:    prober,
		tolerance: tolerance,
		logger:    logging.NewComponentLogger(logger, "streamcompare"),
	}
}

// Run probes every target sequentially. Probe failures are recorded as failed
// samples; only context cancellation aborts the run.
func (a *Analyzer) Run(ctx context.Context, targets []Target) (Report, []Sample, error) {
	logger := logging.WithContext(ctx, a.logger)
	samples := make([]Sample, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return Report{}, samples, fmt.Errorf("compare streams: %w", err)
		}
		sample := Sample{Label: target.Label}
		probe, err := a.prober.Probe(ctx, target.URL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Report{}, samples, fmt.Errorf("compare streams: %w", ctxErr)
			}
			sample.Err = err
			logger.Warn("stream probe failed",
				logging.String(logging.FieldStreamLabel, target.Label),
				logging.StreamHost(target.URL),
				logging.Error(err),
			)
		} else {
			sample.Probe = &probe
			logger.Debug("stream probed",
				logging.String(logging.FieldStreamLabel, target.Label),
				logging.String("resolution", probe.Resolution),
				logging.Int64("bitrate", probe.Bitrate),
				logging.Int64("file_size", probe.FileSize),
			)
		}
		samples = append(samples, sample)
		if a.OnSample != nil {
			a.OnSample(target, sample)
		}
	}

	report := Compare(samples, a.tolerance)
	logger.Info("stream comparison complete",
		logging.String("verdict", string(report.Verdict)),
		logging.Int("valid", len(report.Valid)),
		logging.Int("failed", len(report.Failed)),
	)
	return report, samples, nil
}
