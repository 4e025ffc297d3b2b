package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBinary          = "ffprobe"
	DefaultTimeout         = 15 * time.Second
	DefaultAnalyzeDuration = 5_000_000
	DefaultProbeSize       = 10_000_000

	stderrExcerptLimit = 100
)

// ErrTimeout is returned when ffprobe does not finish within Options.Timeout.
var ErrTimeout = errors.New("ffprobe timeout")

// Options controls how ffprobe is invoked. Zero values fall back to the
// package defaults.
type Options struct {
	Binary string
	// Timeout bounds a single invocation.
	Timeout time.Duration
	// AnalyzeDuration is passed as -analyzeduration, in microseconds.
	AnalyzeDuration int64
	// ProbeSize is passed as -probesize, in bytes.
	ProbeSize int64
}

func (o Options) withDefaults() Options {
	o.Binary = strings.TrimSpace(o.Binary)
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.AnalyzeDuration <= 0 {
		o.AnalyzeDuration = DefaultAnalyzeDuration
	}
	if o.ProbeSize <= 0 {
		o.ProbeSize = DefaultProbeSize
	}
	return o
}

// Args returns the ffprobe argument list used for target.
func (o Options) Args(target string) []string {
	o = o.withDefaults()
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-analyzeduration", strconv.FormatInt(o.AnalyzeDuration, 10),
		"-probesize", strconv.FormatInt(o.ProbeSize, 10),
		target,
	}
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against target (a file path or stream URL) and
// decodes the JSON response.
func Inspect(ctx context.Context, opts Options, target string) (Result, error) {
	opts = opts.withDefaults()
	target = strings.TrimSpace(target)
	if target == "" {
		return Result{}, errors.New("ffprobe inspect: empty target")
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, opts.Binary, opts.Args(target)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{}, fmt.Errorf("%w after %ds: %w", ErrTimeout, int(opts.Timeout.Seconds()), context.DeadlineExceeded)
	}
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe failed: %w: %s", err, excerpt(stderr.String(), stderrExcerptLimit))
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// FirstVideo returns the first video stream, if any.
func (r Result) FirstVideo() (Stream, bool) {
	return r.first("video")
}

// FirstAudio returns the first audio stream, if any.
func (r Result) FirstAudio() (Stream, bool) {
	return r.first("audio")
}

func (r Result) first(codecType string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return nonNegative(parseFloat(r.Format.Duration))
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	return int64(nonNegative(parseFloat(r.Format.Size)))
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	return int64(nonNegative(parseFloat(r.Format.BitRate)))
}

// ParseFrameRate evaluates an ffprobe rational such as "30000/1001". Empty,
// malformed, and zero-denominator values yield 0.
func ParseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return nonNegative(parseFloat(num))
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
		return 0
	}
	return nonNegative(n / d)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func excerpt(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
