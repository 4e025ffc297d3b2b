package streamcompare

import (
	"errors"
	"fmt"
	"strings"

	"vodaudit/internal/media/ffprobe"
)

// ErrNoVideoStream marks a probe whose output had no video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// Probe is the flattened metadata of one probed stream.
type Probe struct {
	Resolution    string  `json:"resolution"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Codec         string  `json:"codec"`
	Bitrate       int64   `json:"bitrate"`
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"file_size"`
	FPS           float64 `json:"fps"`
	AudioCodec    string  `json:"audio_codec,omitempty"`
	AudioChannels int     `json:"audio_channels,omitempty"`
	HasAudio      bool    `json:"has_audio"`
}

// FromResult flattens ffprobe output into a Probe.
func FromResult(result ffprobe.Result) (Probe, error) {
	video, ok := result.FirstVideo()
	if !ok {
		return Probe{}, ErrNoVideoStream
	}
	probe := Probe{
		Resolution: fmt.Sprintf("%dx%d", video.Width, video.Height),
		Width:      video.Width,
		Height:     video.Height,
		Codec:      codecOrUnknown(video.CodecName),
		Bitrate:    result.BitRate(),
		Duration:   result.DurationSeconds(),
		FileSize:   result.SizeBytes(),
		FPS:        ffprobe.ParseFrameRate(video.RFrameRate),
	}
	if audio, ok := result.FirstAudio(); ok {
		probe.HasAudio = true
		probe.AudioCodec = codecOrUnknown(audio.CodecName)
		probe.AudioChannels = audio.Channels
	}
	return probe, nil
}

// BitrateKbps returns the bitrate in kilobits per second.
func (p Probe) BitrateKbps() float64 {
	return float64(p.Bitrate) / 1000
}

// FileSizeMB returns the container size in mebibytes.
func (p Probe) FileSizeMB() float64 {
	return float64(p.FileSize) / (1024 * 1024)
}

func codecOrUnknown(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "unknown"
}
