// Package media probes source media and renders edited output with the
// ffmpeg CLI.
package media

import (
	"context"

	"github.com/maauso/autocut/internal/timeline"
)

// DefaultFrameRate is assumed for audio-only sources.
var DefaultFrameRate = timeline.Rate30

// Metadata describes a source media file.
type Metadata struct {
	// Source is the path of the media file.
	Source string `json:"source"`
	// Duration is the media length in seconds.
	Duration float64 `json:"duration"`
	// FrameRate is the exact video frame rate, or DefaultFrameRate when the
	// source has no video stream.
	FrameRate timeline.FrameRate `json:"frame_rate"`
	// AudioSampleRate is the first audio stream's sample rate in Hz.
	AudioSampleRate int `json:"audio_sample_rate"`
	Width           int `json:"width,omitempty"`
	Height          int `json:"height,omitempty"`
	HasVideo        bool `json:"has_video"`
	HasAudio        bool `json:"has_audio"`
}

// Prober reads media metadata.
type Prober interface {
	// Probe returns the metadata of the media file at path.
	Probe(ctx context.Context, path string) (Metadata, error)
}

// Renderer produces an edited media file directly from kept segments.
type Renderer interface {
	// Render writes the concatenation of the kept segments of src to dst.
	Render(ctx context.Context, src string, kept []timeline.Interval, dst string) error
}
