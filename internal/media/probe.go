package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/autocut/internal/timeline"
)

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	ffprobePath string
}

// NewFFprobeProber creates a new FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

// probeOutput mirrors the parts of `ffprobe -print_format json` we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleRate   string `json:"sample_rate"`
	Duration     string `json:"duration"`
	Disposition  struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

// Probe implements Prober.Probe.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (Metadata, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	stdout, _, err := Run(ctx, p.ffprobePath, args)
	if err != nil {
		var ffErr *FFmpegError
		if errors.As(err, &ffErr) {
			return Metadata{}, fmt.Errorf("%w: %w", ErrFFprobeExecution, err)
		}
		return Metadata{}, err
	}

	md, err := parseProbeOutput(stdout)
	if err != nil {
		return Metadata{}, err
	}
	md.Source = path
	return md, nil
}

// parseProbeOutput converts ffprobe JSON to Metadata.
func parseProbeOutput(data []byte) (Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	md := Metadata{FrameRate: DefaultFrameRate}
	var streamDuration float64

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			// Cover art is reported as a video stream.
			if md.HasVideo || s.Disposition.AttachedPic == 1 {
				continue
			}
			md.HasVideo = true
			md.Width = s.Width
			md.Height = s.Height
			if fr, err := videoFrameRate(s); err == nil {
				md.FrameRate = fr
			}
			if d := parseSeconds(s.Duration); d > streamDuration {
				streamDuration = d
			}
		case "audio":
			if md.HasAudio {
				continue
			}
			md.HasAudio = true
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				md.AudioSampleRate = sr
			}
			if d := parseSeconds(s.Duration); d > streamDuration {
				streamDuration = d
			}
		}
	}

	if !md.HasVideo && !md.HasAudio {
		return Metadata{}, ErrNoStreams
	}

	md.Duration = parseSeconds(out.Format.Duration)
	if md.Duration <= 0 {
		md.Duration = streamDuration
	}
	if md.Duration <= 0 {
		return Metadata{}, fmt.Errorf("%w: got %q", ErrInvalidDuration, out.Format.Duration)
	}

	return md, nil
}

// videoFrameRate prefers r_frame_rate and falls back to avg_frame_rate.
func videoFrameRate(s probeStream) (timeline.FrameRate, error) {
	fr, err := timeline.ParseFrameRate(s.RFrameRate)
	if err == nil {
		return fr, nil
	}
	return timeline.ParseFrameRate(s.AvgFrameRate)
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Verify interface implementation at compile time.
var _ Prober = (*FFprobeProber)(nil)
