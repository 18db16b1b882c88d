package silence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/autocut/internal/media"
)

// FloorDb is the level reported for digital silence (-inf dBFS).
const FloorDb = -120.0

// analysisSampleRate is the rate audio is resampled to before level analysis.
const analysisSampleRate = 16000

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
	ptsTimeRe      = regexp.MustCompile(`pts_time:\s*(-?[\d.]+)`)
	rmsLevelRe     = regexp.MustCompile(`lavfi\.astats\.Overall\.RMS_level=(\S+)`)
)

// Analyzer produces detector input from a media file.
type Analyzer interface {
	// Spans returns the silent spans reported by the analyzer for cfg.
	Spans(ctx context.Context, path string, cfg Config) ([]Span, error)
	// Levels returns one RMS level sample per frame-long window.
	Levels(ctx context.Context, path string, frame time.Duration) ([]LevelSample, error)
}

// FFmpegAnalyzer implements Analyzer using the ffmpeg CLI.
type FFmpegAnalyzer struct {
	ffmpegPath string
}

// NewFFmpegAnalyzer creates a new FFmpegAnalyzer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegAnalyzer(ffmpegPath string) *FFmpegAnalyzer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegAnalyzer{ffmpegPath: ffmpegPath}
}

// Spans runs the silencedetect filter and parses its report.
func (a *FFmpegAnalyzer) Spans(ctx context.Context, path string, cfg Config) ([]Span, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}

	filter := fmt.Sprintf("silencedetect=noise=%.2fdB:d=%.3f",
		cfg.ThresholdDb,
		float64(cfg.MinDurationMs)/1000.0,
	)

	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", path,
		"-vn",
		"-af", filter,
		"-f", "null",
		"-",
	}

	// ffmpeg writes silencedetect output to stderr
	_, stderr, err := media.Run(ctx, a.ffmpegPath, args)
	if err != nil {
		return nil, fmt.Errorf("silencedetect: %w", err)
	}

	return parseSilenceOutput(string(stderr))
}

// Levels runs astats over fixed windows of frame length and parses the
// per-window RMS level.
func (a *FFmpegAnalyzer) Levels(ctx context.Context, path string, frame time.Duration) ([]LevelSample, error) {
	if frame <= 0 {
		return nil, fmt.Errorf("%w: frame %s", ErrAnalysisInput, frame)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}

	window := int(math.Round(frame.Seconds() * analysisSampleRate))
	if window < 1 {
		window = 1
	}
	filter := fmt.Sprintf(
		"aresample=%d,asetnsamples=n=%d:p=0,astats=metadata=1:reset=1,ametadata=print:key=lavfi.astats.Overall.RMS_level:file=-",
		analysisSampleRate, window,
	)

	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-af", filter,
		"-f", "null",
		"-",
	}

	stdout, _, err := media.Run(ctx, a.ffmpegPath, args)
	if err != nil {
		return nil, fmt.Errorf("astats: %w", err)
	}

	return parseLevelOutput(stdout)
}

// parseSilenceOutput parses ffmpeg silencedetect output. A start with no
// matching end extends to +Inf and is clamped to the media duration by the
// detector.
func parseSilenceOutput(output string) ([]Span, error) {
	var spans []Span

	lines := strings.Split(output, "\n")
	var currentStart float64
	hasStart := false

	for _, line := range lines {
		if startMatch := silenceStartRe.FindStringSubmatch(line); len(startMatch) > 1 {
			val, err := strconv.ParseFloat(startMatch[1], 64)
			if err != nil {
				continue
			}
			// silencedetect can report a slightly negative start at t=0.
			currentStart = math.Max(val, 0)
			hasStart = true
		}

		if endMatch := silenceEndRe.FindStringSubmatch(line); len(endMatch) > 1 && hasStart {
			val, err := strconv.ParseFloat(endMatch[1], 64)
			if err != nil {
				continue
			}
			if val > currentStart {
				spans = append(spans, Span{Start: currentStart, End: val})
			}
			hasStart = false
		}
	}

	if hasStart {
		spans = append(spans, Span{Start: currentStart, End: math.Inf(1)})
	}

	return spans, nil
}

// parseLevelOutput parses ametadata print output: a "pts_time" line followed
// by the RMS level key for each window.
func parseLevelOutput(output []byte) ([]LevelSample, error) {
	var samples []LevelSample
	scanner := bufio.NewScanner(bytes.NewReader(output))

	var currentTime float64
	hasTime := false

	for scanner.Scan() {
		line := scanner.Text()

		if m := ptsTimeRe.FindStringSubmatch(line); len(m) > 1 {
			val, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				currentTime = val
				hasTime = true
			}
			continue
		}

		if m := rmsLevelRe.FindStringSubmatch(line); len(m) > 1 && hasTime {
			samples = append(samples, LevelSample{Time: currentTime, LevelDb: parseLevel(m[1])})
			hasTime = false
		}
	}

	return samples, scanner.Err()
}

func parseLevel(s string) float64 {
	if strings.HasSuffix(s, "inf") {
		return FloorDb
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < FloorDb {
		return FloorDb
	}
	return v
}

// Verify interface implementation at compile time.
var _ Analyzer = (*FFmpegAnalyzer)(nil)
