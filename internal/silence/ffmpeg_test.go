package silence

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkFFmpeg skips test if ffmpeg is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestWAV creates a sine-wave WAV with silences inserted at the given
// [start, duration] pairs.
func createTestWAV(t *testing.T, outputPath string, durationSec float64, silenceAt [][2]float64) {
	t.Helper()

	var inputs []string
	parts := 0
	current := 0.0
	for _, s := range silenceAt {
		if s[0] > current {
			inputs = append(inputs, "-f", "lavfi", "-i", "sine=frequency=440:sample_rate=16000:duration="+formatDuration(s[0]-current))
			parts++
		}
		inputs = append(inputs, "-f", "lavfi", "-i", "anullsrc=channel_layout=mono:sample_rate=16000:duration="+formatDuration(s[1]))
		parts++
		current = s[0] + s[1]
	}
	if current < durationSec {
		inputs = append(inputs, "-f", "lavfi", "-i", "sine=frequency=440:sample_rate=16000:duration="+formatDuration(durationSec-current))
		parts++
	}

	var concatInputs string
	for i := 0; i < parts; i++ {
		concatInputs += "[" + strconv.Itoa(i) + ":a]"
	}
	concatFilter := concatInputs + "concat=n=" + strconv.Itoa(parts) + ":v=0:a=1[out]"

	args := append(inputs,
		"-filter_complex", concatFilter,
		"-map", "[out]",
		"-ar", "16000", "-ac", "1",
		"-y", outputPath,
	)

	cmd := exec.Command("ffmpeg", args...)
	stderr, _ := cmd.CombinedOutput()
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatalf("failed to create test WAV with silences: %s", string(stderr))
	}
}

func formatDuration(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}

func TestParseSilenceOutput(t *testing.T) {
	output := `
[silencedetect @ 0x55f1a2b3c4d0] silence_start: 10.5
[silencedetect @ 0x55f1a2b3c4d0] silence_end: 11.2 | silence_duration: 0.7
[silencedetect @ 0x55f1a2b3c4d0] silence_start: 45.0
[silencedetect @ 0x55f1a2b3c4d0] silence_end: 46.5 | silence_duration: 1.5
[silencedetect @ 0x55f1a2b3c4d0] silence_start: 58.25
`

	spans, err := parseSilenceOutput(output)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	assert.Equal(t, Span{Start: 10.5, End: 11.2}, spans[0])
	assert.Equal(t, Span{Start: 45.0, End: 46.5}, spans[1])
	assert.Equal(t, 58.25, spans[2].Start)
	assert.True(t, math.IsInf(spans[2].End, 1))
	assert.False(t, spans[0].Measured)

	candidates, err := DetectSpans(spans, 60, Config{ThresholdDb: -30, MinDurationMs: 500})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, 60.0, candidates[2].End)
}

func TestParseSilenceOutput_NegativeStart(t *testing.T) {
	spans, err := parseSilenceOutput("[silencedetect @ 0x1] silence_start: -0.00133\n[silencedetect @ 0x1] silence_end: 1.5 | silence_duration: 1.5\n")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 0.0, spans[0].Start)
}

func TestParseSilenceOutput_Empty(t *testing.T) {
	spans, err := parseSilenceOutput("size=N/A time=00:00:10.00 bitrate=N/A speed= 500x\n")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestParseLevelOutput(t *testing.T) {
	output := []byte(`frame:0    pts:0       pts_time:0
lavfi.astats.Overall.RMS_level=-21.503445
frame:1    pts:1600    pts_time:0.1
lavfi.astats.Overall.RMS_level=-inf
frame:2    pts:3200    pts_time:0.2
lavfi.astats.Overall.RMS_level=-64.100000
frame:3    pts:4800    pts_time:0.3
lavfi.astats.Overall.RMS_level=nan
`)

	samples, err := parseLevelOutput(output)
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, LevelSample{Time: 0, LevelDb: -21.503445}, samples[0])
	assert.Equal(t, LevelSample{Time: 0.1, LevelDb: FloorDb}, samples[1])
	assert.Equal(t, -64.1, samples[2].LevelDb)
	assert.Equal(t, FloorDb, samples[3].LevelDb)
}

func TestNewFFmpegAnalyzer(t *testing.T) {
	assert.Equal(t, "ffmpeg", NewFFmpegAnalyzer("").ffmpegPath)
	assert.Equal(t, "/custom/path/ffmpeg", NewFFmpegAnalyzer("/custom/path/ffmpeg").ffmpegPath)
}

func TestFFmpegAnalyzer_NonExistentFile(t *testing.T) {
	a := NewFFmpegAnalyzer("")
	_, err := a.Spans(context.Background(), "/nonexistent/file.wav", testConfig())
	assert.Error(t, err)

	_, err = a.Levels(context.Background(), "/nonexistent/file.wav", 50*time.Millisecond)
	assert.Error(t, err)

	_, err = a.Levels(context.Background(), "/nonexistent/file.wav", 0)
	assert.ErrorIs(t, err, ErrAnalysisInput)
}

func TestFFmpegAnalyzer_Spans(t *testing.T) {
	checkFFmpeg(t)

	inputPath := filepath.Join(t.TempDir(), "speech.wav")
	createTestWAV(t, inputPath, 10, [][2]float64{{3.0, 1.0}, {7.0, 1.5}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	spans, err := NewFFmpegAnalyzer("").Spans(ctx, inputPath, testConfig())
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.InDelta(t, 3.0, spans[0].Start, 0.05)
	assert.InDelta(t, 4.0, spans[0].End, 0.05)
	assert.InDelta(t, 7.0, spans[1].Start, 0.05)
	assert.InDelta(t, 8.5, spans[1].End, 0.05)
}

func TestFFmpegAnalyzer_Levels(t *testing.T) {
	checkFFmpeg(t)

	inputPath := filepath.Join(t.TempDir(), "speech.wav")
	createTestWAV(t, inputPath, 4, [][2]float64{{1.0, 2.0}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	samples, err := NewFFmpegAnalyzer("").Levels(ctx, inputPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	candidates, err := DetectLevels(samples, 100*time.Millisecond, 4, testConfig())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 1.0, candidates[0].Start, 0.11)
	assert.InDelta(t, 3.0, candidates[0].End, 0.11)
}

func TestFFmpegAnalyzer_ContextCancellation(t *testing.T) {
	checkFFmpeg(t)

	inputPath := filepath.Join(t.TempDir(), "test.wav")
	createTestWAV(t, inputPath, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFFmpegAnalyzer("").Spans(ctx, inputPath, testConfig())
	assert.Error(t, err)
}
