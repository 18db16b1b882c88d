package media

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autocut/internal/timeline"
)

func TestParseProbeOutput(t *testing.T) {
	t.Run("video with audio", func(t *testing.T) {
		data := []byte(`{
			"streams": [
				{"codec_type": "video", "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "width": 1920, "height": 1080, "duration": "60.060000"},
				{"codec_type": "audio", "sample_rate": "48000", "duration": "60.000000"}
			],
			"format": {"duration": "60.060000"}
		}`)

		md, err := parseProbeOutput(data)
		require.NoError(t, err)
		assert.Equal(t, timeline.Rate2997, md.FrameRate)
		assert.InDelta(t, 60.06, md.Duration, 1e-9)
		assert.Equal(t, 48000, md.AudioSampleRate)
		assert.Equal(t, 1920, md.Width)
		assert.Equal(t, 1080, md.Height)
		assert.True(t, md.HasVideo)
		assert.True(t, md.HasAudio)
	})

	t.Run("audio only falls back to default rate", func(t *testing.T) {
		data := []byte(`{
			"streams": [{"codec_type": "audio", "sample_rate": "44100", "duration": "12.5"}],
			"format": {}
		}`)

		md, err := parseProbeOutput(data)
		require.NoError(t, err)
		assert.Equal(t, DefaultFrameRate, md.FrameRate)
		assert.InDelta(t, 12.5, md.Duration, 1e-9)
		assert.False(t, md.HasVideo)
	})

	t.Run("cover art is ignored", func(t *testing.T) {
		data := []byte(`{
			"streams": [
				{"codec_type": "audio", "sample_rate": "44100"},
				{"codec_type": "video", "r_frame_rate": "90000/1", "width": 600, "height": 600, "disposition": {"attached_pic": 1}}
			],
			"format": {"duration": "200.0"}
		}`)

		md, err := parseProbeOutput(data)
		require.NoError(t, err)
		assert.False(t, md.HasVideo)
		assert.Equal(t, DefaultFrameRate, md.FrameRate)
	})

	t.Run("no streams", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams": [], "format": {"duration": "1.0"}}`))
		assert.ErrorIs(t, err, ErrNoStreams)
	})

	t.Run("zero duration", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams": [{"codec_type": "audio"}], "format": {"duration": "0"}}`))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestNewFFprobeProber(t *testing.T) {
	assert.Equal(t, "ffprobe", NewFFprobeProber("").ffprobePath)
	assert.Equal(t, "/opt/bin/ffprobe", NewFFprobeProber("/opt/bin/ffprobe").ffprobePath)
}

func TestFFprobeProber_Probe(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "probe.mp4")
	createTestVideo(t, path, 1.0)

	md, err := NewFFprobeProber("").Probe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, md.Source)
	assert.Equal(t, timeline.Rate25, md.FrameRate)
	assert.InDelta(t, 1.0, md.Duration, 0.1)
	assert.True(t, md.HasVideo)
	assert.True(t, md.HasAudio)
	assert.Equal(t, 64, md.Width)

	_, err = NewFFprobeProber("").Probe(context.Background(), "/nonexistent/file.mp4")
	assert.ErrorIs(t, err, ErrFFprobeExecution)
}
