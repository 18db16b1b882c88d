package project

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/timeline"
)

func scenarioConfig() silence.Config {
	return silence.Config{
		ThresholdDb:      -30,
		MinDurationMs:    500,
		PrePaddingMs:     100,
		PostPaddingMs:    150,
		MergeGapMs:       300,
		KeepShortPauseMs: 150,
	}
}

func scenarioMedia(path string) media.Metadata {
	return media.Metadata{
		Source:          path,
		Duration:        60,
		FrameRate:       timeline.Rate25,
		AudioSampleRate: 48000,
		Width:           1920,
		Height:          1080,
		HasVideo:        true,
		HasAudio:        true,
	}
}

func scenarioCutList(t *testing.T) *cutlist.CutList {
	t.Helper()
	cl, err := cutlist.Build([]silence.Candidate{
		{Interval: timeline.Interval{Start: 10, End: 10.6}},
		{Interval: timeline.Interval{Start: 12, End: 12.8}},
	}, scenarioConfig(), 60)
	require.NoError(t, err)
	return cl
}

func readyProject(t *testing.T) *Project {
	t.Helper()
	p := NewWithID("prj-1-00000000", "/media/interview.mp4", scenarioConfig())
	require.NoError(t, p.StartAnalysis())
	require.NoError(t, p.ReplaceCutList(scenarioMedia(p.MediaPath), scenarioCutList(t)))
	return p
}

func TestNew(t *testing.T) {
	p := New("/media/a.wav", scenarioConfig())

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusInQueue, p.Status)
	assert.Equal(t, "/media/a.wav", p.MediaPath)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NotNil(t, p.Exports)
	assert.False(t, p.HasCutList())
}

func TestProject_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"IN_QUEUE to ANALYZING", StatusInQueue, StatusAnalyzing, false},
		{"IN_QUEUE to FAILED", StatusInQueue, StatusFailed, false},
		{"ANALYZING to READY", StatusAnalyzing, StatusReady, false},
		{"ANALYZING to FAILED", StatusAnalyzing, StatusFailed, false},
		{"READY to ANALYZING", StatusReady, StatusAnalyzing, false},
		{"FAILED to ANALYZING", StatusFailed, StatusAnalyzing, false},
		{"IN_QUEUE to READY", StatusInQueue, StatusReady, true},
		{"READY to FAILED", StatusReady, StatusFailed, true},
		{"READY to IN_QUEUE", StatusReady, StatusInQueue, true},
		{"FAILED to READY", StatusFailed, StatusReady, true},
		{"ANALYZING to ANALYZING", StatusAnalyzing, StatusAnalyzing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewWithID("test", "/m.wav", scenarioConfig())
			p.Status = tt.from

			err := p.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, p.Status)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, p.Status)
			}
		})
	}
}

func TestProject_FailAndRetry(t *testing.T) {
	p := NewWithID("test", "/m.wav", scenarioConfig())
	require.NoError(t, p.StartAnalysis())
	require.NoError(t, p.Fail("ffmpeg exploded"))
	assert.Equal(t, StatusFailed, p.GetStatus())
	assert.Equal(t, "ffmpeg exploded", p.Error)

	require.NoError(t, p.StartAnalysis())
	assert.Empty(t, p.Error)
}

func TestProject_ReplaceCutList(t *testing.T) {
	p := NewWithID("test", "/m.wav", scenarioConfig())

	err := p.ReplaceCutList(scenarioMedia("/m.wav"), scenarioCutList(t))
	assert.ErrorIs(t, err, ErrInvalidTransition, "IN_QUEUE cannot jump to READY")

	require.NoError(t, p.StartAnalysis())
	assert.ErrorIs(t, p.ReplaceCutList(scenarioMedia("/m.wav"), nil), ErrNotReady)

	built := scenarioCutList(t)
	require.NoError(t, p.ReplaceCutList(scenarioMedia("/m.wav"), built))
	assert.Equal(t, StatusReady, p.Status)
	assert.False(t, p.AnalyzedAt.IsZero())

	// The project holds its own copy.
	_, err = built.SetEnabled(built.Cuts()[0].ID, false)
	require.NoError(t, err)
	snap, _, err := p.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.Cuts()[0].Enabled)
}

func TestProject_ReanalysisKeepsCutListReadable(t *testing.T) {
	p := readyProject(t)
	require.NoError(t, p.StartAnalysis())

	snap, _, err := p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	_, err = p.ToggleCut(snap.Cuts()[0].ID)
	assert.ErrorIs(t, err, ErrNotReady, "edits are rejected while analysing")
}

func TestProject_SetCutEnabled(t *testing.T) {
	p := readyProject(t)
	snap, _, err := p.Snapshot()
	require.NoError(t, err)
	first := snap.Cuts()[0]

	c, err := p.SetCutEnabled(first.ID, false)
	require.NoError(t, err)
	assert.False(t, c.Enabled)
	assert.Equal(t, first.ID, c.ID)

	c, err = p.ToggleCut(first.ID)
	require.NoError(t, err)
	assert.True(t, c.Enabled)

	_, err = p.SetCutEnabled("missing", true)
	assert.ErrorIs(t, err, cutlist.ErrCutNotFound)
}

func TestProject_SnapshotIsFrozen(t *testing.T) {
	p := readyProject(t)

	snap, md, err := p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 60.0, md.Duration)

	for _, c := range snap.Cuts() {
		_, err := p.SetCutEnabled(c.ID, false)
		require.NoError(t, err)
	}

	for _, c := range snap.Cuts() {
		assert.True(t, c.Enabled, "snapshot must not observe later edits")
	}
}

func TestProject_SnapshotWithoutCutList(t *testing.T) {
	p := NewWithID("test", "/m.wav", scenarioConfig())
	_, _, err := p.Snapshot()
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestProject_Clone(t *testing.T) {
	p := readyProject(t)
	p.AddExport(Export{Format: "edl", Path: "/tmp/a.edl"})

	clone := p.Clone()
	assert.Equal(t, p.ID, clone.ID)
	assert.Equal(t, p.Exports, clone.Exports)

	clone.Exports[0].Path = "changed"
	assert.Equal(t, "/tmp/a.edl", p.Exports[0].Path)

	cut := clone.cutList.Cuts()[0]
	_, err := clone.SetCutEnabled(cut.ID, false)
	require.NoError(t, err)
	got, ok := p.cutList.Get(cut.ID)
	require.True(t, ok)
	assert.True(t, got.Enabled)
}
