package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/storage"
	"github.com/maauso/autocut/internal/timeline"
)

// mockProber implements media.Prober for testing.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, path string) (media.Metadata, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.Metadata), args.Error(1)
}

// mockAnalyzer implements silence.Analyzer for testing.
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Spans(ctx context.Context, path string, cfg silence.Config) ([]silence.Span, error) {
	args := m.Called(ctx, path, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]silence.Span), args.Error(1)
}

func (m *mockAnalyzer) Levels(ctx context.Context, path string, frame time.Duration) ([]silence.LevelSample, error) {
	args := m.Called(ctx, path, frame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]silence.LevelSample), args.Error(1)
}

// mockRenderer implements media.Renderer for testing.
type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, src string, kept []timeline.Interval, dst string) error {
	args := m.Called(ctx, src, kept, dst)
	return args.Error(0)
}

type testEnv struct {
	svc      *Service
	repo     *MemoryRepository
	prober   *mockProber
	analyzer *mockAnalyzer
	renderer *mockRenderer
	store    *storage.LocalStorage
	media    string
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()

	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "interview.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("not really video"), 0600))

	store, err := storage.NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	env := &testEnv{
		repo:     NewMemoryRepository(),
		prober:   &mockProber{},
		analyzer: &mockAnalyzer{},
		renderer: &mockRenderer{},
		store:    store,
		media:    mediaPath,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewService(env.repo, env.prober, env.analyzer, env.renderer, store, preset.NewResolver(), logger, opts...)
	return env
}

func (e *testEnv) expectScenario() {
	e.prober.On("Probe", mock.Anything, e.media).Return(scenarioMedia(e.media), nil)
	e.analyzer.On("Spans", mock.Anything, e.media, mock.Anything).Return([]silence.Span{
		{Start: 10, End: 10.6},
		{Start: 12, End: 12.8},
	}, nil)
}

func (e *testEnv) readyProject(t *testing.T) *Project {
	t.Helper()
	e.expectScenario()
	cfg := scenarioConfig()
	p, err := e.svc.CreateProject(context.Background(), CreateInput{MediaPath: e.media, Config: &cfg})
	require.NoError(t, err)
	require.NoError(t, e.svc.Analyze(context.Background(), p.ID))
	return p
}

func TestService_CreateProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("default preset", func(t *testing.T) {
		p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
		require.NoError(t, err)
		assert.Equal(t, StatusInQueue, p.Status)
		assert.Equal(t, "podcast", p.Preset)

		want, _ := preset.NewResolver().Resolve(preset.Podcast)
		assert.Equal(t, want, p.Config)

		saved, err := env.repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, saved.ID)
	})

	t.Run("named preset variant", func(t *testing.T) {
		p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media, Preset: "Noisy Room", Title: "Ep 1"})
		require.NoError(t, err)
		assert.Equal(t, "noisy_room", p.Preset)
		assert.Equal(t, "Ep 1", p.Title)
	})

	t.Run("manual config wins", func(t *testing.T) {
		cfg := scenarioConfig()
		p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media, Preset: "meeting", Config: &cfg})
		require.NoError(t, err)
		assert.Empty(t, p.Preset)
		assert.Equal(t, cfg, p.Config)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: "/does/not/exist.mp4"})
		assert.ErrorIs(t, err, ErrMediaNotFound)

		_, err = env.svc.CreateProject(ctx, CreateInput{MediaPath: filepath.Dir(env.media)})
		assert.ErrorIs(t, err, ErrMediaNotFound)

		_, err = env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media, Preset: "wedding"})
		assert.ErrorIs(t, err, preset.ErrUnknownPreset)

		bad := scenarioConfig()
		bad.ThresholdDb = 3
		_, err = env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media, Config: &bad})
		assert.ErrorIs(t, err, silence.ErrInvalidConfig)
	})
}

func TestService_Analyze(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	got, err := env.svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Empty(t, got.Error)
	assert.Equal(t, 60.0, got.Media.Duration)

	cl, _, err := got.Snapshot()
	require.NoError(t, err)
	cuts := cl.Cuts()
	require.Len(t, cuts, 2)
	assert.InDelta(t, 9.9, cuts[0].Start, 1e-9)
	assert.InDelta(t, 10.75, cuts[0].End, 1e-9)
	assert.InDelta(t, 11.9, cuts[1].Start, 1e-9)
	assert.InDelta(t, 12.95, cuts[1].End, 1e-9)
	assert.True(t, cuts[0].Enabled)
	assert.True(t, cuts[1].Enabled)

	env.prober.AssertExpectations(t)
	env.analyzer.AssertExpectations(t)
}

func TestService_Analyze_Levels(t *testing.T) {
	env := newTestEnv(t, WithLevelAnalysis(100*time.Millisecond, 0))
	ctx := context.Background()

	md := scenarioMedia(env.media)
	md.Duration = 3
	env.prober.On("Probe", mock.Anything, env.media).Return(md, nil)

	samples := make([]silence.LevelSample, 30)
	for i := range samples {
		level := -12.0
		if i >= 10 && i < 20 {
			level = silence.FloorDb
		}
		samples[i] = silence.LevelSample{Time: float64(i) / 10, LevelDb: level}
	}
	env.analyzer.On("Levels", mock.Anything, env.media, 100*time.Millisecond).Return(samples, nil)

	cfg := scenarioConfig()
	p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media, Config: &cfg})
	require.NoError(t, err)
	require.NoError(t, env.svc.Analyze(ctx, p.ID))

	got, _ := env.svc.GetProject(ctx, p.ID)
	cl, _, err := got.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 1, cl.Len())
	assert.InDelta(t, 0.9, cl.Cuts()[0].Start, 1e-9)
	assert.InDelta(t, 2.15, cl.Cuts()[0].End, 1e-9)
	env.analyzer.AssertNotCalled(t, "Spans", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Analyze_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("probe error", func(t *testing.T) {
		env := newTestEnv(t)
		env.prober.On("Probe", mock.Anything, env.media).Return(media.Metadata{}, media.ErrFFprobeExecution)

		p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
		require.NoError(t, err)

		err = env.svc.Analyze(ctx, p.ID)
		assert.ErrorIs(t, err, media.ErrFFprobeExecution)

		got, _ := env.svc.GetProject(ctx, p.ID)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Contains(t, got.Error, "probe media")
		assert.False(t, got.HasCutList())
	})

	t.Run("no audio", func(t *testing.T) {
		env := newTestEnv(t)
		md := scenarioMedia(env.media)
		md.HasAudio = false
		env.prober.On("Probe", mock.Anything, env.media).Return(md, nil)

		p, _ := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
		assert.ErrorIs(t, env.svc.Analyze(ctx, p.ID), ErrNoAudio)
	})

	t.Run("malformed analyzer output", func(t *testing.T) {
		env := newTestEnv(t)
		env.prober.On("Probe", mock.Anything, env.media).Return(scenarioMedia(env.media), nil)
		env.analyzer.On("Spans", mock.Anything, env.media, mock.Anything).Return([]silence.Span{
			{Start: 12, End: 13},
			{Start: 10, End: 11},
		}, nil)

		p, _ := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
		err := env.svc.Analyze(ctx, p.ID)
		assert.ErrorIs(t, err, silence.ErrAnalysisInput)

		got, _ := env.svc.GetProject(ctx, p.ID)
		assert.Equal(t, StatusFailed, got.Status)
	})

	t.Run("failed project can be retried", func(t *testing.T) {
		env := newTestEnv(t)
		env.prober.On("Probe", mock.Anything, env.media).Return(media.Metadata{}, errors.New("boom")).Once()
		env.expectScenario()

		p, _ := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
		require.Error(t, env.svc.Analyze(ctx, p.ID))
		require.NoError(t, env.svc.Analyze(ctx, p.ID))

		got, _ := env.svc.GetProject(ctx, p.ID)
		assert.Equal(t, StatusReady, got.Status)
		assert.Empty(t, got.Error)
	})
}

func TestService_BeginAnalysis_Running(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
	require.NoError(t, err)

	_, err = env.svc.BeginAnalysis(ctx, p.ID)
	require.NoError(t, err)
	_, err = env.svc.BeginAnalysis(ctx, p.ID)
	assert.ErrorIs(t, err, ErrAnalysisRunning)

	_, err = env.svc.Reconfigure(ctx, p.ID, "meeting", nil)
	assert.ErrorIs(t, err, ErrAnalysisRunning)
	assert.ErrorIs(t, env.svc.DeleteProject(ctx, p.ID), ErrAnalysisRunning)
}

func TestService_Reconfigure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	got, err := env.svc.Reconfigure(ctx, p.ID, "aggressive", nil)
	require.NoError(t, err)
	assert.Equal(t, "aggressive", got.Preset)
	assert.Equal(t, StatusReady, got.Status)
	assert.True(t, got.HasCutList(), "cut list is kept until the next analysis")

	_, err = env.svc.Reconfigure(ctx, "missing", "podcast", nil)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_SetCutEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	stored, _ := env.svc.GetProject(ctx, p.ID)
	cl, _, _ := stored.Snapshot()
	cutID := cl.Cuts()[0].ID

	off := false
	c, err := env.svc.SetCutEnabled(ctx, p.ID, cutID, &off)
	require.NoError(t, err)
	assert.False(t, c.Enabled)

	c, err = env.svc.SetCutEnabled(ctx, p.ID, cutID, nil)
	require.NoError(t, err)
	assert.True(t, c.Enabled)

	_, err = env.svc.SetCutEnabled(ctx, p.ID, "nope", nil)
	assert.ErrorIs(t, err, cutlist.ErrCutNotFound)

	_, err = env.svc.SetCutEnabled(ctx, "missing", cutID, nil)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_SetCutEnabled_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	stored, _ := env.svc.GetProject(ctx, p.ID)
	cl, _, _ := stored.Snapshot()
	cuts := cl.Cuts()

	var wg sync.WaitGroup
	off := false
	for _, c := range cuts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.SetCutEnabled(ctx, p.ID, id, &off)
			assert.NoError(t, err)
		}(c.ID)
	}
	wg.Wait()

	stored, _ = env.svc.GetProject(ctx, p.ID)
	cl, _, _ = stored.Snapshot()
	assert.Empty(t, cl.Enabled(), "no update may be lost")
}

func TestService_SetCutEnabled_NotReady(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, _ := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
	_, err := env.svc.SetCutEnabled(ctx, p.ID, "any", nil)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestService_Export(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	res, err := env.svc.Export(ctx, p.ID, ExportInput{Format: export.FormatEDL})
	require.NoError(t, err)
	assert.Equal(t, export.FormatEDL, res.Document.Format)
	assert.Empty(t, res.URL)
	assert.Equal(t, filepath.Join(env.store.Dir(), p.ID+"_interview.edl"), res.Path)

	content, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Document.Content, content)
	assert.Contains(t, string(content), "TITLE: interview")

	got, _ := env.svc.GetProject(ctx, p.ID)
	require.Len(t, got.Exports, 1)
	assert.Equal(t, res.Path, got.Exports[0].Path)

	res, err = env.svc.Export(ctx, p.ID, ExportInput{Format: export.FormatFCPXML, Title: "Final Cut"})
	require.NoError(t, err)
	assert.Equal(t, "Final Cut", res.Document.Title)
	assert.Equal(t, p.ID+"_Final Cut.fcpxml", filepath.Base(res.Path))
}

func TestService_Export_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	queued, _ := env.svc.CreateProject(ctx, CreateInput{MediaPath: env.media})
	_, err := env.svc.Export(ctx, queued.ID, ExportInput{Format: export.FormatEDL})
	assert.ErrorIs(t, err, ErrNotReady)

	p := env.readyProject(t)
	_, err = env.svc.Export(ctx, p.ID, ExportInput{Format: "aaf"})
	assert.ErrorIs(t, err, export.ErrUnknownFormat)

	_, err = env.svc.Export(ctx, p.ID, ExportInput{Format: export.FormatEDL, Upload: true})
	assert.ErrorIs(t, err, storage.ErrS3NotConfigured)

	_, err = env.svc.Export(ctx, "missing", ExportInput{Format: export.FormatEDL})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_Render(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	out := filepath.Join(t.TempDir(), "edited.mp4")
	env.renderer.On("Render", mock.Anything, env.media, mock.MatchedBy(func(kept []timeline.Interval) bool {
		return len(kept) == 3 && kept[0].Start == 0 && kept[2].End == 60
	}), out).Return(nil)

	require.NoError(t, env.svc.Render(ctx, p.ID, out))
	env.renderer.AssertExpectations(t)
}

func TestService_Render_Error(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	env.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(media.ErrNoSegments)
	assert.ErrorIs(t, env.svc.Render(ctx, p.ID, "/tmp/out.mp4"), media.ErrNoSegments)
}

func TestService_DeleteProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.readyProject(t)

	require.NoError(t, env.svc.DeleteProject(ctx, p.ID))
	_, err := env.svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	list, err := env.svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
