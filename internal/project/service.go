package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/storage"
)

var (
	// ErrMediaNotFound is returned when the media path does not name a file.
	ErrMediaNotFound = errors.New("media file not found")
	// ErrAnalysisRunning is returned when an edit or a second analysis is
	// attempted while an analysis is in flight.
	ErrAnalysisRunning = errors.New("analysis already running")
)

// PresetResolver resolves preset names to detection configs.
type PresetResolver interface {
	Resolve(name preset.Name) (silence.Config, error)
}

// CreateInput contains the parameters for a new project.
type CreateInput struct {
	// MediaPath is the path to the source media.
	MediaPath string
	// Preset selects a named config. Ignored when Config is set.
	Preset string
	// Config overrides the preset with manual settings.
	Config *silence.Config
	// Title names exported timelines.
	Title string
}

// ExportInput contains the parameters for an export.
type ExportInput struct {
	Format export.Format
	// Title overrides the project title for this export.
	Title string
	// Upload also pushes the document to S3.
	Upload bool
}

// ExportResult describes a written export document.
type ExportResult struct {
	Document export.Document
	Path     string
	URL      string
}

// Service orchestrates project analysis, review, export and render.
type Service struct {
	repo     Repository
	pipeline Pipeline
	renderer media.Renderer
	store    storage.Storage
	presets  PresetResolver
	logger   *slog.Logger

	defaultPreset preset.Name

	// mu serializes load-modify-save cycles on the repository.
	mu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDefaultPreset sets the preset used when a request names neither a
// preset nor a config.
func WithDefaultPreset(name preset.Name) ServiceOption {
	return func(s *Service) {
		s.defaultPreset = name
	}
}

// WithLevelAnalysis switches analysis to RMS level series with the given
// window and hysteresis.
func WithLevelAnalysis(frame time.Duration, hysteresisDb float64) ServiceOption {
	return func(s *Service) {
		s.pipeline.LevelFrame = frame
		s.pipeline.HysteresisDb = hysteresisDb
	}
}

// NewService creates a new Service.
func NewService(
	repo Repository,
	prober media.Prober,
	analyzer silence.Analyzer,
	renderer media.Renderer,
	store storage.Storage,
	presets PresetResolver,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:          repo,
		pipeline:      Pipeline{Prober: prober, Analyzer: analyzer},
		renderer:      renderer,
		store:         store,
		presets:       presets,
		logger:        logger,
		defaultPreset: preset.Podcast,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProject validates the input, resolves the detection config and
// persists a new IN_QUEUE project. It does not start analysis.
func (s *Service) CreateProject(ctx context.Context, in CreateInput) (*Project, error) {
	info, err := os.Stat(in.MediaPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, in.MediaPath)
	}

	presetName, cfg, err := s.resolveConfig(in.Preset, in.Config)
	if err != nil {
		return nil, err
	}

	p := New(in.MediaPath, cfg)
	p.Title = in.Title
	p.Preset = string(presetName)

	s.logger.Info("creating project",
		slog.String("project_id", p.ID),
		slog.String("media_path", p.MediaPath),
		slog.String("preset", p.Preset),
		slog.Float64("threshold_db", cfg.ThresholdDb),
	)

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("failed to save project",
			slog.String("project_id", p.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return p, nil
}

// resolveConfig returns the manual config when given, else the named or
// default preset.
func (s *Service) resolveConfig(name string, manual *silence.Config) (preset.Name, silence.Config, error) {
	if manual != nil {
		if err := manual.Validate(); err != nil {
			return "", silence.Config{}, err
		}
		return "", *manual, nil
	}

	n := s.defaultPreset
	if name != "" {
		parsed, err := preset.ParseName(name)
		if err != nil {
			return "", silence.Config{}, err
		}
		n = parsed
	}
	cfg, err := s.presets.Resolve(n)
	if err != nil {
		return "", silence.Config{}, err
	}
	return n, cfg, nil
}

// GetProject retrieves a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.repo.FindByID(ctx, id)
}

// ListProjects returns all projects, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.List(ctx)
}

// DeleteProject removes a project. Exported files are left in place.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.GetStatus() == StatusAnalyzing {
		return ErrAnalysisRunning
	}
	return s.repo.Delete(ctx, id)
}

// Reconfigure replaces the detection config of a project that is not being
// analysed. The existing cut list stays until the next analysis completes.
func (s *Service) Reconfigure(ctx context.Context, id, presetName string, manual *silence.Config) (*Project, error) {
	name, cfg, err := s.resolveConfig(presetName, manual)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, id, func(p *Project) error {
		if p.Status == StatusAnalyzing {
			return ErrAnalysisRunning
		}
		p.Config = cfg
		p.Preset = string(name)
		p.UpdatedAt = time.Now()
		return nil
	})
}

// BeginAnalysis moves a project to ANALYZING. Callers run Analyze afterwards,
// typically on a background goroutine.
func (s *Service) BeginAnalysis(ctx context.Context, id string) (*Project, error) {
	return s.update(ctx, id, func(p *Project) error {
		if p.Status == StatusAnalyzing {
			return ErrAnalysisRunning
		}
		return p.StartAnalysis()
	})
}

// Analyze runs silence analysis for a project and installs the resulting cut
// list. The project is moved to ANALYZING first if it is not already there.
// On failure the project is marked FAILED and the error returned.
func (s *Service) Analyze(ctx context.Context, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.GetStatus() != StatusAnalyzing {
		if p, err = s.BeginAnalysis(ctx, id); err != nil {
			return err
		}
	}

	logger := s.logger.With(slog.String("project_id", id))
	logger.Info("analysis started",
		slog.String("media_path", p.MediaPath),
		slog.String("preset", p.Preset),
	)
	start := time.Now()

	res, err := s.pipeline.Run(ctx, p.MediaPath, p.Config)
	if err != nil {
		if errors.Is(err, cutlist.ErrInvariantViolation) {
			logger.Error("cut list invariant violated",
				slog.String("error", err.Error()),
				slog.Any("config", p.Config),
			)
		} else {
			logger.Error("analysis failed", slog.String("error", err.Error()))
		}
		s.fail(ctx, id, err)
		return err
	}

	if _, err := s.update(ctx, id, func(p *Project) error {
		return p.ReplaceCutList(res.Media, res.CutList)
	}); err != nil {
		logger.Error("failed to store cut list", slog.String("error", err.Error()))
		return err
	}

	logger.Info("analysis completed",
		slog.Int("candidates", len(res.Candidates)),
		slog.Int("cuts", res.CutList.Len()),
		slog.Float64("duration", res.Media.Duration),
		slog.Float64("removed_seconds", res.CutList.RemovedDuration()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *Service) fail(ctx context.Context, id string, cause error) {
	_, err := s.update(ctx, id, func(p *Project) error {
		return p.Fail(cause.Error())
	})
	if err != nil {
		s.logger.Error("failed to mark project failed",
			slog.String("project_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// SetCutEnabled sets a cut's enabled flag, or flips it when enabled is nil.
func (s *Service) SetCutEnabled(ctx context.Context, projectID, cutID string, enabled *bool) (cutlist.Cut, error) {
	var cut cutlist.Cut
	_, err := s.update(ctx, projectID, func(p *Project) error {
		var err error
		if enabled == nil {
			cut, err = p.ToggleCut(cutID)
		} else {
			cut, err = p.SetCutEnabled(cutID, *enabled)
		}
		return err
	})
	if err != nil {
		return cutlist.Cut{}, err
	}

	s.logger.Debug("cut updated",
		slog.String("project_id", projectID),
		slog.String("cut_id", cutID),
		slog.Bool("enabled", cut.Enabled),
	)
	return cut, nil
}

// Export serializes a frozen snapshot of the project's cut list, stores the
// document and optionally uploads it to S3.
func (s *Service) Export(ctx context.Context, id string, in ExportInput) (*ExportResult, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cl, md, err := p.Snapshot()
	if err != nil {
		return nil, err
	}

	title := in.Title
	if title == "" {
		title = p.Title
	}
	var opts []export.Option
	if title != "" {
		opts = append(opts, export.WithTitle(title))
	}

	doc, err := export.Serialize(in.Format, cl, md, opts...)
	if err != nil {
		return nil, err
	}

	name := doc.Filename()
	path, err := s.store.Save(ctx, p.ID+"_"+name, bytes.NewReader(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	result := &ExportResult{Document: doc, Path: path}
	if in.Upload {
		url, err := s.store.UploadToS3(ctx, p.ID+"/"+name, doc.Format.ContentType(), bytes.NewReader(doc.Content))
		if err != nil {
			return nil, fmt.Errorf("upload export: %w", err)
		}
		result.URL = url
	}

	if _, err := s.update(ctx, id, func(p *Project) error {
		p.AddExport(Export{Format: doc.Format, Path: result.Path, URL: result.URL, CreatedAt: time.Now()})
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("export written",
		slog.String("project_id", id),
		slog.String("format", string(doc.Format)),
		slog.String("path", result.Path),
		slog.String("url", result.URL),
		slog.Int("bytes", len(doc.Content)),
	)
	return result, nil
}

// Render writes the edited media directly by concatenating the kept segments.
func (s *Service) Render(ctx context.Context, id, outputPath string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	cl, _, err := p.Snapshot()
	if err != nil {
		return err
	}

	kept := cl.KeptSegments()
	s.logger.Info("render started",
		slog.String("project_id", id),
		slog.String("output_path", outputPath),
		slog.Int("segments", len(kept)),
		slog.Float64("kept_seconds", cl.KeptDuration()),
	)

	if err := s.renderer.Render(ctx, p.MediaPath, kept, outputPath); err != nil {
		s.logger.Error("render failed",
			slog.String("project_id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// update loads a project, applies fn and saves it, serialized against other
// updates from this service.
func (s *Service) update(ctx context.Context, id string, fn func(*Project) error) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}
