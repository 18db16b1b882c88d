package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/project"
	"github.com/maauso/autocut/internal/project/id"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/storage"
)

// PresetLister exposes the preset table.
type PresetLister interface {
	All() map[preset.Name]silence.Config
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *project.Service
	presets            PresetLister
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background analysis.
// When disabled, CreateProject and AnalyzeProject only record the request
// and return without running the analysis.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *project.Service, presets PresetLister, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		presets:            presets,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListPresets handles GET /presets requests.
func (h *Handlers) ListPresets(w http.ResponseWriter, r *http.Request) {
	table := h.presets.All()
	resp := ListPresetsResponse{Presets: make([]PresetResponse, 0, len(table))}
	for _, name := range preset.Names() {
		cfg, ok := table[name]
		if !ok {
			continue
		}
		resp.Presets = append(resp.Presets, PresetResponse{Name: string(name), Config: toDetectionConfig(cfg)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProject handles POST /projects requests.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	p, err := h.service.CreateProject(r.Context(), project.CreateInput{
		MediaPath: req.MediaPath,
		Preset:    req.Preset,
		Config:    fromDetectionConfig(req.Config),
		Title:     req.Title,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create project", slog.String("media_path", req.MediaPath))
		return
	}

	h.startAnalysis(r.Context(), p.ID)

	h.logger.Info("project created",
		slog.String("project_id", p.ID),
		slog.String("preset", p.Preset),
	)

	writeJSON(w, http.StatusAccepted, CreateProjectResponse{
		ID:     p.ID,
		Status: string(p.GetStatus()),
	})
}

// ListProjects handles GET /projects requests.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list projects")
		return
	}

	resp := ListProjectsResponse{Projects: make([]ProjectSummary, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, ProjectSummary{
			ID:        p.ID,
			Status:    string(p.GetStatus()),
			MediaPath: p.MediaPath,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProject handles GET /projects/{id} requests.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get project", slog.String("project_id", projectID))
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

// DeleteProject handles DELETE /projects/{id} requests.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProject(r.Context(), projectID); err != nil {
		h.writeServiceError(w, err, "failed to delete project", slog.String("project_id", projectID))
		return
	}

	h.logger.Info("project deleted", slog.String("project_id", projectID))
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzeProject handles POST /projects/{id}/analyze requests. It applies new
// settings when given and re-runs analysis in the background.
func (h *Handlers) AnalyzeProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	ctx := r.Context()
	if req.Preset != "" || req.Config != nil {
		if _, err := h.service.Reconfigure(ctx, projectID, req.Preset, fromDetectionConfig(req.Config)); err != nil {
			h.writeServiceError(w, err, "failed to reconfigure project", slog.String("project_id", projectID))
			return
		}
	}

	p, err := h.service.BeginAnalysis(ctx, projectID)
	if err != nil {
		h.writeServiceError(w, err, "failed to start analysis", slog.String("project_id", projectID))
		return
	}

	h.startAnalysis(ctx, projectID)

	writeJSON(w, http.StatusAccepted, CreateProjectResponse{
		ID:     p.ID,
		Status: string(p.GetStatus()),
	})
}

// UpdateCut handles PATCH /projects/{id}/cuts/{cutID} requests.
func (h *Handlers) UpdateCut(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	cutID := chi.URLParam(r, "cutID")
	if cutID == "" {
		writeError(w, http.StatusBadRequest, "cut ID is required", "MISSING_CUT_ID")
		return
	}

	var req UpdateCutRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	cut, err := h.service.SetCutEnabled(r.Context(), projectID, cutID, req.Enabled)
	if err != nil {
		h.writeServiceError(w, err, "failed to update cut",
			slog.String("project_id", projectID),
			slog.String("cut_id", cutID),
		)
		return
	}

	writeJSON(w, http.StatusOK, toCutResponse(cut))
}

// CreateExport handles POST /projects/{id}/exports requests.
func (h *Handlers) CreateExport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	var req ExportRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_FORMAT")
		return
	}

	res, err := h.service.Export(r.Context(), projectID, project.ExportInput{
		Format: format,
		Title:  req.Title,
		Upload: req.Upload,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to export project",
			slog.String("project_id", projectID),
			slog.String("format", string(format)),
		)
		return
	}

	writeJSON(w, http.StatusCreated, ExportResponse{
		Format:      string(res.Document.Format),
		Filename:    res.Document.Filename(),
		ContentType: res.Document.Format.ContentType(),
		Path:        res.Path,
		URL:         res.URL,
		Content:     string(res.Document.Content),
	})
}

// RenderProject handles POST /projects/{id}/render requests. Rendering runs
// within the request.
func (h *Handlers) RenderProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	var req RenderRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	if err := h.service.Render(r.Context(), projectID, req.OutputPath); err != nil {
		h.writeServiceError(w, err, "failed to render project", slog.String("project_id", projectID))
		return
	}

	writeJSON(w, http.StatusOK, RenderResponse{OutputPath: req.OutputPath})
}

// startAnalysis runs the analysis in background with a detached context.
// context.WithoutCancel keeps it alive when the request ends.
func (h *Handlers) startAnalysis(ctx context.Context, projectID string) {
	if !h.enableAsyncProcess {
		return
	}
	go func(ctx context.Context, projectID string) {
		if err := h.service.Analyze(ctx, projectID); err != nil {
			h.logger.Error("background analysis failed",
				slog.String("project_id", projectID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(ctx), projectID)
}

// decode reads and validates a JSON body. With allowEmpty an empty body
// leaves dst at its zero value.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			h.logger.Warn("failed to decode request body",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
			return false
		}
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeServiceError maps domain errors to HTTP statuses. Unknown errors are
// logged and reported as 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		status, code = http.StatusNotFound, "PROJECT_NOT_FOUND"
	case errors.Is(err, cutlist.ErrCutNotFound):
		status, code = http.StatusNotFound, "CUT_NOT_FOUND"
	case errors.Is(err, preset.ErrUnknownPreset):
		status, code = http.StatusBadRequest, "UNKNOWN_PRESET"
	case errors.Is(err, silence.ErrInvalidConfig):
		status, code = http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, export.ErrUnknownFormat):
		status, code = http.StatusBadRequest, "UNKNOWN_FORMAT"
	case errors.Is(err, storage.ErrS3NotConfigured):
		status, code = http.StatusBadRequest, "S3_NOT_CONFIGURED"
	case errors.Is(err, project.ErrAnalysisRunning):
		status, code = http.StatusConflict, "ANALYSIS_RUNNING"
	case errors.Is(err, project.ErrNotReady):
		status, code = http.StatusConflict, "PROJECT_NOT_READY"
	case errors.Is(err, project.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, project.ErrMediaNotFound):
		status, code = http.StatusUnprocessableEntity, "MEDIA_NOT_FOUND"
	case errors.Is(err, export.ErrExportEncoding):
		status, code = http.StatusUnprocessableEntity, "EXPORT_ENCODING_FAILED"
	case errors.Is(err, media.ErrNoSegments):
		status, code = http.StatusUnprocessableEntity, "NOTHING_TO_RENDER"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeError(w, status, msg, code)
		return
	}
	writeError(w, status, err.Error(), code)
}

// projectIDParam reads and checks the {id} URL parameter.
func projectIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project ID is required", "MISSING_PROJECT_ID")
		return "", false
	}
	if !id.Valid(projectID) {
		writeError(w, http.StatusBadRequest, "malformed project ID", "INVALID_PROJECT_ID")
		return "", false
	}
	return projectID, true
}

func toDetectionConfig(c silence.Config) DetectionConfig {
	return DetectionConfig{
		ThresholdDb:      c.ThresholdDb,
		MinDurationMs:    c.MinDurationMs,
		PrePaddingMs:     c.PrePaddingMs,
		PostPaddingMs:    c.PostPaddingMs,
		MergeGapMs:       c.MergeGapMs,
		KeepShortPauseMs: c.KeepShortPauseMs,
	}
}

func fromDetectionConfig(c *DetectionConfig) *silence.Config {
	if c == nil {
		return nil
	}
	return &silence.Config{
		ThresholdDb:      c.ThresholdDb,
		MinDurationMs:    c.MinDurationMs,
		PrePaddingMs:     c.PrePaddingMs,
		PostPaddingMs:    c.PostPaddingMs,
		MergeGapMs:       c.MergeGapMs,
		KeepShortPauseMs: c.KeepShortPauseMs,
	}
}

func toCutResponse(c cutlist.Cut) CutResponse {
	return CutResponse{
		ID:       c.ID,
		Start:    c.Start,
		End:      c.End,
		Duration: c.Duration(),
		Enabled:  c.Enabled,
	}
}

func toProjectResponse(p *project.Project) ProjectResponse {
	snap := p.Clone()
	resp := ProjectResponse{
		ID:        snap.ID,
		Status:    string(snap.Status),
		MediaPath: snap.MediaPath,
		Title:     snap.Title,
		Preset:    snap.Preset,
		Config:    toDetectionConfig(snap.Config),
		Error:     snap.Error,
		Exports:   make([]ExportRecord, 0, len(snap.Exports)),
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if !snap.AnalyzedAt.IsZero() {
		t := snap.AnalyzedAt
		resp.AnalyzedAt = &t
	}
	for _, e := range snap.Exports {
		resp.Exports = append(resp.Exports, ExportRecord{
			Format:    string(e.Format),
			Path:      e.Path,
			URL:       e.URL,
			CreatedAt: e.CreatedAt,
		})
	}

	cl, md, err := snap.Snapshot()
	if err != nil {
		return resp
	}
	resp.Media = &MediaResponse{
		Duration:        md.Duration,
		FrameRate:       md.FrameRate.String(),
		FPS:             md.FrameRate.Float(),
		AudioSampleRate: md.AudioSampleRate,
		Width:           md.Width,
		Height:          md.Height,
		HasVideo:        md.HasVideo,
		HasAudio:        md.HasAudio,
	}
	cuts := cl.Cuts()
	resp.Cuts = make([]CutResponse, 0, len(cuts))
	for _, c := range cuts {
		resp.Cuts = append(resp.Cuts, toCutResponse(c))
	}
	resp.Duration = cl.Duration()
	resp.RemovedDuration = cl.RemovedDuration()
	resp.KeptDuration = cl.KeptDuration()
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
