// Package server provides the HTTP API for reviewing silence cuts.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// DetectionConfig is the wire form of silence.Config.
type DetectionConfig struct {
	ThresholdDb      float64 `json:"threshold_db" validate:"lt=0,gte=-120"`
	MinDurationMs    int     `json:"min_duration_ms" validate:"gte=0"`
	PrePaddingMs     int     `json:"pre_padding_ms" validate:"gte=0"`
	PostPaddingMs    int     `json:"post_padding_ms" validate:"gte=0"`
	MergeGapMs       int     `json:"merge_gap_ms" validate:"gte=0"`
	KeepShortPauseMs int     `json:"keep_short_pause_ms" validate:"gte=0"`
}

// CreateProjectRequest is the HTTP request body for creating a project.
type CreateProjectRequest struct {
	// MediaPath is the path of the source media on the server's filesystem.
	MediaPath string `json:"media_path" validate:"required"`
	// Preset names a built-in preset. Ignored when Config is set.
	Preset string `json:"preset,omitempty"`
	// Config sets manual detection settings.
	Config *DetectionConfig `json:"config,omitempty" validate:"omitempty"`
	// Title names exported timelines.
	Title string `json:"title,omitempty" validate:"max=200"`
}

// CreateProjectResponse is the HTTP response after creating a project.
type CreateProjectResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AnalyzeRequest is the HTTP request body for re-running analysis.
// An empty body re-runs with the current settings.
type AnalyzeRequest struct {
	Preset string           `json:"preset,omitempty"`
	Config *DetectionConfig `json:"config,omitempty" validate:"omitempty"`
}

// UpdateCutRequest is the HTTP request body for enabling or disabling a cut.
// A missing Enabled flips the current state.
type UpdateCutRequest struct {
	Enabled *bool `json:"enabled"`
}

// ExportRequest is the HTTP request body for exporting a timeline.
type ExportRequest struct {
	// Format is one of fcpxml, premiere or edl.
	Format string `json:"format" validate:"required"`
	// Title overrides the project title for this export.
	Title string `json:"title,omitempty" validate:"max=200"`
	// Upload also pushes the document to S3.
	Upload bool `json:"upload"`
}

// RenderRequest is the HTTP request body for rendering the edited media.
type RenderRequest struct {
	OutputPath string `json:"output_path" validate:"required"`
}

// CutResponse describes one cut.
type CutResponse struct {
	ID       string  `json:"id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Enabled  bool    `json:"enabled"`
}

// MediaResponse describes the probed source media.
type MediaResponse struct {
	Duration        float64 `json:"duration"`
	FrameRate       string  `json:"frame_rate"`
	FPS             float64 `json:"fps"`
	AudioSampleRate int     `json:"audio_sample_rate"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
}

// ExportRecord describes a previously written export.
type ExportRecord struct {
	Format    string    `json:"format"`
	Path      string    `json:"path"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectResponse is the HTTP response for getting project details.
type ProjectResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	MediaPath string          `json:"media_path"`
	Title     string          `json:"title,omitempty"`
	Preset    string          `json:"preset,omitempty"`
	Config    DetectionConfig `json:"config"`
	// Error contains the failure message of the last analysis.
	Error string `json:"error,omitempty"`
	// Media, Cuts and the durations are set once a cut list exists.
	Media           *MediaResponse `json:"media,omitempty"`
	Cuts            []CutResponse  `json:"cuts,omitempty"`
	Duration        float64        `json:"duration,omitempty"`
	RemovedDuration float64        `json:"removed_duration,omitempty"`
	KeptDuration    float64        `json:"kept_duration,omitempty"`
	Exports         []ExportRecord `json:"exports"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	AnalyzedAt      *time.Time     `json:"analyzed_at,omitempty"`
}

// ProjectSummary is one entry of the project list.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	MediaPath string    `json:"media_path"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListProjectsResponse is the HTTP response for listing projects.
type ListProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

// ExportResponse is the HTTP response after writing an export.
type ExportResponse struct {
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Path        string `json:"path"`
	URL         string `json:"url,omitempty"`
	// Content is the document itself.
	Content string `json:"content"`
}

// RenderResponse is the HTTP response after rendering.
type RenderResponse struct {
	OutputPath string `json:"output_path"`
}

// PresetResponse describes one preset.
type PresetResponse struct {
	Name   string          `json:"name"`
	Config DetectionConfig `json:"config"`
}

// ListPresetsResponse is the HTTP response for listing presets.
type ListPresetsResponse struct {
	Presets []PresetResponse `json:"presets"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
