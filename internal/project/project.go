// Package project provides the Project aggregate: one media file under review,
// the cut list produced by analysing it, and the exports written from it.
// It includes the state machine, repository ports and the Service that
// orchestrates analysis, review, export and render.
package project

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/project/id"
	"github.com/maauso/autocut/internal/silence"
)

// Status represents the current state of a Project.
type Status string

const (
	// StatusInQueue indicates the project is waiting for analysis.
	StatusInQueue Status = "IN_QUEUE"
	// StatusAnalyzing indicates silence analysis is running.
	StatusAnalyzing Status = "ANALYZING"
	// StatusReady indicates a cut list is available for review and export.
	StatusReady Status = "READY"
	// StatusFailed indicates the last analysis failed.
	StatusFailed Status = "FAILED"
)

var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotReady is returned when an operation needs a cut list the project
	// does not have yet.
	ErrNotReady = errors.New("project has no cut list")
)

// validTransitions defines which state transitions are allowed.
// READY and FAILED projects can be analysed again with new settings.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusAnalyzing, StatusFailed},
	StatusAnalyzing: {StatusReady, StatusFailed},
	StatusReady:     {StatusAnalyzing},
	StatusFailed:    {StatusAnalyzing},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Export records a document written from the project's cut list.
type Export struct {
	Format    export.Format `json:"format"`
	Path      string        `json:"path"`
	URL       string        `json:"url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Project is a review session over one media file.
// The cut list is only reachable through methods that hold the lock.
type Project struct {
	mu sync.RWMutex

	// ID is the unique identifier for this project.
	ID string
	// Status is the current project state.
	Status Status
	// MediaPath is the path to the source media.
	MediaPath string
	// Title names exported timelines; empty means derive from MediaPath.
	Title string
	// Preset is the preset the Config came from, empty for manual settings.
	Preset string
	// Config is the detection configuration used for analysis.
	Config silence.Config
	// Media is the probed source metadata, zero until analysed.
	Media media.Metadata
	// Exports lists documents written from this project, oldest first.
	Exports []Export
	// Error contains the failure message of the last analysis.
	Error string
	// CreatedAt is when the project was created.
	CreatedAt time.Time
	// UpdatedAt is when the project was last updated.
	UpdatedAt time.Time
	// AnalyzedAt is when the current cut list was installed.
	AnalyzedAt time.Time

	cutList *cutlist.CutList
}

// New creates a new Project with a generated ID and initial IN_QUEUE status.
func New(mediaPath string, cfg silence.Config) *Project {
	return NewWithID(id.Generate(), mediaPath, cfg)
}

// NewWithID creates a new Project with the specified ID and initial IN_QUEUE status.
func NewWithID(projectID, mediaPath string, cfg silence.Config) *Project {
	now := time.Now()
	return &Project{
		ID:        projectID,
		Status:    StatusInQueue,
		MediaPath: mediaPath,
		Config:    cfg,
		Exports:   make([]Export, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the project status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (p *Project) TransitionTo(status Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitionLocked(status)
}

func (p *Project) transitionLocked(status Status) error {
	if !canTransition(p.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, status)
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// StartAnalysis moves the project to ANALYZING and clears the last error.
// The current cut list stays readable until ReplaceCutList swaps it.
func (p *Project) StartAnalysis() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transitionLocked(StatusAnalyzing); err != nil {
		return err
	}
	p.Error = ""
	return nil
}

// Fail transitions the project to FAILED with an error message.
func (p *Project) Fail(errMsg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transitionLocked(StatusFailed); err != nil {
		return err
	}
	p.Error = errMsg
	return nil
}

// ReplaceCutList atomically installs a freshly built cut list together with
// the metadata it was built against and moves the project to READY.
func (p *Project) ReplaceCutList(md media.Metadata, cl *cutlist.CutList) error {
	if cl == nil {
		return fmt.Errorf("%w: nil cut list", ErrNotReady)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transitionLocked(StatusReady); err != nil {
		return err
	}
	p.Media = md
	p.cutList = cl.Clone()
	p.Error = ""
	p.AnalyzedAt = p.UpdatedAt
	return nil
}

// SetCutEnabled enables or disables one cut. Only READY projects accept edits.
func (p *Project) SetCutEnabled(cutID string, enabled bool) (cutlist.Cut, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.editableLocked(); err != nil {
		return cutlist.Cut{}, err
	}
	c, err := p.cutList.SetEnabled(cutID, enabled)
	if err != nil {
		return cutlist.Cut{}, err
	}
	p.UpdatedAt = time.Now()
	return c, nil
}

// ToggleCut flips one cut's enabled flag.
func (p *Project) ToggleCut(cutID string) (cutlist.Cut, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.editableLocked(); err != nil {
		return cutlist.Cut{}, err
	}
	c, err := p.cutList.Toggle(cutID)
	if err != nil {
		return cutlist.Cut{}, err
	}
	p.UpdatedAt = time.Now()
	return c, nil
}

func (p *Project) editableLocked() error {
	if p.Status != StatusReady || p.cutList == nil {
		return fmt.Errorf("%w: status %s", ErrNotReady, p.Status)
	}
	return nil
}

// Snapshot returns a frozen copy of the cut list and the metadata it belongs
// to. Later edits to the project do not affect the returned list.
func (p *Project) Snapshot() (*cutlist.CutList, media.Metadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cutList == nil {
		return nil, media.Metadata{}, fmt.Errorf("%w: status %s", ErrNotReady, p.Status)
	}
	return p.cutList.Clone(), p.Media, nil
}

// HasCutList reports whether an analysis has completed at least once.
func (p *Project) HasCutList() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cutList != nil
}

// AddExport records a written export document.
func (p *Project) AddExport(e Export) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Exports = append(p.Exports, e)
	p.UpdatedAt = time.Now()
}

// GetStatus returns the current project status (thread-safe).
func (p *Project) GetStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Clone creates a deep copy of the project for safe reads.
func (p *Project) Clone() *Project {
	p.mu.RLock()
	defer p.mu.RUnlock()

	exports := make([]Export, len(p.Exports))
	copy(exports, p.Exports)

	var cl *cutlist.CutList
	if p.cutList != nil {
		cl = p.cutList.Clone()
	}

	return &Project{
		ID:         p.ID,
		Status:     p.Status,
		MediaPath:  p.MediaPath,
		Title:      p.Title,
		Preset:     p.Preset,
		Config:     p.Config,
		Media:      p.Media,
		Exports:    exports,
		Error:      p.Error,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		AnalyzedAt: p.AnalyzedAt,
		cutList:    cl,
	}
}
