package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/silence"
)

// ErrNoAudio is returned when the source media has no audio stream to analyse.
var ErrNoAudio = errors.New("media has no audio stream")

// Pipeline runs one analysis: probe, measure silence, detect, build.
type Pipeline struct {
	Prober   media.Prober
	Analyzer silence.Analyzer
	// LevelFrame selects level-series analysis with this window length.
	// Zero uses the analyzer's silent spans.
	LevelFrame time.Duration
	// HysteresisDb is applied to level-series analysis only.
	HysteresisDb float64
}

// Result is the outcome of a successful analysis.
type Result struct {
	Media      media.Metadata
	Candidates []silence.Candidate
	CutList    *cutlist.CutList
}

// Run analyses the media at path with cfg.
func (p Pipeline) Run(ctx context.Context, path string, cfg silence.Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	md, err := p.Prober.Probe(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("probe media: %w", err)
	}
	if !md.HasAudio {
		return Result{}, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}

	var candidates []silence.Candidate
	if p.LevelFrame > 0 {
		samples, err := p.Analyzer.Levels(ctx, path, p.LevelFrame)
		if err != nil {
			return Result{}, fmt.Errorf("measure levels: %w", err)
		}
		candidates, err = silence.DetectLevels(samples, p.LevelFrame, md.Duration, cfg, silence.WithHysteresis(p.HysteresisDb))
		if err != nil {
			return Result{}, err
		}
	} else {
		spans, err := p.Analyzer.Spans(ctx, path, cfg)
		if err != nil {
			return Result{}, fmt.Errorf("detect silence: %w", err)
		}
		candidates, err = silence.DetectSpans(spans, md.Duration, cfg)
		if err != nil {
			return Result{}, err
		}
	}

	cl, err := cutlist.Build(candidates, cfg, md.Duration)
	if err != nil {
		return Result{}, err
	}

	return Result{Media: md, Candidates: candidates, CutList: cl}, nil
}
