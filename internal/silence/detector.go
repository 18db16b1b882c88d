package silence

import (
	"fmt"
	"math"
	"time"

	"github.com/maauso/autocut/internal/timeline"
)

// Source identifies which kind of input produced a candidate.
type Source string

const (
	// SourceSpan marks candidates built from pre-computed silent spans.
	SourceSpan Source = "span"
	// SourceLevels marks candidates built from a level time series.
	SourceLevels Source = "levels"
)

// Span is a silent region reported by an upstream analyzer. When Measured is
// false the span is taken as already below threshold.
type Span struct {
	Start    float64
	End      float64
	LevelDb  float64
	Measured bool
}

// LevelSample is the loudness of the window starting at Time.
type LevelSample struct {
	Time    float64
	LevelDb float64
}

// Candidate is a raw silent interval before padding and merging.
type Candidate struct {
	timeline.Interval
	Source Source `json:"source"`
	// LevelDb is the loudest level measured inside the candidate, or the
	// threshold for spans that carried no measurement.
	LevelDb float64 `json:"level_db"`
}

// Option configures level detection.
type Option func(*detectOptions)

type detectOptions struct {
	hysteresisDb float64
}

// WithHysteresis makes level detection enter silence at threshold-db and
// leave it only above threshold+db, which suppresses chatter around the
// threshold. Zero (the default) is the plain inclusive rule.
func WithHysteresis(db float64) Option {
	return func(o *detectOptions) {
		if db > 0 {
			o.hysteresisDb = db
		}
	}
}

// DetectSpans filters pre-computed silent spans against cfg. Spans must be
// sorted, non-overlapping and have Start < End.
func DetectSpans(spans []Span, duration float64, cfg Config) ([]Candidate, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %.6f", ErrAnalysisInput, duration)
	}

	minDur := timeline.Millis(cfg.MinDurationMs)
	candidates := make([]Candidate, 0, len(spans))
	prevEnd := math.Inf(-1)

	for i, s := range spans {
		if !(s.Start < s.End) {
			return nil, fmt.Errorf("%w: span %d has start %.6f >= end %.6f", ErrAnalysisInput, i, s.Start, s.End)
		}
		if s.Start < prevEnd {
			return nil, fmt.Errorf("%w: span %d starts at %.6f before previous end %.6f", ErrAnalysisInput, i, s.Start, prevEnd)
		}
		prevEnd = s.End

		if s.Measured && s.LevelDb > cfg.ThresholdDb {
			continue
		}

		iv, err := timeline.NewInterval(s.Start, s.End, duration)
		if err != nil {
			continue
		}
		if iv.Duration() < minDur-timeline.Epsilon {
			continue
		}

		level := cfg.ThresholdDb
		if s.Measured {
			level = s.LevelDb
		}
		candidates = append(candidates, Candidate{Interval: iv, Source: SourceSpan, LevelDb: level})
	}

	return candidates, nil
}

// DetectLevels finds runs of quiet samples. Sample i covers [t_i, t_i+1); the
// last sample covers one frame. Samples must be strictly increasing in time.
func DetectLevels(samples []LevelSample, frame time.Duration, duration float64, cfg Config, opts ...Option) ([]Candidate, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %.6f", ErrAnalysisInput, duration)
	}
	if frame <= 0 {
		return nil, fmt.Errorf("%w: frame %s", ErrAnalysisInput, frame)
	}

	o := detectOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	enter := cfg.ThresholdDb - o.hysteresisDb
	leave := cfg.ThresholdDb + o.hysteresisDb

	for i := 1; i < len(samples); i++ {
		if !(samples[i].Time > samples[i-1].Time) {
			return nil, fmt.Errorf("%w: sample %d at %.6f is not after %.6f", ErrAnalysisInput, i, samples[i].Time, samples[i-1].Time)
		}
	}

	minDur := timeline.Millis(cfg.MinDurationMs)
	var candidates []Candidate
	emit := func(start, end, level float64) {
		iv, err := timeline.NewInterval(start, end, duration)
		if err != nil {
			return
		}
		if iv.Duration() < minDur-timeline.Epsilon {
			return
		}
		candidates = append(candidates, Candidate{Interval: iv, Source: SourceLevels, LevelDb: level})
	}

	inSilence := false
	var runStart, runPeak float64
	for _, s := range samples {
		if inSilence {
			if s.LevelDb > leave {
				emit(runStart, s.Time, runPeak)
				inSilence = false
			} else {
				runPeak = math.Max(runPeak, s.LevelDb)
				continue
			}
		}
		if s.LevelDb <= enter {
			inSilence = true
			runStart = s.Time
			runPeak = s.LevelDb
		}
	}
	if inSilence {
		last := samples[len(samples)-1]
		end := math.Min(last.Time+frame.Seconds(), duration)
		emit(runStart, end, runPeak)
	}

	if candidates == nil {
		candidates = []Candidate{}
	}
	return candidates, nil
}
