// Package timeline provides the shared time model: instants and intervals on a
// media timeline measured in seconds, exact rational frame rates, and the
// frame quantization rules used by every export format.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Epsilon is the tolerance used when comparing instants. Millisecond settings
// converted to float seconds must compare equal to the boundaries they name.
const Epsilon = 1e-9

// ErrEmptyInterval is returned when an interval would not satisfy Start < End.
var ErrEmptyInterval = errors.New("timeline: interval is empty")

// Instant is a non-negative offset from the start of the media, in seconds.
type Instant = float64

// Clamp limits t to [0, duration].
func Clamp(t Instant, duration float64) Instant {
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}

// Millis converts a millisecond setting to seconds.
func Millis(ms int) float64 {
	return float64(ms) / 1000.0
}

// Interval is a half-open span [Start, End) on the timeline.
type Interval struct {
	Start Instant `json:"start"`
	End   Instant `json:"end"`
}

// NewInterval clamps start and end to [0, duration] and returns
// ErrEmptyInterval if nothing remains.
func NewInterval(start, end Instant, duration float64) (Interval, error) {
	iv := Interval{Start: Clamp(start, duration), End: Clamp(end, duration)}
	if iv.End-iv.Start <= Epsilon {
		return Interval{}, fmt.Errorf("%w: [%.6f, %.6f]", ErrEmptyInterval, start, end)
	}
	return iv, nil
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Valid reports whether Start < End and both lie within [0, duration].
func (iv Interval) Valid(duration float64) bool {
	return iv.Start >= 0 && iv.End <= duration+Epsilon && iv.End-iv.Start > Epsilon
}

// Overlaps reports whether the two intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End-Epsilon && other.Start < iv.End-Epsilon
}

// Union merges two intervals into one spanning both.
func (iv Interval) Union(other Interval) Interval {
	return Interval{Start: math.Min(iv.Start, other.Start), End: math.Max(iv.End, other.End)}
}

// Complement returns the parts of [0, duration] not covered by removed.
// removed does not need to be sorted or disjoint.
func Complement(removed []Interval, duration float64) []Interval {
	if duration <= 0 {
		return nil
	}

	sorted := make([]Interval, len(removed))
	copy(sorted, removed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var kept []Interval
	pos := 0.0
	for _, r := range sorted {
		start := Clamp(r.Start, duration)
		if start-pos > Epsilon {
			kept = append(kept, Interval{Start: pos, End: start})
		}
		pos = math.Max(pos, Clamp(r.End, duration))
	}
	if duration-pos > Epsilon {
		kept = append(kept, Interval{Start: pos, End: duration})
	}
	return kept
}

// Total returns the summed duration of the intervals.
func Total(intervals []Interval) float64 {
	var sum float64
	for _, iv := range intervals {
		sum += iv.Duration()
	}
	return sum
}
