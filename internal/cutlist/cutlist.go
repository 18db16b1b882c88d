// Package cutlist turns silence candidates into an ordered, editable list of
// cuts and derives the segments kept in the edited timeline.
package cutlist

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maauso/autocut/internal/timeline"
)

// Sentinel errors for cut lists.
var (
	// ErrInvariantViolation indicates a cut list that is unsorted, overlapping
	// or outside the media. It signals a defect, not bad user input.
	ErrInvariantViolation = errors.New("cutlist: invariant violation")

	// ErrCutNotFound is returned when toggling an unknown cut ID.
	ErrCutNotFound = errors.New("cutlist: cut not found")
)

// Cut is a silence that the user may remove from the timeline.
type Cut struct {
	ID      string `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Enabled bool    `json:"enabled"`
}

// Interval returns the cut's span.
func (c Cut) Interval() timeline.Interval {
	return timeline.Interval{Start: c.Start, End: c.End}
}

// Duration returns End - Start.
func (c Cut) Duration() float64 {
	return c.End - c.Start
}

// CutList is an ordered, non-overlapping list of cuts within [0, duration].
// Only Build and Restore create one; afterwards only the Enabled flags change.
type CutList struct {
	duration float64
	cuts     []Cut
	index    map[string]int
}

func newCutList(cuts []Cut, duration float64) (*CutList, error) {
	cl := &CutList{duration: duration, cuts: cuts, index: make(map[string]int, len(cuts))}
	if err := cl.check(); err != nil {
		return nil, err
	}
	return cl, nil
}

// Restore rebuilds a cut list from persisted cuts, re-checking every invariant.
func Restore(cuts []Cut, duration float64) (*CutList, error) {
	cp := make([]Cut, len(cuts))
	copy(cp, cuts)
	return newCutList(cp, duration)
}

// check verifies ordering, bounds and ID uniqueness, and rebuilds the index.
func (cl *CutList) check() error {
	if cl.duration <= 0 {
		return fmt.Errorf("%w: media duration %.6f", ErrInvariantViolation, cl.duration)
	}
	for i, c := range cl.cuts {
		if c.ID == "" {
			return fmt.Errorf("%w: cut %d has no id", ErrInvariantViolation, i)
		}
		if !c.Interval().Valid(cl.duration) {
			return fmt.Errorf("%w: cut %s [%.6f, %.6f] outside [0, %.6f]", ErrInvariantViolation, c.ID, c.Start, c.End, cl.duration)
		}
		if i > 0 && c.Start < cl.cuts[i-1].End-timeline.Epsilon {
			return fmt.Errorf("%w: cut %s overlaps or precedes %s", ErrInvariantViolation, c.ID, cl.cuts[i-1].ID)
		}
		if _, dup := cl.index[c.ID]; dup {
			return fmt.Errorf("%w: duplicate cut id %s", ErrInvariantViolation, c.ID)
		}
		cl.index[c.ID] = i
	}
	return nil
}

// Duration returns the media duration the list was built for.
func (cl *CutList) Duration() float64 {
	return cl.duration
}

// Len returns the number of cuts.
func (cl *CutList) Len() int {
	return len(cl.cuts)
}

// Cuts returns a copy of the cuts in ascending start order.
func (cl *CutList) Cuts() []Cut {
	out := make([]Cut, len(cl.cuts))
	copy(out, cl.cuts)
	return out
}

// Get returns the cut with the given ID.
func (cl *CutList) Get(id string) (Cut, bool) {
	i, ok := cl.index[id]
	if !ok {
		return Cut{}, false
	}
	return cl.cuts[i], true
}

// Enabled returns the cuts that will be removed on export.
func (cl *CutList) Enabled() []Cut {
	var out []Cut
	for _, c := range cl.cuts {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Toggle flips the Enabled flag of a cut and returns the updated cut.
func (cl *CutList) Toggle(id string) (Cut, error) {
	i, ok := cl.index[id]
	if !ok {
		return Cut{}, fmt.Errorf("%w: %s", ErrCutNotFound, id)
	}
	cl.cuts[i].Enabled = !cl.cuts[i].Enabled
	return cl.cuts[i], nil
}

// SetEnabled sets the Enabled flag of a cut and returns the updated cut.
func (cl *CutList) SetEnabled(id string, enabled bool) (Cut, error) {
	i, ok := cl.index[id]
	if !ok {
		return Cut{}, fmt.Errorf("%w: %s", ErrCutNotFound, id)
	}
	cl.cuts[i].Enabled = enabled
	return cl.cuts[i], nil
}

// Clone returns an independent copy.
func (cl *CutList) Clone() *CutList {
	cp := &CutList{
		duration: cl.duration,
		cuts:     make([]Cut, len(cl.cuts)),
		index:    make(map[string]int, len(cl.index)),
	}
	copy(cp.cuts, cl.cuts)
	for k, v := range cl.index {
		cp.index[k] = v
	}
	return cp
}

// KeptSegments returns [0, duration] minus the enabled cuts.
func (cl *CutList) KeptSegments() []timeline.Interval {
	enabled := cl.Enabled()
	removed := make([]timeline.Interval, len(enabled))
	for i, c := range enabled {
		removed[i] = c.Interval()
	}
	return timeline.Complement(removed, cl.duration)
}

// RemovedDuration returns the total length of the enabled cuts.
func (cl *CutList) RemovedDuration() float64 {
	var sum float64
	for _, c := range cl.cuts {
		if c.Enabled {
			sum += c.Duration()
		}
	}
	return sum
}

// KeptDuration returns the length of the edited timeline.
func (cl *CutList) KeptDuration() float64 {
	return timeline.Total(cl.KeptSegments())
}

// persisted is the JSON form of a CutList.
type persisted struct {
	Duration float64 `json:"duration"`
	Cuts     []Cut   `json:"cuts"`
}

// MarshalJSON implements json.Marshaler.
func (cl *CutList) MarshalJSON() ([]byte, error) {
	cuts := cl.cuts
	if cuts == nil {
		cuts = []Cut{}
	}
	return json.Marshal(persisted{Duration: cl.duration, Cuts: cuts})
}

// UnmarshalJSON implements json.Unmarshaler through Restore.
func (cl *CutList) UnmarshalJSON(data []byte) error {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	restored, err := Restore(p.Cuts, p.Duration)
	if err != nil {
		return err
	}
	*cl = *restored
	return nil
}
