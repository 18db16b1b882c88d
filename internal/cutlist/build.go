package cutlist

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/timeline"
)

// idNamespace scopes cut IDs so they never collide with other SHA-1 UUIDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/maauso/autocut/cut"))

// Build pads, merges and filters candidates into a CutList:
//
//  1. each candidate is widened by PrePaddingMs/PostPaddingMs and clamped
//  2. intervals separated by at most MergeGapMs are merged, transitively
//  3. merged intervals no longer than KeepShortPauseMs are dropped
//
// Every resulting cut is enabled. The same input always yields the same
// cuts and IDs.
func Build(candidates []silence.Candidate, cfg silence.Config, duration float64) (*CutList, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: media duration %.6f", ErrInvariantViolation, duration)
	}

	padded := pad(candidates, cfg, duration)
	merged := merge(padded, timeline.Millis(cfg.MergeGapMs))

	keepShort := timeline.Millis(cfg.KeepShortPauseMs)
	cuts := make([]Cut, 0, len(merged))
	for _, iv := range merged {
		if iv.Duration() <= keepShort+timeline.Epsilon {
			continue
		}
		cuts = append(cuts, Cut{
			ID:      cutID(len(cuts), iv),
			Start:   iv.Start,
			End:     iv.End,
			Enabled: true,
		})
	}

	return newCutList(cuts, duration)
}

// pad widens and clamps each candidate, dropping any that vanish, and
// returns them sorted by start.
func pad(candidates []silence.Candidate, cfg silence.Config, duration float64) []timeline.Interval {
	pre := timeline.Millis(cfg.PrePaddingMs)
	post := timeline.Millis(cfg.PostPaddingMs)

	out := make([]timeline.Interval, 0, len(candidates))
	for _, c := range candidates {
		iv, err := timeline.NewInterval(c.Start-pre, c.End+post, duration)
		if err != nil {
			continue
		}
		out = append(out, iv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// merge joins sorted intervals whose gap is at most gap. Overlapping
// intervals have a negative gap and always merge.
func merge(sorted []timeline.Interval, gap float64) []timeline.Interval {
	if len(sorted) == 0 {
		return nil
	}
	out := []timeline.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start-last.End <= gap+timeline.Epsilon {
			*last = last.Union(iv)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// cutID derives a stable UUID from the cut's ordinal and bounds.
func cutID(ordinal int, iv timeline.Interval) string {
	name := strconv.Itoa(ordinal) + "|" +
		strconv.FormatFloat(iv.Start, 'f', 6, 64) + "|" +
		strconv.FormatFloat(iv.End, 'f', 6, 64)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
