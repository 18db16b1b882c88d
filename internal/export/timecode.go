package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/autocut/internal/timeline"
)

// ErrInvalidTimecode is returned by ParseTimecode for malformed input.
var ErrInvalidTimecode = errors.New("export: invalid timecode")

// dropFrames returns the frame labels skipped each minute (2 at 29.97, 4 at
// 59.94), or 0 for non-drop rates.
func dropFrames(rate timeline.FrameRate) int64 {
	if !rate.DropFrame() {
		return 0
	}
	return rate.Nominal() / 15
}

// FormatTimecode renders a frame count as SMPTE HH:MM:SS:FF. Drop-frame rates
// use ';' before the frame field.
func FormatTimecode(frames int64, rate timeline.FrameRate) string {
	nominal := rate.Nominal()
	if nominal <= 0 {
		nominal = 30
	}
	if frames < 0 {
		frames = 0
	}

	sep := ":"
	if drop := dropFrames(rate); drop > 0 {
		sep = ";"
		perMinute := nominal*60 - drop
		perTenMinutes := nominal*600 - 9*drop

		tens := frames / perTenMinutes
		rem := frames % perTenMinutes
		frames += 9 * drop * tens
		if rem > drop {
			frames += drop * ((rem - drop) / perMinute)
		}
	}

	ff := frames % nominal
	totalSeconds := frames / nominal
	ss := totalSeconds % 60
	mm := (totalSeconds / 60) % 60
	hh := totalSeconds / 3600

	return fmt.Sprintf("%02d:%02d:%02d%s%02d", hh, mm, ss, sep, ff)
}

// ParseTimecode converts HH:MM:SS:FF (or HH:MM:SS;FF) back to a frame count.
// It is the inverse of FormatTimecode for the same rate.
func ParseTimecode(tc string, rate timeline.FrameRate) (int64, error) {
	nominal := rate.Nominal()
	if nominal <= 0 {
		return 0, fmt.Errorf("%w: frame rate %s", ErrInvalidTimecode, rate)
	}

	fields := strings.FieldsFunc(strings.TrimSpace(tc), func(r rune) bool {
		return r == ':' || r == ';' || r == '.'
	})
	if len(fields) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
	}

	var parts [4]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
		}
		parts[i] = v
	}
	hh, mm, ss, ff := parts[0], parts[1], parts[2], parts[3]
	if mm > 59 || ss > 59 || ff >= nominal {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTimecode, tc)
	}

	frames := (hh*3600+mm*60+ss)*nominal + ff

	if drop := dropFrames(rate); drop > 0 {
		if ss == 0 && ff < drop && mm%10 != 0 {
			return 0, fmt.Errorf("%w: %q is a dropped label", ErrInvalidTimecode, tc)
		}
		totalMinutes := hh*60 + mm
		frames -= drop * (totalMinutes - totalMinutes/10)
	}

	return frames, nil
}
