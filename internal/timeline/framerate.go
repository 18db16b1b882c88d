package timeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFrameRate is returned when a frame rate cannot be parsed or is not positive.
var ErrInvalidFrameRate = errors.New("timeline: invalid frame rate")

// FrameRate is an exact rational frame rate, e.g. 30000/1001 for 29.97 fps.
type FrameRate struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// Common broadcast rates.
var (
	Rate23976 = FrameRate{Num: 24000, Den: 1001}
	Rate24    = FrameRate{Num: 24, Den: 1}
	Rate25    = FrameRate{Num: 25, Den: 1}
	Rate2997  = FrameRate{Num: 30000, Den: 1001}
	Rate30    = FrameRate{Num: 30, Den: 1}
	Rate50    = FrameRate{Num: 50, Den: 1}
	Rate5994  = FrameRate{Num: 60000, Den: 1001}
	Rate60    = FrameRate{Num: 60, Den: 1}
)

// ntscRates maps the decimal spellings of NTSC rates to their exact form.
var ntscRates = map[string]FrameRate{
	"23.976": Rate23976,
	"23.98":  Rate23976,
	"29.97":  Rate2997,
	"59.94":  Rate5994,
}

// ParseFrameRate accepts "num/den" (as printed by ffprobe's r_frame_rate),
// an integer such as "25", or an NTSC decimal such as "29.97".
func ParseFrameRate(s string) (FrameRate, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return FrameRate{}, fmt.Errorf("%w: %q", ErrInvalidFrameRate, s)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return FrameRate{}, fmt.Errorf("%w: %q", ErrInvalidFrameRate, s)
		}
		fr := FrameRate{Num: n, Den: d}.Reduce()
		if !fr.Valid() {
			return FrameRate{}, fmt.Errorf("%w: %q", ErrInvalidFrameRate, s)
		}
		return fr, nil
	}

	if fr, ok := ntscRates[s]; ok {
		return fr, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return FrameRate{Num: n, Den: 1}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return FrameRate{}, fmt.Errorf("%w: %q", ErrInvalidFrameRate, s)
	}
	// Arbitrary decimals are kept to the millisecond-frame.
	return FrameRate{Num: int64(math.Round(f * 1000)), Den: 1000}.Reduce(), nil
}

// Valid reports whether both terms are positive.
func (fr FrameRate) Valid() bool {
	return fr.Num > 0 && fr.Den > 0
}

// Reduce divides both terms by their greatest common divisor.
func (fr FrameRate) Reduce() FrameRate {
	a, b := fr.Num, fr.Den
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return fr
	}
	return FrameRate{Num: fr.Num / a, Den: fr.Den / a}
}

// Float returns the rate as frames per second.
func (fr FrameRate) Float() float64 {
	if fr.Den == 0 {
		return 0
	}
	return float64(fr.Num) / float64(fr.Den)
}

// IsInteger reports whether the rate is a whole number of frames per second.
func (fr FrameRate) IsInteger() bool {
	return fr.Valid() && fr.Num%fr.Den == 0
}

// Nominal returns the integer frame count per timecode second (30 for 29.97).
func (fr FrameRate) Nominal() int64 {
	if !fr.Valid() {
		return 0
	}
	return int64(math.Round(fr.Float()))
}

// NTSC reports whether the rate is a 1000/1001 pulldown rate.
func (fr FrameRate) NTSC() bool {
	return fr.Valid() && !fr.IsInteger() && fr.Den == 1001
}

// DropFrame reports whether SMPTE drop-frame timecode applies. Drop-frame is
// only defined for the 29.97 and 59.94 families.
func (fr FrameRate) DropFrame() bool {
	return fr.NTSC() && fr.Nominal()%30 == 0
}

// Frames converts seconds to a frame count, rounding half up.
func (fr FrameRate) Frames(seconds float64) int64 {
	if !fr.Valid() {
		return 0
	}
	return int64(math.Floor(seconds*float64(fr.Num)/float64(fr.Den) + 0.5 + Epsilon))
}

// Seconds converts a frame count back to seconds.
func (fr FrameRate) Seconds(frames int64) float64 {
	if !fr.Valid() {
		return 0
	}
	return float64(frames) * float64(fr.Den) / float64(fr.Num)
}

// String returns "num/den".
func (fr FrameRate) String() string {
	return fmt.Sprintf("%d/%d", fr.Num, fr.Den)
}
