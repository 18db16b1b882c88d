// Package silence finds silent regions in a loudness signal.
//
// The detector accepts either pre-computed silent spans (as reported by
// ffmpeg's silencedetect filter) or a time series of level samples, and
// produces SilenceCandidates for the cut-list builder. Detection is pure; the
// ffmpeg adapter that produces its inputs lives in ffmpeg.go.
package silence

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for the silence package.
var (
	// ErrAnalysisInput indicates input that is not time-ordered or a non-positive duration.
	ErrAnalysisInput = errors.New("silence: invalid analysis input")

	// ErrInvalidConfig indicates a DetectionConfig that fails validation.
	ErrInvalidConfig = errors.New("silence: invalid detection config")
)

// Config holds the detection and post-processing settings shared by the
// detector and the cut-list builder. It is passed by value.
type Config struct {
	// ThresholdDb is the level in dBFS at or below which audio is silent.
	ThresholdDb float64 `json:"threshold_db" yaml:"threshold_db" validate:"lt=0,gte=-120"`
	// MinDurationMs is the shortest silence reported by the detector.
	MinDurationMs int `json:"min_duration_ms" yaml:"min_duration_ms" validate:"gte=0"`
	// PrePaddingMs widens each silence towards its start.
	PrePaddingMs int `json:"pre_padding_ms" yaml:"pre_padding_ms" validate:"gte=0"`
	// PostPaddingMs widens each silence towards its end.
	PostPaddingMs int `json:"post_padding_ms" yaml:"post_padding_ms" validate:"gte=0"`
	// MergeGapMs merges silences separated by at most this much speech.
	MergeGapMs int `json:"merge_gap_ms" yaml:"merge_gap_ms" validate:"gte=0"`
	// KeepShortPauseMs keeps (does not cut) silences no longer than this.
	KeepShortPauseMs int `json:"keep_short_pause_ms" yaml:"keep_short_pause_ms" validate:"gte=0"`
}

var validate = validator.New()

// Validate checks every field of the config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
