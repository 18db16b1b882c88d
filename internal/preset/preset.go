// Package preset maps named use-case presets to detection configs.
//
// Preset values are tuning data. The built-in table can be overridden per
// entry from a YAML file, for example:
//
//	podcast:
//	  threshold_db: -32
//	  min_duration_ms: 700
//	  pre_padding_ms: 120
//	  post_padding_ms: 180
//	  merge_gap_ms: 400
//	  keep_short_pause_ms: 200
package preset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maauso/autocut/internal/silence"
)

// ErrUnknownPreset is returned for a name outside the enumerated set.
var ErrUnknownPreset = errors.New("preset: unknown preset")

// Name identifies a preset.
type Name string

// Enumerated preset names.
const (
	Podcast    Name = "podcast"
	Tutorial   Name = "tutorial"
	Meeting    Name = "meeting"
	NoisyRoom  Name = "noisy_room"
	Aggressive Name = "aggressive"
)

// Names lists every preset in display order.
func Names() []Name {
	return []Name{Podcast, Tutorial, Meeting, NoisyRoom, Aggressive}
}

// ParseName accepts case, space and dash variants ("Noisy Room", "noisy-room").
func ParseName(s string) (Name, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	n := Name(norm)
	for _, known := range Names() {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
}

// defaults returns a fresh copy of the built-in table.
func defaults() map[Name]silence.Config {
	return map[Name]silence.Config{
		Podcast: {
			ThresholdDb: -30, MinDurationMs: 600,
			PrePaddingMs: 120, PostPaddingMs: 180,
			MergeGapMs: 400, KeepShortPauseMs: 200,
		},
		Tutorial: {
			ThresholdDb: -32, MinDurationMs: 500,
			PrePaddingMs: 100, PostPaddingMs: 150,
			MergeGapMs: 300, KeepShortPauseMs: 150,
		},
		Meeting: {
			ThresholdDb: -28, MinDurationMs: 800,
			PrePaddingMs: 150, PostPaddingMs: 200,
			MergeGapMs: 500, KeepShortPauseMs: 250,
		},
		NoisyRoom: {
			ThresholdDb: -25, MinDurationMs: 600,
			PrePaddingMs: 120, PostPaddingMs: 180,
			MergeGapMs: 400, KeepShortPauseMs: 200,
		},
		Aggressive: {
			ThresholdDb: -35, MinDurationMs: 300,
			PrePaddingMs: 80, PostPaddingMs: 100,
			MergeGapMs: 200, KeepShortPauseMs: 100,
		},
	}
}

// Resolver resolves preset names against a table of configs.
type Resolver struct {
	table map[Name]silence.Config
}

// NewResolver returns a Resolver holding the built-in table.
func NewResolver() *Resolver {
	return &Resolver{table: defaults()}
}

// Resolve returns the config for name.
func (r *Resolver) Resolve(name Name) (silence.Config, error) {
	cfg, ok := r.table[name]
	if !ok {
		return silence.Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// All returns a copy of the table.
func (r *Resolver) All() map[Name]silence.Config {
	out := make(map[Name]silence.Config, len(r.table))
	for k, v := range r.table {
		out[k] = v
	}
	return out
}

// LoadFile overrides table entries from a YAML file keyed by preset name.
// Each entry replaces the whole config and must validate. Nothing is applied
// if any entry is invalid.
func (r *Resolver) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return fmt.Errorf("read presets file: %w", err)
	}
	return r.Load(data)
}

// Load applies YAML overrides from data. See LoadFile.
func (r *Resolver) Load(data []byte) error {
	var raw map[string]silence.Config
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse presets: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parsed := make(map[Name]silence.Config, len(raw))
	for _, k := range keys {
		name, err := ParseName(k)
		if err != nil {
			return err
		}
		cfg := raw[k]
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		parsed[name] = cfg
	}

	for name, cfg := range parsed {
		r.table[name] = cfg
	}
	return nil
}
