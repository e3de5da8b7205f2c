// Package transcribe converts a monophonic recording into an ordered,
// non-overlapping sequence of note events suitable for notation export.
package transcribe

import (
	"fmt"
)

// Config is an immutable analysis configuration. It is passed explicitly
// through every pipeline stage, so a run is fully reproducible from the
// input buffer and the config alone.
type Config struct {
	// SampleRate of the input buffer in Hz.
	SampleRate int
	// FrameLength is the analysis window length in samples.
	FrameLength int
	// HopLength is the distance between consecutive frames in samples.
	HopLength int
	// FMin and FMax restrict fundamental frequency search, in Hz.
	FMin float64
	FMax float64
	// VoicingThreshold is the minimum normalized periodicity strength
	// for a frame to be considered voiced.
	VoicingThreshold float64
	// OnsetSensitivity in [0, 1] controls adaptive onset thresholding.
	// Higher values detect weaker attacks.
	OnsetSensitivity float64
	// MinOnsetGapMs is the minimum distance between two onsets.
	MinOnsetGapMs float64
	// DriftTolerance is the pitch continuity tolerance in semitones.
	DriftTolerance float64
	// MinSilenceGapMs is the unvoiced span which ends an open note.
	MinSilenceGapMs float64
	// SnapToleranceMs is the maximum distance a note boundary may be
	// moved onto the tempo grid.
	SnapToleranceMs float64
	// MinNoteDurationMs is the shortest note kept in the output.
	MinNoteDurationMs float64
}

// DefaultConfig returns the documented analysis defaults: 2048-sample
// window with 512-sample hop at 22050 Hz, C2..C7 frequency band.
func DefaultConfig() Config {
	return Config{
		SampleRate:        22050,
		FrameLength:       2048,
		HopLength:         512,
		FMin:              65.0,
		FMax:              2093.0,
		VoicingThreshold:  0.3,
		OnsetSensitivity:  0.5,
		MinOnsetGapMs:     50,
		DriftTolerance:    0.5,
		MinSilenceGapMs:   60,
		SnapToleranceMs:   30,
		MinNoteDurationMs: 40,
	}
}

// FrameSeconds returns the duration of a single analysis window.
func (c Config) FrameSeconds() float64 {
	return float64(c.FrameLength) / float64(c.SampleRate)
}

// HopSeconds returns the duration of a single hop.
func (c Config) HopSeconds() float64 {
	return float64(c.HopLength) / float64(c.SampleRate)
}

// Validate checks the config before any frame is processed.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return &ConfigError{Field: "SampleRate", Reason: "must be positive"}
	case c.FrameLength <= 0:
		return &ConfigError{Field: "FrameLength", Reason: "must be positive"}
	case c.HopLength <= 0:
		return &ConfigError{Field: "HopLength", Reason: "must be positive"}
	case c.HopLength > c.FrameLength:
		return &ConfigError{Field: "HopLength", Reason: "must not exceed frame length"}
	case c.FMin <= 0:
		return &ConfigError{Field: "FMin", Reason: "must be positive"}
	case c.FMin >= c.FMax:
		return &ConfigError{Field: "FMax", Reason: "must be greater than FMin"}
	case c.VoicingThreshold < 0 || c.VoicingThreshold > 1:
		return &ConfigError{Field: "VoicingThreshold", Reason: "must be in [0, 1]"}
	case c.OnsetSensitivity < 0 || c.OnsetSensitivity > 1:
		return &ConfigError{Field: "OnsetSensitivity", Reason: "must be in [0, 1]"}
	case c.SnapToleranceMs < 0:
		return &ConfigError{Field: "SnapToleranceMs", Reason: "must not be negative"}
	case c.MinNoteDurationMs < 0:
		return &ConfigError{Field: "MinNoteDurationMs", Reason: "must not be negative"}
	}
	return nil
}

// ConfigError is returned when an analysis configuration is rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}
