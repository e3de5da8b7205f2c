package transcribe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/transcribe"
)

func TestDefaultConfig(t *testing.T) {
	cfg := transcribe.DefaultConfig()
	assert.Nil(t, cfg.Validate())
	assert.InDelta(t, 0.0929, cfg.FrameSeconds(), 1e-4)
	assert.InDelta(t, 0.0232, cfg.HopSeconds(), 1e-4)
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		mutate func(*transcribe.Config)
		field  string
	}{
		{mutate: func(c *transcribe.Config) { c.SampleRate = 0 }, field: "SampleRate"},
		{mutate: func(c *transcribe.Config) { c.FrameLength = -1 }, field: "FrameLength"},
		{mutate: func(c *transcribe.Config) { c.HopLength = 0 }, field: "HopLength"},
		{mutate: func(c *transcribe.Config) { c.HopLength = c.FrameLength + 1 }, field: "HopLength"},
		{mutate: func(c *transcribe.Config) { c.FMin = 0 }, field: "FMin"},
		{mutate: func(c *transcribe.Config) { c.FMin = c.FMax }, field: "FMax"},
		{mutate: func(c *transcribe.Config) { c.VoicingThreshold = 1.5 }, field: "VoicingThreshold"},
		{mutate: func(c *transcribe.Config) { c.OnsetSensitivity = -0.1 }, field: "OnsetSensitivity"},
		{mutate: func(c *transcribe.Config) { c.SnapToleranceMs = -1 }, field: "SnapToleranceMs"},
		{mutate: func(c *transcribe.Config) { c.MinNoteDurationMs = -1 }, field: "MinNoteDurationMs"},
	}
	for _, test := range tests {
		cfg := transcribe.DefaultConfig()
		test.mutate(&cfg)
		err := cfg.Validate()
		assert.NotNil(t, err)
		cfgErr, ok := err.(*transcribe.ConfigError)
		assert.True(t, ok)
		assert.Equal(t, test.field, cfgErr.Field)
		assert.Contains(t, cfgErr.Error(), test.field)
	}
}
