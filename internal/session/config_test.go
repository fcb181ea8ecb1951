package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/keyscan/internal/config"
	"github.com/banshee-data/keyscan/internal/features"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.85, cfg.MatchThreshold, 1e-12)
	assert.Equal(t, 3, cfg.SmoothingWindow)
	assert.Equal(t, 8, cfg.MinFrames)
	assert.Equal(t, 12, cfg.MaxFrames)
	assert.InDelta(t, 0.001, cfg.MinVolume, 1e-12)
	assert.InDelta(t, 1.0, cfg.MaxVolume, 1e-12)
	assert.Equal(t, features.DefaultExtractor(), cfg.Extractor)
}

func TestConfigFromTuning_Overrides(t *testing.T) {
	t.Parallel()
	threshold := 0.9
	window := 5
	tc := config.EmptyTuningConfig()
	tc.MatchThreshold = &threshold
	tc.SmoothingWindow = &window

	cfg := ConfigFromTuning(tc)
	assert.InDelta(t, 0.9, cfg.MatchThreshold, 1e-12)
	assert.Equal(t, 5, cfg.SmoothingWindow)
	assert.Equal(t, 8, cfg.MinFrames, "unset keys fall back to defaults")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.MatchThreshold = 1.2 }},
		{"negative threshold", func(c *Config) { c.MatchThreshold = -0.1 }},
		{"zero window", func(c *Config) { c.SmoothingWindow = 0 }},
		{"zero min frames", func(c *Config) { c.MinFrames = 0 }},
		{"max below min", func(c *Config) { c.MaxFrames = 4 }},
		{"negative min volume", func(c *Config) { c.MinVolume = -1 }},
		{"max volume not above min", func(c *Config) { c.MaxVolume = c.MinVolume }},
		{"zero distance bins", func(c *Config) { c.Extractor.DistanceBins = 0 }},
		{"zero azimuth bins", func(c *Config) { c.Extractor.AzimuthBins = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
