package session

import (
	"fmt"

	"github.com/banshee-data/keyscan/internal/config"
	"github.com/banshee-data/keyscan/internal/features"
	"github.com/banshee-data/keyscan/internal/matching"
	"github.com/banshee-data/keyscan/internal/smoothing"
)

// Config holds the parameters shared by enrollment and verification.
type Config struct {
	Extractor features.Extractor

	MatchThreshold  float64 // remapped cosine score for a raw per-frame match
	SmoothingWindow int     // consecutive evaluated matches needed to confirm

	MinFrames int     // vectors needed before Complete succeeds
	MaxFrames int     // vectors after which further frames are ignored
	MinVolume float64 // smallest accepted bounding-box volume (cubic units)
	MaxVolume float64 // largest accepted bounding-box volume (cubic units)
}

// DefaultConfig returns the built-in defaults without reading any file.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Extractor: features.Extractor{
			SurfaceSampleLimit: cfg.GetSurfaceSampleLimit(),
			DistanceBins:       cfg.GetDistanceBins(),
			AzimuthBins:        cfg.GetAzimuthBins(),
		},
		MatchThreshold:  cfg.GetMatchThreshold(),
		SmoothingWindow: cfg.GetSmoothingWindow(),
		MinFrames:       cfg.GetMinFrames(),
		MaxFrames:       cfg.GetMaxFrames(),
		MinVolume:       cfg.GetMinVolume(),
		MaxVolume:       cfg.GetMaxVolume(),
	}
}

// Validate rejects configurations the sessions cannot run with.
func (c Config) Validate() error {
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match threshold must be in [0,1], got %f", c.MatchThreshold)
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be at least 1, got %d", c.SmoothingWindow)
	}
	if c.MinFrames < 1 || c.MaxFrames < c.MinFrames {
		return fmt.Errorf("frame bounds [%d, %d] are invalid", c.MinFrames, c.MaxFrames)
	}
	if c.MinVolume < 0 || c.MaxVolume <= c.MinVolume {
		return fmt.Errorf("volume bounds [%f, %f] are invalid", c.MinVolume, c.MaxVolume)
	}
	if c.Extractor.DistanceBins < 1 || c.Extractor.AzimuthBins < 1 || c.Extractor.SurfaceSampleLimit < 0 {
		return fmt.Errorf("extractor settings %+v are invalid", c.Extractor)
	}
	return nil
}

func (c Config) matcher() matching.Matcher {
	return matching.NewMatcher(c.MatchThreshold)
}

func (c Config) window() *smoothing.Window {
	return smoothing.NewWindow(c.SmoothingWindow)
}
