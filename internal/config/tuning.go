package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in defaults used when a field is absent from the loaded file.
const (
	defaultMatchThreshold     = 0.85
	defaultSmoothingWindow    = 3
	defaultMinFrames          = 8
	defaultMaxFrames          = 12
	defaultMinVolume          = 0.001
	defaultMaxVolume          = 1.0
	defaultSurfaceSampleLimit = 100
	defaultDistanceBins       = 8
	defaultAzimuthBins        = 16
)

// TuningConfig holds the tunable parameters of feature extraction,
// matching and the enrollment/verification sessions. Every field is a
// pointer so partial files only override what they mention; the Get*
// methods supply defaults for the rest.
type TuningConfig struct {
	// Matching
	MatchThreshold  *float64 `json:"match_threshold,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`

	// Enrollment
	MinFrames *int     `json:"min_frames,omitempty"`
	MaxFrames *int     `json:"max_frames,omitempty"`
	MinVolume *float64 `json:"min_volume,omitempty"`
	MaxVolume *float64 `json:"max_volume,omitempty"`

	// Feature extraction
	SurfaceSampleLimit *int `json:"surface_sample_limit,omitempty"`
	DistanceBins       *int `json:"distance_bins,omitempty"`
	AzimuthBins        *int `json:"azimuth_bins,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		MatchThreshold:     ptrFloat64(defaultMatchThreshold),
		SmoothingWindow:    ptrInt(defaultSmoothingWindow),
		MinFrames:          ptrInt(defaultMinFrames),
		MaxFrames:          ptrInt(defaultMaxFrames),
		MinVolume:          ptrFloat64(defaultMinVolume),
		MaxVolume:          ptrFloat64(defaultMaxVolume),
		SurfaceSampleLimit: ptrInt(defaultSurfaceSampleLimit),
		DistanceBins:       ptrInt(defaultDistanceBins),
		AzimuthBins:        ptrInt(defaultAzimuthBins),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to the built-in defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,    // from cmd/keyscan
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the resolved values (explicit or default) for consistency.
func (c *TuningConfig) Validate() error {
	if th := c.GetMatchThreshold(); th < 0 || th > 1 {
		return fmt.Errorf("match_threshold must be between 0 and 1, got %f", th)
	}
	if w := c.GetSmoothingWindow(); w < 1 {
		return fmt.Errorf("smoothing_window must be at least 1, got %d", w)
	}
	minFrames, maxFrames := c.GetMinFrames(), c.GetMaxFrames()
	if minFrames < 1 {
		return fmt.Errorf("min_frames must be at least 1, got %d", minFrames)
	}
	if maxFrames < minFrames {
		return fmt.Errorf("max_frames (%d) must not be below min_frames (%d)", maxFrames, minFrames)
	}
	minVol, maxVol := c.GetMinVolume(), c.GetMaxVolume()
	if minVol < 0 {
		return fmt.Errorf("min_volume must be non-negative, got %f", minVol)
	}
	if maxVol <= minVol {
		return fmt.Errorf("max_volume (%f) must exceed min_volume (%f)", maxVol, minVol)
	}
	if n := c.GetSurfaceSampleLimit(); n < 0 {
		return fmt.Errorf("surface_sample_limit must be non-negative, got %d", n)
	}
	if n := c.GetDistanceBins(); n < 1 {
		return fmt.Errorf("distance_bins must be positive, got %d", n)
	}
	if n := c.GetAzimuthBins(); n < 1 {
		return fmt.Errorf("azimuth_bins must be positive, got %d", n)
	}
	return nil
}

// GetMatchThreshold returns the match_threshold value or the default.
func (c *TuningConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return defaultMatchThreshold
	}
	return *c.MatchThreshold
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return defaultSmoothingWindow
	}
	return *c.SmoothingWindow
}

// GetMinFrames returns the min_frames value or the default.
func (c *TuningConfig) GetMinFrames() int {
	if c.MinFrames == nil {
		return defaultMinFrames
	}
	return *c.MinFrames
}

// GetMaxFrames returns the max_frames value or the default.
func (c *TuningConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return defaultMaxFrames
	}
	return *c.MaxFrames
}

// GetMinVolume returns the min_volume value or the default.
func (c *TuningConfig) GetMinVolume() float64 {
	if c.MinVolume == nil {
		return defaultMinVolume
	}
	return *c.MinVolume
}

// GetMaxVolume returns the max_volume value or the default.
func (c *TuningConfig) GetMaxVolume() float64 {
	if c.MaxVolume == nil {
		return defaultMaxVolume
	}
	return *c.MaxVolume
}

// GetSurfaceSampleLimit returns the surface_sample_limit value or the default.
func (c *TuningConfig) GetSurfaceSampleLimit() int {
	if c.SurfaceSampleLimit == nil {
		return defaultSurfaceSampleLimit
	}
	return *c.SurfaceSampleLimit
}

// GetDistanceBins returns the distance_bins value or the default.
func (c *TuningConfig) GetDistanceBins() int {
	if c.DistanceBins == nil {
		return defaultDistanceBins
	}
	return *c.DistanceBins
}

// GetAzimuthBins returns the azimuth_bins value or the default.
func (c *TuningConfig) GetAzimuthBins() int {
	if c.AzimuthBins == nil {
		return defaultAzimuthBins
	}
	return *c.AzimuthBins
}
