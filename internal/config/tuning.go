package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/autobrain-data/autobrain/internal/video"
)

// TuningConfig is the root configuration for analyzer tuning parameters.
// Every field is optional: fields omitted from the JSON file fall back to
// the stock defaults, so partial configs are safe. The classifier thresholds
// are empirically chosen policy values, which is exactly why they live here
// instead of as constants.
type TuningConfig struct {
	// Sampling params
	SampleGrid      *int `json:"sample_grid,omitempty"`
	VibrationStride *int `json:"vibration_stride,omitempty"`

	// Smoke colour profile params
	BlackBrightnessMax *float64 `json:"black_brightness_max,omitempty"`
	BlackChannelMax    *float64 `json:"black_channel_max,omitempty"`
	BlackFraction      *float64 `json:"black_fraction,omitempty"`
	WhiteBrightnessMin *float64 `json:"white_brightness_min,omitempty"`
	WhiteChannelSpread *float64 `json:"white_channel_spread,omitempty"`
	WhiteFraction      *float64 `json:"white_fraction,omitempty"`
	BlueChannelMargin  *float64 `json:"blue_channel_margin,omitempty"`
	BlueFraction       *float64 `json:"blue_fraction,omitempty"`

	// Confidence params
	LocalizedConfidence *float64 `json:"localized_confidence,omitempty"`
	FallbackConfidence  *float64 `json:"fallback_confidence,omitempty"`

	// Vibration and quality params
	VibrationDetect      *float64 `json:"vibration_detect,omitempty"`
	PoorBrightness       *float64 `json:"poor_brightness,omitempty"`
	AcceptableBrightness *float64 `json:"acceptable_brightness,omitempty"`
	PoorVibration        *float64 `json:"poor_vibration,omitempty"`
	AcceptableVibration  *float64 `json:"acceptable_vibration,omitempty"`

	// Extraction params
	FrameIntervalSeconds *int `json:"frame_interval_seconds,omitempty"`
	MaxFrameWidth        *int `json:"max_frame_width,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size.
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

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	fractions := map[string]*float64{
		"black_fraction":       c.BlackFraction,
		"white_fraction":       c.WhiteFraction,
		"blue_fraction":        c.BlueFraction,
		"localized_confidence": c.LocalizedConfidence,
		"fallback_confidence":  c.FallbackConfidence,
		"vibration_detect":     c.VibrationDetect,
		"poor_vibration":       c.PoorVibration,
		"acceptable_vibration": c.AcceptableVibration,
	}
	for name, v := range fractions {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	channels := map[string]*float64{
		"black_brightness_max": c.BlackBrightnessMax,
		"black_channel_max":    c.BlackChannelMax,
		"white_brightness_min": c.WhiteBrightnessMin,
		"white_channel_spread": c.WhiteChannelSpread,
		"blue_channel_margin":  c.BlueChannelMargin,
	}
	for name, v := range channels {
		if v != nil && (*v < 0 || *v > 255) {
			return fmt.Errorf("%s must be between 0 and 255, got %f", name, *v)
		}
	}

	if c.SampleGrid != nil && *c.SampleGrid < 1 {
		return fmt.Errorf("sample_grid must be positive, got %d", *c.SampleGrid)
	}
	if c.VibrationStride != nil && *c.VibrationStride < 1 {
		return fmt.Errorf("vibration_stride must be positive, got %d", *c.VibrationStride)
	}
	if c.FrameIntervalSeconds != nil && *c.FrameIntervalSeconds < 1 {
		return fmt.Errorf("frame_interval_seconds must be positive, got %d", *c.FrameIntervalSeconds)
	}
	if c.MaxFrameWidth != nil && *c.MaxFrameWidth < 16 {
		return fmt.Errorf("max_frame_width must be at least 16, got %d", *c.MaxFrameWidth)
	}

	return nil
}

// Thresholds materializes the analyzer thresholds, starting from the stock
// defaults and applying any overrides present in the config.
func (c *TuningConfig) Thresholds() video.Thresholds {
	th := video.DefaultThresholds()
	if c == nil {
		return th
	}
	setInt(&th.SampleGrid, c.SampleGrid)
	setInt(&th.VibrationStride, c.VibrationStride)
	setFloat(&th.BlackBrightnessMax, c.BlackBrightnessMax)
	setFloat(&th.BlackChannelMax, c.BlackChannelMax)
	setFloat(&th.BlackFraction, c.BlackFraction)
	setFloat(&th.WhiteBrightnessMin, c.WhiteBrightnessMin)
	setFloat(&th.WhiteChannelSpread, c.WhiteChannelSpread)
	setFloat(&th.WhiteFraction, c.WhiteFraction)
	setFloat(&th.BlueChannelMargin, c.BlueChannelMargin)
	setFloat(&th.BlueFraction, c.BlueFraction)
	setFloat(&th.LocalizedConfidence, c.LocalizedConfidence)
	setFloat(&th.FallbackConfidence, c.FallbackConfidence)
	setFloat(&th.VibrationDetect, c.VibrationDetect)
	setFloat(&th.PoorBrightness, c.PoorBrightness)
	setFloat(&th.AcceptableBrightness, c.AcceptableBrightness)
	setFloat(&th.PoorVibration, c.PoorVibration)
	setFloat(&th.AcceptableVibration, c.AcceptableVibration)
	return th
}

// GetFrameIntervalSeconds returns the frame extraction interval or the default.
func (c *TuningConfig) GetFrameIntervalSeconds() int {
	if c == nil || c.FrameIntervalSeconds == nil {
		return 1 // default: one frame per second
	}
	return *c.FrameIntervalSeconds
}

// GetMaxFrameWidth returns the decode downscale limit or the default.
func (c *TuningConfig) GetMaxFrameWidth() int {
	if c == nil || c.MaxFrameWidth == nil {
		return 640 // default
	}
	return *c.MaxFrameWidth
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
