package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	t.Run("partial config keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"black_fraction": 0.5, "sample_grid": 25}`)
		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)

		th := cfg.Thresholds()
		assert.Equal(t, 0.5, th.BlackFraction)
		assert.Equal(t, 25, th.SampleGrid)
		// Untouched fields stay at stock values.
		assert.Equal(t, 0.4, th.WhiteFraction)
		assert.Equal(t, 10, th.VibrationStride)
	})

	t.Run("empty config is all defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{}`)
		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.GetFrameIntervalSeconds())
		assert.Equal(t, 640, cfg.GetMaxFrameWidth())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig("tuning.yaml")
		assert.Error(t, err)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"black_fraction": `)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range fraction", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"blue_fraction": 1.5}`)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range channel value", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"white_brightness_min": 300}`)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive stride", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"vibration_stride": 0}`)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})

	t.Run("nil config materializes defaults", func(t *testing.T) {
		t.Parallel()
		var cfg *TuningConfig
		th := cfg.Thresholds()
		assert.Equal(t, 50, th.SampleGrid)
		assert.Equal(t, 0.3, th.BlackFraction)
	})
}
