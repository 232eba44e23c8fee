package video

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySamples(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	solid := func(r, g, b float64, n int) []colorSample {
		samples := make([]colorSample, n)
		for i := range samples {
			samples[i] = colorSample{r: r, g: g, b: b, brightness: (r + g + b) / 3}
		}
		return samples
	}

	t.Run("all dark pixels classify black", func(t *testing.T) {
		t.Parallel()
		got, frac := classifySamples(solid(40, 40, 40, 100), th)
		assert.Equal(t, SmokeBlack, got)
		assert.GreaterOrEqual(t, frac, th.BlackFraction)
	})

	t.Run("near-white pixels classify white", func(t *testing.T) {
		t.Parallel()
		got, _ := classifySamples(solid(220, 225, 210, 100), th)
		assert.Equal(t, SmokeWhite, got)
	})

	t.Run("blue-dominant pixels classify blue", func(t *testing.T) {
		t.Parallel()
		got, _ := classifySamples(solid(90, 100, 160, 100), th)
		assert.Equal(t, SmokeBlue, got)
	})

	t.Run("mid grey classifies none", func(t *testing.T) {
		t.Parallel()
		got, frac := classifySamples(solid(128, 128, 128, 100), th)
		assert.Equal(t, SmokeNone, got)
		assert.Equal(t, 0.0, frac)
	})

	t.Run("zero samples return none without dividing", func(t *testing.T) {
		t.Parallel()
		got, frac := classifySamples(nil, th)
		assert.Equal(t, SmokeNone, got)
		assert.Equal(t, 0.0, frac)
	})

	t.Run("fraction at exactly the threshold does not fire", func(t *testing.T) {
		t.Parallel()
		// 30 dark pixels out of 100 is a fraction of exactly 0.3, which is
		// not strictly greater than the black threshold.
		samples := append(solid(40, 40, 40, 30), solid(128, 128, 128, 70)...)
		got, _ := classifySamples(samples, th)
		assert.Equal(t, SmokeNone, got)

		// One more dark pixel tips it over.
		samples = append(solid(40, 40, 40, 31), solid(128, 128, 128, 69)...)
		got, _ = classifySamples(samples, th)
		assert.Equal(t, SmokeBlack, got)
	})

	t.Run("black wins over blue when both cross", func(t *testing.T) {
		t.Parallel()
		// Dark pixels with a strong blue cast satisfy both profiles; the
		// fixed evaluation order picks black.
		got, _ := classifySamples(solid(30, 30, 70, 100), th)
		assert.Equal(t, SmokeBlack, got)
	})
}

func TestClassifySmoke(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	darkFrame := func() *Frame {
		f := NewFrame(160, 120)
		f.Fill(40, 40, 40)
		return f
	}

	t.Run("detector region carries its confidence", func(t *testing.T) {
		t.Parallel()
		region := &Region{Rect: image.Rect(10, 10, 80, 80), Label: "smoke", Confidence: 0.9}
		det := ClassifySmoke(darkFrame(), region, th)
		require.Equal(t, SmokeBlack, det.Type)
		assert.Equal(t, 0.9, det.Confidence)
		assert.Equal(t, 70*70, det.RegionArea)
	})

	t.Run("region without confidence gets the localized default", func(t *testing.T) {
		t.Parallel()
		region := &Region{Rect: image.Rect(0, 0, 60, 60)}
		det := ClassifySmoke(darkFrame(), region, th)
		require.Equal(t, SmokeBlack, det.Type)
		assert.Equal(t, th.LocalizedConfidence, det.Confidence)
	})

	t.Run("frame-wide fallback gets the fixed lower confidence", func(t *testing.T) {
		t.Parallel()
		det := ClassifySmoke(darkFrame(), nil, th)
		require.Equal(t, SmokeBlack, det.Type)
		assert.Equal(t, th.FallbackConfidence, det.Confidence)
		assert.Equal(t, 0, det.RegionArea)
	})

	t.Run("clean region falls through to frame-wide scan", func(t *testing.T) {
		t.Parallel()
		// Frame is dark overall but the region covers a clean grey patch.
		f := darkFrame()
		for y := 0; y < 30; y++ {
			for x := 0; x < 30; x++ {
				f.SetRGB(x, y, 128, 128, 128)
			}
		}
		region := &Region{Rect: image.Rect(0, 0, 30, 30), Confidence: 0.8}
		det := ClassifySmoke(f, region, th)
		require.Equal(t, SmokeBlack, det.Type)
		assert.Equal(t, th.FallbackConfidence, det.Confidence)
	})

	t.Run("empty frame classifies none", func(t *testing.T) {
		t.Parallel()
		det := ClassifySmoke(NewFrame(0, 0), nil, th)
		assert.Equal(t, SmokeNone, det.Type)
	})
}
