package video

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDetector returns canned regions or a canned error and counts Close calls.
type stubDetector struct {
	regions    []Region
	detectErr  error
	closeCount int
}

func (d *stubDetector) Detect(*Frame) ([]Region, error) {
	return d.regions, d.detectErr
}

func (d *stubDetector) Close() error {
	d.closeCount++
	return nil
}

func TestAnalyzer(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	t.Run("missing frame records a degraded entry", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(NopDetector{}, th)
		defer a.Close()

		got := a.AnalyzeFrame(nil, 1000)
		assert.NotEmpty(t, got.Error)
		assert.False(t, got.SmokeDetected)
		assert.Equal(t, SmokeNone, got.SmokeType)
		assert.Equal(t, 1, a.FrameCount())
	})

	t.Run("detector error falls back to frame-wide scan", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(&stubDetector{detectErr: errors.New("not initialized")}, th)
		defer a.Close()

		f := NewFrame(160, 120)
		f.Fill(40, 40, 40)
		got := a.AnalyzeFrame(f, 1000)
		require.True(t, got.SmokeDetected)
		assert.Equal(t, SmokeBlack, got.SmokeType)
		assert.Equal(t, th.FallbackConfidence, got.SmokeConfidence)
		assert.Empty(t, got.Error)
	})

	t.Run("highest-confidence region wins", func(t *testing.T) {
		t.Parallel()
		det := &stubDetector{regions: []Region{
			{Rect: image.Rect(0, 0, 40, 40), Confidence: 0.3},
			{Rect: image.Rect(40, 0, 120, 80), Confidence: 0.85},
		}}
		a := NewAnalyzer(det, th)
		defer a.Close()

		f := NewFrame(160, 120)
		f.Fill(40, 40, 40)
		got := a.AnalyzeFrame(f, 1000)
		require.True(t, got.SmokeDetected)
		assert.Equal(t, 0.85, got.SmokeConfidence)
	})

	t.Run("frame indices and timestamps are sequential", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(NopDetector{}, th)
		defer a.Close()

		f := NewFrame(32, 32)
		for i := 0; i < 5; i++ {
			got := a.AnalyzeFrame(f, int64(i*33))
			assert.Equal(t, i, got.FrameIndex)
			assert.Equal(t, int64(i*33), got.TimestampMillis)
		}
		results := a.Results()
		require.Len(t, results, 5)
		assert.Equal(t, 3, results[3].FrameIndex)
	})

	t.Run("reset clears history and vibration baseline", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(NopDetector{}, th)
		defer a.Close()

		bright := NewFrame(32, 32)
		bright.Fill(255, 255, 255)
		dark := NewFrame(32, 32)

		a.AnalyzeFrame(dark, 0)
		a.Reset()
		assert.Equal(t, 0, a.FrameCount())

		// Without the reset this frame would register a full-scale delta.
		got := a.AnalyzeFrame(bright, 0)
		assert.Equal(t, 0.0, got.VibrationLevel)
		assert.Equal(t, 0, got.FrameIndex)
	})

	t.Run("close releases the detector exactly once", func(t *testing.T) {
		t.Parallel()
		det := &stubDetector{}
		a := NewAnalyzer(det, th)

		require.NoError(t, a.Close())
		require.NoError(t, a.Close())
		require.NoError(t, a.Close())
		assert.Equal(t, 1, det.closeCount)
	})

	t.Run("nil detector runs degraded", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(nil, th)
		defer a.Close()

		f := NewFrame(160, 120)
		f.Fill(220, 220, 220)
		got := a.AnalyzeFrame(f, 0)
		require.True(t, got.SmokeDetected)
		assert.Equal(t, SmokeWhite, got.SmokeType)
		assert.Equal(t, th.FallbackConfidence, got.SmokeConfidence)
	})

	t.Run("results returns a copy", func(t *testing.T) {
		t.Parallel()
		a := NewAnalyzer(NopDetector{}, th)
		defer a.Close()

		a.AnalyzeFrame(NewFrame(32, 32), 0)
		results := a.Results()
		results[0].Brightness = 99
		assert.NotEqual(t, 99.0, a.Results()[0].Brightness)
	})
}
