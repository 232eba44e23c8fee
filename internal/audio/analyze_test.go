package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, amplitude float64, sampleRate, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func TestAnalyzeSine(t *testing.T) {
	t.Parallel()

	clip := &Clip{SampleRate: 8000, Samples: sine(440, 0.5, 8000, 8000)}

	a, err := Analyze(clip)
	require.NoError(t, err)

	// RMS of a sine is amplitude over sqrt(2)
	assert.InDelta(t, 0.5/math.Sqrt2, a.RMSLevel, 0.001)
	assert.InDelta(t, 0.5, a.PeakLevel, 0.001)
	assert.InDelta(t, 440, a.DominantHz, 1.0)
	// steady tone has no transients
	assert.Zero(t, a.KnockScore)
	assert.Equal(t, 1, a.Severity)
	assert.Equal(t, "normal running", a.Label)
}

func TestAnalyzeSilence(t *testing.T) {
	t.Parallel()

	clip := &Clip{SampleRate: 8000, Samples: make([]float64, 8000)}

	a, err := Analyze(clip)
	require.NoError(t, err)
	assert.Zero(t, a.RMSLevel)
	assert.Zero(t, a.PeakLevel)
	assert.Zero(t, a.DominantHz)
	assert.Equal(t, 0, a.Severity)
	assert.Equal(t, "quiet", a.Label)
}

func TestAnalyzeLoudDrone(t *testing.T) {
	t.Parallel()

	clip := &Clip{SampleRate: 8000, Samples: sine(90, 0.95, 8000, 16000)}

	a, err := Analyze(clip)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Severity)
	assert.Equal(t, "loud running", a.Label)
	assert.InDelta(t, 90, a.DominantHz, 1.0)
}

func TestAnalyzeKnocking(t *testing.T) {
	t.Parallel()

	// quiet idle drone with a loud impulse burst in every fourth window
	samples := sine(60, 0.05, 8000, transientWindow*16)
	for w := 0; w < 16; w += 4 {
		for i := 0; i < transientWindow; i++ {
			samples[w*transientWindow+i] += 0.6 * math.Sin(2*math.Pi*2000*float64(i)/8000)
		}
	}
	clip := &Clip{SampleRate: 8000, Samples: samples}

	a, err := Analyze(clip)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, a.KnockScore, 0.01)
	assert.Equal(t, 4, a.Severity)
	assert.Equal(t, "knocking", a.Label)
}

func TestAnalyzeNoSamples(t *testing.T) {
	t.Parallel()

	_, err := Analyze(nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Analyze(&Clip{SampleRate: 8000})
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestSeverityMonotonicInKnock(t *testing.T) {
	t.Parallel()

	prev := 0
	for knock := 0.0; knock <= 0.5; knock += 0.01 {
		s := severity(knock, 0.1)
		assert.GreaterOrEqual(t, s, prev, "knock %.2f", knock)
		prev = s
	}
}
