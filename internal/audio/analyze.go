// Package audio implements engine sound heuristics over decoded PCM clips:
// loudness, dominant frequency, and a transient score that flags knocking
// and misfire-like impulses.
package audio

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrNoSamples is returned when a clip contains no audio samples.
var ErrNoSamples = errors.New("no audio samples to analyze")

// Heuristic parameters.
const (
	// transientWindow is the window size in samples for the knock score.
	// At 44.1 kHz this is roughly 23 ms, long enough to span one
	// combustion impulse.
	transientWindow = 1024

	// transientFactor is how far a window's RMS must exceed the median
	// window RMS to count as an impulse.
	transientFactor = 2.5

	// silenceRMS is the floor below which a clip is considered silent.
	silenceRMS = 1e-4
)

// Analysis is the session-level audio aggregate.
type Analysis struct {
	RMSLevel   float64 `json:"rms_level"`
	PeakLevel  float64 `json:"peak_level"`
	DominantHz float64 `json:"dominant_hz"`
	KnockScore float64 `json:"knock_score"`
	Severity   int     `json:"severity"`
	Label      string  `json:"label"`
}

// Analyze runs the heuristics over a decoded clip.
func Analyze(clip *Clip) (*Analysis, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return nil, ErrNoSamples
	}

	a := &Analysis{
		RMSLevel:  rms(clip.Samples),
		PeakLevel: peak(clip.Samples),
	}

	if a.RMSLevel >= silenceRMS {
		a.DominantHz = dominantFrequency(clip.Samples, clip.SampleRate)
		a.KnockScore = knockScore(clip.Samples)
	}

	a.Severity = severity(a.KnockScore, a.RMSLevel)
	a.Label = severityLabels[a.Severity]
	return a, nil
}

var severityLabels = [6]string{
	"quiet",
	"normal running",
	"loud running",
	"intermittent knock",
	"knocking",
	"severe knocking",
}

// severity maps the knock score and loudness to a 0 to 5 scale. A knocking
// engine outranks a merely loud one.
func severity(knock, level float64) int {
	switch {
	case knock > 0.3:
		return 5
	case knock > 0.2:
		return 4
	case knock > 0.1:
		return 3
	case level > 0.5:
		return 2
	case level > silenceRMS:
		return 1
	default:
		return 0
	}
}

func rms(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func peak(samples []float64) float64 {
	var max float64
	for _, s := range samples {
		if v := math.Abs(s); v > max {
			max = v
		}
	}
	return max
}

// dominantFrequency returns the frequency in Hz with the largest spectral
// magnitude, ignoring the DC bin.
func dominantFrequency(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(samples) < 2 {
		return 0
	}

	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)

	bestIdx := 0
	bestMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		mag := cmplxAbs(coeffs[i])
		if mag > bestMag {
			bestMag = mag
			bestIdx = i
		}
	}
	if bestIdx == 0 {
		return 0
	}
	return fft.Freq(bestIdx) * float64(sampleRate)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// knockScore slices the clip into short windows and returns the fraction of
// windows whose energy spikes well above the median. Steady engine drone
// scores near zero; periodic impulses push the score up.
func knockScore(samples []float64) float64 {
	windows := len(samples) / transientWindow
	if windows < 4 {
		return 0
	}

	levels := make([]float64, windows)
	for i := range levels {
		levels[i] = rms(samples[i*transientWindow : (i+1)*transientWindow])
	}

	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if median < silenceRMS {
		return 0
	}

	spikes := 0
	for _, lv := range levels {
		if lv > transientFactor*median {
			spikes++
		}
	}
	return float64(spikes) / float64(windows)
}
