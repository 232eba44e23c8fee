package video

// Thresholds collects the heuristic tuning values used by the frame analyzer.
// The defaults are empirically chosen constants; they are policy values, not
// measured truths, so they are kept together and overridable via the tuning
// config rather than scattered as literals.
type Thresholds struct {
	// SampleGrid is the approximate number of sample points per axis used by
	// the brightness sampler and the frame-wide smoke scan.
	SampleGrid int

	// Black smoke: per-pixel brightness below BlackBrightnessMax and every
	// channel below BlackChannelMax; bucket fires when the matching fraction
	// of sampled pixels exceeds BlackFraction.
	BlackBrightnessMax float64
	BlackChannelMax    float64
	BlackFraction      float64

	// White smoke: per-pixel brightness above WhiteBrightnessMin with all
	// channels mutually within WhiteChannelSpread.
	WhiteBrightnessMin float64
	WhiteChannelSpread float64
	WhiteFraction      float64

	// Blue smoke: blue channel exceeds both red and green by BlueChannelMargin.
	BlueChannelMargin float64
	BlueFraction      float64

	// LocalizedConfidence is used when a detector region matched but carried
	// no label confidence. FallbackConfidence is the fixed (lower) confidence
	// assigned to frame-wide matches, reflecting the weaker localization.
	LocalizedConfidence float64
	FallbackConfidence  float64

	// VibrationStride samples every Nth pixel when differencing consecutive
	// frames. VibrationDetect is the level above which a frame is flagged.
	VibrationStride int
	VibrationDetect float64

	// Quality verdict cutoffs: a session is "poor" below PoorBrightness or
	// above PoorVibration, "acceptable" below AcceptableBrightness or above
	// AcceptableVibration, otherwise "good".
	PoorBrightness       float64
	AcceptableBrightness float64
	PoorVibration        float64
	AcceptableVibration  float64
}

// DefaultThresholds returns the stock tuning values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SampleGrid: 50,

		BlackBrightnessMax: 80,
		BlackChannelMax:    100,
		BlackFraction:      0.3,

		WhiteBrightnessMin: 180,
		WhiteChannelSpread: 30,
		WhiteFraction:      0.4,

		BlueChannelMargin: 20,
		BlueFraction:      0.25,

		LocalizedConfidence: 0.5,
		FallbackConfidence:  0.4,

		VibrationStride: 10,
		VibrationDetect: 0.1,

		PoorBrightness:       30,
		AcceptableBrightness: 50,
		PoorVibration:        0.25,
		AcceptableVibration:  0.15,
	}
}
