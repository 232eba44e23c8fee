package video

// VibrationEstimator computes a 0-1 shake level from the mean per-channel
// pixel delta between consecutive frames. It holds exactly one previous-frame
// buffer, so it is a sliding one-frame-lag comparator: no smoothing is
// applied and a single noisy frame will register. Correctness depends on
// strictly sequential frame delivery from a single producer; concurrent calls
// would race on the buffer.
type VibrationEstimator struct {
	stride int
	detect float64
	prev   []uint8
}

// NewVibrationEstimator creates an estimator with the given tuning.
func NewVibrationEstimator(th Thresholds) *VibrationEstimator {
	stride := th.VibrationStride
	if stride < 1 {
		stride = 1
	}
	return &VibrationEstimator{stride: stride, detect: th.VibrationDetect}
}

// Estimate returns the vibration level for the frame. The first frame, or
// any frame whose pixel count differs from the stored baseline (resolution
// change), establishes a new baseline and returns 0. The stored buffer is
// always overwritten with the current frame, regardless of outcome.
func (v *VibrationEstimator) Estimate(f *Frame) float64 {
	if f.Empty() {
		return 0
	}

	if v.prev == nil || len(v.prev) != len(f.Pix) {
		v.prev = make([]uint8, len(f.Pix))
		copy(v.prev, f.Pix)
		return 0
	}

	pixels := f.PixelCount()
	var sum int64
	var samples int
	for p := 0; p < pixels; p += v.stride {
		i := p * 3
		sum += absDelta(f.Pix[i], v.prev[i])
		sum += absDelta(f.Pix[i+1], v.prev[i+1])
		sum += absDelta(f.Pix[i+2], v.prev[i+2])
		samples++
	}
	copy(v.prev, f.Pix)

	if samples == 0 {
		return 0
	}
	return float64(sum) / (float64(samples) * 255.0 * 3.0)
}

// Detected reports whether the given level crosses the detection threshold.
func (v *VibrationEstimator) Detected(level float64) bool {
	return level > v.detect
}

// Reset drops the previous-frame baseline so the next frame starts fresh.
func (v *VibrationEstimator) Reset() {
	v.prev = nil
}

// VibrationSeverity buckets a 0-1 vibration level onto the 0-5 severity
// scale used throughout the session aggregate.
func VibrationSeverity(level float64) int {
	switch {
	case level > 0.3:
		return 5
	case level > 0.2:
		return 4
	case level > 0.15:
		return 3
	case level > 0.1:
		return 2
	case level > 0.05:
		return 1
	default:
		return 0
	}
}

func absDelta(a, b uint8) int64 {
	d := int64(a) - int64(b)
	if d < 0 {
		return -d
	}
	return d
}
