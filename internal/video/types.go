package video

import "errors"

// ErrNoFrames is returned by aggregation when no frames have been analyzed.
var ErrNoFrames = errors.New("no frames analyzed")

// SmokeType classifies the colour profile of smoke observed in a frame.
type SmokeType string

const (
	// SmokeBlack indicates dark smoke, typically unburnt fuel.
	SmokeBlack SmokeType = "black"
	// SmokeWhite indicates white smoke or steam, typically coolant.
	SmokeWhite SmokeType = "white"
	// SmokeBlue indicates blue-tinted smoke, typically burning oil.
	SmokeBlue SmokeType = "blue"
	// SmokeNone indicates no smoke colour profile crossed its threshold.
	SmokeNone SmokeType = "none"
)

// Quality is the qualitative verdict on a recording session.
type Quality string

const (
	QualityPoor       Quality = "poor"
	QualityAcceptable Quality = "acceptable"
	QualityGood       Quality = "good"
)

// Vibration severity labels, indexed by severity bucket 0-5.
var vibrationLabels = [6]string{"none", "minimal", "low", "moderate", "high", "excessive"}

// VibrationLabel returns the qualitative label for a severity bucket.
func VibrationLabel(severity int) string {
	if severity < 0 {
		severity = 0
	}
	if severity > 5 {
		severity = 5
	}
	return vibrationLabels[severity]
}

// SmokeDetection is the transient outcome of classifying one frame. It is
// consumed immediately by the per-frame result builder and never persisted
// on its own.
type SmokeDetection struct {
	Type       SmokeType
	Confidence float64
	// RegionArea is the pixel area of the detector bounding box that produced
	// the classification, or 0 for a frame-wide fallback scan.
	RegionArea int
}

// FrameAnalysisResult is the immutable per-frame record appended to the
// analyzer's session list.
type FrameAnalysisResult struct {
	FrameIndex      int       `json:"frame_index"`
	TimestampMillis int64     `json:"timestamp_millis"`
	Brightness      float64   `json:"brightness"` // 0-100
	SmokeDetected   bool      `json:"smoke_detected"`
	SmokeType       SmokeType `json:"smoke_type"`
	SmokeConfidence float64   `json:"smoke_confidence"`
	VibrationFlag   bool      `json:"vibration_detected"`
	VibrationLevel  float64   `json:"vibration_level"` // 0-1
	// Error carries a per-frame degradation message. A frame with an error
	// still contributes a (degraded) entry to the session; nothing here is
	// fatal to the recording.
	Error string `json:"error,omitempty"`
}

// VideoAnalysisResults is the session-level aggregate produced once per
// recording when the caller requests aggregation. It is an immutable
// snapshot of the frame list at that point.
type VideoAnalysisResults struct {
	TotalFrames int `json:"total_frames"`

	SmokeDetected   bool      `json:"smoke_detected"`
	SmokeType       SmokeType `json:"smoke_type"`
	SmokeSeverity   int       `json:"smoke_severity"` // 0-5
	SmokeConfidence float64   `json:"smoke_confidence"`
	SmokeFrameCount int       `json:"smoke_frame_count"`

	VibrationDetected   bool    `json:"vibration_detected"`
	VibrationLabel      string  `json:"vibration_label"`
	VibrationSeverity   int     `json:"vibration_severity"` // 0-5
	VibrationConfidence float64 `json:"vibration_confidence"`
	VibrationFrameCount int     `json:"vibration_frame_count"`

	AverageBrightness float64 `json:"average_brightness"` // 0-100
	Stable            bool    `json:"stable"`
	Quality           Quality `json:"quality"`
}
