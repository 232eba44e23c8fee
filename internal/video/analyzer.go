// Package video implements the on-device frame analyzer: per-frame
// brightness sampling, smoke colour classification, frame-delta vibration
// estimation, and session-level aggregation of the per-frame results.
package video

import (
	"sync"

	"github.com/autobrain-data/autobrain/internal/monitoring"
)

// Analyzer ingests decoded camera frames one at a time and accumulates
// per-frame results for a recording session. It owns the frame list and the
// vibration baseline exclusively: frames must be delivered sequentially from
// a single producer, matching the camera callback model. No locks guard the
// per-frame path.
type Analyzer struct {
	th        Thresholds
	detector  RegionDetector
	vibration *VibrationEstimator
	frames    []FrameAnalysisResult

	closeOnce sync.Once
	closeErr  error
}

// NewAnalyzer creates an analyzer using the given detector for smoke region
// proposals. A nil detector puts the analyzer in degraded mode: smoke
// classification falls back to frame-wide scanning only.
func NewAnalyzer(detector RegionDetector, th Thresholds) *Analyzer {
	if detector == nil {
		monitoring.Logf("video: no region detector available, running frame-wide heuristics only")
	}
	return &Analyzer{
		th:        th,
		detector:  detector,
		vibration: NewVibrationEstimator(th),
	}
}

// AnalyzeFrame processes one frame and appends its result to the session.
// A missing or empty frame records a degraded entry instead of failing; a
// detector error is treated as "no region found" and the frame-wide fallback
// runs. The returned record is also the one retained in the session list.
func (a *Analyzer) AnalyzeFrame(f *Frame, timestampMillis int64) FrameAnalysisResult {
	result := FrameAnalysisResult{
		FrameIndex:      len(a.frames),
		TimestampMillis: timestampMillis,
		SmokeType:       SmokeNone,
	}

	if f.Empty() {
		result.Error = "missing or empty frame"
		a.frames = append(a.frames, result)
		return result
	}

	result.Brightness = SampleBrightness(f, a.th.SampleGrid)

	region := a.bestRegion(f)
	smoke := ClassifySmoke(f, region, a.th)
	if smoke.Type != SmokeNone {
		result.SmokeDetected = true
		result.SmokeType = smoke.Type
		result.SmokeConfidence = smoke.Confidence
	}

	level := a.vibration.Estimate(f)
	result.VibrationLevel = level
	result.VibrationFlag = a.vibration.Detected(level)

	a.frames = append(a.frames, result)
	return result
}

// bestRegion runs the detector and returns its highest-confidence proposal,
// or nil when there is no detector, it errors, or it proposes nothing.
func (a *Analyzer) bestRegion(f *Frame) *Region {
	if a.detector == nil {
		return nil
	}
	regions, err := a.detector.Detect(f)
	if err != nil {
		monitoring.Logf("video: region detection failed, falling back to frame-wide scan: %v", err)
		return nil
	}
	var best *Region
	for i := range regions {
		if best == nil || regions[i].Confidence > best.Confidence {
			best = &regions[i]
		}
	}
	return best
}

// FrameCount returns the number of frames analyzed so far in this session.
func (a *Analyzer) FrameCount() int {
	return len(a.frames)
}

// Results returns a copy of the accumulated per-frame records.
func (a *Analyzer) Results() []FrameAnalysisResult {
	out := make([]FrameAnalysisResult, len(a.frames))
	copy(out, a.frames)
	return out
}

// Aggregate reduces the session's frame list into a VideoAnalysisResults
// snapshot. Aggregating an empty session returns ErrNoFrames.
func (a *Analyzer) Aggregate() (VideoAnalysisResults, error) {
	return AggregateResults(a.frames, a.th)
}

// Reset drops the accumulated frame history and the vibration baseline so a
// new recording can start. The detector is kept.
func (a *Analyzer) Reset() {
	a.frames = nil
	a.vibration.Reset()
}

// Close resets the analyzer and releases the detector. It is safe to call
// from any exit path, including via defer after a failed run; the detector
// is released exactly once.
func (a *Analyzer) Close() error {
	a.closeOnce.Do(func() {
		a.Reset()
		if a.detector != nil {
			a.closeErr = a.detector.Close()
			a.detector = nil
		}
	})
	return a.closeErr
}
