package video

import "gonum.org/v1/gonum/stat"

// AggregateResults reduces a session's per-frame records into one
// VideoAnalysisResults snapshot. Zero frames returns the zero-value aggregate
// and ErrNoFrames; no path here divides by the frame count without that
// guard.
func AggregateResults(frames []FrameAnalysisResult, th Thresholds) (VideoAnalysisResults, error) {
	if len(frames) == 0 {
		return VideoAnalysisResults{}, ErrNoFrames
	}

	results := VideoAnalysisResults{
		TotalFrames: len(frames),
		SmokeType:   SmokeNone,
	}

	brightness := make([]float64, 0, len(frames))
	vibLevels := make([]float64, 0, len(frames))
	typeCounts := make(map[SmokeType]int)
	var smokeConfSum float64
	for _, fr := range frames {
		brightness = append(brightness, fr.Brightness)
		vibLevels = append(vibLevels, fr.VibrationLevel)
		if fr.VibrationFlag {
			results.VibrationFrameCount++
		}
		if fr.SmokeDetected && fr.SmokeType != SmokeNone {
			typeCounts[fr.SmokeType]++
			smokeConfSum += fr.SmokeConfidence
			results.SmokeFrameCount++
		}
	}

	results.AverageBrightness = stat.Mean(brightness, nil)
	meanVibration := stat.Mean(vibLevels, nil)

	if results.SmokeFrameCount > 0 {
		dominant := dominantSmokeType(typeCounts)
		fraction := float64(typeCounts[dominant]) / float64(len(frames))
		confidence := smokeConfSum / float64(results.SmokeFrameCount)

		results.SmokeDetected = true
		results.SmokeType = dominant
		results.SmokeConfidence = confidence
		results.SmokeSeverity = smokeSeverity(dominant, confidence, fraction)
	}

	results.VibrationSeverity = VibrationSeverity(meanVibration)
	results.VibrationDetected = meanVibration > th.VibrationDetect
	results.VibrationLabel = VibrationLabel(results.VibrationSeverity)
	if len(frames) > 0 {
		results.VibrationConfidence = float64(results.VibrationFrameCount) / float64(len(frames))
	}

	results.Stable = meanVibration <= th.AcceptableVibration
	results.Quality = qualityVerdict(results.AverageBrightness, meanVibration, th)

	return results, nil
}

// dominantSmokeType returns the mode of the observed smoke types. Ties are
// broken deterministically by severity priority (black > white > blue)
// rather than map iteration order.
func dominantSmokeType(counts map[SmokeType]int) SmokeType {
	dominant := SmokeNone
	best := 0
	for _, t := range []SmokeType{SmokeBlack, SmokeWhite, SmokeBlue} {
		if c := counts[t]; c > best {
			best = c
			dominant = t
		}
	}
	return dominant
}

// smokeSeverity maps the dominant type, its mean confidence, and the
// fraction of session frames showing it onto the 0-5 scale. For a fixed
// type the rules are monotonic: raising confidence or fraction never lowers
// the severity.
func smokeSeverity(t SmokeType, confidence, fraction float64) int {
	switch t {
	case SmokeBlack:
		switch {
		case confidence > 0.8 && fraction > 0.5:
			return 5
		case confidence > 0.6 && fraction > 0.3:
			return 4
		case fraction > 0.1:
			return 3
		default:
			return 2
		}
	case SmokeBlue:
		switch {
		case confidence > 0.7 && fraction > 0.4:
			return 4
		case fraction > 0.2:
			return 3
		default:
			return 2
		}
	case SmokeWhite:
		switch {
		case confidence > 0.7 && fraction > 0.5:
			return 3
		case fraction > 0.2:
			return 2
		default:
			return 1
		}
	default:
		return 0
	}
}

// qualityVerdict grades the recording itself: too dark or too shaky and the
// diagnostic value of the session drops regardless of what was detected.
func qualityVerdict(brightness, meanVibration float64, th Thresholds) Quality {
	switch {
	case brightness < th.PoorBrightness || meanVibration > th.PoorVibration:
		return QualityPoor
	case brightness < th.AcceptableBrightness || meanVibration > th.AcceptableVibration:
		return QualityAcceptable
	default:
		return QualityGood
	}
}
