package video

import "image"

// colorSample is one sampled pixel, pre-converted to float for thresholding.
type colorSample struct {
	r, g, b    float64
	brightness float64
}

// sampleRegion collects pixel samples from the given rectangle, striding so
// the sample count stays bounded regardless of region size. The rectangle is
// clipped to the frame.
func sampleRegion(f *Frame, rect image.Rectangle, gridSize int) []colorSample {
	rect = rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if rect.Empty() {
		return nil
	}
	if gridSize < 1 {
		gridSize = 1
	}
	stepX := rect.Dx() / gridSize
	if stepX < 1 {
		stepX = 1
	}
	stepY := rect.Dy() / gridSize
	if stepY < 1 {
		stepY = 1
	}

	samples := make([]colorSample, 0, gridSize*gridSize)
	for y := rect.Min.Y; y < rect.Max.Y; y += stepY {
		for x := rect.Min.X; x < rect.Max.X; x += stepX {
			r, g, b := f.RGBAt(x, y)
			rf, gf, bf := float64(r), float64(g), float64(b)
			samples = append(samples, colorSample{
				r: rf, g: gf, b: bf,
				brightness: (rf + gf + bf) / 3.0,
			})
		}
	}
	return samples
}

// classifySamples buckets the sampled pixels into a smoke type by majority
// colour profile. Buckets are evaluated in fixed severity order (black, then
// white, then blue) so the outcome is deterministic when more than one
// fraction crosses its threshold.
//
// An empty sample list returns (SmokeNone, 0); callers must not rely on any
// other behaviour for zero samples.
func classifySamples(samples []colorSample, th Thresholds) (SmokeType, float64) {
	if len(samples) == 0 {
		return SmokeNone, 0
	}

	var black, white, blue int
	for _, s := range samples {
		if s.brightness < th.BlackBrightnessMax &&
			s.r < th.BlackChannelMax && s.g < th.BlackChannelMax && s.b < th.BlackChannelMax {
			black++
		}
		if s.brightness > th.WhiteBrightnessMin &&
			absf(s.r-s.g) <= th.WhiteChannelSpread &&
			absf(s.r-s.b) <= th.WhiteChannelSpread &&
			absf(s.g-s.b) <= th.WhiteChannelSpread {
			white++
		}
		if s.b-s.r > th.BlueChannelMargin && s.b-s.g > th.BlueChannelMargin {
			blue++
		}
	}

	total := float64(len(samples))
	if frac := float64(black) / total; frac > th.BlackFraction {
		return SmokeBlack, frac
	}
	if frac := float64(white) / total; frac > th.WhiteFraction {
		return SmokeWhite, frac
	}
	if frac := float64(blue) / total; frac > th.BlueFraction {
		return SmokeBlue, frac
	}
	return SmokeNone, 0
}

// ClassifySmoke classifies the frame's smoke colour profile. When a detector
// region is provided the pixels inside its bounding box are sampled and the
// detector's label confidence is carried through (LocalizedConfidence when
// the detector reported none). With no region the whole frame is scanned and
// a match is assigned the fixed, lower FallbackConfidence: an unlocalized
// match should never look as certain as a detector-backed one.
func ClassifySmoke(f *Frame, region *Region, th Thresholds) SmokeDetection {
	if f.Empty() {
		return SmokeDetection{Type: SmokeNone}
	}

	if region != nil {
		samples := sampleRegion(f, region.Rect, th.SampleGrid)
		if t, _ := classifySamples(samples, th); t != SmokeNone {
			conf := region.Confidence
			if conf <= 0 {
				conf = th.LocalizedConfidence
			}
			return SmokeDetection{
				Type:       t,
				Confidence: conf,
				RegionArea: region.Rect.Dx() * region.Rect.Dy(),
			}
		}
	}

	samples := sampleRegion(f, image.Rect(0, 0, f.Width, f.Height), th.SampleGrid)
	if t, _ := classifySamples(samples, th); t != SmokeNone {
		return SmokeDetection{Type: t, Confidence: th.FallbackConfidence}
	}
	return SmokeDetection{Type: SmokeNone}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
