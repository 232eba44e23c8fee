package video

import "image"

// Region is a candidate smoke region proposed by an object-detection pass.
type Region struct {
	Rect       image.Rectangle
	Label      string
	Confidence float64
}

// RegionDetector proposes candidate regions for smoke classification. The
// production detector is an external model; this interface keeps the analyzer
// testable and lets it run in a degraded frame-wide mode when no detector is
// available. Close must be safe to call once the detector is no longer
// needed; the analyzer guarantees it is called exactly once.
type RegionDetector interface {
	Detect(f *Frame) ([]Region, error)
	Close() error
}

// NopDetector proposes no regions, forcing the analyzer's frame-wide
// fallback scan on every frame.
type NopDetector struct{}

func (NopDetector) Detect(*Frame) ([]Region, error) { return nil, nil }
func (NopDetector) Close() error                    { return nil }

// BlockContrastDetector is a heuristic region proposer used when no model is
// wired in. It scans a coarse block grid for the block deviating most from
// the frame's mean luminance and proposes it when the deviation is large
// enough to suggest a localized plume or highlight.
type BlockContrastDetector struct {
	// Blocks is the number of blocks per axis. MinDeviation is the minimum
	// |block mean - frame mean| luminance gap (0-255 scale) worth proposing.
	Blocks       int
	MinDeviation float64
}

// NewBlockContrastDetector returns a detector with stock tuning.
func NewBlockContrastDetector() *BlockContrastDetector {
	return &BlockContrastDetector{Blocks: 8, MinDeviation: 40}
}

func (d *BlockContrastDetector) Detect(f *Frame) ([]Region, error) {
	if f.Empty() {
		return nil, nil
	}
	blocks := d.Blocks
	if blocks < 2 {
		blocks = 2
	}
	bw := f.Width / blocks
	bh := f.Height / blocks
	if bw < 1 || bh < 1 {
		return nil, nil
	}

	frameMean := SampleBrightness(f, blocks*4) * 255.0 / 100.0

	var best image.Rectangle
	var bestDev float64
	for by := 0; by < blocks; by++ {
		for bx := 0; bx < blocks; bx++ {
			rect := image.Rect(bx*bw, by*bh, (bx+1)*bw, (by+1)*bh)
			mean := blockMean(f, rect)
			dev := absf(mean - frameMean)
			if dev > bestDev {
				bestDev = dev
				best = rect
			}
		}
	}

	if bestDev < d.MinDeviation {
		return nil, nil
	}
	// Confidence grows with contrast but is capped below a detector-grade
	// score: this is a proposal heuristic, not a trained model.
	conf := bestDev / 255.0
	if conf > 0.75 {
		conf = 0.75
	}
	return []Region{{Rect: best, Label: "contrast", Confidence: conf}}, nil
}

func (d *BlockContrastDetector) Close() error { return nil }

func blockMean(f *Frame, rect image.Rectangle) float64 {
	rect = rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if rect.Empty() {
		return 0
	}
	// Stride keeps block sampling cheap on large frames.
	step := rect.Dx() / 8
	if step < 1 {
		step = 1
	}
	var sum float64
	var count int
	for y := rect.Min.Y; y < rect.Max.Y; y += step {
		for x := rect.Min.X; x < rect.Max.X; x += step {
			r, g, b := f.RGBAt(x, y)
			sum += (float64(r) + float64(g) + float64(b)) / 3.0
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
