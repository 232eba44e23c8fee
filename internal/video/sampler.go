package video

// SampleBrightness samples an approximate gridSize x gridSize grid of pixels
// and returns the mean luminance as a percentage of full scale (0-100).
// Deterministic for a fixed frame; no side effects.
func SampleBrightness(f *Frame, gridSize int) float64 {
	if f.Empty() {
		return 0
	}
	if gridSize < 1 {
		gridSize = 1
	}

	stepX := f.Width / gridSize
	if stepX < 1 {
		stepX = 1
	}
	stepY := f.Height / gridSize
	if stepY < 1 {
		stepY = 1
	}

	var sum float64
	var count int
	for y := 0; y < f.Height; y += stepY {
		for x := 0; x < f.Width; x += stepX {
			r, g, b := f.RGBAt(x, y)
			sum += (float64(r) + float64(g) + float64(b)) / 3.0
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) / 255.0 * 100.0
}
