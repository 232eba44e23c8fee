package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/autobrain-data/autobrain/internal/video"
)

// SaveFramePlots writes brightness.png and vibration.png time-series plots
// for the given frames into outputDir and returns the file paths.
func SaveFramePlots(outputDir string, frames []video.FrameAnalysisResult) ([]string, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to plot")
	}

	brightnessPts := make(plotter.XYs, 0, len(frames))
	vibrationPts := make(plotter.XYs, 0, len(frames))
	for _, fr := range frames {
		if fr.Error != "" {
			continue
		}
		brightnessPts = append(brightnessPts, plotter.XY{X: float64(fr.FrameIndex), Y: fr.Brightness})
		vibrationPts = append(vibrationPts, plotter.XY{X: float64(fr.FrameIndex), Y: fr.VibrationLevel})
	}

	brightnessFile := filepath.Join(outputDir, "brightness.png")
	if err := saveLinePlot(brightnessFile, "Brightness per frame", "Brightness", brightnessPts, color.RGBA{R: 217, G: 164, B: 32, A: 255}); err != nil {
		return nil, err
	}

	vibrationFile := filepath.Join(outputDir, "vibration.png")
	if err := saveLinePlot(vibrationFile, "Vibration per frame", "Level", vibrationPts, color.RGBA{R: 32, G: 108, B: 217, A: 255}); err != nil {
		return nil, err
	}

	return []string{brightnessFile, vibrationFile}, nil
}

func saveLinePlot(path, title, yLabel string, pts plotter.XYs, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build line for %s: %w", title, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
