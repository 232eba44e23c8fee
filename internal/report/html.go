// Package report renders diagnostic session results as interactive HTML
// pages and as static PNG plots.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/autobrain-data/autobrain/internal/db"
	"github.com/autobrain-data/autobrain/internal/video"
)

// Data bundles everything a session report can show. Results is required;
// the remaining fields are optional and omitted from the page when nil.
type Data struct {
	Session *db.Session
	Results *video.VideoAnalysisResults
	Frames  []video.FrameAnalysisResult
	Audio   *db.AudioResults
	OBD     []*db.OBDSnapshot
}

// RenderHTML writes a self-contained diagnostic report page.
func RenderHTML(w io.Writer, data Data) error {
	if data.Results == nil {
		return fmt.Errorf("report requires video results")
	}

	page := components.NewPage()
	page.PageTitle = pageTitle(data.Session)

	if len(data.Frames) > 0 {
		page.AddCharts(
			brightnessChart(data.Frames),
			vibrationChart(data.Frames),
		)
	}
	if chart := smokePie(data.Frames, data.Results); chart != nil {
		page.AddCharts(chart)
	}
	if len(data.OBD) > 0 {
		page.AddCharts(rpmChart(data.OBD))
	}

	return page.Render(w)
}

func pageTitle(sess *db.Session) string {
	if sess == nil || sess.Vehicle == "" {
		return "Diagnostic Report"
	}
	return fmt.Sprintf("Diagnostic Report - %s", sess.Vehicle)
}

func brightnessChart(frames []video.FrameAnalysisResult) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Brightness per frame", Subtitle: "0 dark to 100 bright"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Brightness", Min: 0, Max: 100}),
	)

	xs := make([]string, len(frames))
	ys := make([]opts.LineData, len(frames))
	for i, fr := range frames {
		xs[i] = fmt.Sprintf("%d", fr.FrameIndex)
		ys[i] = opts.LineData{Value: fr.Brightness}
	}
	line.SetXAxis(xs).AddSeries("brightness", ys)
	return line
}

func vibrationChart(frames []video.FrameAnalysisResult) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Vibration per frame", Subtitle: "inter-frame pixel delta, 0 to 1"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Level"}),
	)

	xs := make([]string, len(frames))
	ys := make([]opts.LineData, len(frames))
	for i, fr := range frames {
		xs[i] = fmt.Sprintf("%d", fr.FrameIndex)
		ys[i] = opts.LineData{Value: fr.VibrationLevel}
	}
	line.SetXAxis(xs).AddSeries("vibration", ys)
	return line
}

// smokePie summarizes frame counts by detected smoke type. Returns nil when
// no frame detected smoke.
func smokePie(frames []video.FrameAnalysisResult, results *video.VideoAnalysisResults) components.Charter {
	counts := map[video.SmokeType]int{}
	for _, fr := range frames {
		if fr.SmokeDetected {
			counts[fr.SmokeType]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	var items []opts.PieData
	for _, st := range []video.SmokeType{video.SmokeBlack, video.SmokeWhite, video.SmokeBlue} {
		if counts[st] > 0 {
			items = append(items, opts.PieData{Name: string(st), Value: counts[st]})
		}
	}
	clean := len(frames) - results.SmokeFrameCount
	if clean > 0 {
		items = append(items, opts.PieData{Name: "clean", Value: clean})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Smoke detections by type"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("frames", items)
	return pie
}

func rpmChart(snaps []*db.OBDSnapshot) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Engine RPM"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Snapshot"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RPM"}),
	)

	xs := make([]string, 0, len(snaps))
	ys := make([]opts.LineData, 0, len(snaps))
	for i, snap := range snaps {
		if snap.RPM == nil {
			continue
		}
		xs = append(xs, fmt.Sprintf("%d", i))
		ys = append(ys, opts.LineData{Value: *snap.RPM})
	}
	line.SetXAxis(xs).AddSeries("rpm", ys)
	return line
}
