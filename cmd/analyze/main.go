// Command analyze runs the video analysis pipeline over a video file or a
// directory of pre-extracted frame images and prints the results as JSON.
// With -plots it also writes brightness and vibration PNG plots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/autobrain-data/autobrain/internal/config"
	"github.com/autobrain-data/autobrain/internal/extract"
	"github.com/autobrain-data/autobrain/internal/report"
	"github.com/autobrain-data/autobrain/internal/video"
)

var (
	videoPath  = flag.String("video", "", "Video file to analyze (requires ffmpeg)")
	framesDir  = flag.String("frames", "", "Directory of frame images to analyze instead of a video")
	configPath = flag.String("config", "", "Path to a JSON tuning config (optional)")
	interval   = flag.Int("interval", 0, "Seconds between sampled frames (0 uses the config default)")
	plotsDir   = flag.String("plots", "", "Directory to write PNG plots into (optional)")
	withFrames = flag.Bool("per-frame", false, "Include per-frame records in the JSON output")
)

func main() {
	flag.Parse()

	if (*videoPath == "") == (*framesDir == "") {
		log.Fatal("exactly one of -video or -frames is required")
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	intervalSeconds := tuning.GetFrameIntervalSeconds()
	if *interval > 0 {
		intervalSeconds = *interval
	}

	frames, err := loadFrames(intervalSeconds, tuning.GetMaxFrameWidth())
	if err != nil {
		log.Fatalf("failed to load frames: %v", err)
	}

	analyzer := video.NewAnalyzer(video.NewBlockContrastDetector(), tuning.Thresholds())
	defer analyzer.Close()

	for _, fr := range frames {
		analyzer.AnalyzeFrame(fr.Frame, fr.TimestampMillis)
	}

	results, err := analyzer.Aggregate()
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	if *plotsDir != "" {
		if err := os.MkdirAll(*plotsDir, 0755); err != nil {
			log.Fatalf("failed to create plots directory: %v", err)
		}
		files, err := report.SaveFramePlots(*plotsDir, analyzer.Results())
		if err != nil {
			log.Fatalf("failed to write plots: %v", err)
		}
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "wrote %s\n", f)
		}
	}

	out := struct {
		Results video.VideoAnalysisResults  `json:"results"`
		Frames  []video.FrameAnalysisResult `json:"frames,omitempty"`
	}{Results: results}
	if *withFrames {
		out.Frames = analyzer.Results()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("failed to encode results: %v", err)
	}
}

func loadFrames(intervalSeconds, maxWidth int) ([]extract.ExtractedFrame, error) {
	opts := extract.Options{IntervalSeconds: intervalSeconds, MaxWidth: maxWidth}
	if *videoPath != "" {
		if !extract.Available() {
			return nil, fmt.Errorf("ffmpeg is not installed; use -frames with pre-extracted images")
		}
		return extract.Frames(context.Background(), *videoPath, opts)
	}
	return extract.FramesFromDir(*framesDir, opts)
}
