// Package extract pulls frames out of video files with ffmpeg and decodes
// them into the analyzer's frame representation.
package extract

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/autobrain-data/autobrain/internal/monitoring"
	"github.com/autobrain-data/autobrain/internal/video"
)

// Options controls frame extraction.
type Options struct {
	// IntervalSeconds is the sampling interval: one frame every N seconds.
	IntervalSeconds int

	// MaxWidth downscales decoded frames wider than this. Zero keeps the
	// source resolution.
	MaxWidth int
}

// ExtractedFrame pairs a decoded frame with its position in the video.
type ExtractedFrame struct {
	Frame           *video.Frame
	TimestampMillis int64
}

// Available reports whether ffmpeg is on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Frames extracts frames from the video at videoPath into a temporary
// directory, decodes them, and returns them in order. The interval defaults
// to one second.
func Frames(ctx context.Context, videoPath string, opts Options) ([]ExtractedFrame, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file not readable: %w", err)
	}
	if opts.IntervalSeconds <= 0 {
		opts.IntervalSeconds = 1
	}

	frameDir, err := os.MkdirTemp("", "autobrain-frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	defer os.RemoveAll(frameDir)

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%d", opts.IntervalSeconds),
		filepath.Join(frameDir, "frame_%04d.jpg"),
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w\noutput: %s", err, string(output))
	}

	return decodeDir(frameDir, opts)
}

// FramesFromDir decodes pre-extracted frame images from a directory,
// bypassing ffmpeg. Files are processed in name order.
func FramesFromDir(dir string, opts Options) ([]ExtractedFrame, error) {
	if opts.IntervalSeconds <= 0 {
		opts.IntervalSeconds = 1
	}
	return decodeDir(dir, opts)
}

// decodeDir reads the numbered frame images from dir in order.
func decodeDir(dir string, opts Options) ([]ExtractedFrame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") || strings.HasSuffix(name, ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	intervalMillis := int64(opts.IntervalSeconds) * 1000

	frames := make([]ExtractedFrame, 0, len(names))
	for i, name := range names {
		frame, err := decodeFile(filepath.Join(dir, name), opts.MaxWidth)
		if err != nil {
			// a single bad frame should not sink the whole video
			monitoring.Logf("extract: skipping %s: %v", name, err)
			continue
		}
		frames = append(frames, ExtractedFrame{
			Frame:           frame,
			TimestampMillis: int64(i) * intervalMillis,
		})
	}
	return frames, nil
}

func decodeFile(path string, maxWidth int) (*video.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if maxWidth > 0 {
		return video.ScaledFrameFromImage(img, maxWidth), nil
	}
	return video.FrameFromImage(img), nil
}
