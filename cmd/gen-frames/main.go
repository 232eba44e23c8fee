// Command gen-frames writes synthetic frame image sequences for demos and
// pipeline testing: dark exhaust clouds, white steam, blue smoke, or camera
// shake, over a plain road-scene background.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	outDir  = flag.String("out", "frames", "Output directory")
	profile = flag.String("profile", "clean", "Sequence profile: clean, black, white, blue, shake")
	count   = flag.Int("count", 30, "Number of frames to generate")
	width   = flag.Int("width", 320, "Frame width in pixels")
	height  = flag.Int("height", 240, "Frame height in pixels")
	seed    = flag.Int64("seed", 1, "Random seed")
)

func main() {
	flag.Parse()

	gen, ok := profiles[strings.ToLower(*profile)]
	if !ok {
		log.Fatalf("unknown profile %q: want clean, black, white, blue, or shake", *profile)
	}
	if *count <= 0 {
		log.Fatal("count must be positive")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		img := gen(rng, *width, *height, i)
		path := filepath.Join(*outDir, fmt.Sprintf("frame_%04d.jpg", i+1))
		if err := writeJPEG(path, img); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
	}
	fmt.Printf("wrote %d %s frames to %s\n", *count, *profile, *outDir)
}

type generator func(rng *rand.Rand, width, height, frame int) *image.RGBA

var profiles = map[string]generator{
	"clean": cleanFrame,
	"black": smokeFrame(color.RGBA{R: 45, G: 45, B: 45, A: 255}),
	"white": smokeFrame(color.RGBA{R: 230, G: 230, B: 228, A: 255}),
	"blue":  smokeFrame(color.RGBA{R: 95, G: 105, B: 165, A: 255}),
	"shake": shakeFrame,
}

// cleanFrame draws a grey road under a light sky with mild sensor noise.
func cleanFrame(rng *rand.Rand, width, height, _ int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	horizon := height / 2
	for y := 0; y < height; y++ {
		base := uint8(170) // sky
		if y >= horizon {
			base = 110 // road
		}
		for x := 0; x < width; x++ {
			n := uint8(rng.Intn(8))
			img.SetRGBA(x, y, color.RGBA{R: base + n, G: base + n, B: base + n, A: 255})
		}
	}
	return img
}

// smokeFrame overlays a drifting plume of the given color on a clean scene.
// The plume grows over the sequence so early frames stay below detection
// thresholds.
func smokeFrame(smoke color.RGBA) generator {
	return func(rng *rand.Rand, width, height, frame int) *image.RGBA {
		img := cleanFrame(rng, width, height, frame)

		coverage := 0.35 + 0.4*float64(frame%10)/10.0
		plumeW := int(float64(width) * coverage)
		plumeH := int(float64(height) * coverage)
		x0 := width/8 + rng.Intn(width/8)
		y0 := height/4 + rng.Intn(height/8)

		for y := y0; y < y0+plumeH && y < height; y++ {
			for x := x0; x < x0+plumeW && x < width; x++ {
				jitter := uint8(rng.Intn(10))
				img.SetRGBA(x, y, color.RGBA{
					R: smoke.R + jitter,
					G: smoke.G + jitter,
					B: smoke.B + jitter,
					A: 255,
				})
			}
		}
		return img
	}
}

// shakeFrame shifts the whole scene by a random offset per frame, which
// reads as heavy camera vibration to the analyzer.
func shakeFrame(rng *rand.Rand, width, height, frame int) *image.RGBA {
	base := cleanFrame(rng, width, height, frame)
	shifted := image.NewRGBA(image.Rect(0, 0, width, height))

	dx := rng.Intn(41) - 20
	dy := rng.Intn(21) - 10
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := x+dx, y+dy
			if sx < 0 || sx >= width || sy < 0 || sy >= height {
				shifted.SetRGBA(x, y, color.RGBA{A: 255})
				continue
			}
			shifted.SetRGBA(x, y, base.RGBAAt(sx, sy))
		}
	}
	return shifted
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}
