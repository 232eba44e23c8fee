package video

import (
	"image"

	"golang.org/x/image/draw"
)

// Frame is a decoded camera frame as a packed RGB pixel buffer.
// Pixels are stored row-major, three bytes per pixel, which keeps the
// per-frame sampling loops allocation-free and cheap enough to run on every
// frame of a recording.
type Frame struct {
	Width  int
	Height int
	// Pix holds R, G, B bytes for each pixel. len(Pix) == Width*Height*3.
	Pix []uint8
}

// NewFrame allocates a zeroed (black) frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// FrameFromImage converts any decoded image into a Frame. The image is drawn
// into an RGBA buffer first so that YCbCr JPEG frames and paletted frames all
// end up in the same packed RGB layout.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := f.Pix[y*f.Width*3:]
		for x := 0; x < f.Width; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return f
}

// ScaledFrameFromImage converts an image into a Frame, downscaling it so the
// width does not exceed maxWidth. Aspect ratio is preserved. Frames already
// within the limit are converted without resampling.
func ScaledFrameFromImage(img image.Image, maxWidth int) *Frame {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return FrameFromImage(img)
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
	return FrameFromImage(scaled)
}

// RGBAt returns the colour channels of the pixel at (x, y). Out-of-bounds
// coordinates return black rather than panicking so sampling loops can be
// written without per-pixel bounds arithmetic.
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	if f == nil || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0
	}
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (x, y). Out-of-bounds coordinates are ignored.
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	if f == nil || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Fill sets every pixel to the given colour. Used by the synthetic frame
// generator and tests.
func (f *Frame) Fill(r, g, b uint8) {
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
}

// PixelCount returns the number of pixels in the frame.
func (f *Frame) PixelCount() int {
	if f == nil {
		return 0
	}
	return f.Width * f.Height
}

// Empty reports whether the frame carries no pixel data.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0 || len(f.Pix) == 0
}
