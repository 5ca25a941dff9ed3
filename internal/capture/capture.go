package capture

import (
	"image"

	"github.com/gogpu/gg"
)

// Image is a captured pixel buffer. Pix holds Height rows of Stride bytes,
// top row first.
type Image struct {
	Width  int
	Height int
	Format Format
	Stride int
	Pix    []byte
}

// MaxDimension bounds the width and height of an Image so its buffer size
// cannot overflow.
const MaxDimension = 1 << 15

// NewImage allocates a zeroed image. Negative dimensions are treated as
// zero. An image wider or higher than MaxDimension is allocated empty.
func NewImage(width, height int, format Format) *Image {
	width = max(width, 0)
	height = max(height, 0)
	if width > MaxDimension || height > MaxDimension {
		width, height = 0, 0
	}
	stride := width * format.BytesPerPixel()
	return &Image{
		Width:  width,
		Height: height,
		Format: format,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Empty reports whether the image holds no pixels.
func (img *Image) Empty() bool {
	return img.Width == 0 || img.Height == 0
}

// RGBA converts the image into an *image.RGBA.
func (img *Image) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	bpp := img.Format.BytesPerPixel()
	if bpp == 0 {
		return out
	}
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			r, g, b, a := img.Format.decodePixel(row[x*bpp : x*bpp+bpp])
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, a
		}
	}
	return out
}

// Handler receives the result of a capture. It runs on the render goroutine.
type Handler func(img *Image)

// Surface reports the dimensions of the host's rendering surface.
type Surface interface {
	Size() (width, height int)
}

// FrameBuffer is a fully rendered frame. It is only valid inside the
// task it was handed to.
type FrameBuffer interface {
	Size() (width, height int)
	// ReadRGBA copies the pixels in r into dst, whose bounds start at (0,0)
	// and match r's size. r uses the frame's own top-left origin and lies
	// within the frame.
	ReadRGBA(r image.Rectangle, dst *image.RGBA) error
}

// Scheduler runs deferred work once the frame in progress has finished
// rendering, on the goroutine that renders frames.
type Scheduler interface {
	Defer(task func(fb FrameBuffer))
}

// Host is the rendering system a Capturer reads from.
type Host interface {
	Surface
	Scheduler
}

// View projects world-space points to surface-pixel coordinates
// (origin bottom-left, y up).
type View interface {
	WorldToScreen(p gg.Point) gg.Point
}

// RegionSource is a rectangular element whose corners are given in world
// space, ordered bottom-left, top-left, top-right, bottom-right.
type RegionSource interface {
	WorldCorners() [4]gg.Point
}
