package frame

import (
	"image"
	"image/draw"

	"github.com/junsooki/framecap/internal/capture"
)

// rgbaFrame exposes an *image.RGBA as a frame buffer.
type rgbaFrame struct {
	img *image.RGBA
}

// Image wraps img so it can be handed to EndFrame.
func Image(img *image.RGBA) capture.FrameBuffer {
	return rgbaFrame{img: img}
}

func (f rgbaFrame) Size() (int, int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

func (f rgbaFrame) ReadRGBA(r image.Rectangle, dst *image.RGBA) error {
	b := f.img.Bounds()
	draw.Draw(dst, dst.Bounds(), f.img, r.Min.Add(b.Min), draw.Src)
	return nil
}
