package canvas

import (
	"math"

	"github.com/gogpu/gg"
)

// DemoScene is a dark background with a block sliding left to right.
type DemoScene struct {
	Background gg.RGBA
	Block      gg.RGBA
	BlockSize  float64
}

// NewDemoScene returns the scene used by the offscreen and window hosts.
func NewDemoScene() *DemoScene {
	return &DemoScene{
		Background: gg.RGB(0.08, 0.09, 0.12),
		Block:      gg.RGB(0.95, 0.55, 0.1),
		BlockSize:  80,
	}
}

// Draw implements Scene.
func (s *DemoScene) Draw(dc *gg.Context, frame uint64) error {
	dc.ClearWithColor(s.Background)

	w := float64(dc.Width())
	h := float64(dc.Height())
	span := math.Max(w-s.BlockSize, 1)
	x := math.Mod(float64(frame)*4, span)

	dc.SetColor(s.Block.Color())
	dc.DrawRectangle(x, (h-s.BlockSize)/2, s.BlockSize, s.BlockSize)
	return dc.Fill()
}
