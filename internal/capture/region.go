package capture

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

type identityView struct{}

func (identityView) WorldToScreen(p gg.Point) gg.Point { return p }

// ProjectRegion maps src onto the surface through view. The rectangle
// starts at the rounded projection of the bottom-left corner and is
// round(max-min) wide and high. Non-positive extents are clamped to zero.
func ProjectRegion(src RegionSource, view View) image.Rectangle {
	if view == nil {
		view = identityView{}
	}
	corners := src.WorldCorners()
	lo := view.WorldToScreen(corners[0])
	hi := view.WorldToScreen(corners[2])

	x := roundInt(lo.X)
	y := roundInt(lo.Y)
	w := max(roundInt(hi.X-lo.X), 0)
	h := max(roundInt(hi.Y-lo.Y), 0)

	return image.Rectangle{
		Min: image.Pt(x, y),
		Max: image.Pt(x+w, y+h),
	}
}

// coordLimit keeps projected coordinates and their sums within int range.
const coordLimit = 1 << 30

// roundInt rounds half to even and clamps to [-coordLimit, coordLimit].
func roundInt(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.RoundToEven(math.Max(-coordLimit, math.Min(v, coordLimit))))
}

// hostRect converts r, given in surface coordinates (origin bottom-left),
// into the top-left row space of a frame of the given height.
func hostRect(r image.Rectangle, height int) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(r.Min.X, height-r.Max.Y),
		Max: image.Pt(r.Max.X, height-r.Min.Y),
	}
}
