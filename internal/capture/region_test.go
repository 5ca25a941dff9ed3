package capture

import (
	"image"
	"testing"

	"github.com/gogpu/gg"
)

type corners [4]gg.Point

func (c corners) WorldCorners() [4]gg.Point { return c }

func rect(x0, y0, x1, y1 float64) corners {
	return corners{gg.Pt(x0, y0), gg.Pt(x0, y1), gg.Pt(x1, y1), gg.Pt(x1, y0)}
}

type shift struct{ dx, dy float64 }

func (s shift) WorldToScreen(p gg.Point) gg.Point { return gg.Pt(p.X+s.dx, p.Y+s.dy) }

func TestProjectRegion(t *testing.T) {
	tests := []struct {
		name string
		src  corners
		view View
		want image.Rectangle
	}{
		{"axis aligned", rect(100, 100, 300, 250), nil, image.Rect(100, 100, 300, 250)},
		{"shifted view", rect(0, 0, 10, 10), shift{5, 7}, image.Rect(5, 7, 15, 17)},
		{"half rounds to even", rect(0.5, 1.5, 3.0, 4.0), nil, image.Rect(0, 2, 2, 4)},
		{"huge", rect(0, 0, 1e18, 1e18), nil, image.Rect(0, 0, coordLimit, coordLimit)},
		{"inverted", rect(300, 250, 100, 100), nil, image.Rectangle{Min: image.Pt(300, 250), Max: image.Pt(300, 250)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectRegion(tt.src, tt.view); got != tt.want {
				t.Fatalf("ProjectRegion = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHostRectFlipsRows(t *testing.T) {
	got := hostRect(image.Rect(100, 100, 300, 250), 600)
	if want := image.Rect(100, 350, 300, 500); got != want {
		t.Fatalf("hostRect = %v, want %v", got, want)
	}
}
