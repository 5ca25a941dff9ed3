// Package layout describes UI rectangles and the cameras that project them
// onto a rendering surface.
package layout

import "github.com/gogpu/gg"

// Rect is an axis-aligned rectangle in its local space, placed in the
// world by Transform. World space has y pointing up. A zero Transform is
// the identity.
type Rect struct {
	X, Y          float64
	Width, Height float64
	Transform     gg.Matrix
}

// WorldCorners returns the rectangle's corners in world space ordered
// bottom-left, top-left, top-right, bottom-right.
func (r Rect) WorldCorners() [4]gg.Point {
	m := orIdentity(r.Transform)
	return [4]gg.Point{
		m.TransformPoint(gg.Pt(r.X, r.Y)),
		m.TransformPoint(gg.Pt(r.X, r.Y+r.Height)),
		m.TransformPoint(gg.Pt(r.X+r.Width, r.Y+r.Height)),
		m.TransformPoint(gg.Pt(r.X+r.Width, r.Y)),
	}
}

// Child returns a rectangle positioned relative to r's origin.
func (r Rect) Child(x, y, width, height float64) Rect {
	m := orIdentity(r.Transform)
	return Rect{
		X:         x,
		Y:         y,
		Width:     width,
		Height:    height,
		Transform: m.Multiply(gg.Translate(r.X, r.Y)),
	}
}

// Camera maps world space to surface pixels (origin bottom-left).
type Camera struct {
	View gg.Matrix
}

// Overlay is the camera of screen-space UI: world units are surface pixels.
func Overlay() Camera {
	return Camera{View: gg.Identity()}
}

// Ortho returns a camera that puts center in the middle of a width×height
// surface, scaling world units by zoom.
func Ortho(center gg.Point, zoom float64, width, height int) Camera {
	m := gg.Translate(float64(width)/2, float64(height)/2).
		Multiply(gg.Scale(zoom, zoom)).
		Multiply(gg.Translate(-center.X, -center.Y))
	return Camera{View: m}
}

// WorldToScreen projects p onto the surface.
func (c Camera) WorldToScreen(p gg.Point) gg.Point {
	m := orIdentity(c.View)
	return m.TransformPoint(p)
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c Camera) ScreenToWorld(p gg.Point) gg.Point {
	m := orIdentity(c.View)
	return m.Invert().TransformPoint(p)
}

func orIdentity(m gg.Matrix) gg.Matrix {
	if m == (gg.Matrix{}) {
		return gg.Identity()
	}
	return m
}
