package capture

import (
	"fmt"
	"image"
	"strings"
)

// Format identifies the pixel layout of a captured image.
// The zero value is RGB24.
type Format uint8

const (
	RGB24 Format = iota
	RGBA32
	ARGB32
	BGRA32
	Alpha8
	R8
)

var formatNames = map[Format]string{
	RGB24:  "rgb24",
	RGBA32: "rgba32",
	ARGB32: "argb32",
	BGRA32: "bgra32",
	Alpha8: "alpha8",
	R8:     "r8",
}

// ParseFormat returns the format with the given name (case-insensitive).
// An empty name selects RGB24.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RGB24, nil
	}
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return RGB24, fmt.Errorf("unknown pixel format %q", name)
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// BytesPerPixel returns the size of one pixel in f.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB24:
		return 3
	case RGBA32, ARGB32, BGRA32:
		return 4
	case Alpha8, R8:
		return 1
	default:
		return 0
	}
}

// encodePixel writes one RGBA pixel into dst using f's layout.
func (f Format) encodePixel(dst []byte, r, g, b, a uint8) {
	switch f {
	case RGB24:
		dst[0], dst[1], dst[2] = r, g, b
	case RGBA32:
		dst[0], dst[1], dst[2], dst[3] = r, g, b, a
	case ARGB32:
		dst[0], dst[1], dst[2], dst[3] = a, r, g, b
	case BGRA32:
		dst[0], dst[1], dst[2], dst[3] = b, g, r, a
	case Alpha8:
		dst[0] = a
	case R8:
		dst[0] = r
	}
}

// decodePixel is the inverse of encodePixel. Channels a format does not
// carry come back as 0, except alpha which comes back opaque.
func (f Format) decodePixel(src []byte) (r, g, b, a uint8) {
	switch f {
	case RGB24:
		return src[0], src[1], src[2], 0xff
	case RGBA32:
		return src[0], src[1], src[2], src[3]
	case ARGB32:
		return src[1], src[2], src[3], src[0]
	case BGRA32:
		return src[2], src[1], src[0], src[3]
	case Alpha8:
		return 0, 0, 0, src[0]
	case R8:
		return src[0], 0, 0, 0xff
	default:
		return 0, 0, 0, 0
	}
}

// convertInto copies src, converted to dst.Format, into dst at (x, y).
// Pixels that would land outside dst are skipped.
func convertInto(dst *Image, x, y int, src *image.RGBA) {
	bpp := dst.Format.BytesPerPixel()
	if bpp == 0 {
		return
	}
	b := src.Bounds()
	for sy := b.Min.Y; sy < b.Max.Y; sy++ {
		dy := y + sy - b.Min.Y
		if dy < 0 || dy >= dst.Height {
			continue
		}
		srow := src.Pix[src.PixOffset(b.Min.X, sy):]
		for sx := 0; sx < b.Dx(); sx++ {
			dx := x + sx
			if dx < 0 || dx >= dst.Width {
				continue
			}
			p := srow[sx*4 : sx*4+4]
			off := dy*dst.Stride + dx*bpp
			dst.Format.encodePixel(dst.Pix[off:off+bpp], p[0], p[1], p[2], p[3])
		}
	}
}
