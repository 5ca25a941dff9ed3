package display

import (
	"image"
	"sync"
)

// Display runs a window until it is closed.
type Display interface {
	Run() error
}

// FrameSource provides the image a display shows each frame.
type FrameSource interface {
	CurrentFrame() *image.RGBA
}

// LatestFrame is a FrameSource holding the last frame it was given.
// SetFrame may be called from any goroutine.
type LatestFrame struct {
	mu    sync.Mutex
	frame *image.RGBA
}

// SetFrame replaces the frame shown from the next draw on.
func (l *LatestFrame) SetFrame(img *image.RGBA) {
	l.mu.Lock()
	l.frame = img
	l.mu.Unlock()
}

// CurrentFrame returns the last frame set, or nil.
func (l *LatestFrame) CurrentFrame() *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}
