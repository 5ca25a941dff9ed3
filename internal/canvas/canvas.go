// Package canvas is an offscreen capture host backed by a gg software
// drawing context.
package canvas

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/frame"
)

// Scene draws one frame into dc.
type Scene interface {
	Draw(dc *gg.Context, frame uint64) error
}

// SceneFunc adapts a function to Scene.
type SceneFunc func(dc *gg.Context, frame uint64) error

// Draw calls f.
func (f SceneFunc) Draw(dc *gg.Context, frame uint64) error { return f(dc, frame) }

// Host renders a Scene offscreen and runs end-of-frame tasks against each
// rendered frame.
type Host struct {
	*frame.Queue

	mu    sync.Mutex
	dc    *gg.Context
	scene Scene
	last  *image.RGBA
	log   logging.LeveledLogger
}

// NewHost creates a width×height offscreen surface.
func NewHost(width, height int, scene Scene, lf logging.LoggerFactory) (*Host, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	if scene == nil {
		return nil, fmt.Errorf("canvas scene must be provided")
	}
	return &Host{
		Queue: frame.NewQueue(),
		dc:    gg.NewContext(width, height),
		scene: scene,
		log:   lf.NewLogger("canvas"),
	}, nil
}

// Size implements capture.Surface.
func (h *Host) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dc.Width(), h.dc.Height()
}

// Resize changes the surface dimensions; it takes effect from the next frame.
func (h *Host) Resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dc.Resize(width, height)
}

// Step renders one frame and then runs the tasks waiting for it.
func (h *Host) Step() error {
	h.mu.Lock()
	n := h.Frames()
	if err := h.scene.Draw(h.dc, n); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("draw frame %d: %w", n, err)
	}
	img := toRGBA(h.dc.Image())
	h.last = img
	h.mu.Unlock()

	if ran := h.EndFrame(frame.Image(img)); ran > 0 {
		h.log.Tracef("frame %d: ran %d end-of-frame tasks", n, ran)
	}
	return nil
}

// CurrentFrame returns the most recently rendered frame, or nil.
func (h *Host) CurrentFrame() *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Run steps the host fps times per second until ctx is done.
func (h *Host) Run(ctx context.Context, fps int) error {
	if fps <= 0 || fps > 240 {
		return fmt.Errorf("fps must be 1-240, got %d", fps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := h.Step(); err != nil {
				h.log.Warnf("step: %v", err)
			}
		}
	}
}

// Close releases the drawing context.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dc.Close()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return rgba
}
