// Package desktop is a capture host over a physical display. A ticker
// stands in for the display's frame clock.
package desktop

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/kbinani/screenshot"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/frame"
)

// Grabber reads pixels from the desktop. The default uses kbinani/screenshot.
type Grabber interface {
	NumDisplays() int
	DisplayBounds(index int) image.Rectangle
	CaptureRect(r image.Rectangle) (*image.RGBA, error)
}

type screenshotGrabber struct{}

func (screenshotGrabber) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (screenshotGrabber) DisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

func (screenshotGrabber) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Host exposes one display as a capture surface.
type Host struct {
	*frame.Queue

	grabber Grabber
	bounds  image.Rectangle
	log     logging.LeveledLogger
}

// NewHost selects the display at index (0 = primary). A nil grabber uses
// the system screen.
func NewHost(index int, grabber Grabber, lf logging.LoggerFactory) (*Host, error) {
	if grabber == nil {
		grabber = screenshotGrabber{}
	}
	n := grabber.NumDisplays()
	if index < 0 || index >= n {
		return nil, fmt.Errorf("display index %d out of range (have %d displays)", index, n)
	}
	return &Host{
		Queue:   frame.NewQueue(),
		grabber: grabber,
		bounds:  grabber.DisplayBounds(index),
		log:     lf.NewLogger("desktop"),
	}, nil
}

// Size implements capture.Surface.
func (h *Host) Size() (int, int) {
	return h.bounds.Dx(), h.bounds.Dy()
}

// Bounds returns the display's position in the virtual desktop.
func (h *Host) Bounds() image.Rectangle {
	return h.bounds
}

// Tick ends one frame. The desktop is only read if a task asks for pixels.
func (h *Host) Tick() int {
	ran := h.EndFrame(displayFrame{h})
	if ran > 0 {
		h.log.Tracef("frame %d: ran %d end-of-frame tasks", h.Frames(), ran)
	}
	return ran
}

// Run ticks fps times per second until ctx is done.
func (h *Host) Run(ctx context.Context, fps int) error {
	if fps <= 0 || fps > 60 {
		return fmt.Errorf("fps must be 1-60, got %d", fps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Tick()
		}
	}
}

type displayFrame struct {
	h *Host
}

func (f displayFrame) Size() (int, int) { return f.h.Size() }

func (f displayFrame) ReadRGBA(r image.Rectangle, dst *image.RGBA) error {
	img, err := f.h.grabber.CaptureRect(r.Add(f.h.bounds.Min))
	if err != nil {
		return fmt.Errorf("capture display rect %v: %w", r, err)
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}
