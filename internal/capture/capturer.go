package capture

import (
	"context"
	"errors"
	"image"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/logging"
)

// ErrCancelled is returned by Request.Wait when the request's context was
// done before the frame finished rendering.
var ErrCancelled = errors.New("capture cancelled")

// State is the lifecycle position of a Request.
type State int32

const (
	StateScheduled State = iota
	StateWaitingForFrameEnd
	StateReading
	StateDelivered
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateWaitingForFrameEnd:
		return "waiting-for-frame-end"
	case StateReading:
		return "reading"
	case StateDelivered:
		return "delivered"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Request is the handle of one pending capture.
type Request struct {
	id     uuid.UUID
	region image.Rectangle
	format Format

	state atomic.Int32
	done  chan struct{}
	img   *Image
	err   error
}

// ID identifies the request in logs.
func (r *Request) ID() uuid.UUID { return r.id }

// Region returns the captured rectangle in surface coordinates.
func (r *Request) Region() image.Rectangle { return r.region }

// Format is the pixel format the image is delivered in.
func (r *Request) Format() Format { return r.format }

// State reports where the request is in its lifecycle.
func (r *Request) State() State { return State(r.state.Load()) }

// Done is closed once the request is delivered or cancelled.
func (r *Request) Done() <-chan struct{} { return r.done }

// Err returns the host read error of a delivered request, if any.
func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the request resolves or ctx is done.
func (r *Request) Wait(ctx context.Context) (*Image, error) {
	select {
	case <-r.done:
		if r.State() == StateCancelled {
			return nil, ErrCancelled
		}
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Capturer reads regions of a host's frame buffer once the frame in
// progress has finished rendering.
type Capturer struct {
	host Host
	view View
	log  logging.LeveledLogger
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithDefaultView sets the view CaptureRegion uses when none is given.
func WithDefaultView(v View) Option {
	return func(c *Capturer) { c.view = v }
}

// WithLoggerFactory sets the factory used for the "capture" logger.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(c *Capturer) { c.log = f.NewLogger("capture") }
}

// New returns a Capturer reading from host.
func New(host Host, opts ...Option) *Capturer {
	c := &Capturer{
		host: host,
		view: identityView{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.NewDefaultLoggerFactory().NewLogger("capture")
	}
	return c
}

// CaptureFull captures the whole surface as it is at the end of the
// current frame. The image size is fixed now, from the surface size.
// A nil onComplete discards the image.
func (c *Capturer) CaptureFull(ctx context.Context, format Format, onComplete Handler) *Request {
	w, h := c.host.Size()
	return c.schedule(ctx, image.Rect(0, 0, w, h), format, onComplete)
}

// CaptureRegion captures the part of the surface covered by src, projected
// through view. A nil view selects the capturer's default view.
func (c *Capturer) CaptureRegion(ctx context.Context, src RegionSource, onComplete Handler, format Format, view View) *Request {
	if view == nil {
		view = c.view
	}
	region := ProjectRegion(src, view)
	if region.Empty() {
		c.log.Debugf("region %v projects to an empty rectangle", region)
	}
	return c.schedule(ctx, region, format, onComplete)
}

func (c *Capturer) schedule(ctx context.Context, region image.Rectangle, format Format, onComplete Handler) *Request {
	req := &Request{
		id:     uuid.New(),
		region: region,
		format: format,
		done:   make(chan struct{}),
	}
	img := NewImage(region.Dx(), region.Dy(), format)

	req.state.Store(int32(StateWaitingForFrameEnd))
	c.host.Defer(func(fb FrameBuffer) {
		if ctx.Err() != nil {
			req.state.Store(int32(StateCancelled))
			close(req.done)
			c.log.Debugf("capture %s cancelled: %v", req.id, ctx.Err())
			return
		}

		req.state.Store(int32(StateReading))
		if err := c.read(fb, req.region, img); err != nil {
			req.err = err
			c.log.Warnf("capture %s: read frame buffer: %v", req.id, err)
		}

		req.img = img
		req.state.Store(int32(StateDelivered))
		if onComplete != nil {
			onComplete(img)
		}
		close(req.done)
	})
	return req
}

// read fills img with the part of region that lies on the frame. Pixels
// outside the frame stay zero.
func (c *Capturer) read(fb FrameBuffer, region image.Rectangle, img *Image) error {
	if img.Empty() {
		return nil
	}
	w, h := fb.Size()
	clip := region.Intersect(image.Rect(0, 0, w, h))
	if clip.Empty() {
		return nil
	}

	src := hostRect(clip, h)
	scratch := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	if err := fb.ReadRGBA(src, scratch); err != nil {
		return err
	}
	convertInto(img, clip.Min.X-region.Min.X, region.Max.Y-clip.Max.Y, scratch)
	return nil
}
