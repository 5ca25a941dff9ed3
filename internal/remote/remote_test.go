package remote

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/frame"
)

type testHost struct {
	*frame.Queue
	w, h int
}

func (h *testHost) Size() (int, int) { return h.w, h.h }

type sendFunc func([]byte) error

func (f sendFunc) SendCapture(data []byte) error { return f(data) }
func (f sendFunc) SendRequest(data []byte) error { return f(data) }

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 9, A: 255})
		}
	}
	return img
}

type received struct {
	id  uuid.UUID
	img *capture.Image
}

// pair wires a client and a service back to back.
func pair(t *testing.T, host *testHost) (*Client, *Service, <-chan received) {
	t.Helper()
	lf := logging.NewDefaultLoggerFactory()

	var svc *Service
	client := NewClient(sendFunc(func(data []byte) error {
		svc.HandleRequest(data)
		return nil
	}), lf)

	svc, err := NewService(ServiceOptions{
		Capturer:      capture.New(host),
		Sender:        sendFunc(func(data []byte) error { client.HandleCapture(data); return nil }),
		ChunkSize:     512,
		LoggerFactory: lf,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	out := make(chan received, 4)
	client.OnCapture(func(id uuid.UUID, img *capture.Image) {
		out <- received{id, img}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		svc.Close()
	})
	return client, svc, out
}

func waitCapture(t *testing.T, out <-chan received) received {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture")
		return received{}
	}
}

func TestFullCaptureRoundTrip(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 64, h: 48}
	client, _, out := pair(t, host)

	id, err := client.RequestFull(capture.RGBA32)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if host.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", host.Pending())
	}
	host.EndFrame(frame.Image(gradient(64, 48)))

	r := waitCapture(t, out)
	if r.id != id {
		t.Fatalf("id = %s, want %s", r.id, id)
	}
	if r.img.Width != 64 || r.img.Height != 48 || r.img.Format != capture.RGBA32 {
		t.Fatalf("image = %dx%d %v", r.img.Width, r.img.Height, r.img.Format)
	}
	last := r.img.Pix[47*r.img.Stride+63*4:]
	if last[0] != 63 || last[1] != 47 || last[2] != 9 || last[3] != 255 {
		t.Fatalf("bottom-right pixel = %v", last[:4])
	}
}

func TestRegionCaptureRoundTrip(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 64, h: 48}
	client, _, out := pair(t, host)

	id, err := client.RequestRegion(Region{X: 10, Y: 8, Width: 20, Height: 16}, capture.RGB24)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	host.EndFrame(frame.Image(gradient(64, 48)))

	r := waitCapture(t, out)
	if r.id != id {
		t.Fatalf("id = %s, want %s", r.id, id)
	}
	if r.img.Width != 20 || r.img.Height != 16 {
		t.Fatalf("size = %dx%d, want 20x16", r.img.Width, r.img.Height)
	}
	// Top row of the region is surface y=23, host row 48-24=24.
	if p := r.img.Pix[:3]; p[0] != 10 || p[1] != 24 {
		t.Fatalf("top-left pixel = %v, want R=10 G=24", p)
	}
}

func newService(t *testing.T, host *testHost, opts ServiceOptions) *Service {
	t.Helper()
	opts.Capturer = capture.New(host)
	if opts.Sender == nil {
		opts.Sender = sendFunc(func([]byte) error { return nil })
	}
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func command(t *testing.T, cmd Command) []byte {
	t.Helper()
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRateLimit(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	svc := newService(t, host, ServiceOptions{RequestsPerSecond: 0.001, Burst: 1})

	full := command(t, Command{Type: CommandFull})
	if _, err := svc.Handle(full); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.Handle(full); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second request err = %v, want ErrRateLimited", err)
	}
	if host.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", host.Pending())
	}
}

func TestInvalidCommands(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	svc := newService(t, host, ServiceOptions{})

	for name, data := range map[string][]byte{
		"not json":       []byte("{"),
		"unknown type":   []byte(`{"type":"zoom"}`),
		"missing region": []byte(`{"type":"region"}`),
		"bad format":     []byte(`{"type":"full","format":"cmyk"}`),
	} {
		if _, err := svc.Handle(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if host.Pending() != 0 {
		t.Fatalf("invalid commands scheduled %d captures", host.Pending())
	}
}

func TestOversizedRegionsAreRejected(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 64, h: 48}

	tests := []struct {
		name    string
		surface bool
		data    string
	}{
		{"huge", false, `{"type":"region","region":{"width":1e18,"height":1e18}}`},
		{"huge on surface", true, `{"type":"region","region":{"width":1e18,"height":1e18}}`},
		{"negative size", true, `{"type":"region","region":{"width":-5,"height":10}}`},
		{"wider than surface", true, `{"type":"region","region":{"width":65,"height":10}}`},
		{"far origin", true, `{"type":"region","region":{"x":1e300,"width":10,"height":10}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ServiceOptions{}
			if tt.surface {
				opts.Surface = host
			}
			svc := newService(t, host, opts)
			if _, err := svc.Handle([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
			if host.Pending() != 0 {
				t.Fatalf("scheduled %d captures", host.Pending())
			}
		})
	}

	svc := newService(t, host, ServiceOptions{Surface: host})
	req, err := svc.Handle([]byte(`{"type":"region","region":{"x":-10,"y":5,"width":64,"height":48}}`))
	if err != nil {
		t.Fatalf("surface-sized region: %v", err)
	}
	host.EndFrame(frame.Image(gradient(64, 48)))
	d := <-svc.out
	if d.img.Width != 64 || d.img.Height != 48 || req.State() != capture.StateDelivered {
		t.Fatalf("delivered %dx%d, state %v", d.img.Width, d.img.Height, req.State())
	}
}

func TestMissingIDIsAssigned(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	svc := newService(t, host, ServiceOptions{})

	if _, err := svc.Handle([]byte(`{"type":"full"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	host.EndFrame(frame.Image(gradient(8, 8)))
	d := <-svc.out
	if d.id == uuid.Nil {
		t.Fatal("delivery has nil id")
	}
}

func TestFullQueueDropsDelivery(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	svc := newService(t, host, ServiceOptions{QueueSize: 1})

	full := command(t, Command{Type: CommandFull})
	first, _ := svc.Handle(full)
	second, _ := svc.Handle(full)
	host.EndFrame(frame.Image(gradient(8, 8)))

	if first.State() != capture.StateDelivered || second.State() != capture.StateDelivered {
		t.Fatalf("states = %v, %v", first.State(), second.State())
	}
	if len(svc.out) != 1 {
		t.Fatalf("queued = %d, want 1", len(svc.out))
	}
}

func TestCloseCancelsPending(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	svc := newService(t, host, ServiceOptions{})

	req, err := svc.Handle(command(t, Command{Type: CommandFull}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	svc.Close()
	host.EndFrame(frame.Image(gradient(8, 8)))

	if req.State() != capture.StateCancelled {
		t.Fatalf("state = %v, want cancelled", req.State())
	}
	if len(svc.out) != 0 {
		t.Fatal("cancelled capture was queued")
	}
}

func TestSendErrorKeepsRunning(t *testing.T) {
	host := &testHost{Queue: frame.NewQueue(), w: 8, h: 8}
	calls := make(chan struct{}, 8)
	svc := newService(t, host, ServiceOptions{
		Sender: sendFunc(func([]byte) error {
			calls <- struct{}{}
			return errors.New("channel closed")
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	full := command(t, Command{Type: CommandFull})
	for i := 0; i < 2; i++ {
		if _, err := svc.Handle(full); err != nil {
			t.Fatalf("handle: %v", err)
		}
		host.EndFrame(frame.Image(gradient(8, 8)))
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("capture %d was not sent", i)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
