package canvas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/layout"
)

func solid(c gg.RGBA) Scene {
	return SceneFunc(func(dc *gg.Context, _ uint64) error {
		dc.ClearWithColor(c)
		return nil
	})
}

func newHost(t *testing.T, w, h int, scene Scene) *Host {
	t.Helper()
	host, err := NewHost(w, h, scene, logging.NewDefaultLoggerFactory())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	t.Cleanup(func() { _ = host.Close() })
	return host
}

func TestNewHostValidates(t *testing.T) {
	lf := logging.NewDefaultLoggerFactory()
	if _, err := NewHost(0, 10, solid(gg.Black), lf); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := NewHost(10, 10, nil, lf); err == nil {
		t.Fatal("expected error for nil scene")
	}
}

func TestCaptureFullFromCanvas(t *testing.T) {
	host := newHost(t, 64, 48, solid(gg.RGB(1, 0, 0)))
	c := capture.New(host)

	var got *capture.Image
	c.CaptureFull(context.Background(), capture.RGB24, func(img *capture.Image) { got = img })
	if err := host.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got == nil || got.Width != 64 || got.Height != 48 {
		t.Fatalf("image = %+v", got)
	}
	for i := 0; i < len(got.Pix); i += 3 {
		if got.Pix[i] != 255 || got.Pix[i+1] != 0 || got.Pix[i+2] != 0 {
			t.Fatalf("pixel %d = %v, want red", i/3, got.Pix[i:i+3])
		}
	}
}

func TestCaptureRegionFromDemoScene(t *testing.T) {
	scene := NewDemoScene()
	scene.Background = gg.RGB(0, 0, 1)
	host := newHost(t, 200, 100, scene)
	c := capture.New(host)

	// A corner far from the block only sees background.
	var got *capture.Image
	c.CaptureRegion(context.Background(), layout.Rect{X: 190, Y: 0, Width: 10, Height: 5},
		func(img *capture.Image) { got = img }, capture.RGBA32, nil)
	if err := host.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got.Width != 10 || got.Height != 5 {
		t.Fatalf("image = %dx%d", got.Width, got.Height)
	}
	px := got.RGBA().RGBAAt(0, 0)
	if px.R != 0 || px.G != 0 || px.B != 255 || px.A != 255 {
		t.Fatalf("pixel = %v, want blue", px)
	}
	if host.CurrentFrame() == nil {
		t.Fatal("current frame not recorded")
	}
}

func TestStepReportsSceneError(t *testing.T) {
	boom := errors.New("boom")
	host := newHost(t, 8, 8, SceneFunc(func(*gg.Context, uint64) error { return boom }))
	if err := host.Step(); !errors.Is(err, boom) {
		t.Fatalf("step err = %v, want boom", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	host := newHost(t, 8, 8, solid(gg.Black))
	c := capture.New(host)
	req := c.CaptureFull(context.Background(), capture.RGB24, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- host.Run(ctx, 120) }()

	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	if _, err := req.Wait(wctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRunRejectsBadFPS(t *testing.T) {
	host := newHost(t, 8, 8, solid(gg.Black))
	if err := host.Run(context.Background(), 0); err == nil {
		t.Fatal("expected error for fps 0")
	}
}
