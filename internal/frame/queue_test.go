package frame

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/junsooki/framecap/internal/capture"
)

func TestEndFrameRunsTasksInOrder(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 3; i++ {
		q.Defer(func(capture.FrameBuffer) { got = append(got, i) })
	}
	if n := q.Pending(); n != 3 {
		t.Fatalf("pending = %d, want 3", n)
	}
	if n := q.EndFrame(Image(image.NewRGBA(image.Rect(0, 0, 1, 1)))); n != 3 {
		t.Fatalf("ran %d tasks, want 3", n)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("order = %v", got)
	}
	if q.Frames() != 1 {
		t.Fatalf("frames = %d, want 1", q.Frames())
	}
}

func TestTasksDeferredDuringEndFrameWaitForNextFrame(t *testing.T) {
	q := NewQueue()
	fb := Image(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	var frames []uint64
	q.Defer(func(capture.FrameBuffer) {
		q.Defer(func(capture.FrameBuffer) { frames = append(frames, q.Frames()) })
	})

	if n := q.EndFrame(fb); n != 1 {
		t.Fatalf("first frame ran %d tasks, want 1", n)
	}
	if len(frames) != 0 {
		t.Fatalf("nested task ran in the same frame")
	}
	if n := q.EndFrame(fb); n != 1 {
		t.Fatalf("second frame ran %d tasks, want 1", n)
	}
	if len(frames) != 1 || frames[0] != 2 {
		t.Fatalf("nested task frames = %v, want [2]", frames)
	}
}

func TestDeferFromManyGoroutines(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Defer(func(capture.FrameBuffer) {})
		}()
	}
	wg.Wait()
	if n := q.EndFrame(Image(image.NewRGBA(image.Rect(0, 0, 1, 1)))); n != 50 {
		t.Fatalf("ran %d tasks, want 50", n)
	}
}

func TestImageReadRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	fb := Image(src)

	w, h := fb.Size()
	if w != 4 || h != 4 {
		t.Fatalf("size = %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := fb.ReadRGBA(image.Rect(2, 1, 4, 3), dst); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{R: 9, G: 8, B: 7, A: 255}) {
		t.Fatalf("pixel = %v", got)
	}
}
