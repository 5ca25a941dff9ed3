// Package frame holds the end-of-frame task queue hosts drive from their
// render loop.
package frame

import (
	"sync"

	"github.com/junsooki/framecap/internal/capture"
)

// Queue collects tasks deferred to the end of the frame in progress.
// Defer may be called from any goroutine; EndFrame must be called by the
// render loop once per frame, after rendering.
type Queue struct {
	mu      sync.Mutex
	pending []func(capture.FrameBuffer)
	frames  uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Defer schedules task for the end of the current frame.
func (q *Queue) Defer(task func(capture.FrameBuffer)) {
	q.mu.Lock()
	q.pending = append(q.pending, task)
	q.mu.Unlock()
}

// EndFrame marks the current frame as rendered and runs, in scheduling
// order, every task deferred before the call. Tasks deferred by those
// tasks wait for the next frame. It returns the number of tasks run.
func (q *Queue) EndFrame(fb capture.FrameBuffer) int {
	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	q.frames++
	q.mu.Unlock()

	for i, task := range tasks {
		tasks[i] = nil
		task(fb)
	}
	return len(tasks)
}

// Pending returns the number of tasks waiting for the end of the frame.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Frames returns how many frames have ended.
func (q *Queue) Frames() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frames
}
