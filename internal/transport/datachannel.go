package transport

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

var errChannelNotSet = errors.New("data channel not set")

// DataChannelTransport carries capture chunks and capture requests over
// two WebRTC DataChannels.
type DataChannelTransport struct {
	mu         sync.RWMutex
	capturesDC *webrtc.DataChannel
	requestsDC *webrtc.DataChannel

	onCapture func(data []byte)
	onRequest func(data []byte)
}

// NewDataChannelTransport wraps the captures and requests channels. Either
// may be nil and set later.
func NewDataChannelTransport(capturesDC, requestsDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{}
	if capturesDC != nil {
		t.SetCapturesChannel(capturesDC)
	}
	if requestsDC != nil {
		t.SetRequestsChannel(requestsDC)
	}
	return t
}

// SendCapture sends one capture chunk.
func (t *DataChannelTransport) SendCapture(data []byte) error {
	t.mu.RLock()
	dc := t.capturesDC
	t.mu.RUnlock()
	if dc == nil {
		return errChannelNotSet
	}
	return dc.Send(data)
}

// SendRequest sends one serialized request.
func (t *DataChannelTransport) SendRequest(data []byte) error {
	t.mu.RLock()
	dc := t.requestsDC
	t.mu.RUnlock()
	if dc == nil {
		return errChannelNotSet
	}
	return dc.Send(data)
}

// OnCapture sets the callback for capture chunks received on the captures
// channel. It runs on pion's data-channel goroutine.
func (t *DataChannelTransport) OnCapture(cb func(data []byte)) {
	t.mu.Lock()
	t.onCapture = cb
	t.mu.Unlock()
}

// OnRequest sets the callback for requests received on the requests
// channel. It runs on pion's data-channel goroutine.
func (t *DataChannelTransport) OnRequest(cb func(data []byte)) {
	t.mu.Lock()
	t.onRequest = cb
	t.mu.Unlock()
}

// SetCapturesChannel sets or replaces the captures DataChannel (used when
// receiving negotiated channels).
func (t *DataChannelTransport) SetCapturesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.capturesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.RLock()
		cb := t.onCapture
		t.mu.RUnlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}

// SetRequestsChannel sets or replaces the requests DataChannel.
func (t *DataChannelTransport) SetRequestsChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.requestsDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.RLock()
		cb := t.onRequest
		t.mu.RUnlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}

// Ready reports whether both channels are present and open.
func (t *DataChannelTransport) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.capturesDC != nil && t.requestsDC != nil &&
		t.capturesDC.ReadyState() == webrtc.DataChannelStateOpen &&
		t.requestsDC.ReadyState() == webrtc.DataChannelStateOpen
}
