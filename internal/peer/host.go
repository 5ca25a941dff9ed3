package peer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/transport"
)

// Host manages the capture host's side of the WebRTC connection. It
// answers a viewer's offer and accepts the viewer's data channels.
type Host struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	log       logging.LeveledLogger

	mu     sync.Mutex
	peerID string // the viewer we're connected to
}

// NewHost creates a Host peer manager.
func NewHost(sig Signaler, lf logging.LoggerFactory) (*Host, error) {
	log := lf.NewLogger("peer")
	pc, err := NewPeerConnection(lf, log)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	h := &Host{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(nil, nil),
		log:       log,
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		label := dc.Label()
		dc.OnOpen(func() { log.Infof("%s data channel open", label) })
		switch label {
		case transport.CapturesLabel:
			h.transport.SetCapturesChannel(dc)
		case transport.RequestsLabel:
			h.transport.SetRequestsChannel(dc)
		default:
			log.Warnf("ignoring unexpected data channel %q", label)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		peerID := h.PeerID()
		if c == nil || peerID == "" {
			return
		}
		sendCandidate(sig, peerID, c, log)
	})

	return h, nil
}

// Transport returns the transport for sending captures and receiving requests.
func (h *Host) Transport() *transport.DataChannelTransport {
	return h.transport
}

// PeerID returns the viewer this host answered, if any.
func (h *Host) PeerID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peerID
}

// HandleOffer processes an incoming offer from a viewer.
func (h *Host) HandleOffer(from string, payload json.RawMessage) error {
	h.mu.Lock()
	h.peerID = from
	h.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return fmt.Errorf("decode offer: %w", err)
	}
	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return h.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(h.pc, payload)
}

// Close shuts down the peer connection.
func (h *Host) Close() {
	if h.pc != nil {
		if err := h.pc.Close(); err != nil {
			h.log.Warnf("close peer connection: %v", err)
		}
	}
}
