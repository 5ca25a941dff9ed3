package peer

import (
	"encoding/json"
	"fmt"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/transport"
)

// Viewer manages the viewer side of the WebRTC connection. The viewer is
// the offerer and creates both data channels.
type Viewer struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	hostID    string
	log       logging.LeveledLogger
}

// NewViewer creates a Viewer peer manager targeting hostID.
func NewViewer(sig Signaler, hostID string, lf logging.LoggerFactory) (*Viewer, error) {
	log := lf.NewLogger("peer")
	pc, err := NewPeerConnection(lf, log)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	// Captures must arrive complete and in order for chunk reassembly.
	ordered := true
	capturesDC, err := pc.CreateDataChannel(transport.CapturesLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create captures channel: %w", err)
	}
	requestsDC, err := pc.CreateDataChannel(transport.RequestsLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create requests channel: %w", err)
	}
	for _, dc := range []*webrtc.DataChannel{capturesDC, requestsDC} {
		label := dc.Label()
		dc.OnOpen(func() { log.Infof("%s data channel open", label) })
	}

	v := &Viewer{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(capturesDC, requestsDC),
		hostID:    hostID,
		log:       log,
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		sendCandidate(sig, hostID, c, log)
	})

	return v, nil
}

// Transport returns the transport for sending requests and receiving captures.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect initiates the WebRTC connection by creating and sending an offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.hostID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		if err := v.pc.Close(); err != nil {
			v.log.Warnf("close peer connection: %v", err)
		}
	}
}
