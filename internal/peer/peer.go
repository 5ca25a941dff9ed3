package peer

import (
	"encoding/json"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler relays session descriptions and ICE candidates to a peer.
// *signaling.Client implements it.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a PeerConnection whose pion internals log
// through lf.
func NewPeerConnection(lf logging.LoggerFactory, log logging.LeveledLogger) (*webrtc.PeerConnection, error) {
	se := webrtc.SettingEngine{LoggerFactory: lf}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: ICEServers,
	})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Infof("peer connection state: %s", state.String())
	})
	return pc, nil
}

func sendCandidate(sig Signaler, target string, c *webrtc.ICECandidate, log logging.LeveledLogger) {
	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		log.Warnf("marshal ICE candidate: %v", err)
		return
	}
	if err := sig.SendICECandidate(target, data); err != nil {
		log.Warnf("send ICE candidate: %v", err)
	}
}

func addCandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}
