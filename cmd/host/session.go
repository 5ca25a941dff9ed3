package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/config"
	"github.com/junsooki/framecap/internal/peer"
	"github.com/junsooki/framecap/internal/remote"
)

// sessions holds the one viewer connection the host serves at a time.
// A new offer replaces the previous viewer.
type sessions struct {
	capturer remote.Capturer
	surface  capture.Surface
	cfg      *config.Host
	lf       logging.LoggerFactory
	log      logging.LeveledLogger

	mu     sync.Mutex
	peer   *peer.Host
	svc    *remote.Service
	cancel context.CancelFunc
}

func newSessions(c remote.Capturer, surface capture.Surface, cfg *config.Host, lf logging.LoggerFactory) *sessions {
	return &sessions{
		capturer: c,
		surface:  surface,
		cfg:      cfg,
		lf:       lf,
		log:      lf.NewLogger("session"),
	}
}

// Accept answers an offer from viewer and starts serving its requests.
func (s *sessions) Accept(ctx context.Context, sig peer.Signaler, viewer string, offer json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	p, err := peer.NewHost(sig, s.lf)
	if err != nil {
		return err
	}
	svc, err := remote.NewService(remote.ServiceOptions{
		Capturer:          s.capturer,
		Sender:            p.Transport(),
		Surface:           s.surface,
		RequestsPerSecond: s.cfg.MaxRPS,
		Burst:             max(int(s.cfg.MaxRPS), 1),
		ChunkSize:         s.cfg.ChunkSize,
		LoggerFactory:     s.lf,
	})
	if err != nil {
		p.Close()
		return err
	}
	p.Transport().OnRequest(svc.HandleRequest)

	if err := p.HandleOffer(viewer, offer); err != nil {
		svc.Close()
		p.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := svc.Run(runCtx); err != nil {
			s.log.Warnf("capture sender for %s: %v", viewer, err)
		}
	}()

	s.peer, s.svc, s.cancel = p, svc, cancel
	s.log.Infof("serving captures to %s", viewer)
	return nil
}

func (s *sessions) AddCandidate(payload json.RawMessage) error {
	s.mu.Lock()
	p := s.peer
	s.mu.Unlock()
	if p == nil {
		return errors.New("ICE candidate before offer")
	}
	return p.HandleICECandidate(payload)
}

func (s *sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *sessions) closeLocked() {
	if s.peer == nil {
		return
	}
	s.cancel()
	s.svc.Close()
	s.peer.Close()
	s.peer, s.svc, s.cancel = nil, nil, nil
}
