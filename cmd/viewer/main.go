package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/pflag"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/config"
	"github.com/junsooki/framecap/internal/display"
	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/peer"
	"github.com/junsooki/framecap/internal/remote"
	"github.com/junsooki/framecap/internal/signaling"
)

func main() {
	cfg, err := config.LoadViewer(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	format, _ := capture.ParseFormat(cfg.Format)

	lf, err := logging.NewFactory(cfg.LogLevel, os.Stderr, cfg.LogScopes...)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	logger := lf.NewLogger("viewer")

	logger.Infof("framecap viewer starting")
	logger.Infof("  Viewer ID:   %s", cfg.ViewerID)
	logger.Infof("  Signaling:   %s", cfg.SignalingURL)
	logger.Infof("  Target host: %s", cfg.HostID)
	logger.Infof("  Format:      %s", format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		viewerPeer atomic.Pointer[peer.Viewer]
		client     atomic.Pointer[remote.Client]
		latest     display.LatestFrame
	)

	region := remote.Region{
		X:      cfg.Region.X,
		Y:      cfg.Region.Y,
		Width:  cfg.Region.Width,
		Height: cfg.Region.Height,
	}
	request := func(kind remote.CommandType) {
		c := client.Load()
		if c == nil {
			logger.Warn("not connected to a host yet")
			return
		}
		var (
			id  uuid.UUID
			err error
		)
		if kind == remote.CommandRegion {
			id, err = c.RequestRegion(region, format)
		} else {
			id, err = c.RequestFull(format)
		}
		if err != nil {
			logger.Warnf("request %s capture: %v", kind, err)
			return
		}
		logger.Debugf("requested %s capture %s", kind, id)
	}

	disp := display.NewEbitenDisplay(&latest, display.Options{
		Title: "framecap viewer: " + cfg.HostID,
		Keys:  []ebiten.Key{ebiten.KeyF, ebiten.KeyR},
		OnKey: func(key ebiten.Key) {
			switch key {
			case ebiten.KeyF:
				request(remote.CommandFull)
			case ebiten.KeyR:
				request(remote.CommandRegion)
			}
		},
		Tick: func() error {
			if ctx.Err() != nil {
				return ebiten.Termination
			}
			return nil
		},
	}, lf)

	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.ViewerID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			logger.Info("Registered with signaling server")

			p, err := peer.NewViewer(sig, cfg.HostID, lf)
			if err != nil {
				logger.Errorf("create viewer peer: %v", err)
				stop()
				return
			}
			c := remote.NewClient(p.Transport(), lf)
			c.OnCapture(func(id uuid.UUID, img *capture.Image) {
				logger.Infof("capture %s: %dx%d %s", id, img.Width, img.Height, img.Format)
				latest.SetFrame(img.RGBA())
			})
			p.Transport().OnCapture(c.HandleCapture)
			viewerPeer.Store(p)
			client.Store(c)

			if err := p.Connect(); err != nil {
				logger.Errorf("viewer connect: %v", err)
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if p := viewerPeer.Load(); p != nil {
				if err := p.HandleAnswer(payload); err != nil {
					logger.Warnf("handle answer: %v", err)
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if p := viewerPeer.Load(); p != nil {
				if err := p.HandleICECandidate(payload); err != nil {
					logger.Warnf("handle ICE candidate: %v", err)
				}
			}
		},
		OnHostDisconnected: func(hostID string) {
			if hostID == cfg.HostID {
				logger.Warnf("host %s disconnected", hostID)
				stop()
			}
		},
		OnError: func(msg string) {
			logger.Warnf("signaling error: %s", msg)
		},
	}, lf)

	if err := sig.Connect(ctx); err != nil {
		log.Fatalf("signaling connect: %v", err)
	}
	defer sig.Close()

	if cfg.Interval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					request(remote.CommandFull)
				}
			}
		}()
	}

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	if err := disp.Run(); err != nil {
		logger.Errorf("display: %v", err)
	}

	if p := viewerPeer.Load(); p != nil {
		p.Close()
	}
}
