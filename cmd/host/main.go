package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/framecap/internal/canvas"
	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/config"
	"github.com/junsooki/framecap/internal/desktop"
	"github.com/junsooki/framecap/internal/display"
	"github.com/junsooki/framecap/internal/layout"
	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/permissions"
	"github.com/junsooki/framecap/internal/signaling"
)

func main() {
	cfg, err := config.LoadHost(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lf, err := logging.NewFactory(cfg.LogLevel, os.Stderr, cfg.LogScopes...)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	logger := lf.NewLogger("host")

	logger.Infof("framecap host starting")
	logger.Infof("  Host ID:    %s", cfg.HostID)
	logger.Infof("  Signaling:  %s", cfg.SignalingURL)
	logger.Infof("  Backend:    %s", cfg.Backend)
	logger.Infof("  FPS:        %d", cfg.FPS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var (
		host capture.Host
		disp *display.EbitenDisplay
	)
	switch cfg.Backend {
	case config.BackendOffscreen:
		cv, err := canvas.NewHost(cfg.Width, cfg.Height, canvas.NewDemoScene(), lf)
		if err != nil {
			log.Fatalf("canvas: %v", err)
		}
		defer cv.Close()
		host = cv
		g.Go(func() error { return cv.Run(ctx, cfg.FPS) })

	case config.BackendDesktop:
		if err := permissions.EnsureScreenRecording(); err != nil {
			log.Fatalf("%v: grant it in System Settings and restart", err)
		}
		dh, err := desktop.NewHost(cfg.DisplayIndex, nil, lf)
		if err != nil {
			log.Fatalf("desktop: %v", err)
		}
		logger.Infof("  Display:    %d %v", cfg.DisplayIndex, dh.Bounds())
		host = dh
		g.Go(func() error { return dh.Run(ctx, cfg.FPS) })

	case config.BackendWindow:
		// The window shows the demo scene and captures read the window's
		// own back buffer.
		cv, err := canvas.NewHost(cfg.Width, cfg.Height, canvas.NewDemoScene(), lf)
		if err != nil {
			log.Fatalf("canvas: %v", err)
		}
		defer cv.Close()
		ebiten.SetTPS(cfg.FPS)
		disp = display.NewEbitenDisplay(cv, display.Options{
			Title:  "framecap host " + cfg.HostID,
			Width:  cfg.Width,
			Height: cfg.Height,
			Tick: func() error {
				if ctx.Err() != nil {
					return ebiten.Termination
				}
				return cv.Step()
			},
		}, lf)
		host = disp
	}

	capturer := capture.New(host,
		capture.WithDefaultView(layout.Overlay()),
		capture.WithLoggerFactory(lf),
	)
	sess := newSessions(capturer, host, cfg, lf)
	defer sess.Close()

	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.HostID, signaling.ClientTypeHost, signaling.Handler{
		OnRegistered: func() {
			logger.Info("Registered with signaling server")
		},
		OnOffer: func(from string, payload json.RawMessage) {
			logger.Infof("Received offer from %s", from)
			if err := sess.Accept(ctx, sig, from, payload); err != nil {
				logger.Errorf("accept %s: %v", from, err)
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := sess.AddCandidate(payload); err != nil {
				logger.Warnf("handle ICE candidate: %v", err)
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
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-sig.Done():
			return errors.New("signaling connection closed")
		}
	})

	logger.Infof("Host ready. Share this ID with viewers: %s", cfg.HostID)

	if disp != nil {
		// Ebitengine RunGame must be on the main goroutine (macOS requirement).
		if err := disp.Run(); err != nil {
			logger.Errorf("display: %v", err)
		}
		stop()
	}

	if err := g.Wait(); err != nil {
		logger.Errorf("%v", err)
	}
	logger.Info("Shutting down...")
}
