package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"golang.org/x/time/rate"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/transport"
	"github.com/junsooki/framecap/internal/wire"
)

// ErrRateLimited is returned for commands over the configured rate.
var ErrRateLimited = errors.New("capture request rate exceeded")

// Capturer is the part of capture.Capturer the service drives.
type Capturer interface {
	CaptureFull(ctx context.Context, format capture.Format, onComplete capture.Handler) *capture.Request
	CaptureRegion(ctx context.Context, src capture.RegionSource, onComplete capture.Handler, format capture.Format, view capture.View) *capture.Request
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Capturer Capturer
	Sender   transport.CaptureSender
	// Surface bounds the size of requested regions. Without it regions
	// are bounded by capture.MaxDimension.
	Surface capture.Surface
	// RequestsPerSecond and Burst bound accepted commands. Zero rate
	// disables limiting.
	RequestsPerSecond float64
	Burst             int
	// QueueSize bounds captured images waiting to be sent.
	QueueSize     int
	ChunkSize     int
	LoggerFactory logging.LoggerFactory
}

type delivery struct {
	id  uuid.UUID
	img *capture.Image
}

// Service turns incoming commands into captures and sends the results.
type Service struct {
	capturer Capturer
	sender   transport.CaptureSender
	surface  capture.Surface
	limiter  *rate.Limiter
	encoder  *wire.Encoder
	log      logging.LeveledLogger

	ctx    context.Context
	cancel context.CancelFunc
	out    chan delivery
}

// NewService validates opts and returns a service. Call Run to start
// sending and Close to cancel captures still pending.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Capturer == nil || opts.Sender == nil {
		return nil, errors.New("capturer and sender must be provided")
	}
	if opts.LoggerFactory == nil {
		opts.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 4
	}
	enc, err := wire.NewEncoder(opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("new encoder: %w", err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		capturer: opts.Capturer,
		sender:   opts.Sender,
		surface:  opts.Surface,
		limiter:  rate.NewLimiter(limit, burst),
		encoder:  enc,
		log:      opts.LoggerFactory.NewLogger("remote"),
		ctx:      ctx,
		cancel:   cancel,
		out:      make(chan delivery, opts.QueueSize),
	}, nil
}

// HandleRequest decodes and serves one command. It matches the transport's
// OnRequest callback.
func (s *Service) HandleRequest(data []byte) {
	if _, err := s.Handle(data); err != nil {
		s.log.Warnf("capture request: %v", err)
	}
}

// Handle serves one command and returns the scheduled capture.
func (s *Service) Handle(data []byte) (*capture.Request, error) {
	maxW, maxH := capture.MaxDimension, capture.MaxDimension
	if s.surface != nil {
		maxW, maxH = s.surface.Size()
	}
	cmd, format, err := decodeCommand(data, maxW, maxH)
	if err != nil {
		return nil, err
	}
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("%s %s: %w", cmd.Type, cmd.ID, ErrRateLimited)
	}

	deliver := func(img *capture.Image) {
		select {
		case s.out <- delivery{id: cmd.ID, img: img}:
		default:
			s.log.Warnf("dropping capture %s: send queue full", cmd.ID)
		}
	}

	var req *capture.Request
	switch cmd.Type {
	case CommandFull:
		req = s.capturer.CaptureFull(s.ctx, format, deliver)
	case CommandRegion:
		req = s.capturer.CaptureRegion(s.ctx, cmd.Region.rect(), deliver, format, nil)
	}
	s.log.Debugf("scheduled %s capture %s (%v, %s)", cmd.Type, cmd.ID, req.Region(), format)
	return req, nil
}

// Run sends delivered captures until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-s.out:
			if err := s.send(d); err != nil {
				s.log.Warnf("send capture %s: %v", d.id, err)
			}
		}
	}
}

func (s *Service) send(d delivery) error {
	chunks, err := s.encoder.Encode(d.id, d.img)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		if err := s.sender.SendCapture(c); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	s.log.Debugf("sent capture %s: %dx%d in %d chunks", d.id, d.img.Width, d.img.Height, len(chunks))
	return nil
}

// Close cancels captures that have not reached the end of a frame yet.
func (s *Service) Close() {
	s.cancel()
}
