package remote

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/transport"
	"github.com/junsooki/framecap/internal/wire"
)

// CaptureCallback receives a reassembled capture.
type CaptureCallback func(id uuid.UUID, img *capture.Image)

// Client sends capture commands and reassembles the replies.
type Client struct {
	sender  transport.RequestSender
	decoder *wire.Decoder
	log     logging.LeveledLogger

	mu        sync.RWMutex
	onCapture CaptureCallback
}

// NewClient returns a client sending through sender.
func NewClient(sender transport.RequestSender, lf logging.LoggerFactory) *Client {
	return &Client{
		sender:  sender,
		decoder: wire.NewDecoder(0),
		log:     lf.NewLogger("remote"),
	}
}

// OnCapture sets the callback for completed captures.
func (c *Client) OnCapture(cb CaptureCallback) {
	c.mu.Lock()
	c.onCapture = cb
	c.mu.Unlock()
}

// RequestFull asks for a full-surface capture.
func (c *Client) RequestFull(format capture.Format) (uuid.UUID, error) {
	return c.request(Command{Type: CommandFull, Format: format.String()})
}

// RequestRegion asks for a capture of r.
func (c *Client) RequestRegion(r Region, format capture.Format) (uuid.UUID, error) {
	return c.request(Command{Type: CommandRegion, Format: format.String(), Region: &r})
}

func (c *Client) request(cmd Command) (uuid.UUID, error) {
	cmd.ID = uuid.New()
	data, err := json.Marshal(cmd)
	if err != nil {
		return uuid.Nil, err
	}
	if err := c.sender.SendRequest(data); err != nil {
		return uuid.Nil, fmt.Errorf("send %s request: %w", cmd.Type, err)
	}
	return cmd.ID, nil
}

// HandleCapture feeds one received chunk. It matches the transport's
// OnCapture callback.
func (c *Client) HandleCapture(data []byte) {
	id, img, err := c.decoder.Push(data)
	if err != nil {
		c.log.Warnf("capture chunk: %v", err)
		return
	}
	if img == nil {
		return
	}
	c.mu.RLock()
	cb := c.onCapture
	c.mu.RUnlock()
	if cb != nil {
		cb(id, img)
	}
}
