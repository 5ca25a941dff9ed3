// Package remote serves capture requests from a viewer over a transport
// and delivers the captured images back.
package remote

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/layout"
)

// CommandType selects the capture operation.
type CommandType string

const (
	CommandFull   CommandType = "full"
	CommandRegion CommandType = "region"
)

// Region is a rectangle in the host's world space (y up).
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Region) rect() layout.Rect {
	return layout.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Command is the wire format for capture requests sent over the data channel.
type Command struct {
	Type   CommandType `json:"type"`
	ID     uuid.UUID   `json:"id"`
	Format string      `json:"format,omitempty"`
	Region *Region     `json:"region,omitempty"`
}

// validate rejects regions that are not finite, have negative extents or
// are larger than maxW×maxH.
func (r Region) validate(maxW, maxH int) error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("region %+v is not finite", r)
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("region %+v has a negative size", r)
	}
	if r.Width > float64(maxW) || r.Height > float64(maxH) {
		return fmt.Errorf("region %vx%v exceeds the %dx%d surface", r.Width, r.Height, maxW, maxH)
	}
	if math.Abs(r.X) > capture.MaxDimension*4 || math.Abs(r.Y) > capture.MaxDimension*4 {
		return fmt.Errorf("region origin (%v, %v) is out of range", r.X, r.Y)
	}
	return nil
}

func decodeCommand(data []byte, maxW, maxH int) (Command, capture.Format, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, 0, fmt.Errorf("decode command: %w", err)
	}
	format, err := capture.ParseFormat(cmd.Format)
	if err != nil {
		return cmd, 0, err
	}
	switch cmd.Type {
	case CommandFull:
	case CommandRegion:
		if cmd.Region == nil {
			return cmd, 0, fmt.Errorf("region command without a region")
		}
		if err := cmd.Region.validate(maxW, maxH); err != nil {
			return cmd, 0, err
		}
	default:
		return cmd, 0, fmt.Errorf("unknown command type %q", cmd.Type)
	}
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	return cmd, format, nil
}
