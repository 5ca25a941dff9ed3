package wire

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	"github.com/junsooki/framecap/internal/capture"
)

// DefaultMaxPending bounds how many partially received frames a Decoder
// keeps before dropping the oldest.
const DefaultMaxPending = 8

type partial struct {
	count uint32
	parts map[uint32][]byte
	size  int
}

// Decoder reassembles chunks into images. Chunks of one frame may arrive
// in any order and interleaved with other frames.
type Decoder struct {
	mu           sync.Mutex
	maxPending   int
	maxFrameSize int
	pending      map[uuid.UUID]*partial
	order        []uuid.UUID
}

// NewDecoder returns a decoder keeping at most maxPending incomplete
// frames (DefaultMaxPending when non-positive), each of at most
// DefaultMaxFrameSize bytes.
func NewDecoder(maxPending int) *Decoder {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Decoder{
		maxPending:   maxPending,
		maxFrameSize: DefaultMaxFrameSize,
		pending:      make(map[uuid.UUID]*partial),
	}
}

// Push adds one chunk. When it completes a frame, Push returns the frame's
// id and image.
func (d *Decoder) Push(chunk []byte) (uuid.UUID, *capture.Image, error) {
	h, err := readChunkHeader(chunk)
	if err != nil {
		return uuid.Nil, nil, err
	}
	body := chunk[ChunkHeaderSize:]

	d.mu.Lock()
	p, ok := d.pending[h.id]
	if !ok {
		p = &partial{count: h.count, parts: make(map[uint32][]byte)}
		d.pending[h.id] = p
		d.order = append(d.order, h.id)
		d.evict()
	}
	if h.count != p.count {
		d.drop(h.id)
		d.mu.Unlock()
		return h.id, nil, ErrChunkCount
	}
	if _, dup := p.parts[h.index]; !dup {
		if p.size+len(body) > d.maxFrameSize {
			d.drop(h.id)
			d.mu.Unlock()
			return h.id, nil, ErrFrameTooLarge
		}
		p.parts[h.index] = append([]byte(nil), body...)
		p.size += len(body)
	}
	if len(p.parts) < int(p.count) {
		d.mu.Unlock()
		return h.id, nil, nil
	}
	d.drop(h.id)
	d.mu.Unlock()

	frame := make([]byte, 0, p.size)
	for i := uint32(0); i < p.count; i++ {
		frame = append(frame, p.parts[i]...)
	}
	img, err := unmarshalFrame(frame)
	return h.id, img, err
}

// Pending returns the number of incomplete frames.
func (d *Decoder) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Decoder) evict() {
	for len(d.order) > d.maxPending {
		d.drop(d.order[0])
	}
}

func (d *Decoder) drop(id uuid.UUID) {
	delete(d.pending, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func unmarshalFrame(b []byte) (*capture.Image, error) {
	if len(b) < FrameHeaderSize {
		return nil, ErrShortFrame
	}
	if [4]byte(b[0:4]) != magic {
		return nil, ErrBadMagic
	}
	if b[4] != Version {
		return nil, ErrBadVersion
	}
	format := capture.Format(b[5])
	if !format.Valid() {
		return nil, ErrBadFormat
	}
	width := int(binary.BigEndian.Uint32(b[8:12]))
	height := int(binary.BigEndian.Uint32(b[12:16]))
	if width > capture.MaxDimension || height > capture.MaxDimension {
		return nil, ErrFrameTooLarge
	}

	pix := b[FrameHeaderSize:]
	if len(pix) != width*height*format.BytesPerPixel() {
		return nil, ErrShortFrame
	}
	img := capture.NewImage(width, height, format)
	copy(img.Pix, pix)
	return img, nil
}
