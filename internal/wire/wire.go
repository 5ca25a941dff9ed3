// Package wire frames captured images for message-oriented transports.
//
// A frame is a 32-byte header followed by the pixels, rows top first,
// without padding:
//
//	magic "FCAP" | version u8 | format u8 | reserved u16 | width u32 | height u32 | id [16]
//
// Frames are split into chunks no larger than the chunk size. Each chunk
// carries a 24-byte header: id [16] | index u32 | count u32. Integers are
// big endian.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

const (
	Version = 1

	FrameHeaderSize = 32
	ChunkHeaderSize = 24

	// DefaultChunkSize keeps each message well under the SCTP message
	// limits of common WebRTC stacks.
	DefaultChunkSize = 16 * 1024

	// MaxChunks bounds the chunk count of one frame.
	MaxChunks = 1 << 16

	// DefaultMaxFrameSize bounds the bytes a Decoder buffers for one frame.
	DefaultMaxFrameSize = 256 << 20
)

var magic = [4]byte{'F', 'C', 'A', 'P'}

var (
	ErrShortChunk    = errors.New("wire: chunk shorter than its header")
	ErrChunkRange    = errors.New("wire: chunk index out of range")
	ErrChunkCount    = errors.New("wire: chunk count mismatch")
	ErrBadMagic      = errors.New("wire: bad frame magic")
	ErrBadVersion    = errors.New("wire: unsupported frame version")
	ErrBadFormat     = errors.New("wire: unknown pixel format")
	ErrShortFrame    = errors.New("wire: frame shorter than its pixel data")
	ErrChunkTooTiny  = errors.New("wire: chunk size leaves no room for payload")
	ErrFrameTooLarge = errors.New("wire: frame exceeds size limits")
)

type chunkHeader struct {
	id    uuid.UUID
	index uint32
	count uint32
}

func putChunkHeader(b []byte, h chunkHeader) {
	copy(b[:16], h.id[:])
	binary.BigEndian.PutUint32(b[16:20], h.index)
	binary.BigEndian.PutUint32(b[20:24], h.count)
}

func readChunkHeader(b []byte) (chunkHeader, error) {
	if len(b) < ChunkHeaderSize {
		return chunkHeader{}, ErrShortChunk
	}
	var h chunkHeader
	copy(h.id[:], b[:16])
	h.index = binary.BigEndian.Uint32(b[16:20])
	h.count = binary.BigEndian.Uint32(b[20:24])
	if h.count == 0 || h.index >= h.count {
		return chunkHeader{}, ErrChunkRange
	}
	if h.count > MaxChunks {
		return chunkHeader{}, ErrFrameTooLarge
	}
	return h, nil
}
