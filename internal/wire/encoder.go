package wire

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/junsooki/framecap/internal/capture"
)

// Encoder turns captured images into chunk messages.
type Encoder struct {
	chunkSize int
}

// NewEncoder returns an encoder producing messages of at most chunkSize
// bytes. A non-positive chunkSize selects DefaultChunkSize.
func NewEncoder(chunkSize int) (*Encoder, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize <= ChunkHeaderSize {
		return nil, ErrChunkTooTiny
	}
	return &Encoder{chunkSize: chunkSize}, nil
}

// Encode frames img under id and splits it into chunks.
func (e *Encoder) Encode(id uuid.UUID, img *capture.Image) ([][]byte, error) {
	if !img.Format.Valid() {
		return nil, ErrBadFormat
	}
	frame := marshalFrame(id, img)

	payload := e.chunkSize - ChunkHeaderSize
	count := (len(frame) + payload - 1) / payload
	if count > MaxChunks {
		return nil, ErrFrameTooLarge
	}
	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		part := frame[i*payload : min((i+1)*payload, len(frame))]
		msg := make([]byte, ChunkHeaderSize+len(part))
		putChunkHeader(msg, chunkHeader{id: id, index: uint32(i), count: uint32(count)})
		copy(msg[ChunkHeaderSize:], part)
		chunks = append(chunks, msg)
	}
	return chunks, nil
}

func marshalFrame(id uuid.UUID, img *capture.Image) []byte {
	rowBytes := img.Width * img.Format.BytesPerPixel()
	b := make([]byte, FrameHeaderSize+rowBytes*img.Height)

	copy(b[0:4], magic[:])
	b[4] = Version
	b[5] = byte(img.Format)
	binary.BigEndian.PutUint32(b[8:12], uint32(img.Width))
	binary.BigEndian.PutUint32(b[12:16], uint32(img.Height))
	copy(b[16:32], id[:])

	pix := b[FrameHeaderSize:]
	for y := 0; y < img.Height; y++ {
		copy(pix[y*rowBytes:(y+1)*rowBytes], img.Pix[y*img.Stride:])
	}
	return b
}
