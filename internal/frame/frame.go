// Package frame implements the gRPC-Web wire framing: a 5-byte header
// (flag byte + big-endian uint32 payload length) followed by a
// payload, used identically for request bodies and response bodies in
// both directions.
package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderLen is the size in bytes of a frame header.
const HeaderLen = 5

// Flag distinguishes a message frame from a trailer frame.
type Flag byte

const (
	// FlagMessage marks a frame carrying a codec-encoded message.
	FlagMessage Flag = 0x00
	// FlagTrailer marks a frame carrying trailer metadata
	// (grpc-status, grpc-message, and any trailing response-context
	// headers).
	FlagTrailer Flag = 0x80
)

// ErrPayloadTooLarge is returned when encoding a payload whose length
// does not fit in the frame's 4-byte length field.
var ErrPayloadTooLarge = errors.New("frame: payload exceeds maximum length")

const maxPayloadLen = 1<<32 - 1

// Frame is a single decoded unit on the gRPC-Web wire.
type Frame struct {
	Flag    Flag
	Payload []byte
}

// IsTrailer reports whether f carries trailer metadata.
func (f Frame) IsTrailer() bool { return f.Flag == FlagTrailer }

// Encode writes the 5-byte header for flag and payload, followed by
// payload itself.
func Encode(flag Flag, payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, HeaderLen+len(payload))
	buf[0] = byte(flag)
	binary.BigEndian.PutUint32(buf[1:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)

	return buf, nil
}

// EncodeMessage is a convenience wrapper for Encode(FlagMessage, payload).
func EncodeMessage(payload []byte) ([]byte, error) {
	return Encode(FlagMessage, payload)
}

// EncodeTrailer is a convenience wrapper for Encode(FlagTrailer, payload).
func EncodeTrailer(payload []byte) ([]byte, error) {
	return Encode(FlagTrailer, payload)
}
