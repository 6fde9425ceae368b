package client

import (
	"io"

	"github.com/grpcweb-go/rpc/internal/frame"
)

// frameReader pulls frames one at a time off an HTTP response body,
// reassembling them through a frame.ChunkParser the way the client
// engine's stream loop expects (spec §4.4/§4.5: the wire carries
// length-prefixed message frames followed by one trailer frame).
type frameReader struct {
	body    io.ReadCloser
	parser  frame.ChunkParser
	pending []frame.Frame
	buf     []byte
}

func newFrameReader(body io.ReadCloser) *frameReader {
	return &frameReader{body: body, buf: make([]byte, 4096)}
}

// next returns the next frame, io.EOF if the body ended cleanly with
// no pending data, or io.ErrUnexpectedEOF if the body ended mid-frame.
func (fr *frameReader) next() (frame.Frame, error) {
	for len(fr.pending) == 0 {
		n, err := fr.body.Read(fr.buf)
		if n > 0 {
			fr.pending = append(fr.pending, fr.parser.Feed(fr.buf[:n])...)
		}
		if err != nil {
			if err == io.EOF { //nolint:errorlint // io.EOF is a sentinel, never wrapped by Read
				if fr.parser.Pending() {
					return frame.Frame{}, io.ErrUnexpectedEOF
				}
				if len(fr.pending) == 0 {
					return frame.Frame{}, io.EOF
				}
				break
			}
			return frame.Frame{}, err
		}
	}

	f := fr.pending[0]
	fr.pending = fr.pending[1:]
	return f, nil
}

func (fr *frameReader) close() error { return fr.body.Close() }
