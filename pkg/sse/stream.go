package sse

import (
	"io"
)

// Stream lazily pulls data payloads out of an HTTP response body. It is a
// finite, non-restartable sequence: after Next returns io.EOF (end of body or
// the "[DONE]" terminator) it never yields again.
type Stream struct {
	body    io.ReadCloser
	dec     *Decoder
	buf     []byte
	pending []string
	err     error
}

// NewStream wraps a response body. Close releases the body and should always
// be called; an early Close aborts the underlying read.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body: body,
		dec:  NewDecoder(),
		buf:  make([]byte, 4096),
	}
}

// Next returns the next data payload, blocking on the body as needed.
// Returns io.EOF at end of stream and the transport error on a failed read.
func (s *Stream) Next() (string, error) {
	for {
		if len(s.pending) > 0 {
			payload := s.pending[0]
			s.pending = s.pending[1:]
			return payload, nil
		}
		if s.err != nil {
			return "", s.err
		}
		if s.dec.Done() {
			s.err = io.EOF
			return "", io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = s.dec.Feed(s.buf[:n])
		}
		if err != nil {
			// Surface any payloads decoded from the final read first.
			s.err = err
			if len(s.pending) > 0 {
				continue
			}
			return "", err
		}
	}
}

// Close releases the underlying body.
func (s *Stream) Close() error {
	return s.body.Close()
}
