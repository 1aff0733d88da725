package sse

import (
	"strings"
	"unicode/utf8"
)

// Decoder reassembles discrete SSE data payloads from a byte stream whose
// chunk boundaries may fall anywhere, including mid-line and in the middle
// of a multi-byte character.
//
// The decoder keeps a single text accumulator. Each Feed decodes the newly
// received bytes (holding back any trailing partial UTF-8 sequence for the
// next call), appends them to the accumulator, and splits on newline. Every
// segment except the last is a complete line; the last segment re-seeds the
// accumulator. A given stream of bytes therefore yields the same payload
// sequence no matter how it is chunked.
type Decoder struct {
	acc     strings.Builder
	line    string
	partial []byte
	done    bool
}

// NewDecoder returns a Decoder at the start of a stream.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes the next chunk of raw bytes and returns the data payloads of
// all complete "data:" lines it finished. Blank separator lines and lines
// without the data prefix are skipped. Once the "[DONE]" terminator is seen,
// Done reports true and no further payloads are produced even if more bytes
// follow in the buffer.
func (d *Decoder) Feed(p []byte) []string {
	if d.done {
		return nil
	}

	text := d.decode(p)
	if text == "" {
		return nil
	}

	buf := d.line + text
	segments := strings.Split(buf, "\n")
	d.line = segments[len(segments)-1]

	var payloads []string
	for _, seg := range segments[:len(segments)-1] {
		payload, ok := dataPayload(seg)
		if !ok {
			continue
		}
		if payload == DoneSentinel {
			d.done = true
			break
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// Done reports whether the stream terminator has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// decode converts newly received bytes to text, carrying an incomplete
// trailing multi-byte sequence over to the next call.
func (d *Decoder) decode(p []byte) string {
	b := append(d.partial, p...)
	d.partial = nil

	// Scan backwards for the start byte of the trailing rune. If it claims
	// more bytes than have arrived, hold the tail back for the next feed.
	cut := len(b)
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if runeLen(c) > i {
			cut = len(b) - i
		}
		break
	}
	if cut < len(b) {
		d.partial = append([]byte(nil), b[cut:]...)
	}
	return string(b[:cut])
}

// runeLen returns the encoded length a UTF-8 start byte claims. Continuation
// and invalid bytes report 1 so they pass through rather than stall.
func runeLen(c byte) int {
	switch {
	case c < 0x80:
		return 1
	case c&0xE0 == 0xC0:
		return 2
	case c&0xF0 == 0xE0:
		return 3
	case c&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// dataPayload strips the "data:" prefix (and the optional single space after
// the colon, per the SSE spec) from a complete line. Returns false for lines
// that carry no data field.
func dataPayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := strings.TrimPrefix(line, dataPrefix)
	payload = strings.TrimPrefix(payload, " ")
	return payload, true
}
