// Package sse implements the line-delimited server-sent-event framing used
// between the relay and its clients, and between the relay and upstream
// text-generation providers.
//
// Each event is one line of the form "data: <payload>" followed by a blank
// line. The literal payload "[DONE]" marks successful end of stream.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the literal payload of the stream terminator line.
const DoneSentinel = "[DONE]"

const dataPrefix = "data:"
