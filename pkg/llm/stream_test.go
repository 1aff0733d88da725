package llm_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latchfield/parley/pkg/llm"
)

const sampleStream = "data: {\"type\":\"text\",\"content\":\"Hel\"}\n\n" +
	"data: {\"type\":\"text\",\"content\":\"lo 世界\"}\n\n" +
	"data: {\"type\":\"done\"}\n\n"

func collectEvents(dec *llm.EventDecoder, raw []byte, chunkSize int) []llm.StreamEvent {
	var events []llm.StreamEvent
	for start := 0; start < len(raw); start += chunkSize {
		end := start + chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		events = append(events, dec.Feed(raw[start:end])...)
	}
	return events
}

func TestEventDecoderChunkingInvariance(t *testing.T) {
	raw := []byte(sampleStream)
	reference := collectEvents(llm.NewEventDecoder(), raw, len(raw))

	require.Len(t, reference, 3)
	assert.Equal(t, "Hel", reference[0].Content)
	assert.Equal(t, "lo 世界", reference[1].Content)
	assert.True(t, reference[2].Terminal())

	for size := 1; size < len(raw); size++ {
		dec := llm.NewEventDecoder()
		events := collectEvents(dec, raw, size)

		assert.Equal(t, reference, events, fmt.Sprintf("chunk size %d", size))
		assert.True(t, dec.Terminal(), fmt.Sprintf("chunk size %d", size))
		assert.Zero(t, dec.Malformed(), fmt.Sprintf("chunk size %d", size))
	}
}

func TestEventDecoderSwallowsMalformedLines(t *testing.T) {
	dec := llm.NewEventDecoder()

	events := dec.Feed([]byte("data: {\"type\":\"text\",\"content\":\"a\"}\n\n" +
		"data: {not json\n\n" +
		"data: {\"type\":\"unknown\"}\n\n" +
		"data: {\"type\":\"text\",\"content\":\"b\"}\n\n"))

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Content)
	assert.Equal(t, "b", events[1].Content)
	assert.Equal(t, 2, dec.Malformed())
}

func TestEventDecoderStopsAfterTerminal(t *testing.T) {
	dec := llm.NewEventDecoder()

	events := dec.Feed([]byte("data: {\"type\":\"error\",\"message\":\"boom\"}\n\n" +
		"data: {\"type\":\"text\",\"content\":\"late\"}\n\n"))

	require.Len(t, events, 1)
	assert.Equal(t, llm.EventError, events[0].Type)
	assert.True(t, dec.Terminal())

	assert.Nil(t, dec.Feed([]byte("data: {\"type\":\"text\",\"content\":\"more\"}\n\n")))
}

func TestEventDecoderNormalizesTerminator(t *testing.T) {
	// The wire terminator "[DONE]" becomes a done event.
	dec := llm.NewEventDecoder()

	events := dec.Feed([]byte("data: {\"type\":\"text\",\"content\":\"x\"}\n\ndata: [DONE]\n\n"))

	require.Len(t, events, 2)
	assert.Equal(t, llm.EventDone, events[1].Type)
	assert.True(t, dec.Terminal())
}

func TestEventStreamDeliversThenEOF(t *testing.T) {
	s := llm.NewEventStream(io.NopCloser(strings.NewReader(sampleStream)))
	defer s.Close()

	var contents []string
	for {
		ev, err := s.Next()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		if ev.Type == llm.EventText {
			contents = append(contents, ev.Content)
		}
		if ev.Terminal() {
			assert.Equal(t, llm.EventDone, ev.Type)
		}
	}

	assert.Equal(t, []string{"Hel", "lo 世界"}, contents)
	assert.Zero(t, s.Malformed())
}

func TestEventStreamEOFWithoutTerminal(t *testing.T) {
	// Body cut mid-reply: the text events arrive, then io.EOF with no
	// terminal event in between.
	s := llm.NewEventStream(io.NopCloser(strings.NewReader(
		"data: {\"type\":\"text\",\"content\":\"partial\"}\n\n")))
	defer s.Close()

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Content)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}
