package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latchfield/parley/pkg/chat"
	"github.com/latchfield/parley/pkg/llm"
)

func TestOpenStreamReturnsRelayEvents(t *testing.T) {
	var gotReq llm.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"text\",\"content\":\"hey\"}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	client := chat.NewRelayClient(server.URL)
	stream, err := client.OpenStream(context.Background(), llm.ChatRequest{
		Messages:      []llm.Turn{{Role: llm.RoleUser, Content: "hi"}},
		SystemMessage: "You are terse.",
	})
	require.NoError(t, err)
	defer stream.Close()

	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "You are terse.", gotReq.SystemMessage)

	ev, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, llm.TextEvent("hey"), ev)

	ev, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, llm.EventDone, ev.Type)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenStreamSurfacesRelayErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"messages is required"}`)
	}))
	defer server.Close()

	client := chat.NewRelayClient(server.URL)
	_, err := client.OpenStream(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "messages is required")
}
