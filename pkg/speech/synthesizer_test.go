package speech_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latchfield/parley/pkg/speech"
)

func TestSynthesizeReturnsAudio(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Text

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	c := speech.NewClient(server.URL)
	audio, err := c.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "hello there", gotText)
}

func TestSynthesizeNonOKIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "voice model missing", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := speech.NewClient(server.URL)
	_, err := c.Synthesize(context.Background(), "hello")
	require.Error(t, err)

	var synthErr *speech.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, http.StatusInternalServerError, synthErr.Status)
	assert.Equal(t, "voice model missing", synthErr.Body)
}
