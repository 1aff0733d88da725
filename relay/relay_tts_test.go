package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeSynth records the text it was asked to speak.
type fakeSynth struct {
	audio []byte
	err   error
	got   string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.got = text
	return f.audio, f.err
}

func postTTS(r *Relay, body string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.server.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("TTS endpoint", func() {
	var (
		r     *Relay
		synth *fakeSynth
	)

	AfterEach(func() {
		if r != nil {
			r.Close()
			r = nil
		}
	})

	Context("with a synthesis backend configured", func() {
		BeforeEach(func() {
			synth = &fakeSynth{audio: []byte("mp3-bytes")}
			r = newTestRelay("http://localhost:0", synth)
		})

		It("returns the audio payload", func() {
			resp := postTTS(r, `{"text":"hello there"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("audio/mpeg"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("mp3-bytes")))
			Expect(synth.got).To(Equal("hello there"))
		})

		It("rejects an empty text field", func() {
			resp := postTTS(r, `{"text":"   "}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a body that is not JSON", func() {
			resp := postTTS(r, `nope`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports synthesis failures as 502", func() {
			synth.err = errors.New("voice backend down")

			resp := postTTS(r, `{"text":"hello"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("answers the CORS pre-flight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/tts", nil)
			resp, err := r.server.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Context("without a synthesis backend", func() {
		BeforeEach(func() {
			r = newTestRelay("http://localhost:0", nil)
		})

		It("does not register the route", func() {
			resp := postTTS(r, `{"text":"hello"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
