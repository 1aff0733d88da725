package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/latchfield/parley/pkg/llm"
	"github.com/latchfield/parley/pkg/llm/provider/openai"
	parleylogger "github.com/latchfield/parley/pkg/logger"
	"github.com/latchfield/parley/pkg/upstream"
)

// newTestRelay creates a Relay pointed at the given upstream URL using the
// openai provider.
func newTestRelay(upstreamURL string, synth Synthesizer) *Relay {
	client := upstream.NewClient(upstream.Config{
		BaseURL: upstreamURL,
		Model:   "gemma3:latest",
	}, openai.New())

	r, err := New(Config{ListenAddr: ":0", Synth: synth}, client, parleylogger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return r
}

// makeChatBody builds a JSON-encoded relay submission.
func makeChatBody(messages []llm.Turn, systemMessage string) string {
	body, err := json.Marshal(llm.ChatRequest{
		Messages:      messages,
		SystemMessage: systemMessage,
	})
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

func postChat(r *Relay, body string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.server.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

// readEvents decodes the full SSE response body into typed events.
func readEvents(resp *http.Response) ([]llm.StreamEvent, string) {
	defer resp.Body.Close()

	stream := llm.NewEventStream(resp.Body)
	defer stream.Close()

	var events []llm.StreamEvent
	var full strings.Builder
	for {
		ev, err := stream.Next()
		if err != nil {
			break
		}
		events = append(events, ev)
		if ev.Type == llm.EventText {
			full.WriteString(ev.Content)
		}
	}
	return events, full.String()
}

var _ = Describe("SSE relay", func() {
	var (
		r           *Relay
		upstreamSrv *httptest.Server
	)

	AfterEach(func() {
		if r != nil {
			r.Close()
			r = nil
		}
		if upstreamSrv != nil {
			upstreamSrv.Close()
			upstreamSrv = nil
		}
	})

	Context("when the upstream streams an OpenAI response", func() {
		BeforeEach(func() {
			upstreamSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				flusher, ok := w.(http.Flusher)
				Expect(ok).To(BeTrue())

				events := []string{
					"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\",\"content\":\"Hello\"}}]}\n\n",
					"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n",
					"data: {\"choices\":[{\"delta\":{\"content\":\"!\"}}]}\n\n",
					"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n",
					"data: [DONE]\n\n",
				}
				for _, event := range events {
					fmt.Fprint(w, event)
					flusher.Flush()
				}
			}))
			r = newTestRelay(upstreamSrv.URL, nil)
		})

		It("re-emits each token as one SSE event in arrival order", func() {
			resp := postChat(r, makeChatBody([]llm.Turn{
				{Role: llm.RoleUser, Content: "Say hello"},
			}, ""))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))

			events, full := readEvents(resp)
			Expect(events).To(HaveLen(4))
			Expect(events[0]).To(Equal(llm.TextEvent("Hello")))
			Expect(events[1]).To(Equal(llm.TextEvent(" world")))
			Expect(events[2]).To(Equal(llm.TextEvent("!")))
			Expect(events[3].Type).To(Equal(llm.EventDone))
			Expect(full).To(Equal("Hello world!"))
		})

		It("preserves SSE event boundaries with \\n\\n delimiters", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(
				makeChatBody([]llm.Turn{{Role: llm.RoleUser, Content: "Say hello"}}, ""),
			))
			resp, err := r.server.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body := make([]byte, 0, 1024)
			buf := make([]byte, 512)
			for {
				n, rerr := resp.Body.Read(buf)
				body = append(body, buf[:n]...)
				if rerr != nil {
					break
				}
			}
			bodyStr := string(body)

			Expect(bodyStr).To(ContainSubstring("data: {\"type\":\"text\",\"content\":\"Hello\"}\n\n"))
			Expect(bodyStr).To(HaveSuffix("data: [DONE]\n\n"))
			Expect(strings.Count(bodyStr, "\n\n")).To(Equal(4))
		})

		It("answers the CORS pre-flight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
			resp, err := r.server.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})

		It("rejects other methods with 405", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
			resp, err := r.server.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Context("when the submission is invalid", func() {
		BeforeEach(func() {
			upstreamSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				defer GinkgoRecover()
				Fail("upstream must not be contacted for invalid input")
			}))
			r = newTestRelay(upstreamSrv.URL, nil)
		})

		It("rejects a body without messages", func() {
			resp := postChat(r, `{}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-array messages field", func() {
			resp := postChat(r, `{"messages":"hi"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a body that is not JSON", func() {
			resp := postChat(r, `not json at all`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Context("when the upstream fails before streaming", func() {
		BeforeEach(func() {
			upstreamSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			}))
			r = newTestRelay(upstreamSrv.URL, nil)
		})

		It("reports 502 with the upstream message", func() {
			resp := postChat(r, makeChatBody([]llm.Turn{
				{Role: llm.RoleUser, Content: "hi"},
			}, ""))
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var body errorResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Error).To(ContainSubstring("model not found"))
		})
	})

	Context("when the upstream connection dies mid-stream", func() {
		BeforeEach(func() {
			upstreamSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "text/event-stream")
				flusher, ok := w.(http.Flusher)
				Expect(ok).To(BeTrue())

				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
				flusher.Flush()

				// Drop the connection without a terminating chunk so the
				// relay's next read fails instead of reaching a clean EOF.
				hj, ok := w.(http.Hijacker)
				Expect(ok).To(BeTrue())
				conn, _, err := hj.Hijack()
				Expect(err).NotTo(HaveOccurred())
				conn.Close()
			}))
			r = newTestRelay(upstreamSrv.URL, nil)
		})

		It("emits one in-band error event as the last event", func() {
			resp := postChat(r, makeChatBody([]llm.Turn{
				{Role: llm.RoleUser, Content: "hi"},
			}, ""))

			// The status line was committed before the failure.
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			events, full := readEvents(resp)
			Expect(full).To(Equal("Hel"))

			last := events[len(events)-1]
			Expect(last.Type).To(Equal(llm.EventError))
			Expect(last.Message).NotTo(BeEmpty())

			errorCount := 0
			for _, ev := range events {
				if ev.Type == llm.EventError {
					errorCount++
				}
			}
			Expect(errorCount).To(Equal(1))
		})
	})

	Context("when the upstream ends without a finish marker", func() {
		BeforeEach(func() {
			upstreamSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
			}))
			r = newTestRelay(upstreamSrv.URL, nil)
		})

		It("still terminates the client stream", func() {
			resp := postChat(r, makeChatBody([]llm.Turn{
				{Role: llm.RoleUser, Content: "hi"},
			}, ""))

			events, full := readEvents(resp)
			Expect(full).To(Equal("partial"))
			Expect(events[len(events)-1].Terminal()).To(BeTrue())
		})
	})
})
