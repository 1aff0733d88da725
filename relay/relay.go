// Package relay provides the streaming relay between voice chat clients and
// the upstream text-generation provider. It accepts a conversation history,
// opens an upstream token stream, and re-emits each token as one SSE event
// in arrival order.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/latchfield/parley/pkg/llm"
	"github.com/latchfield/parley/pkg/sse"
	"github.com/latchfield/parley/pkg/upstream"
)

const chatPath = "/api/chat"
const ttsPath = "/api/tts"

// errorResponse is the JSON body of pre-stream failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Relay is the SSE relay server.
type Relay struct {
	config   Config
	upstream *upstream.Client
	logger   *zap.Logger
	server   *fiber.App
}

// New creates a Relay backed by the given upstream client.
func New(config Config, client *upstream.Client, logger *zap.Logger) (*Relay, error) {
	if client == nil {
		return nil, errors.New("upstream client is required")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	app.Use(compress.New())

	r := &Relay{
		config:   config,
		upstream: client,
		logger:   logger,
		server:   app,
	}

	app.Options(chatPath, r.handlePreflight)
	app.Post(chatPath, r.handleChat)
	// The submission paths accept POST and the CORS pre-flight only; every
	// other method falls through to the 405 handler.
	app.All(chatPath, r.handleMethodNotAllowed)
	if config.Synth != nil {
		app.Options(ttsPath, r.handlePreflight)
		app.Post(ttsPath, r.handleTTS)
		app.All(ttsPath, r.handleMethodNotAllowed)
	}

	return r, nil
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
	)
	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		zap.String("listen", listener.Addr().String()),
	)
	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay.
func (r *Relay) Close() error {
	return r.server.Shutdown()
}

// corsHeaders allows browser clients on any origin to call the relay.
func corsHeaders(c *fiber.Ctx) {
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Content-Type")
}

// handlePreflight answers the CORS pre-flight negotiation: 200, empty body.
func (r *Relay) handlePreflight(c *fiber.Ctx) error {
	corsHeaders(c)
	return c.SendStatus(fiber.StatusOK)
}

func (r *Relay) handleMethodNotAllowed(c *fiber.Ctx) error {
	corsHeaders(c)
	return c.Status(fiber.StatusMethodNotAllowed).JSON(errorResponse{Error: "method not allowed"})
}

// handleChat accepts {messages, systemMessage?} and streams the reply as SSE.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	corsHeaders(c)

	req, err := parseChatRequest(c.Body())
	if err != nil {
		r.logger.Warn("invalid chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, while the streaming
	// goroutine keeps the upstream connection open past that point.
	tokens, err := r.upstream.Stream(context.Background(), *req)
	if err != nil {
		// Nothing has been written yet, so a plain error response is
		// still possible here.
		r.logger.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: err.Error()})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// io.Pipe gives direct backpressure: pw.Write blocks until fasthttp's
	// chunked writer consumes the data, so every token reaches the TCP
	// socket as soon as it arrives instead of coalescing in memory.
	pr, pw := io.Pipe()
	go r.pumpTokens(tokens, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// pumpTokens forwards the upstream token sequence to the client, one SSE
// event per token, in arrival order. Errors raised mid-stream are emitted as
// one in-band error event because the status line is already committed.
func (r *Relay) pumpTokens(tokens *upstream.TokenStream, pw *io.PipeWriter) {
	defer pw.Close()
	defer tokens.Close()

	w := sse.NewWriter(pw)
	count := 0

	for {
		delta, err := tokens.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if werr := w.WriteDone(); werr != nil {
					r.logger.Debug("client went away before terminator", zap.Error(werr))
				}
				r.logger.Debug("stream complete", zap.Int("token_count", count))
				return
			}
			r.logger.Error("upstream stream failed", zap.Error(err))
			if werr := w.WriteEvent(llm.ErrorEvent(err.Error())); werr != nil {
				r.logger.Debug("client went away before error event", zap.Error(werr))
			}
			return
		}

		count++
		if werr := w.WriteEvent(llm.TextEvent(delta)); werr != nil {
			// Client hung up; drop the upstream connection too.
			r.logger.Debug("client write failed", zap.Error(werr))
			return
		}
	}
}

// parseChatRequest validates the submission body. The messages field must be
// present and must be an array; anything else is client error, reported
// before any stream is opened.
func parseChatRequest(body []byte) (*llm.ChatRequest, error) {
	var probe struct {
		Messages      json.RawMessage `json:"messages"`
		SystemMessage string          `json:"systemMessage"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.New("invalid request body")
	}
	raw := strings.TrimSpace(string(probe.Messages))
	if raw == "" || raw == "null" {
		return nil, errors.New("messages is required")
	}
	if !strings.HasPrefix(raw, "[") {
		return nil, errors.New("messages must be an array")
	}

	var messages []llm.Turn
	if err := json.Unmarshal(probe.Messages, &messages); err != nil {
		return nil, errors.New("messages must be an array of {role, content}")
	}

	return &llm.ChatRequest{
		Messages:      messages,
		SystemMessage: probe.SystemMessage,
	}, nil
}

// handleTTS forwards finalized text to the synthesis backend and returns the
// binary audio payload.
func (r *Relay) handleTTS(c *fiber.Ctx) error {
	corsHeaders(c)

	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "no text provided"})
	}

	audio, err := r.config.Synth.Synthesize(c.Context(), req.Text)
	if err != nil {
		r.logger.Error("synthesis failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: err.Error()})
	}

	c.Set("Content-Type", "audio/mpeg")
	return c.Send(audio)
}
