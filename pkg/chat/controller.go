// Package chat implements the conversation controller: it owns the in-memory
// conversation history, orchestrates one in-flight request at a time with
// cancellation, and hands completed text to speech playback.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/latchfield/parley/pkg/llm"
	"github.com/latchfield/parley/pkg/speech"
	"github.com/latchfield/parley/pkg/store"
	"github.com/latchfield/parley/pkg/utils"
)

// ErrEmptyInput is returned by Submit for input that is empty after
// trimming.
var ErrEmptyInput = errors.New("chat: empty input")

// State of the controller's request lifecycle.
type State int

const (
	// Idle: no request in flight.
	Idle State = iota

	// AwaitingResponse: one request in flight, stream being consumed.
	AwaitingResponse

	// Cancelled: the last request was explicitly stopped by the user.
	// Submitting from Cancelled behaves exactly like submitting from Idle.
	Cancelled
)

// Sink receives the controller's user-visible effects. Every call is made
// while the originating request handle is still current; once a request is
// cancelled or superseded, none of its remaining buffered events reach the
// sink. Sink implementations must not call back into the controller.
type Sink interface {
	// OnStreamStart fires when the relay accepts the submission.
	OnStreamStart()

	// OnDelta delivers one incremental text token, in arrival order.
	OnDelta(delta string)

	// OnAssistantTurn delivers the completed assistant turn after a
	// successful stream: the concatenation of every delta seen.
	OnAssistantTurn(turn llm.Turn)

	// OnError renders a user-visible error state for the current attempt.
	// No assistant turn is appended for the errored attempt.
	OnError(message string)

	// OnSpeechError reports a synthesis or playback failure. Localized
	// error status only: the conversation flow is unaffected.
	OnSpeechError(err error)
}

// handle identifies one in-flight request. The controller holds at most one
// current handle; invalidating it (new submit or explicit cancel) aborts its
// network read and silences every remaining effect.
type handle struct {
	id     uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a Controller.
type Options struct {
	// Sink receives user-visible effects. Required.
	Sink Sink

	// State persists history and settings. Optional; nil disables
	// persistence.
	State *store.StateStore

	// Speaker plays completed replies aloud. Optional.
	Speaker *speech.Coordinator

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Controller is the conversation controller for one client session. All
// session state (history, in-flight handle, settings) lives here, guarded by
// one mutex; the history is only ever mutated serially by the current
// request.
type Controller struct {
	streamer Streamer
	sink     Sink
	state    *store.StateStore
	speaker  *speech.Coordinator
	logger   *zap.Logger

	mu           sync.Mutex
	st           State
	history      llm.History
	current      *handle
	systemPrompt string
	autoSpeak    bool
}

// NewController creates a controller, loading persisted history and settings
// when a state store is configured.
func NewController(ctx context.Context, streamer Streamer, opts Options) (*Controller, error) {
	if opts.Sink == nil {
		return nil, errors.New("chat: sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		streamer:  streamer,
		sink:      opts.Sink,
		state:     opts.State,
		speaker:   opts.Speaker,
		logger:    logger,
		st:        Idle,
		autoSpeak: true,
	}

	if opts.State != nil {
		history, err := opts.State.History(ctx)
		if err != nil {
			return nil, err
		}
		prompt, err := opts.State.SystemPrompt(ctx)
		if err != nil {
			return nil, err
		}
		autoSpeak, err := opts.State.AutoSpeak(ctx)
		if err != nil {
			return nil, err
		}
		c.history = history
		c.systemPrompt = prompt
		c.autoSpeak = autoSpeak
	}

	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// History returns a copy of the conversation history.
func (c *Controller) History() llm.History {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(llm.History, len(c.history))
	copy(out, c.history)
	return out
}

// Submit appends a user turn and starts a new streaming request. If a
// request is already in flight it is cancelled first: its handle is
// invalidated before the new one starts, so none of its buffered events
// produce visible effects. Cancellation this way is silent, not an error.
func (c *Controller) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	// Sending a new message releases any active playback before anything
	// else happens.
	if c.speaker != nil {
		c.speaker.Interrupt()
	}

	c.mu.Lock()
	c.invalidateLocked()

	c.history = c.history.Append(llm.RoleUser, text)
	c.persistLocked()

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{id: uuid.New(), ctx: ctx, cancel: cancel}
	c.current = h
	c.st = AwaitingResponse

	req := llm.ChatRequest{
		Messages:      append(llm.History(nil), c.history...),
		SystemMessage: c.systemPrompt,
	}
	c.mu.Unlock()

	c.logger.Debug("submitting request",
		zap.String("request_id", h.id.String()),
		zap.Int("history_len", len(req.Messages)),
	)

	go c.run(h, req)
	return nil
}

// Cancel stops the in-flight request, if any. A distinct, silent terminal
// state: no error is rendered and no assistant turn is appended.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.invalidateLocked()
	c.st = Cancelled
}

// Clear wipes the conversation history (the only non-append mutation) and
// persists the empty history.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.persistLocked()
}

// SetSystemPrompt updates and persists the custom system prompt. Empty
// restores the relay's default.
func (c *Controller) SetSystemPrompt(ctx context.Context, prompt string) error {
	c.mu.Lock()
	c.systemPrompt = prompt
	c.mu.Unlock()
	if c.state != nil {
		return c.state.SetSystemPrompt(ctx, prompt)
	}
	return nil
}

// SetAutoSpeak updates and persists the auto-speak flag.
func (c *Controller) SetAutoSpeak(ctx context.Context, on bool) error {
	c.mu.Lock()
	c.autoSpeak = on
	c.mu.Unlock()
	if c.state != nil {
		return c.state.SetAutoSpeak(ctx, on)
	}
	return nil
}

// invalidateLocked cancels the current handle. Exactly one handle is
// invalidated; its remaining events no-op because it is no longer current.
func (c *Controller) invalidateLocked() {
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
}

// persistLocked saves the history. Persistence failures are logged, not
// fatal: the in-memory conversation stays usable.
func (c *Controller) persistLocked() {
	if c.state == nil {
		return
	}
	if err := c.state.SaveHistory(context.Background(), c.history); err != nil {
		c.logger.Warn("persisting history failed", zap.Error(err))
	}
}

// dispatch runs fn against the sink only while h is still the current
// handle. The controller mutex is held across the check and the call, so a
// cancellation cannot interleave between them.
func (c *Controller) dispatch(h *handle, fn func(Sink)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != h {
		return
	}
	fn(c.sink)
}

// run consumes one request's event stream. It owns no controller state
// directly; every effect goes through dispatch so a stale handle cannot
// mutate anything visible.
func (c *Controller) run(h *handle, req llm.ChatRequest) {
	defer h.cancel()

	stream, err := c.streamer.OpenStream(h.ctx, req)
	if err != nil {
		c.fail(h, err)
		return
	}
	defer stream.Close()

	c.dispatch(h, func(s Sink) { s.OnStreamStart() })

	var full strings.Builder
	for {
		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Body ended without a terminal event: the stream was
				// cut mid-reply.
				c.fail(h, errors.New("stream ended unexpectedly"))
			} else {
				c.fail(h, err)
			}
			return
		}

		switch ev.Type {
		case llm.EventText:
			full.WriteString(ev.Content)
			c.dispatch(h, func(s Sink) { s.OnDelta(ev.Content) })
		case llm.EventError:
			c.fail(h, errors.New(ev.Message))
			return
		case llm.EventDone:
			c.complete(h, full.String())
			return
		}
	}
}

// complete finalizes a successful stream: exactly one assistant turn is
// appended (the concatenation of all deltas, in arrival order), the history
// is persisted, and the reply is handed to speech playback.
func (c *Controller) complete(h *handle, full string) {
	c.mu.Lock()
	if c.current != h {
		c.mu.Unlock()
		return
	}
	c.history = c.history.Append(llm.RoleAssistant, full)
	c.persistLocked()
	c.current = nil
	c.st = Idle
	autoSpeak := c.autoSpeak && c.speaker != nil
	c.mu.Unlock()

	c.logger.Debug("assistant turn complete",
		zap.String("request_id", h.id.String()),
		zap.String("content", utils.Truncate(full, 80)),
	)
	c.sink.OnAssistantTurn(llm.Turn{Role: llm.RoleAssistant, Content: full})

	if autoSpeak {
		if _, err := c.speaker.Speak(context.Background(), full); err != nil {
			c.sink.OnSpeechError(err)
		}
	}
}

// fail finalizes an errored attempt: visible error state, no assistant turn.
// A cancelled handle stays silent — user-initiated aborts are not failures.
func (c *Controller) fail(h *handle, err error) {
	if h.ctx.Err() != nil {
		c.logger.Debug("request cancelled", zap.String("request_id", h.id.String()))
		return
	}

	c.mu.Lock()
	if c.current != h {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.st = Idle
	c.mu.Unlock()

	c.logger.Warn("request failed",
		zap.String("request_id", h.id.String()),
		zap.Error(err),
	)
	c.sink.OnError(err.Error())
}
