package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/latchfield/parley/pkg/llm"
)

// Default keys for the persisted client state.
const (
	KeyHistory      = "history"
	KeySystemPrompt = "system_prompt"
	KeyAutoSpeak    = "auto_speak"
)

// StateStore persists the conversation history and the two client settings
// on top of a Store. Absent keys fall back to the documented defaults: empty
// history, empty custom prompt (the relay applies its own default), and
// auto-speak enabled.
type StateStore struct {
	kv Store
}

// NewStateStore wraps a Store.
func NewStateStore(kv Store) *StateStore {
	return &StateStore{kv: kv}
}

// Close releases the underlying store.
func (s *StateStore) Close() error {
	return s.kv.Close()
}

// History loads the persisted conversation history.
func (s *StateStore) History(ctx context.Context) (llm.History, error) {
	data, err := s.kv.Get(ctx, KeyHistory)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	var history llm.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return history, nil
}

// SaveHistory persists the conversation history as a JSON array of turns.
func (s *StateStore) SaveHistory(ctx context.Context, history llm.History) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := s.kv.Set(ctx, KeyHistory, data); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// ClearHistory removes the persisted history entirely.
func (s *StateStore) ClearHistory(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyHistory)
}

// SystemPrompt returns the custom system prompt, or "" when unset.
func (s *StateStore) SystemPrompt(ctx context.Context) (string, error) {
	data, err := s.kv.Get(ctx, KeySystemPrompt)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading system prompt: %w", err)
	}
	return string(data), nil
}

// SetSystemPrompt stores the custom system prompt. An empty prompt clears
// the override.
func (s *StateStore) SetSystemPrompt(ctx context.Context, prompt string) error {
	if prompt == "" {
		return s.kv.Delete(ctx, KeySystemPrompt)
	}
	return s.kv.Set(ctx, KeySystemPrompt, []byte(prompt))
}

// AutoSpeak returns the auto-speak flag. Defaults to true when unset.
func (s *StateStore) AutoSpeak(ctx context.Context) (bool, error) {
	data, err := s.kv.Get(ctx, KeyAutoSpeak)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading auto-speak flag: %w", err)
	}
	return string(data) == "true", nil
}

// SetAutoSpeak stores the auto-speak flag.
func (s *StateStore) SetAutoSpeak(ctx context.Context, on bool) error {
	val := "false"
	if on {
		val = "true"
	}
	return s.kv.Set(ctx, KeyAutoSpeak, []byte(val))
}
