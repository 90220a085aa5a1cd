// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is one recorded provider interaction.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	ProviderID string        `json:"provider_id"`
	Model      string        `json:"model"`
	Operation  string        `json:"operation"` // "chat" or "categorize"
	Success    bool          `json:"success"`
	ErrorCode  int           `json:"error_code"`
	UsedRemote bool          `json:"used_remote"`

	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Latency          time.Duration `json:"latency"`
}

// NewEvent stamps a fresh event with an ID and timestamp.
func NewEvent(providerID, model, operation string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		ProviderID: providerID,
		Model:      model,
		Operation:  operation,
	}
}

// =============================================================================
// SINKS
// =============================================================================

// Sink receives usage events. Record must never block a request path for
// long and must swallow its own errors; callers fire and forget.
type Sink interface {
	Record(evt *Event)
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(*Event) {}
func (NopSink) Close() error  { return nil }

// LogSink writes one line per event to the process log.
type LogSink struct{}

func (LogSink) Record(evt *Event) {
	log.Printf("usage: provider=%s model=%s op=%s success=%v code=%d remote=%v tokens=%d/%d latency=%s",
		evt.ProviderID, evt.Model, evt.Operation, evt.Success, evt.ErrorCode,
		evt.UsedRemote, evt.PromptTokens, evt.CompletionTokens, evt.Latency)
}

func (LogSink) Close() error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink []Sink

func (m MultiSink) Record(evt *Event) {
	for _, s := range m {
		s.Record(evt)
	}
}

func (m MultiSink) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
