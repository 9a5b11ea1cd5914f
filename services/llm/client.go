// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides LLM backend clients for the orchestrator.
package llm

import (
	"context"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// GenerationParams tunes a single generation call. Nil pointer fields
// fall back to backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType discriminates streaming callback events.
type StreamEventType int

const (
	// StreamEventToken carries one token of generated text.
	StreamEventToken StreamEventType = iota

	// StreamEventThinking carries extended-thinking content.
	StreamEventThinking

	// StreamEventError carries a backend error message.
	StreamEventError
)

// StreamEvent is one event delivered to a StreamCallback.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Error   string
}

// StreamCallback receives events as the backend generates them.
// Returning a non-nil error aborts the stream (e.g., client disconnect).
// Callbacks are invoked in token order from a single goroutine.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
//
// # Description
//
// One client instance serves every generation need of the pipeline:
// single-prompt classification (Generate), buffered conversation
// responses (Chat), and live token streaming (ChatStream).
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; many pipeline runs
// share one client.
type LLMClient interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat conducts a conversation with message history and returns the
	// full response.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream streams a conversation response token-by-token through
	// the callback. Returns after the stream completes or the callback
	// aborts it.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error
}
