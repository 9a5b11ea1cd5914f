// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory provides the working-memory conversation store consumed
// by the pipeline's memory gate and the chat handlers.
package memory

import (
	"context"
	"sync"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// maxHistoryMessages caps how many messages are retained per
// conversation. Prevents context window overflow for long conversations.
const maxHistoryMessages = 40

// WorkingMemory stores per-conversation message history.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the streaming and
// buffered chat paths write from different requests at once.
type WorkingMemory interface {
	// AddUserMessage appends a user message to the conversation.
	AddUserMessage(ctx context.Context, conversationID, content string) error

	// AddAssistantMessage appends an assistant message to the conversation.
	AddAssistantMessage(ctx context.Context, conversationID, content string) error

	// GetMessages returns the conversation history, oldest first.
	// Unknown conversations return an empty slice, not an error.
	GetMessages(ctx context.Context, conversationID string) ([]datatypes.Message, error)
}

// InMemoryWorkingMemory is the default WorkingMemory: a bounded
// per-conversation ring kept in process memory. Durable conversation
// storage is a collaborator outside this core; anything implementing
// WorkingMemory can replace this.
type InMemoryWorkingMemory struct {
	mu            sync.RWMutex
	conversations map[string][]datatypes.Message
}

// NewInMemoryWorkingMemory creates an empty store.
func NewInMemoryWorkingMemory() *InMemoryWorkingMemory {
	return &InMemoryWorkingMemory{
		conversations: make(map[string][]datatypes.Message),
	}
}

// AddUserMessage implements WorkingMemory.
func (m *InMemoryWorkingMemory) AddUserMessage(_ context.Context, conversationID, content string) error {
	m.append(conversationID, datatypes.Message{Role: "user", Content: content})
	return nil
}

// AddAssistantMessage implements WorkingMemory.
func (m *InMemoryWorkingMemory) AddAssistantMessage(_ context.Context, conversationID, content string) error {
	m.append(conversationID, datatypes.Message{Role: "assistant", Content: content})
	return nil
}

// GetMessages implements WorkingMemory.
func (m *InMemoryWorkingMemory) GetMessages(_ context.Context, conversationID string) ([]datatypes.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.conversations[conversationID]
	out := make([]datatypes.Message, len(history))
	copy(out, history)
	return out, nil
}

// Reset drops all conversations. Test isolation only.
func (m *InMemoryWorkingMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string][]datatypes.Message)
}

func (m *InMemoryWorkingMemory) append(conversationID string, msg datatypes.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.conversations[conversationID], msg)
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	m.conversations[conversationID] = history
}

var _ WorkingMemory = (*InMemoryWorkingMemory)(nil)
