// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/kv"
)

const (
	pendingKeyPrefix = "pending:"

	// PendingTTL bounds how long a staged message waits for consent.
	PendingTTL = 900 * time.Second
)

// PendingStore stages messages behind the consent flow, keyed by
// activation ID in the KV store.
type PendingStore struct {
	store kv.Store
}

// NewPendingStore creates a store over the given KV backend.
func NewPendingStore(store kv.Store) *PendingStore {
	return &PendingStore{store: store}
}

// Put stages msg under "pending:{activationId}" with the standard TTL.
func (p *PendingStore) Put(ctx context.Context, msg *PendingMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal pending message %s: %w", msg.ActivationID, err)
	}
	if err := p.store.Set(ctx, pendingKeyPrefix+msg.ActivationID, string(payload), PendingTTL); err != nil {
		return fmt.Errorf("stage pending message %s: %w", msg.ActivationID, err)
	}
	return nil
}

// Take atomically consumes the staged message for activationID.
// Returns (nil, false, nil) when the key is absent — already consumed
// or expired. At most one concurrent caller receives the message.
func (p *PendingStore) Take(ctx context.Context, activationID string) (*PendingMessage, bool, error) {
	payload, found, err := p.store.GetDel(ctx, pendingKeyPrefix+activationID)
	if err != nil {
		return nil, false, fmt.Errorf("consume pending message %s: %w", activationID, err)
	}
	if !found {
		return nil, false, nil
	}

	var msg PendingMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, false, fmt.Errorf("decode pending message %s: %w", activationID, err)
	}
	return &msg, true, nil
}
