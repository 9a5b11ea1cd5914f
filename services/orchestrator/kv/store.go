// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kv provides the key-value store abstraction used by the Shield
// for pending messages and ack tokens.
//
// Two implementations exist: a Badger-backed store for production (native
// TTL, durable across restarts) and an in-memory store for tests.
package kv

import (
	"context"
	"time"
)

// Store is a string key-value store with per-key TTL.
//
// # Description
//
// Get reports presence explicitly so callers can distinguish "absent"
// from "empty value". GetDel is the atomic consume primitive: under
// concurrent calls for the same key, at most one caller observes the
// value. The Shield's consent flow depends on this — two confirmations
// racing on one activation must not both receive the staged message.
//
// # Thread Safety
//
// All methods must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, whether it exists, and any error.
	// Expired keys are reported as absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically returns and removes the value for key.
	// At most one concurrent caller observes the value.
	GetDel(ctx context.Context, key string) (string, bool, error)

	// Close releases underlying resources.
	Close() error
}
