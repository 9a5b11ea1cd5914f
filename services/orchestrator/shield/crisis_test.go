// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCrisisStore_OneActivePerUser(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryCrisisStore()

	t.Run("concurrent opens converge on one session", func(t *testing.T) {
		const goroutines = 16
		var wg sync.WaitGroup
		ids := make(chan string, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				session, _, err := store.Open(ctx, "u1", "act")
				if err != nil {
					t.Errorf("Open failed: %v", err)
					return
				}
				ids <- session.ID
			}()
		}
		wg.Wait()
		close(ids)

		distinct := make(map[string]bool)
		for id := range ids {
			distinct[id] = true
		}
		if len(distinct) != 1 {
			t.Errorf("got %d distinct sessions, want 1", len(distinct))
		}
	})

	t.Run("resolution is terminal and frees the user", func(t *testing.T) {
		session, _, err := store.Open(ctx, "u2", "act")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := store.Resolve(ctx, "u2", session.ID); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		// Resolving again is a no-op, not an error.
		if err := store.Resolve(ctx, "u2", session.ID); err != nil {
			t.Errorf("second Resolve should be a no-op, got %v", err)
		}

		// A new high signal opens a fresh session, never reopens the old one.
		next, created, err := store.Open(ctx, "u2", "act2")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !created || next.ID == session.ID {
			t.Errorf("got session %s (created=%v), want a fresh one", next.ID, created)
		}
	})

	t.Run("resolve enforces ownership and existence", func(t *testing.T) {
		session, _, _ := store.Open(ctx, "u3", "act")

		if err := store.Resolve(ctx, "other", session.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("cross-user resolve = %v, want ErrForbidden", err)
		}
		if err := store.Resolve(ctx, "u3", "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("unknown session resolve = %v, want ErrNotFound", err)
		}
	})
}
