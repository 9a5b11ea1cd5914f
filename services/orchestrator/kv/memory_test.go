// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kv

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("get absent key reports not found", func(t *testing.T) {
		_, found, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if found {
			t.Error("absent key should not be found")
		}
	})

	t.Run("set then get returns value", func(t *testing.T) {
		if err := store.Set(ctx, "k1", "v1", 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		val, found, err := store.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found || val != "v1" {
			t.Errorf("got (%q, %v), want (\"v1\", true)", val, found)
		}
	})

	t.Run("delete removes key", func(t *testing.T) {
		_ = store.Set(ctx, "k2", "v2", 0)
		if err := store.Delete(ctx, "k2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		_, found, _ := store.Get(ctx, "k2")
		if found {
			t.Error("deleted key should not be found")
		}
	})
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStoreWithClock(func() time.Time { return clock() })

	if err := store.Set(ctx, "pending:abc", "payload", 900*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	t.Run("before expiry the key is visible", func(t *testing.T) {
		_, found, _ := store.Get(ctx, "pending:abc")
		if !found {
			t.Error("key should be visible before expiry")
		}
	})

	t.Run("after expiry the key is gone", func(t *testing.T) {
		clock = func() time.Time { return now.Add(901 * time.Second) }
		_, found, _ := store.Get(ctx, "pending:abc")
		if found {
			t.Error("key should be gone after expiry")
		}
	})
}

func TestMemoryStore_GetDel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("first consume returns value, second reports absent", func(t *testing.T) {
		_ = store.Set(ctx, "k", "v", 0)

		val, found, err := store.GetDel(ctx, "k")
		if err != nil {
			t.Fatalf("GetDel failed: %v", err)
		}
		if !found || val != "v" {
			t.Errorf("first GetDel got (%q, %v), want (\"v\", true)", val, found)
		}

		_, found, err = store.GetDel(ctx, "k")
		if err != nil {
			t.Fatalf("second GetDel failed: %v", err)
		}
		if found {
			t.Error("second GetDel should report absent")
		}
	})

	t.Run("exactly one concurrent consumer wins", func(t *testing.T) {
		_ = store.Set(ctx, "race", "payload", 0)

		const goroutines = 32
		var wg sync.WaitGroup
		winners := make(chan string, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if val, found, _ := store.GetDel(ctx, "race"); found {
					winners <- val
				}
			}()
		}
		wg.Wait()
		close(winners)

		count := 0
		for range winners {
			count++
		}
		if count != 1 {
			t.Errorf("expected exactly 1 winner, got %d", count)
		}
	})
}
