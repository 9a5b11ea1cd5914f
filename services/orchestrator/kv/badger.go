// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore is the production Store, backed by a local Badger database.
//
// # Description
//
// Badger provides native per-entry TTL and serializable transactions.
// GetDel runs read-and-delete inside one read-write transaction, so two
// concurrent consumers of the same key conflict at commit time and only
// one observes the value; the loser retries and finds the key gone.
//
// # Thread Safety
//
// All methods are safe for concurrent use; Badger serializes conflicting
// transactions internally.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logger is noisy; slog covers our needs.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", dir, err)
	}
	slog.Info("Badger KV store opened", "dir", dir)
	return &BadgerStore{db: db}, nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// GetDel implements Store.
//
// Read and delete run in one transaction. On a commit conflict the
// transaction is retried once; the retry observes the key already gone
// and reports absence, which is the contract.
func (s *BadgerStore) GetDel(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	run := func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				found = false
				return nil
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				value = string(val)
				return nil
			}); err != nil {
				return err
			}
			found = true
			return txn.Delete([]byte(key))
		})
	}

	err := run()
	if errors.Is(err, badger.ErrConflict) {
		value, found = "", false
		err = run()
	}
	if err != nil {
		return "", false, fmt.Errorf("badger getdel %s: %w", key, err)
	}
	return value, found, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
