// Package history persists the approved reports as one JSON array in a KV store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"financewatch/internal/core"
	"financewatch/internal/logger"
	"financewatch/internal/store"
	"financewatch/internal/workflow"
)

// DefaultKey is the key the history array is stored under.
const DefaultKey = "finance-watch-history"

// Store reads and writes the history array.
type Store struct {
	kv  store.KV
	key string
}

var _ workflow.HistoryRepository = (*Store)(nil)

// New returns a Store over kv. An empty key uses DefaultKey.
func New(kv store.KV, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted history, most recent first.
// A missing key yields an empty history. A value that does not decode is
// discarded: it is logged, deleted and an empty history is returned.
func (s *Store) Load(ctx context.Context) ([]core.HistoryEntry, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return []core.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []core.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn("Discarding unreadable history", "key", s.key, "error", err.Error(), "bytes", len(raw))
		if delErr := s.kv.Delete(ctx, s.key); delErr != nil {
			logger.Error("Failed to delete unreadable history", delErr, "key", s.key)
		}
		return []core.HistoryEntry{}, nil
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}

	return workflow.TruncateHistory(entries), nil
}

// Save overwrites the stored array with history capped at workflow.HistoryLimit.
func (s *Store) Save(ctx context.Context, history []core.HistoryEntry) error {
	history = workflow.TruncateHistory(history)
	if history == nil {
		history = []core.HistoryEntry{}
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	logger.Debug("History saved", "key", s.key, "entries", len(history))
	return nil
}

// Clear removes the stored history.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Latest returns the most recent approved entry.
func (s *Store) Latest(ctx context.Context) (core.HistoryEntry, bool, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return core.HistoryEntry{}, false, err
	}
	if len(entries) == 0 {
		return core.HistoryEntry{}, false, nil
	}
	return entries[0], true, nil
}
