// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/knotlink/internal/cache"
)

const keyPrefix = "flow:"

// Store persists flows in a TTL cache. Read-modify-write cycles are
// serialized per process; flows are per-browser so cross-process races
// are not guarded.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

// NewStore wraps c. Every write refreshes the flow's TTL.
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

// Load returns the stored flow or a fresh idle one.
func (s *Store) Load(ctx context.Context, id string) (Flow, error) {
	raw, ok, err := s.cache.Get(ctx, keyPrefix+id)
	if err != nil {
		return Flow{}, fmt.Errorf("load flow: %w", err)
	}
	if !ok {
		return New(id), nil
	}
	var f Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		// A corrupt snapshot is replaced rather than blocking the browser.
		return New(id), nil
	}
	f.ID = id
	return f, nil
}

// Save writes f.
func (s *Store) Save(ctx context.Context, f Flow) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	if err := s.cache.Set(ctx, keyPrefix+f.ID, raw, s.ttl); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

// Update loads the flow, applies fn and saves the result. Nothing is saved
// when fn fails.
func (s *Store) Update(ctx context.Context, id string, fn func(*Flow) error) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.Load(ctx, id)
	if err != nil {
		return Flow{}, err
	}
	if err := fn(&f); err != nil {
		return f, err
	}
	if err := s.Save(ctx, f); err != nil {
		return f, err
	}
	return f, nil
}

// Ping checks the backing cache.
func (s *Store) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
