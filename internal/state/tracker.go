// Package state keeps the durable set of message identifiers that have
// been fully handled, so they are never triaged twice.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists the processed set as a whole. Load on a store that has
// never been written returns an empty slice.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// Tracker is the in-memory processed set backed by a Store. Every Record
// writes the full set through before returning.
type Tracker struct {
	store Store
	mu    sync.RWMutex
	ids   map[string]struct{}
}

// NewTracker creates an empty tracker; call Load before use
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		ids:   make(map[string]struct{}),
	}
}

// Load replaces the in-memory set with the stored one
func (t *Tracker) Load(ctx context.Context) error {
	ids, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load processed set: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	t.mu.Lock()
	t.ids = set
	t.mu.Unlock()
	return nil
}

// Contains reports whether id was already handled
func (t *Tracker) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.ids[id]
	return ok
}

// Len returns the size of the processed set
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// IDs returns a sorted copy of the processed set
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot()
}

// Record adds id and persists the full set. If the save fails the id is
// removed again, so the message is attempted on the next cycle.
func (t *Tracker) Record(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[id]; ok {
		return nil
	}
	t.ids[id] = struct{}{}

	if err := t.store.Save(ctx, t.snapshot()); err != nil {
		delete(t.ids, id)
		return fmt.Errorf("failed to persist processed set: %w", err)
	}
	return nil
}

// snapshot must be called with mu held
func (t *Tracker) snapshot() []string {
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
