package state

import (
	"context"
	"sync"
)

// MemoryStore is a Store that lives only as long as the process
type MemoryStore struct {
	mu    sync.Mutex
	ids   []string
	saves int
	err   error
}

// NewMemoryStore returns a store pre-filled with ids
func NewMemoryStore(ids ...string) *MemoryStore {
	return &MemoryStore{ids: append([]string(nil), ids...)}
}

func (s *MemoryStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...), nil
}

func (s *MemoryStore) Save(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append([]string(nil), ids...)
	s.saves++
	return nil
}

// Saves returns how many successful saves happened
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes every following Save return err; nil restores normal saves
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
