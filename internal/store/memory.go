package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mavillena/aemet-track/internal/climate"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
// It backs tests and throwaway runs where persistence is not wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	history climate.History
	summary *climate.Summary
	state   *RunState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadHistory(_ context.Context) (climate.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.history == nil {
		return nil, fmt.Errorf("history: %w", climate.ErrNotStored)
	}
	out := make(climate.History, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, history climate.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(climate.History, len(history))
	copy(s.history, history)
	return nil
}

func (s *MemoryStore) LoadSummary(_ context.Context) (*climate.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return nil, fmt.Errorf("summary: %w", climate.ErrNotStored)
	}
	out := *s.summary
	return &out, nil
}

func (s *MemoryStore) SaveSummary(_ context.Context, summary *climate.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *summary
	s.summary = &out
	return nil
}

func (s *MemoryStore) LoadState(_ context.Context) (RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return RunState{}, fmt.Errorf("state: %w", climate.ErrNotStored)
	}
	return *s.state, nil
}

func (s *MemoryStore) SaveState(_ context.Context, state RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	return nil
}
