package conversation

import (
	"context"
	"sync"
)

// StateStore persists conversation state snapshots keyed by conversation,
// so a pending confirmation or a half-filled slot session survives a
// console restart. Neither expires on its own; a snapshot lives until the
// user acts or a newer proposal supersedes it.
type StateStore interface {
	// Load returns the stored snapshot, or nil when none exists.
	Load(ctx context.Context, key string) (*State, error)

	// Save stores the snapshot, replacing any previous one.
	Save(ctx context.Context, key string, state State) error

	// Clear removes the snapshot.
	Clear(ctx context.Context, key string) error
}

// MemoryStore is the default, process-local StateStore.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key] = state
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, key)
	return nil
}
