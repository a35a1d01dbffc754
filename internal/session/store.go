package session

import (
	"context"
	"errors"
	"sync"
)

var ErrUnknownSession = errors.New("unknown session")

// Store persists identities by session id.
type Store interface {
	Get(ctx context.Context, sid string) (Identity, error)
	Put(ctx context.Context, sid string, id Identity) error
	Delete(ctx context.Context, sid string) error
}

// MemoryStore keeps identities in process; used by tests and local runs.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]Identity
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{m: map[string]Identity{}} }

func (s *MemoryStore) Get(_ context.Context, sid string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.m[sid]
	if !ok {
		return Identity{}, ErrUnknownSession
	}
	return id, nil
}

func (s *MemoryStore) Put(_ context.Context, sid string, id Identity) error {
	s.mu.Lock()
	s.m[sid] = id
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.m, sid)
	s.mu.Unlock()
	return nil
}
