package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process fallback when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

type entry struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, identifier string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok || s.now().After(e.expiresAt) {
		e = &entry{expiresAt: s.now().Add(window)}
		s.entries[identifier] = e
	}
	e.count++
	return e.count, nil
}

func (s *MemoryStore) Failures(_ context.Context, identifier string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok || s.now().After(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identifier)
	return nil
}
