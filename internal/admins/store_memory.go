package admins

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"iaset/pkg/platform/sentinel"
)

// MemoryStore keeps admins in process memory, enforcing email uniqueness.
type MemoryStore struct {
	mu     sync.RWMutex
	admins map[int64]*Admin
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{admins: make(map[int64]*Admin)}
}

func (s *MemoryStore) Create(_ context.Context, admin *Admin) (*Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(admin.Email, 0) {
		return nil, fmt.Errorf("create admin: %w", sentinel.ErrConflict)
	}

	s.nextID++
	now := time.Now()

	stored := *admin
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.admins[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if admin, ok := s.admins[id]; ok {
		out := *admin
		return &out, nil
	}
	return nil, fmt.Errorf("find admin by id: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins {
		if admin.Email == email {
			out := *admin
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find admin by email: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) List(_ context.Context) ([]Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		out = append(out, *admin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, admin *Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.admins[admin.ID]
	if !ok {
		return fmt.Errorf("update admin: %w", sentinel.ErrNotFound)
	}
	if s.emailTaken(admin.Email, admin.ID) {
		return fmt.Errorf("update admin: %w", sentinel.ErrConflict)
	}

	updated := *admin
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	s.admins[admin.ID] = &updated
	return nil
}

func (s *MemoryStore) SetLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[id]
	if !ok {
		return fmt.Errorf("set last login: %w", sentinel.ErrNotFound)
	}
	admin.LastLogin = &at
	admin.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[id]; !ok {
		return fmt.Errorf("delete admin: %w", sentinel.ErrNotFound)
	}
	delete(s.admins, id)
	return nil
}

func (s *MemoryStore) emailTaken(email string, self int64) bool {
	for id, admin := range s.admins {
		if id != self && admin.Email == email {
			return true
		}
	}
	return false
}
