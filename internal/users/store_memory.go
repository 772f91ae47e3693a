package users

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"iaset/pkg/platform/sentinel"
)

// MemoryStore keeps users in process memory. It enforces the same uniqueness
// rules as the SQL schema so services behave identically under test.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]*User)}
}

func (s *MemoryStore) Create(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts(user, 0) {
		return nil, fmt.Errorf("create user: %w", sentinel.ErrConflict)
	}

	s.nextID++
	now := time.Now()

	stored := *user
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		out := *user
		return &out, nil
	}
	return nil, fmt.Errorf("find user by id: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) FindByEmailOrCPF(_ context.Context, identifier string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == identifier || user.CPF == identifier {
			out := *user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find user by email or cpf: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) FindByUniqueFields(_ context.Context, email, cpf string, matricula *string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email || user.CPF == cpf {
			out := *user
			return &out, nil
		}
		if matricula != nil && user.Matricula != nil && *user.Matricula == *matricula {
			out := *user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find user by unique fields: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) FindByResetToken(_ context.Context, token string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ResetToken != nil && *user.ResetToken == token {
			out := *user
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find user by reset token: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) List(_ context.Context, status *bool) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, user := range s.users {
		if status != nil && user.Status != *status {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("update user: %w", sentinel.ErrNotFound)
	}
	if s.conflicts(user, user.ID) {
		return fmt.Errorf("update user: %w", sentinel.ErrConflict)
	}

	updated := *user
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	s.users[user.ID] = &updated
	return nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id int64, digest string, firstAccess bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", sentinel.ErrNotFound)
	}
	user.Password = digest
	user.FirstAccess = firstAccess
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id int64, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("set user status: %w", sentinel.ErrNotFound)
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetResetToken(_ context.Context, id int64, token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("set reset token: %w", sentinel.ErrNotFound)
	}
	user.ResetToken = &token
	user.ResetTokenExpires = &expires
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ConsumeResetToken(_ context.Context, id int64, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("consume reset token: %w", sentinel.ErrNotFound)
	}
	user.Password = digest
	user.ResetToken = nil
	user.ResetTokenExpires = nil
	user.FirstAccess = false
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("delete user: %w", sentinel.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

// conflicts reports whether another user already claims one of the unique
// fields. Self is excluded so updates do not collide with themselves.
func (s *MemoryStore) conflicts(candidate *User, self int64) bool {
	for id, user := range s.users {
		if id == self {
			continue
		}
		if user.CPF == candidate.CPF || user.Email == candidate.Email {
			return true
		}
		if candidate.Matricula != nil && user.Matricula != nil && *user.Matricula == *candidate.Matricula {
			return true
		}
	}
	return false
}

// Snapshot copies the current state; Restore puts it back. The in-memory
// transaction runner uses the pair to emulate rollback.
func (s *MemoryStore) Snapshot() map[int64]*User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[int64]*User, len(s.users))
	for id, user := range s.users {
		copied := *user
		snap[id] = &copied
	}
	return snap
}

func (s *MemoryStore) Restore(snap map[int64]*User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap
	var maxID int64
	for id := range snap {
		if id > maxID {
			maxID = id
		}
	}
	s.nextID = maxID
}
