package dependents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"iaset/pkg/platform/sentinel"
)

// MemoryStore keeps dependents in process memory with the same cpf-uniqueness
// rule the SQL schema enforces.
type MemoryStore struct {
	mu     sync.RWMutex
	deps   map[int64]*Dependent
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deps: make(map[int64]*Dependent)}
}

func (s *MemoryStore) Create(_ context.Context, dep *Dependent) (*Dependent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cpfTaken(dep.CPF, 0) {
		return nil, fmt.Errorf("create dependent: %w", sentinel.ErrConflict)
	}

	stored := s.insert(dep)
	out := *stored
	return &out, nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, deps []Dependent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch, including collisions within it, before any
	// insert so a failure never leaves a partial batch behind.
	seen := make(map[string]bool)
	for i := range deps {
		cpf := deps[i].CPF
		if cpf == nil {
			continue
		}
		if seen[*cpf] || s.cpfTaken(cpf, 0) {
			return fmt.Errorf("create dependents batch: %w", sentinel.ErrConflict)
		}
		seen[*cpf] = true
	}

	for i := range deps {
		s.insert(&deps[i])
	}
	return nil
}

func (s *MemoryStore) insert(dep *Dependent) *Dependent {
	s.nextID++
	now := time.Now()

	stored := *dep
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.deps[stored.ID] = &stored
	return &stored
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Dependent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dep, ok := s.deps[id]; ok {
		out := *dep
		return &out, nil
	}
	return nil, fmt.Errorf("find dependent by id: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) FindByUser(_ context.Context, id, userID int64) (*Dependent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dep, ok := s.deps[id]; ok && dep.UserID == userID {
		out := *dep
		return &out, nil
	}
	return nil, fmt.Errorf("find dependent by user: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) ListByUser(_ context.Context, userID int64) ([]Dependent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Dependent, 0)
	for _, dep := range s.deps {
		if dep.UserID == userID {
			out = append(out, *dep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, status *bool, order string) ([]Dependent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Dependent, 0)
	for _, dep := range s.deps {
		if status != nil && dep.Status != *status {
			continue
		}
		out = append(out, *dep)
	}
	sort.Slice(out, func(i, j int) bool {
		if order == "asc" {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, dep *Dependent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.deps[dep.ID]
	if !ok || current.UserID != dep.UserID {
		return fmt.Errorf("update dependent: %w", sentinel.ErrNotFound)
	}
	if s.cpfTaken(dep.CPF, dep.ID) {
		return fmt.Errorf("update dependent: %w", sentinel.ErrConflict)
	}

	updated := *dep
	updated.UserID = current.UserID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	s.deps[dep.ID] = &updated
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id int64, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.deps[id]
	if !ok {
		return fmt.Errorf("set dependent status: %w", sentinel.ErrNotFound)
	}
	dep.Status = status
	dep.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.deps[id]
	if !ok || dep.UserID != userID {
		return fmt.Errorf("delete dependent: %w", sentinel.ErrNotFound)
	}
	delete(s.deps, id)
	return nil
}

func (s *MemoryStore) cpfTaken(cpf *string, self int64) bool {
	if cpf == nil {
		return false
	}
	for id, dep := range s.deps {
		if id == self {
			continue
		}
		if dep.CPF != nil && *dep.CPF == *cpf {
			return true
		}
	}
	return false
}

// Snapshot copies the current state; Restore puts it back. The in-memory
// transaction runner uses the pair to emulate rollback.
func (s *MemoryStore) Snapshot() map[int64]*Dependent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[int64]*Dependent, len(s.deps))
	for id, dep := range s.deps {
		copied := *dep
		snap[id] = &copied
	}
	return snap
}

func (s *MemoryStore) Restore(snap map[int64]*Dependent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = snap
	var maxID int64
	for id := range snap {
		if id > maxID {
			maxID = id
		}
	}
	s.nextID = maxID
}
