package dependents

import "context"

// Store is the persistence contract for dependents. Ownership-scoped lookups
// take both ids so a caller can never reach across users.
type Store interface {
	Create(ctx context.Context, dep *Dependent) (*Dependent, error)
	// CreateBatch inserts all dependents in one all-or-nothing call.
	CreateBatch(ctx context.Context, deps []Dependent) error
	FindByID(ctx context.Context, id int64) (*Dependent, error)
	// FindByUser resolves a dependent only within its owner's scope.
	FindByUser(ctx context.Context, id, userID int64) (*Dependent, error)
	ListByUser(ctx context.Context, userID int64) ([]Dependent, error)
	// List returns all dependents filtered by status (nil means all), ordered
	// by creation ("asc" or "desc").
	List(ctx context.Context, status *bool, order string) ([]Dependent, error)
	// Update persists mutable fields; the owner id is never changed.
	Update(ctx context.Context, dep *Dependent) error
	SetStatus(ctx context.Context, id int64, status bool) error
	Delete(ctx context.Context, id, userID int64) error
}
