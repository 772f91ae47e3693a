package users

import (
	"context"
	"time"
)

// Store is the persistence contract for employee records. Implementations
// return sentinel errors (pkg/platform/sentinel) for factual states; services
// translate them into domain errors.
type Store interface {
	// Create inserts the user and returns it with generated id/timestamps.
	Create(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	// FindByEmailOrCPF resolves a login identifier against either column.
	FindByEmailOrCPF(ctx context.Context, identifier string) (*User, error)
	// FindByUniqueFields returns any user matching the email OR cpf OR, when
	// non-nil, matricula. Used as the registration fast-path conflict probe.
	FindByUniqueFields(ctx context.Context, email, cpf string, matricula *string) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	// List returns users filtered by approval status; nil means all.
	List(ctx context.Context, status *bool) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, digest string, firstAccess bool) error
	SetStatus(ctx context.Context, id int64, status bool) error
	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	// ConsumeResetToken sets the new password digest and clears both reset
	// fields in one atomic write so a consumed token cannot be replayed.
	ConsumeResetToken(ctx context.Context, id int64, digest string) error
	// Delete removes the user and cascades to its dependents.
	Delete(ctx context.Context, id int64) error
}
