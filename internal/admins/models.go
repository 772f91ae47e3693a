// Package admins holds administrator accounts. Admins live in a separate
// identity space from employees; their tokens carry a distinct type claim.
package admins

import (
	"context"
	"time"
)

type Admin struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UpdateInput carries the mutable fields; nil means "leave as is". Password,
// when present, arrives in plaintext and is hashed by the service.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
	IsActive *bool
}

// Store is the persistence contract for administrator accounts.
type Store interface {
	Create(ctx context.Context, admin *Admin) (*Admin, error)
	FindByID(ctx context.Context, id int64) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	Update(ctx context.Context, admin *Admin) error
	SetLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
