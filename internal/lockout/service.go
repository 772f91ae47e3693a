// Package lockout throttles credential guessing: repeated login failures for
// one identifier lock further attempts out for a cooling window.
package lockout

import (
	"context"
	"log/slog"
	"time"
)

const (
	// MaxFailures is the number of failed attempts tolerated per window.
	MaxFailures = 5
	// Window is the rolling period failures are counted over.
	Window = 15 * time.Minute
)

// Store counts failures per identifier with expiry semantics.
type Store interface {
	// Incr bumps the failure count, starting the window on the first failure,
	// and returns the new count.
	Incr(ctx context.Context, identifier string, window time.Duration) (int64, error)
	Failures(ctx context.Context, identifier string) (int64, error)
	Clear(ctx context.Context, identifier string) error
}

// Service wraps the store with the lockout policy. Store outages fail open:
// an unavailable counter must not take logins down with it.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Locked reports whether the identifier is over the failure budget.
func (s *Service) Locked(ctx context.Context, identifier string) bool {
	count, err := s.store.Failures(ctx, identifier)
	if err != nil {
		s.logger.WarnContext(ctx, "lockout check failed, allowing attempt", "error", err)
		return false
	}
	return count >= MaxFailures
}

// RecordFailure registers one failed attempt.
func (s *Service) RecordFailure(ctx context.Context, identifier string) {
	if _, err := s.store.Incr(ctx, identifier, Window); err != nil {
		s.logger.WarnContext(ctx, "lockout increment failed", "error", err)
	}
}

// RecordSuccess clears the counter after a successful login.
func (s *Service) RecordSuccess(ctx context.Context, identifier string) {
	if err := s.store.Clear(ctx, identifier); err != nil {
		s.logger.WarnContext(ctx, "lockout clear failed", "error", err)
	}
}
