package auth

import (
	"context"
	"errors"
	"log/slog"

	"iaset/internal/credentials"
	"iaset/internal/lockout"
	"iaset/internal/platform/metrics"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

// Service authenticates employees. Admin login lives in the admins package
// because it runs against a different table and signing key.
type Service struct {
	users       users.Store
	credentials *credentials.Service
	lockout     *lockout.Service
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewService(userStore users.Store, creds *credentials.Service, lock *lockout.Service, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		users:       userStore,
		credentials: creds,
		lockout:     lock,
		metrics:     m,
		logger:      logger,
	}
}

// LoginResult is what a successful login hands back to the handler.
type LoginResult struct {
	User        *users.User `json:"user"`
	AccessToken string      `json:"access_token"`
	FirstAccess bool        `json:"firstAccess"`
}

// Login authenticates by email or CPF. Unknown identifier and wrong password
// are indistinguishable to the caller; an unapproved account answers 403 only
// after the password checked out.
func (s *Service) Login(ctx context.Context, emailOrCPF, password string) (*LoginResult, error) {
	if emailOrCPF == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "emailOrCpf and password are required")
	}

	if s.lockout.Locked(ctx, emailOrCPF) {
		s.metrics.IncrementLogins("locked")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "too many failed attempts, try again later")
	}

	user, err := s.users.FindByEmailOrCPF(ctx, emailOrCPF)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.lockout.RecordFailure(ctx, emailOrCPF)
			s.metrics.IncrementLogins("failure")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}

	if !credentials.CheckPassword(password, user.Password) {
		s.lockout.RecordFailure(ctx, emailOrCPF)
		s.metrics.IncrementLogins("failure")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if !user.Status {
		s.metrics.IncrementLogins("unapproved")
		return nil, dErrors.New(dErrors.CodeForbidden, "account pending approval")
	}

	token, err := s.credentials.IssueUserToken(user.ID, user.Email, user.CPF, user.Status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}

	s.lockout.RecordSuccess(ctx, emailOrCPF)
	s.metrics.IncrementLogins("success")
	s.logger.InfoContext(ctx, "user login", "user_id", user.ID)

	return &LoginResult{User: user, AccessToken: token, FirstAccess: user.FirstAccess}, nil
}
