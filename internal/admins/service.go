package admins

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"iaset/internal/credentials"
	"iaset/internal/platform/metrics"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

// Service manages back-office operator accounts and their login flow.
type Service struct {
	store       Store
	credentials *credentials.Service
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewService(store Store, creds *credentials.Service, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		credentials: creds,
		metrics:     m,
		logger:      logger,
	}
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Admin, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name, email and password are required")
	}
	if in.Role == "" {
		in.Role = "admin"
	}

	digest, err := credentials.HashPassword(in.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	admin := &Admin{
		Name:     in.Name,
		Email:    in.Email,
		Password: digest,
		Role:     in.Role,
		IsActive: true,
	}
	created, err := s.store.Create(ctx, admin)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an admin with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create admin")
	}
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]Admin, error) {
	admins, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list admins")
	}
	return admins, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Admin, error) {
	admin, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find admin")
	}
	return admin, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Admin, error) {
	admin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		admin.Name = *in.Name
	}
	if in.Email != nil {
		admin.Email = *in.Email
	}
	if in.Role != nil {
		admin.Role = *in.Role
	}
	if in.IsActive != nil {
		admin.IsActive = *in.IsActive
	}
	if in.Password != nil {
		digest, err := credentials.HashPassword(*in.Password)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
		}
		admin.Password = digest
	}

	if err := s.store.Update(ctx, admin); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "admin not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "an admin with this email already exists")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update admin")
		}
	}
	return admin, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete admin")
	}
	return nil
}

// LoginResult carries the admin token plus the profile shown in the
// back-office header.
type LoginResult struct {
	Admin       *Admin `json:"admin"`
	AccessToken string `json:"access_token"`
}

// Login authenticates an operator by email. A deactivated account is a bad
// credential, not a pending approval, so it answers 401 like a wrong
// password does.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	admin, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLogins("admin_failure")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find admin")
	}

	if !credentials.CheckPassword(password, admin.Password) {
		s.metrics.IncrementLogins("admin_failure")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if !admin.IsActive {
		s.metrics.IncrementLogins("admin_failure")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin account is deactivated")
	}

	token, err := s.credentials.IssueAdminToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}

	now := time.Now()
	if err := s.store.SetLastLogin(ctx, admin.ID, now); err != nil {
		// Login still succeeds; the timestamp is informational.
		s.logger.WarnContext(ctx, "record admin last login failed", "error", err, "admin_id", admin.ID)
	} else {
		admin.LastLogin = &now
	}

	s.metrics.IncrementLogins("admin_success")
	s.logger.InfoContext(ctx, "admin login", "admin_id", admin.ID)

	return &LoginResult{Admin: admin, AccessToken: token}, nil
}
