package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"iaset/internal/credentials"
	"iaset/internal/files"
	"iaset/internal/mail"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

// Service owns employee profile and credential operations. Registration of
// new employees with dependents lives in the register package; the direct
// Create here is the admin-facing single-user creation.
type Service struct {
	store  Store
	files  *files.Store
	mailer mail.Mailer
	logger *slog.Logger
}

func NewService(store Store, fileStore *files.Store, mailer mail.Mailer, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		files:  fileStore,
		mailer: mailer,
		logger: logger,
	}
}

// CreateInput carries the fields for the admin-facing user creation.
type CreateInput struct {
	Name      string
	CPF       string
	Email     string
	Phone     string
	Password  string
	Matricula *string
	RG        *string
	Vinculo   *string
	Lotacao   *string
	Endereco  *string
	BirthDay  *time.Time
	Photo     *files.Upload
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if in.Name == "" || in.CPF == "" || in.Email == "" || in.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name, cpf, email and password are required")
	}
	if in.BirthDay == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "birthDay is required")
	}

	if _, err := s.store.FindByUniqueFields(ctx, in.Email, in.CPF, in.Matricula); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a user with this cpf, matricula or email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "uniqueness check failed")
	}

	digest, err := credentials.HashPassword(in.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	photoPath, err := s.files.Save(ctx, in.Photo, files.CategoryPhotos)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:        in.Name,
		Matricula:   in.Matricula,
		CPF:         in.CPF,
		RG:          in.RG,
		Vinculo:     in.Vinculo,
		Lotacao:     in.Lotacao,
		Endereco:    in.Endereco,
		Email:       in.Email,
		Phone:       in.Phone,
		Password:    digest,
		BirthDay:    in.BirthDay,
		Status:      false, // every new record starts unapproved
		FirstAccess: true,
	}
	if photoPath != "" {
		user.Photo = &photoPath
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this cpf, matricula or email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not create user")
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, status *bool) ([]User, error) {
	users, err := s.store.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	return user, nil
}

// Update applies a partial profile update. An update carrying no field and no
// new photo is rejected rather than silently succeeding.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, photo *files.Upload) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Empty() && photo == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "update must carry at least one field")
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Matricula != nil {
		user.Matricula = in.Matricula
	}
	if in.RG != nil {
		user.RG = in.RG
	}
	if in.Vinculo != nil {
		user.Vinculo = in.Vinculo
	}
	if in.Lotacao != nil {
		user.Lotacao = in.Lotacao
	}
	if in.Endereco != nil {
		user.Endereco = in.Endereco
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.BirthDay != nil {
		user.BirthDay = in.BirthDay
	}

	if photo != nil {
		path, err := s.files.Save(ctx, photo, files.CategoryPhotos)
		if err != nil {
			return nil, err
		}
		user.Photo = &path
	}

	if err := s.store.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this cpf, matricula or email already exists")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not update user")
		}
	}
	return user, nil
}

// SetStatus flips the approval flag. This is the only write path for status;
// profile updates never touch it.
func (s *Service) SetStatus(ctx context.Context, id int64, status bool) (*User, error) {
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "set user status")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete user")
	}
	return nil
}

// ChangePassword rotates the password after verifying the current one, and
// marks the first-access flow as completed.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return dErrors.New(dErrors.CodeBadRequest, "new password is required")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !credentials.CheckPassword(oldPassword, user.Password) {
		return dErrors.New(dErrors.CodeBadRequest, "old password is incorrect")
	}

	digest, err := credentials.HashPassword(newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	if err := s.store.UpdatePassword(ctx, id, digest, false); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update password")
	}
	return nil
}

// ForgotPassword issues a fresh reset token and hands it to the mailer.
// Issuing a new token replaces any previous one still inside its window.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindByEmailOrCPF(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}

	token, expires := credentials.NewResetToken()
	if err := s.store.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store reset token")
	}

	// Delivery is best effort: the token is already persisted and the flow
	// can be retried, so a mail outage is logged, not surfaced.
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "password reset mail failed",
			"error", err,
			"user_id", user.ID,
		)
	}
	return nil
}

// ResetPassword consumes a reset token. Expired, unknown, or already-consumed
// tokens all fail the same way so callers cannot probe for valid accounts.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return dErrors.New(dErrors.CodeBadRequest, "token and new password are required")
	}

	user, err := s.store.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset token")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find reset token")
	}

	if user.ResetTokenExpires == nil || !user.ResetTokenExpires.After(time.Now()) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset token")
	}

	digest, err := credentials.HashPassword(newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	if err := s.store.ConsumeResetToken(ctx, user.ID, digest); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "consume reset token")
	}
	return nil
}
