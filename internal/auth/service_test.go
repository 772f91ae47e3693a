package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/internal/credentials"
	"iaset/internal/lockout"
	"iaset/internal/platform/logger"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store   *users.MemoryStore
	creds   *credentials.Service
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	log := logger.New()
	s.store = users.NewMemoryStore()
	s.creds = credentials.NewService("user-key", "admin-key", time.Hour, time.Hour)
	lock := lockout.NewService(lockout.NewMemoryStore(), log)
	s.service = NewService(s.store, s.creds, lock, nil, log)
}

func (s *ServiceSuite) seed(approved bool) *users.User {
	digest, err := credentials.HashPassword("senha123")
	s.Require().NoError(err)

	user, err := s.store.Create(context.Background(), &users.User{
		Name:        "João da Silva",
		CPF:         "111.111.111-11",
		Email:       "joao@email.com",
		Phone:       "11999990000",
		Password:    digest,
		Status:      approved,
		FirstAccess: true,
	})
	s.Require().NoError(err)
	return user
}

func (s *ServiceSuite) TestLogin() {
	ctx := context.Background()
	user := s.seed(true)

	s.Run("by email", func() {
		result, err := s.service.Login(ctx, "joao@email.com", "senha123")
		s.Require().NoError(err)
		s.NotEmpty(result.AccessToken)
		s.True(result.FirstAccess)
		s.Equal(user.ID, result.User.ID)

		claims, err := s.creds.ValidateToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(user.ID, claims.SubjectID())
		s.Equal(credentials.TokenTypeUser, claims.Type)
	})

	s.Run("by cpf", func() {
		result, err := s.service.Login(ctx, "111.111.111-11", "senha123")
		s.Require().NoError(err)
		s.NotEmpty(result.AccessToken)
	})
}

func (s *ServiceSuite) TestLoginRejections() {
	ctx := context.Background()
	s.seed(true)

	s.Run("unknown identifier", func() {
		_, err := s.service.Login(ctx, "nobody@email.com", "senha123")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
	})

	s.Run("wrong password looks identical", func() {
		_, err := s.service.Login(ctx, "joao@email.com", "errada")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
	})

	s.Run("missing fields", func() {
		_, err := s.service.Login(ctx, "", "")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, ""))
	})
}

func (s *ServiceSuite) TestLoginUnapproved() {
	ctx := context.Background()
	s.seed(false)

	// Correct password, pending approval: forbidden, and no token issued.
	_, err := s.service.Login(ctx, "joao@email.com", "senha123")
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeForbidden, "account pending approval"))
}

func (s *ServiceSuite) TestLoginLockout() {
	ctx := context.Background()
	s.seed(true)

	for i := 0; i < lockout.MaxFailures; i++ {
		_, err := s.service.Login(ctx, "joao@email.com", fmt.Sprintf("errada-%d", i))
		s.Require().Error(err)
	}

	// Even the correct password is rejected while locked.
	_, err := s.service.Login(ctx, "joao@email.com", "senha123")
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "too many failed attempts, try again later"))
}
