package admins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/internal/credentials"
	"iaset/internal/platform/logger"
	dErrors "iaset/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store   *MemoryStore
	creds   *credentials.Service
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.creds = credentials.NewService("user-key", "admin-key", time.Hour, time.Hour)
	s.service = NewService(s.store, s.creds, nil, logger.New())
}

func (s *ServiceSuite) create() *Admin {
	admin, err := s.service.Create(context.Background(), CreateInput{
		Name:     "Maria Gestora",
		Email:    "maria@iaset.gov.br",
		Password: "senha123",
	})
	s.Require().NoError(err)
	return admin
}

func (s *ServiceSuite) TestCreate() {
	admin := s.create()

	s.Equal("admin", admin.Role, "role defaults when omitted")
	s.True(admin.IsActive)
	s.NotEqual("senha123", admin.Password)

	s.Run("duplicate email conflicts", func() {
		_, err := s.service.Create(context.Background(), CreateInput{
			Name: "Outra", Email: "maria@iaset.gov.br", Password: "x",
		})
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeConflict, ""))
	})
}

func (s *ServiceSuite) TestLogin() {
	ctx := context.Background()
	admin := s.create()

	s.Run("issues an admin token and records the login", func() {
		result, err := s.service.Login(ctx, "maria@iaset.gov.br", "senha123")
		s.Require().NoError(err)
		s.Equal(admin.ID, result.Admin.ID)
		s.NotNil(result.Admin.LastLogin)

		claims, err := s.creds.ValidateToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(credentials.TokenTypeAdmin, claims.Type)
		s.Equal(admin.ID, claims.SubjectID())
	})

	s.Run("wrong password", func() {
		_, err := s.service.Login(ctx, "maria@iaset.gov.br", "errada")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
	})

	s.Run("unknown email looks identical", func() {
		_, err := s.service.Login(ctx, "nobody@iaset.gov.br", "senha123")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
	})

	s.Run("deactivated account is unauthorized even with the right password", func() {
		inactive := false
		_, err := s.service.Update(ctx, admin.ID, UpdateInput{IsActive: &inactive})
		s.Require().NoError(err)

		_, err = s.service.Login(ctx, "maria@iaset.gov.br", "senha123")
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "admin account is deactivated"))
	})
}

func (s *ServiceSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	admin := s.create()

	s.Run("partial update", func() {
		role := "superadmin"
		updated, err := s.service.Update(ctx, admin.ID, UpdateInput{Role: &role})
		s.Require().NoError(err)
		s.Equal("superadmin", updated.Role)
		s.Equal(admin.Email, updated.Email)
	})

	s.Run("delete then get", func() {
		s.Require().NoError(s.service.Delete(ctx, admin.ID))
		_, err := s.service.Get(ctx, admin.ID)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeNotFound, "admin not found"))
	})
}
