package register

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/internal/credentials"
	"iaset/internal/dependents"
	"iaset/internal/files"
	"iaset/internal/platform/logger"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	userStore *users.MemoryStore
	depStore  *dependents.MemoryStore
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	log := logger.New()
	s.userStore = users.NewMemoryStore()
	s.depStore = dependents.NewMemoryStore()
	fileStore := files.NewStore(s.T().TempDir(), nil, log)
	runner := NewMemoryTxRunner(s.userStore, s.depStore)
	s.service = NewService(s.userStore, s.depStore, fileStore, runner, nil, log)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strPtr(v string) *string { return &v }

func validInput() Input {
	return Input{
		Name:     "João da Silva",
		CPF:      "111.111.111-11",
		Email:    "joao@email.com",
		Phone:    "11999990000",
		Password: "senha123",
		BirthDay: datePtr(1990, time.January, 15),
		Dependents: []DependentInput{
			{
				Name:         "Ana",
				BirthDate:    datePtr(2015, time.March, 10),
				Relationship: "filha",
			},
		},
	}
}

func (s *ServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("creates the user unapproved with a hashed password", func() {
		result, err := s.service.Register(ctx, validInput())
		s.Require().NoError(err)

		s.False(result.User.Status)
		s.True(result.User.FirstAccess)
		s.NotEqual("senha123", result.User.Password)
		s.True(credentials.CheckPassword("senha123", result.User.Password))

		s.Require().Len(result.Dependents, 1)
		s.Equal("Ana", result.Dependents[0].Name)
		s.False(result.Dependents[0].Status)
		s.Nil(result.Dependents[0].CertidaoNascimentoOuRGCPF)
		s.Equal(result.User.ID, result.Dependents[0].UserID)
	})

	s.Run("re-registering the same cpf fails with bad request", func() {
		in := validInput()
		in.Email = "outro@email.com"
		_, err := s.service.Register(ctx, in)
		s.Require().ErrorIs(err,
			dErrors.New(dErrors.CodeBadRequest, "a user with this cpf, matricula or email already exists"))

		all, listErr := s.userStore.List(ctx, nil)
		s.Require().NoError(listErr)
		s.Len(all, 1, "no second row for the duplicate cpf")
	})
}

func (s *ServiceSuite) TestRegisterStoresDocuments() {
	ctx := context.Background()

	in := validInput()
	in.Photo = &files.Upload{Name: "foto.png", ContentType: "image/png", Size: 4, Bytes: []byte("data")}
	in.Dependents[0].Documents.CertidaoNascimentoOuRGCPF = &files.Upload{
		Name: "certidao.pdf", ContentType: "application/pdf", Size: 3, Bytes: []byte("pdf"),
	}

	result, err := s.service.Register(ctx, in)
	s.Require().NoError(err)

	s.Require().NotNil(result.User.Photo)
	s.Contains(*result.User.Photo, "/uploads/photos/")

	s.Require().Len(result.Dependents, 1)
	s.Require().NotNil(result.Dependents[0].CertidaoNascimentoOuRGCPF)
	s.Contains(*result.Dependents[0].CertidaoNascimentoOuRGCPF, "/uploads/certidoes/")
}

func (s *ServiceSuite) TestRegisterRollsBackOnDependentConflict() {
	ctx := context.Background()

	in := validInput()
	cpf := "555.555.555-55"
	in.Dependents = []DependentInput{
		{Name: "Ana", BirthDate: datePtr(2015, time.March, 10), Relationship: "filha", CPF: strPtr(cpf)},
		{Name: "Bia", BirthDate: datePtr(2017, time.June, 1), Relationship: "filha", CPF: strPtr(cpf)},
	}

	_, err := s.service.Register(ctx, in)
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, ""))

	_, findErr := s.userStore.FindByEmailOrCPF(ctx, in.CPF)
	s.Require().ErrorIs(findErr, sentinel.ErrNotFound, "the user row must not survive the failed batch")
}

func (s *ServiceSuite) TestRegisterRollsBackStoredConflict() {
	ctx := context.Background()

	// An existing dependent already claims the cpf; only the store can see
	// this one, the pre-validation cannot.
	cpf := "666.666.666-66"
	_, err := s.depStore.Create(ctx, &dependents.Dependent{
		Name: "Eva", BirthDate: time.Now(), Relationship: "filha", CPF: strPtr(cpf), UserID: 77,
	})
	s.Require().NoError(err)

	in := validInput()
	in.Dependents[0].CPF = strPtr(cpf)

	_, err = s.service.Register(ctx, in)
	s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, ""))

	_, findErr := s.userStore.FindByEmailOrCPF(ctx, in.CPF)
	s.Require().ErrorIs(findErr, sentinel.ErrNotFound)
}

// blindProbeStore hides existing rows from the uniqueness probe so a user
// conflict only surfaces at insert time, like a concurrent registration.
type blindProbeStore struct {
	*users.MemoryStore
}

func (b *blindProbeStore) FindByUniqueFields(_ context.Context, _, _ string, _ *string) (*users.User, error) {
	return nil, sentinel.ErrNotFound
}

func (s *ServiceSuite) TestRegisterUserConflictInsideTransaction() {
	ctx := context.Background()
	log := logger.New()

	blind := &blindProbeStore{MemoryStore: s.userStore}
	fileStore := files.NewStore(s.T().TempDir(), nil, log)
	runner := NewMemoryTxRunner(s.userStore, s.depStore)
	svc := NewService(blind, s.depStore, fileStore, runner, nil, log)

	_, err := svc.Register(ctx, validInput())
	s.Require().NoError(err)

	in := validInput()
	in.Email = "outro@email.com"
	_, err = svc.Register(ctx, in)
	s.Require().ErrorIs(err,
		dErrors.New(dErrors.CodeBadRequest, "a user with this cpf, matricula or email already exists"),
		"an insert-time user conflict must not be labeled a dependent problem")
}

func (s *ServiceSuite) TestValidation() {
	ctx := context.Background()

	s.Run("missing required fields", func() {
		in := validInput()
		in.Email = ""
		_, err := s.service.Register(ctx, in)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, ""))
	})

	s.Run("missing birth day", func() {
		in := validInput()
		in.BirthDay = nil
		_, err := s.service.Register(ctx, in)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, ""))
	})

	s.Run("duplicate dependent cpf rejected before any write", func() {
		in := validInput()
		cpf := "777.777.777-77"
		in.Dependents = []DependentInput{
			{Name: "A", BirthDate: datePtr(2015, 1, 1), Relationship: "filho", CPF: strPtr(cpf)},
			{Name: "B", BirthDate: datePtr(2016, 1, 1), Relationship: "filho", CPF: strPtr(cpf)},
		}
		_, err := s.service.Register(ctx, in)
		s.Require().ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "duplicate dependent cpf in registration"))
	})
}
