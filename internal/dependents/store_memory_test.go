package dependents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func strPtr(v string) *string { return &v }

func (s *MemoryStoreSuite) seed(name string, userID int64, cpf *string) *Dependent {
	created, err := s.store.Create(context.Background(), &Dependent{
		Name:         name,
		BirthDate:    time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC),
		Relationship: "filho",
		CPF:          cpf,
		UserID:       userID,
	})
	s.Require().NoError(err)
	return created
}

func (s *MemoryStoreSuite) TestCreateBatch() {
	ctx := context.Background()

	s.Run("inserts every dependent", func() {
		batch := []Dependent{
			{Name: "Ana", BirthDate: time.Now(), Relationship: "filha", UserID: 1},
			{Name: "Bia", BirthDate: time.Now(), Relationship: "filha", UserID: 1},
		}
		s.Require().NoError(s.store.CreateBatch(ctx, batch))

		list, err := s.store.ListByUser(ctx, 1)
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("a duplicate cpf inside the batch inserts nothing", func() {
		batch := []Dependent{
			{Name: "Caio", BirthDate: time.Now(), Relationship: "filho", CPF: strPtr("555.555.555-55"), UserID: 2},
			{Name: "Duda", BirthDate: time.Now(), Relationship: "filha", CPF: strPtr("555.555.555-55"), UserID: 2},
		}
		s.Require().ErrorIs(s.store.CreateBatch(ctx, batch), sentinel.ErrConflict)

		list, err := s.store.ListByUser(ctx, 2)
		s.Require().NoError(err)
		s.Empty(list, "no partial insert on batch failure")
	})

	s.Run("a cpf already stored rejects the whole batch", func() {
		s.seed("Eva", 3, strPtr("666.666.666-66"))

		batch := []Dependent{
			{Name: "Gui", BirthDate: time.Now(), Relationship: "filho", UserID: 4},
			{Name: "Hugo", BirthDate: time.Now(), Relationship: "filho", CPF: strPtr("666.666.666-66"), UserID: 4},
		}
		s.Require().ErrorIs(s.store.CreateBatch(ctx, batch), sentinel.ErrConflict)

		list, err := s.store.ListByUser(ctx, 4)
		s.Require().NoError(err)
		s.Empty(list)
	})
}

func (s *MemoryStoreSuite) TestOwnershipScoping() {
	ctx := context.Background()
	dep := s.seed("Ana", 1, nil)

	s.Run("the owner resolves the dependent", func() {
		found, err := s.store.FindByUser(ctx, dep.ID, 1)
		s.Require().NoError(err)
		s.Equal(dep.ID, found.ID)
	})

	s.Run("another user cannot see it", func() {
		_, err := s.store.FindByUser(ctx, dep.ID, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("another user cannot delete it", func() {
		s.Require().ErrorIs(s.store.Delete(ctx, dep.ID, 99), sentinel.ErrNotFound)

		found, err := s.store.FindByID(ctx, dep.ID)
		s.Require().NoError(err)
		s.Equal("Ana", found.Name, "record unchanged after foreign delete attempt")
	})

	s.Run("the owner can delete it", func() {
		s.Require().NoError(s.store.Delete(ctx, dep.ID, 1))
		_, err := s.store.FindByID(ctx, dep.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestUpdateKeepsOwner() {
	ctx := context.Background()
	dep := s.seed("Ana", 1, nil)

	dep.Name = "Ana Clara"
	s.Require().NoError(s.store.Update(ctx, dep))

	found, err := s.store.FindByID(ctx, dep.ID)
	s.Require().NoError(err)
	s.Equal("Ana Clara", found.Name)
	s.Equal(int64(1), found.UserID)
}

func (s *MemoryStoreSuite) TestListFilterAndOrder() {
	ctx := context.Background()
	first := s.seed("Ana", 1, nil)
	second := s.seed("Bia", 2, nil)

	s.Require().NoError(s.store.SetStatus(ctx, first.ID, true))

	s.Run("status true never includes unapproved", func() {
		t := true
		list, err := s.store.List(ctx, &t, "asc")
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(first.ID, list[0].ID)
	})

	s.Run("status false excludes approved", func() {
		f := false
		list, err := s.store.List(ctx, &f, "asc")
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(second.ID, list[0].ID)
	})

	s.Run("desc reverses creation order", func() {
		list, err := s.store.List(ctx, nil, "desc")
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(second.ID, list[0].ID)
		s.Equal(first.ID, list[1].ID)
	})
}
