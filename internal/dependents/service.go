package dependents

import (
	"context"
	"errors"
	"time"

	"iaset/internal/files"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

// Documents groups the uploads a dependent may carry. Each slot maps to a
// fixed column on the record; absent slots leave the column untouched.
type Documents struct {
	CertidaoNascimentoOuRGCPF     *files.Upload
	ComprovanteCasamentoOuUniao   *files.Upload
	DocumentoAdocao               *files.Upload
	ComprovanteMatriculaFaculdade *files.Upload
	LaudoMedicoFilhosDeficientes  *files.Upload
}

// Service owns dependent CRUD for both the employee-scoped and the
// back-office views.
type Service struct {
	store Store
	files *files.Store
}

func NewService(store Store, fileStore *files.Store) *Service {
	return &Service{store: store, files: fileStore}
}

type CreateInput struct {
	Name         string
	BirthDate    *time.Time
	Relationship string
	CPF          *string
	Documents    Documents
}

// Create adds a dependent to an existing user, storing whatever documents
// came along. New dependents always start unapproved.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Dependent, error) {
	if in.Name == "" || in.Relationship == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name and relationship are required")
	}
	if in.BirthDate == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "birthDate is required")
	}

	dep := &Dependent{
		Name:         in.Name,
		BirthDate:    *in.BirthDate,
		Relationship: in.Relationship,
		CPF:          in.CPF,
		Status:       false,
		UserID:       userID,
	}
	if err := s.attachDocuments(ctx, dep, in.Documents); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, dep)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "a dependent with this cpf already exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeBadRequest, "user does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create dependent")
	}
	return created, nil
}

// attachDocuments stores every present upload under its category and writes
// the resulting path onto the record.
func (s *Service) attachDocuments(ctx context.Context, dep *Dependent, docs Documents) error {
	set := func(dst **string, up *files.Upload, category string) error {
		if up == nil {
			return nil
		}
		path, err := s.files.Save(ctx, up, category)
		if err != nil {
			return err
		}
		*dst = &path
		return nil
	}

	if err := set(&dep.CertidaoNascimentoOuRGCPF, docs.CertidaoNascimentoOuRGCPF, files.CategoryCertidoes); err != nil {
		return err
	}
	if err := set(&dep.ComprovanteCasamentoOuUniao, docs.ComprovanteCasamentoOuUniao, files.CategoryDocumentos); err != nil {
		return err
	}
	if err := set(&dep.DocumentoAdocao, docs.DocumentoAdocao, files.CategoryDependents); err != nil {
		return err
	}
	if err := set(&dep.ComprovanteMatriculaFaculdade, docs.ComprovanteMatriculaFaculdade, files.CategoryDependents); err != nil {
		return err
	}
	return set(&dep.LaudoMedicoFilhosDeficientes, docs.LaudoMedicoFilhosDeficientes, files.CategoryDependents)
}

// ListByUser returns the caller's own dependents.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Dependent, error) {
	deps, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list dependents")
	}
	return deps, nil
}

// List is the back-office view across all users.
func (s *Service) List(ctx context.Context, status *bool, order string) ([]Dependent, error) {
	deps, err := s.store.List(ctx, status, order)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list dependents")
	}
	return deps, nil
}

// GetByUser resolves a dependent within the owner's scope; a dependent owned
// by someone else is indistinguishable from a missing one.
func (s *Service) GetByUser(ctx context.Context, id, userID int64) (*Dependent, error) {
	dep, err := s.store.FindByUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "dependent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find dependent")
	}
	return dep, nil
}

// Update applies a partial edit plus any new documents, always scoped to the
// owner.
func (s *Service) Update(ctx context.Context, id, userID int64, in UpdateInput, docs Documents) (*Dependent, error) {
	dep, err := s.GetByUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		dep.Name = *in.Name
	}
	if in.BirthDate != nil {
		dep.BirthDate = *in.BirthDate
	}
	if in.Relationship != nil {
		dep.Relationship = *in.Relationship
	}
	if in.CPF != nil {
		dep.CPF = in.CPF
	}
	if err := s.attachDocuments(ctx, dep, docs); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, dep); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "dependent not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "a dependent with this cpf already exists")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update dependent")
		}
	}
	return dep, nil
}

// SetStatus flips the approval flag on a dependent, independent of the
// owner's own status.
func (s *Service) SetStatus(ctx context.Context, id int64, status bool) (*Dependent, error) {
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "dependent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "set dependent status")
	}
	dep, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find dependent")
	}
	return dep, nil
}

func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "dependent not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete dependent")
	}
	return nil
}
