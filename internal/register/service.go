// Package register orchestrates the self-service employee registration:
// one multipart request carrying the profile, its photo, and any number of
// dependents with their documents, committed as a single unit.
package register

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"iaset/internal/credentials"
	"iaset/internal/dependents"
	"iaset/internal/files"
	"iaset/internal/platform/metrics"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/sentinel"
)

// TxRunner runs fn inside one storage transaction. Stores participating in
// the registration read the transaction out of the context fn receives.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(context.Context) error) error
}

type Service struct {
	users      users.Store
	dependents dependents.Store
	files      *files.Store
	tx         TxRunner
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(userStore users.Store, depStore dependents.Store, fileStore *files.Store, tx TxRunner, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		users:      userStore,
		dependents: depStore,
		files:      fileStore,
		tx:         tx,
		metrics:    m,
		logger:     logger,
	}
}

// DependentInput is one dependent block of a registration request.
type DependentInput struct {
	Name         string
	BirthDate    *time.Time
	Relationship string
	CPF          *string
	Documents    dependents.Documents
}

// Input is the full registration payload after multipart decoding.
type Input struct {
	Name       string
	CPF        string
	Email      string
	Phone      string
	Password   string
	Matricula  *string
	RG         *string
	Vinculo    *string
	Lotacao    *string
	Endereco   *string
	BirthDay   *time.Time
	Photo      *files.Upload
	Dependents []DependentInput
}

// Result is the committed registration: the created user and its dependents
// as re-read from storage.
type Result struct {
	User       *users.User            `json:"user"`
	Dependents []dependents.Dependent `json:"dependents"`
}

// Register creates the user and every dependent atomically. Files are staged
// on disk before the transaction opens; a later rollback may leave orphan
// files, never orphan rows.
func (s *Service) Register(ctx context.Context, in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	// A duplicate registration is a malformed request, not a conflict: the
	// public form answers 400 here.
	if _, err := s.users.FindByUniqueFields(ctx, in.Email, in.CPF, in.Matricula); err == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a user with this cpf, matricula or email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "uniqueness check failed")
	}

	digest, err := credentials.HashPassword(in.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	staged, err := s.stageFiles(ctx, in)
	if err != nil {
		return nil, err
	}

	user := &users.User{
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
		Status:      false, // approval is a separate back-office step
		FirstAccess: true,
	}
	if staged.photo != "" {
		user.Photo = &staged.photo
	}

	var result Result
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		created, err := s.users.Create(txCtx, user)
		if err != nil {
			// A row sneaking in between the probe and the insert.
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeBadRequest, "a user with this cpf, matricula or email already exists")
			}
			return err
		}

		deps := make([]dependents.Dependent, len(in.Dependents))
		for i, d := range in.Dependents {
			deps[i] = dependents.Dependent{
				Name:         d.Name,
				BirthDate:    *d.BirthDate,
				Relationship: d.Relationship,
				CPF:          d.CPF,
				Status:       false,
				UserID:       created.ID,
			}
			staged.apply(&deps[i], i)
		}
		if len(deps) > 0 {
			if err := s.dependents.CreateBatch(txCtx, deps); err != nil {
				// A dependent cpf clashing with an existing record; the
				// whole registration is rejected.
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeBadRequest, "duplicate dependent cpf in registration")
				}
				return err
			}
		}

		stored, err := s.dependents.ListByUser(txCtx, created.ID)
		if err != nil {
			return err
		}
		result.User = created
		result.Dependents = stored
		return nil
	})
	if err != nil {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "register user")
	}

	s.metrics.IncrementUsersRegistered()
	s.logger.InfoContext(ctx, "user registered",
		"user_id", result.User.ID,
		"dependents", len(result.Dependents),
	)
	return &result, nil
}

func validate(in Input) error {
	if in.Name == "" || in.CPF == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name, cpf, email, phone and password are required")
	}
	if in.BirthDay == nil {
		return dErrors.New(dErrors.CodeBadRequest, "birthDay is required")
	}
	seen := make(map[string]struct{}, len(in.Dependents))
	for _, d := range in.Dependents {
		if d.Name == "" || d.Relationship == "" {
			return dErrors.New(dErrors.CodeBadRequest, "dependent name and relationship are required")
		}
		if d.BirthDate == nil {
			return dErrors.New(dErrors.CodeBadRequest, "dependent birthDate is required")
		}
		if d.CPF != nil && *d.CPF != "" {
			if _, dup := seen[*d.CPF]; dup {
				return dErrors.New(dErrors.CodeBadRequest, "duplicate dependent cpf in registration")
			}
			seen[*d.CPF] = struct{}{}
		}
	}
	return nil
}

// stagedFiles holds the paths produced before the transaction opens.
type stagedFiles struct {
	photo string
	docs  []stagedDocs
}

type stagedDocs struct {
	certidaoNascimentoOuRGCPF     string
	comprovanteCasamentoOuUniao   string
	documentoAdocao               string
	comprovanteMatriculaFaculdade string
	laudoMedicoFilhosDeficientes  string
}

func (sf *stagedFiles) apply(dep *dependents.Dependent, i int) {
	set := func(dst **string, path string) {
		if path != "" {
			p := path
			*dst = &p
		}
	}
	d := sf.docs[i]
	set(&dep.CertidaoNascimentoOuRGCPF, d.certidaoNascimentoOuRGCPF)
	set(&dep.ComprovanteCasamentoOuUniao, d.comprovanteCasamentoOuUniao)
	set(&dep.DocumentoAdocao, d.documentoAdocao)
	set(&dep.ComprovanteMatriculaFaculdade, d.comprovanteMatriculaFaculdade)
	set(&dep.LaudoMedicoFilhosDeficientes, d.laudoMedicoFilhosDeficientes)
}

// stageFiles writes every upload concurrently. The first failure cancels the
// rest and aborts the registration before any row is written.
func (s *Service) stageFiles(ctx context.Context, in Input) (*stagedFiles, error) {
	staged := &stagedFiles{docs: make([]stagedDocs, len(in.Dependents))}

	g, gctx := errgroup.WithContext(ctx)

	if in.Photo != nil {
		g.Go(func() error {
			path, err := s.files.Save(gctx, in.Photo, files.CategoryPhotos)
			if err != nil {
				return err
			}
			staged.photo = path
			return nil
		})
	}

	for i, d := range in.Dependents {
		slot := &staged.docs[i]
		save := func(dst *string, up *files.Upload, category string) {
			if up == nil {
				return
			}
			g.Go(func() error {
				path, err := s.files.Save(gctx, up, category)
				if err != nil {
					return err
				}
				*dst = path
				return nil
			})
		}
		save(&slot.certidaoNascimentoOuRGCPF, d.Documents.CertidaoNascimentoOuRGCPF, files.CategoryCertidoes)
		save(&slot.comprovanteCasamentoOuUniao, d.Documents.ComprovanteCasamentoOuUniao, files.CategoryDocumentos)
		save(&slot.documentoAdocao, d.Documents.DocumentoAdocao, files.CategoryDependents)
		save(&slot.comprovanteMatriculaFaculdade, d.Documents.ComprovanteMatriculaFaculdade, files.CategoryDependents)
		save(&slot.laudoMedicoFilhosDeficientes, d.Documents.LaudoMedicoFilhosDeficientes, files.CategoryDependents)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return staged, nil
}
