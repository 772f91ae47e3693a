package dependents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"iaset/pkg/platform/sentinel"
	"iaset/pkg/platform/tx"
)

// PostgresStore persists dependents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const depColumns = `
	id, name, birth_date, relationship, cpf, status,
	certidao_nascimento_ou_rg_cpf, comprovante_casamento_ou_uniao,
	documento_adocao, comprovante_matricula_faculdade,
	laudo_medico_filhos_deficientes, user_id, created_at, updated_at
`

const depInsert = `
	INSERT INTO dependents (name, birth_date, relationship, cpf, status,
		certidao_nascimento_ou_rg_cpf, comprovante_casamento_ou_uniao,
		documento_adocao, comprovante_matricula_faculdade,
		laudo_medico_filhos_deficientes, user_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + depColumns

func (s *PostgresStore) Create(ctx context.Context, dep *Dependent) (*Dependent, error) {
	row := s.q(ctx).QueryRowContext(ctx, depInsert,
		dep.Name, dep.BirthDate, dep.Relationship, dep.CPF, dep.Status,
		dep.CertidaoNascimentoOuRGCPF, dep.ComprovanteCasamentoOuUniao,
		dep.DocumentoAdocao, dep.ComprovanteMatriculaFaculdade,
		dep.LaudoMedicoFilhosDeficientes, dep.UserID,
	)
	created, err := scanDependent(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("create dependent: %w", sentinel.ErrConflict)
		case isForeignKeyViolation(err):
			// The owning user is gone.
			return nil, fmt.Errorf("create dependent: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("create dependent: %w", err)
	}
	return created, nil
}

// CreateBatch inserts all rows through the context transaction; the schema's
// unique cpf constraint aborts the whole statement set on collision, so the
// batch is all-or-nothing as long as the caller runs it inside a transaction.
func (s *PostgresStore) CreateBatch(ctx context.Context, deps []Dependent) error {
	if _, ok := tx.From(ctx); !ok {
		return fmt.Errorf("create dependents batch: requires a transaction")
	}
	for i := range deps {
		dep := &deps[i]
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO dependents (name, birth_date, relationship, cpf, status,
				certidao_nascimento_ou_rg_cpf, comprovante_casamento_ou_uniao,
				documento_adocao, comprovante_matricula_faculdade,
				laudo_medico_filhos_deficientes, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			dep.Name, dep.BirthDate, dep.Relationship, dep.CPF, dep.Status,
			dep.CertidaoNascimentoOuRGCPF, dep.ComprovanteCasamentoOuUniao,
			dep.DocumentoAdocao, dep.ComprovanteMatriculaFaculdade,
			dep.LaudoMedicoFilhosDeficientes, dep.UserID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create dependents batch: %w", sentinel.ErrConflict)
			}
			return fmt.Errorf("create dependents batch: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Dependent, error) {
	query := `SELECT ` + depColumns + ` FROM dependents WHERE id = $1`
	dep, err := scanDependent(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find dependent by id: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find dependent by id: %w", err)
	}
	return dep, nil
}

func (s *PostgresStore) FindByUser(ctx context.Context, id, userID int64) (*Dependent, error) {
	query := `SELECT ` + depColumns + ` FROM dependents WHERE id = $1 AND user_id = $2`
	dep, err := scanDependent(s.q(ctx).QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find dependent by user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find dependent by user: %w", err)
	}
	return dep, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]Dependent, error) {
	query := `SELECT ` + depColumns + ` FROM dependents WHERE user_id = $1 ORDER BY id`
	return s.queryMany(ctx, "list dependents by user", query, userID)
}

func (s *PostgresStore) List(ctx context.Context, status *bool, order string) ([]Dependent, error) {
	direction := "DESC"
	if order == "asc" {
		direction = "ASC"
	}
	query := `
		SELECT ` + depColumns + `
		FROM dependents
		WHERE $1::boolean IS NULL OR status = $1
		ORDER BY created_at ` + direction
	return s.queryMany(ctx, "list dependents", query, status)
}

func (s *PostgresStore) queryMany(ctx context.Context, op, query string, args ...any) ([]Dependent, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Dependent
	for rows.Next() {
		dep, err := scanDependent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *dep)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, dep *Dependent) error {
	// user_id is part of the predicate, never of the SET list: the owner is
	// immutable and cross-owner updates must read as not found.
	query := `
		UPDATE dependents
		SET name = $3, birth_date = $4, relationship = $5, cpf = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		dep.ID, dep.UserID, dep.Name, dep.BirthDate, dep.Relationship, dep.CPF,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update dependent: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update dependent: %w", err)
	}
	return requireRow(res, "update dependent")
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status bool) error {
	query := `UPDATE dependents SET status = $2, updated_at = now() WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set dependent status: %w", err)
	}
	return requireRow(res, "set dependent status")
}

func (s *PostgresStore) Delete(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM dependents WHERE id = $1 AND user_id = $2`
	res, err := s.q(ctx).ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete dependent: %w", err)
	}
	return requireRow(res, "delete dependent")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDependent(row rowScanner) (*Dependent, error) {
	var d Dependent
	err := row.Scan(
		&d.ID, &d.Name, &d.BirthDate, &d.Relationship, &d.CPF, &d.Status,
		&d.CertidaoNascimentoOuRGCPF, &d.ComprovanteCasamentoOuUniao,
		&d.DocumentoAdocao, &d.ComprovanteMatriculaFaculdade,
		&d.LaudoMedicoFilhosDeficientes, &d.UserID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
