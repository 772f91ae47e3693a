package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"iaset/pkg/platform/sentinel"
	"iaset/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. The store is pure I/O;
// uniqueness policy beyond the schema constraints belongs in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// q returns the transaction bound to the context when one is present, so the
// registration orchestrator can run user and dependent writes atomically.
func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const userColumns = `
	id, name, matricula, cpf, rg, vinculo, lotacao, endereco, email, phone,
	password, photo, birth_day, status, first_access, reset_token,
	reset_token_expires, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, user *User) (*User, error) {
	query := `
		INSERT INTO users (name, matricula, cpf, rg, vinculo, lotacao, endereco,
			email, phone, password, photo, birth_day, status, first_access)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + userColumns
	row := s.q(ctx).QueryRowContext(ctx, query,
		user.Name, user.Matricula, user.CPF, user.RG, user.Vinculo, user.Lotacao,
		user.Endereco, user.Email, user.Phone, user.Password, user.Photo,
		user.BirthDay, user.Status, user.FirstAccess,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create user: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by id: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByEmailOrCPF(ctx context.Context, identifier string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR cpf = $1 LIMIT 1`
	user, err := scanUser(s.q(ctx).QueryRowContext(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by email or cpf: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by email or cpf: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByUniqueFields(ctx context.Context, email, cpf string, matricula *string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 OR cpf = $2 OR ($3::text IS NOT NULL AND matricula = $3)
		LIMIT 1
	`
	user, err := scanUser(s.q(ctx).QueryRowContext(ctx, query, email, cpf, matricula))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by unique fields: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by unique fields: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByResetToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	user, err := scanUser(s.q(ctx).QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by reset token: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context, status *bool) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1::boolean IS NULL OR status = $1
		ORDER BY id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, matricula = $3, rg = $4, vinculo = $5, lotacao = $6,
			endereco = $7, email = $8, phone = $9, photo = $10, birth_day = $11,
			updated_at = now()
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		user.ID, user.Name, user.Matricula, user.RG, user.Vinculo, user.Lotacao,
		user.Endereco, user.Email, user.Phone, user.Photo, user.BirthDay,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, "update user")
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, digest string, firstAccess bool) error {
	query := `UPDATE users SET password = $2, first_access = $3, updated_at = now() WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, id, digest, firstAccess)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, "update password")
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status bool) error {
	query := `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	return requireRow(res, "set user status")
}

func (s *PostgresStore) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expires = $3, updated_at = now() WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, id, token, expires)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return requireRow(res, "set reset token")
}

func (s *PostgresStore) ConsumeResetToken(ctx context.Context, id int64, digest string) error {
	query := `
		UPDATE users
		SET password = $2, reset_token = NULL, reset_token_expires = NULL,
			first_access = false, updated_at = now()
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query, id, digest)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	return requireRow(res, "consume reset token")
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	// Dependents go with the user via ON DELETE CASCADE.
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res, "delete user")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Matricula, &u.CPF, &u.RG, &u.Vinculo, &u.Lotacao,
		&u.Endereco, &u.Email, &u.Phone, &u.Password, &u.Photo, &u.BirthDay,
		&u.Status, &u.FirstAccess, &u.ResetToken, &u.ResetTokenExpires,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
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
