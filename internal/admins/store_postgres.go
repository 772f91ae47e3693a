package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"iaset/pkg/platform/sentinel"
)

// PostgresStore persists admin accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const adminColumns = `id, name, email, password, role, is_active, last_login, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, admin *Admin) (*Admin, error) {
	query := `
		INSERT INTO admins (name, email, password, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + adminColumns
	row := s.db.QueryRowContext(ctx, query,
		admin.Name, admin.Email, admin.Password, admin.Role, admin.IsActive,
	)
	created, err := scanAdmin(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create admin: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find admin by id: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	return admin, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find admin by email: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	return admin, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		out = append(out, *admin)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, admin *Admin) error {
	query := `
		UPDATE admins
		SET name = $2, email = $3, password = $4, role = $5, is_active = $6, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		admin.ID, admin.Name, admin.Email, admin.Password, admin.Role, admin.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update admin: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update admin: %w", err)
	}
	return requireRow(res, "update admin")
}

func (s *PostgresStore) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE admins SET last_login = $2, updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return requireRow(res, "set last login")
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	return requireRow(res, "delete admin")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*Admin, error) {
	var a Admin
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Password, &a.Role, &a.IsActive,
		&a.LastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
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
