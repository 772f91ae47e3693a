package register

import (
	"context"
	"database/sql"
	"time"

	"iaset/internal/dependents"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTxRunner wraps the registration in a database transaction. The
// transaction travels in the context; the postgres stores pick it up there.
type PostgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTxRunner(db *sql.DB) *PostgresTxRunner {
	return &PostgresTxRunner{db: db}
}

func (t *PostgresTxRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}
	return dbTx.Commit()
}

// MemoryTxRunner gives the in-memory stores transactional behavior by
// snapshotting both maps and restoring them when fn fails. The in-memory
// setup serves a single process, so holding no lock across fn is fine.
type MemoryTxRunner struct {
	users      *users.MemoryStore
	dependents *dependents.MemoryStore
}

func NewMemoryTxRunner(userStore *users.MemoryStore, depStore *dependents.MemoryStore) *MemoryTxRunner {
	return &MemoryTxRunner{users: userStore, dependents: depStore}
}

func (t *MemoryTxRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	userSnap := t.users.Snapshot()
	depSnap := t.dependents.Snapshot()

	if err := fn(ctx); err != nil {
		t.users.Restore(userSnap)
		t.dependents.Restore(depSnap)
		return err
	}
	return nil
}
