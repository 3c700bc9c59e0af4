package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/beanledger/internal/usecase"
)

// pgxPool is the part of *pgxpool.Pool the repositories start
// transactions with.
type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

// snapshotOptions pins every statement of a multi-query read to one
// commit state.
var snapshotOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a read-write transaction at the pool's default isolation.
// Ledger writes serialize on account row locks, not on isolation level.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// readSnapshot runs fn inside a read-only REPEATABLE READ transaction when
// db is a pool. Any other DBTX, such as an open pgx.Tx, is already a single
// snapshot for this purpose and is queried directly.
func readSnapshot(ctx context.Context, db generated.DBTX, fn func(*generated.Queries) error) error {
	pool, ok := db.(pgxPool)
	if !ok {
		return fn(generated.New(db))
	}

	tx, err := pool.BeginTx(ctx, snapshotOptions)
	if err != nil {
		return err
	}
	t := &Tx{tx: tx}
	defer func() { _ = t.Rollback(ctx) }()

	if err := fn(generated.New(tx)); err != nil {
		return err
	}

	return t.Commit(ctx)
}

// Tx wraps a pgx transaction. Rollback after Commit is a no-op, so callers
// may always defer Rollback.
type Tx struct {
	tx        pgx.Tx
	committed bool
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	t.committed = true

	return nil
}

// Rollback rolls back the transaction unless it already committed.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}

	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
