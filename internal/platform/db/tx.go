package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Transactor runs a unit of work atomically. Repositories resolve the active
// transaction from the context, so calls made by different packages inside fn
// commit or roll back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrConcurrentUpdate reports a transaction that lost a race with another
// writer and was rolled back by PostgreSQL.
var ErrConcurrentUpdate = errors.New("platform/db: concurrent update")

// SQLSTATE codes PostgreSQL raises for lost races.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// TranslateError wraps serialization failures and deadlocks with
// ErrConcurrentUpdate. Other errors are returned unchanged.
func TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	}
	return err
}

type txKey struct{}

type txState struct {
	tx          pgx.Tx
	afterCommit []func(context.Context)
}

// PoolTransactor implements Transactor on a pgx pool.
type PoolTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor constructs a PoolTransactor.
func NewTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

// WithinTx executes fn in a read-committed transaction. Nested calls join the
// outer transaction. Row locks and version checks in the repositories guard
// concurrent writers; lost races surface as ErrConcurrentUpdate.
func (t *PoolTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	state := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		return TranslateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TranslateError(fmt.Errorf("platform/db: commit tx: %w", err))
	}
	for _, hook := range state.afterCommit {
		hook(context.WithoutCancel(ctx))
	}
	return nil
}

// Conn returns the transaction bound to ctx, or the pool when none is active.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return pool
}

// InTx reports whether ctx carries an active transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// AfterCommit registers fn to run once the surrounding transaction commits. It
// runs immediately when ctx has no transaction.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn(ctx)
}

// NoopTransactor runs fn directly. In-memory repositories and tests use it;
// AfterCommit hooks fire once fn returns without error.
type NoopTransactor struct{}

// WithinTx implements Transactor.
func (NoopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	state := &txState{}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook(ctx)
	}
	return nil
}
