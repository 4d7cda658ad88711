package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgTxKey struct{}

func withPGTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if pgTxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return pgError("begin tx", err)
	}

	txCtx := context.WithValue(ctx, pgTxKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return pgError("commit tx", err)
	}
	return nil
}

func pgTxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(pgTxKey{}).(pgx.Tx)
	return tx
}

// pgQuerier routes statements through the context transaction when present.
type pgQuerier struct {
	pool *pgxpool.Pool
}

func (q pgQuerier) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := pgTxFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return q.pool.Exec(ctx, sql, args...)
}

func (q pgQuerier) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := pgTxFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return q.pool.QueryRow(ctx, sql, args...)
}

func (q pgQuerier) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := pgTxFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return q.pool.Query(ctx, sql, args...)
}

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isPGUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// pgError wraps err with op and marks concurrency failures as transient.
func pgError(op string, err error) error {
	switch pgErrorCode(err) {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransientConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
