package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalog/application/ports"
)

// querier is the subset of pgx shared by the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return pool
}

// TxRunner implements ports.TxRunner on a pgx pool.
type TxRunner struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	baseBackoff time.Duration
}

// NewTxRunner creates a runner
func NewTxRunner(pool *pgxpool.Pool, logger *zap.Logger) *TxRunner {
	return &TxRunner{pool: pool, logger: logger, baseBackoff: 20 * time.Millisecond}
}

// InTx runs fn in a transaction with the isolation and timeouts of policy.
// Serialization failures and deadlocks are retried up to policy.Attempts()
// times. A call made while a transaction is already open in ctx joins it.
func (r *TxRunner) InTx(ctx context.Context, policy ports.TxPolicy, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	attempts := policy.Attempts()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = r.runOnce(ctx, policy, fn)
		if err == nil || !isRetryable(err) || attempt == attempts {
			break
		}

		delay := r.baseBackoff * time.Duration(1<<(attempt-1))
		r.logger.Debug("Retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return mapError("transaction", ctx.Err())
		case <-time.After(delay):
		}
	}
	return mapError("transaction", err)
}

func (r *TxRunner) runOnce(ctx context.Context, policy ports.TxPolicy, fn func(ctx context.Context) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(policy.Isolation)})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && rbErr != pgx.ErrTxClosed {
				r.logger.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if policy.LockTimeout > 0 {
		if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", policy.LockTimeout.Milliseconds())); err != nil {
			return err
		}
	}
	if policy.StatementTimeout > 0 {
		if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", policy.StatementTimeout.Milliseconds())); err != nil {
			return err
		}
	}

	if err = fn(withTx(ctx, tx)); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isoLevel(level ports.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case ports.IsolationSerializable:
		return pgx.Serializable
	case ports.IsolationRepeatableRead:
		return pgx.RepeatableRead
	case ports.IsolationReadCommitted:
		return pgx.ReadCommitted
	default:
		return ""
	}
}
