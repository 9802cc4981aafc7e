package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/SscSPs/enrollment_engine/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	pendingTransactionIndex = "payment_transactions_one_pending_idx"
)

// TxTimeouts bound how long a unit of work may wait on locks and run statements.
type TxTimeouts struct {
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool     *pgxpool.Pool
	Timeouts TxTimeouts
}

var _ portsrepo.RepositoryWithTx = (*BaseRepository)(nil)

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		if mapped := mapPgError(err); errors.Is(mapped, apperrors.ErrBusy) {
			return nil, mapped
		}
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		if mapped := mapPgError(err); errors.Is(mapped, apperrors.ErrBusy) {
			return mapped
		}
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// WithinTx implements portsrepo.UnitOfWork
func (r *BaseRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Rollback after commit is a no-op; a cancelled ctx must not prevent releasing locks.
		if rbErr := r.Rollback(context.WithoutCancel(ctx), tx); rbErr != nil {
			middleware.GetLoggerFromCtx(ctx).Error("Rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if err := r.applyTimeouts(ctx, tx); err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return mapPgError(err)
	}
	return r.Commit(ctx, tx)
}

func (r *BaseRepository) applyTimeouts(ctx context.Context, tx pgx.Tx) error {
	settings := map[string]time.Duration{
		"lock_timeout":      r.Timeouts.LockTimeout,
		"statement_timeout": r.Timeouts.StatementTimeout,
	}
	for name, d := range settings {
		if d <= 0 {
			continue
		}
		// set_config with is_local=true is SET LOCAL with a bind parameter
		if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", name, fmt.Sprintf("%dms", d.Milliseconds())); err != nil {
			return mapPgError(fmt.Errorf("failed to set %s: %w", name, err))
		}
	}
	return nil
}

// mapPgError translates driver failures into the apperrors taxonomy. Errors that already
// carry a sentinel pass through untouched.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrBusy) || errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrDuplicate) || errors.Is(err, apperrors.ErrDuplicatePendingTransaction) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrBusy, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == pendingTransactionIndex {
				return fmt.Errorf("%w: %w", apperrors.ErrDuplicatePendingTransaction, err)
			}
			return fmt.Errorf("%w: %w", apperrors.ErrDuplicate, err)
		case pgLockNotAvailable, pgQueryCanceled, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", apperrors.ErrBusy, err)
		}
	}
	return err
}
