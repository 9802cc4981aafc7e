package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// UnitOfWork runs fn inside one database transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Lock waits are bounded; contention surfaces as
// apperrors.ErrBusy.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// RepositoryWithTx is implemented by repositories that own transaction handling
type RepositoryWithTx interface {
	TransactionManager
	UnitOfWork
}
