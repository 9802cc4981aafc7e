package repositories

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentReader defines read operations for proof-of-payment transactions
type PaymentReader interface {
	// FindTransactionByID retrieves a transaction by its ID.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactionsByTarget returns the transactions of a target, oldest first.
	ListTransactionsByTarget(ctx context.Context, target domain.TargetRef) ([]domain.Transaction, error)
}

// PaymentTransactionSupport defines writes and locking reads used inside a unit of work
type PaymentTransactionSupport interface {
	// FindTransactionForUpdate selects a transaction and locks its row.
	FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Transaction, error)

	// FindPendingTransactionForTarget returns the transaction under review for a target.
	// Returns apperrors.ErrNotFound when there is none.
	FindPendingTransactionForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (*domain.Transaction, error)

	// SumApprovedForTarget adds up the approved amounts of a target.
	SumApprovedForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (decimal.Decimal, error)

	// CountTransactionsForTarget counts every transaction ever submitted for a target.
	CountTransactionsForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (int, error)

	// InsertTransaction persists a new transaction.
	InsertTransaction(ctx context.Context, tx pgx.Tx, transaction domain.Transaction) error

	// UpdateTransactionReview persists the review outcome of a transaction.
	UpdateTransactionReview(ctx context.Context, tx pgx.Tx, transaction domain.Transaction) error
}

// PaymentRepositoryFacade combines all payment repository interfaces
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentTransactionSupport
}
