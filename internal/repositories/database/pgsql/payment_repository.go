package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/SscSPs/enrollment_engine/internal/models"
	"github.com/SscSPs/enrollment_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const transactionColumns = `transaction_id, target_type, target_id, amount, state, proof_url, note, rejection_reason, reviewed_by, reviewed_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxPaymentRepository struct {
	pool *pgxpool.Pool
}

// newPgxPaymentRepository creates a new repository for proof-of-payment transactions.
func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{pool: pool}
}

var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m models.PaymentTransaction
	err := row.Scan(
		&m.TransactionID,
		&m.TargetType,
		&m.TargetID,
		&m.Amount,
		&m.State,
		&m.ProofURL,
		&m.Note,
		&m.RejectionReason,
		&m.ReviewedBy,
		&m.ReviewedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	d, err := mapping.ToDomainTransaction(m)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PgxPaymentRepository) findOne(ctx context.Context, q querier, query string, args ...any) (*domain.Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find transaction: %w", err))
	}
	return t, nil
}

// FindTransactionByID retrieves a transaction by its ID.
func (r *PgxPaymentRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.findOne(ctx, r.pool, `SELECT `+transactionColumns+` FROM payment_transactions WHERE transaction_id = $1`, transactionID)
}

// ListTransactionsByTarget returns the transactions of a target, oldest first.
func (r *PgxPaymentRepository) ListTransactionsByTarget(ctx context.Context, target domain.TargetRef) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at, transaction_id`
	rows, err := r.pool.Query(ctx, query, string(target.Kind()), target.ID())
	if err != nil {
		return nil, mapPgError(fmt.Errorf("failed to query transactions of %s: %w", target, err))
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(fmt.Errorf("error iterating transaction rows: %w", err))
	}
	return transactions, nil
}

// FindTransactionForUpdate locks the transaction row.
func (r *PgxPaymentRepository) FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Transaction, error) {
	return r.findOne(ctx, tx, `SELECT `+transactionColumns+` FROM payment_transactions WHERE transaction_id = $1 FOR UPDATE`, transactionID)
}

// FindPendingTransactionForTarget returns the transaction under review for a target.
func (r *PgxPaymentRepository) FindPendingTransactionForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE target_type = $1 AND target_id = $2 AND state = $3`
	return r.findOne(ctx, tx, query, string(target.Kind()), target.ID(), string(domain.TransactionPendingReview))
}

// SumApprovedForTarget adds up the approved amounts of a target.
func (r *PgxPaymentRepository) SumApprovedForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payment_transactions
		WHERE target_type = $1 AND target_id = $2 AND state = $3`
	var sum decimal.Decimal
	if err := tx.QueryRow(ctx, query, string(target.Kind()), target.ID(), string(domain.TransactionApproved)).Scan(&sum); err != nil {
		return decimal.Zero, mapPgError(fmt.Errorf("failed to sum approved transactions of %s: %w", target, err))
	}
	return sum, nil
}

// CountTransactionsForTarget counts every transaction ever submitted for a target.
func (r *PgxPaymentRepository) CountTransactionsForTarget(ctx context.Context, tx pgx.Tx, target domain.TargetRef) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM payment_transactions WHERE target_type = $1 AND target_id = $2`,
		string(target.Kind()), target.ID()).Scan(&count)
	if err != nil {
		return 0, mapPgError(fmt.Errorf("failed to count transactions of %s: %w", target, err))
	}
	return count, nil
}

// InsertTransaction persists a new transaction. A second pending transaction for the
// same target is refused by the partial unique index.
func (r *PgxPaymentRepository) InsertTransaction(ctx context.Context, tx pgx.Tx, transaction domain.Transaction) error {
	m := mapping.ToModelTransaction(transaction)
	query := `
		INSERT INTO payment_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := tx.Exec(ctx, query,
		m.TransactionID,
		m.TargetType,
		m.TargetID,
		m.Amount,
		m.State,
		m.ProofURL,
		m.Note,
		m.RejectionReason,
		m.ReviewedBy,
		m.ReviewedAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to insert transaction %s: %w", m.TransactionID, err))
	}
	return nil
}

// UpdateTransactionReview persists the review outcome of a transaction.
func (r *PgxPaymentRepository) UpdateTransactionReview(ctx context.Context, tx pgx.Tx, transaction domain.Transaction) error {
	m := mapping.ToModelTransaction(transaction)
	query := `
		UPDATE payment_transactions
		SET state = $2, amount = $3, rejection_reason = $4, reviewed_by = $5, reviewed_at = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE transaction_id = $1;
	`
	tag, err := tx.Exec(ctx, query, m.TransactionID, m.State, m.Amount, m.RejectionReason, m.ReviewedBy, m.ReviewedAt, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to update transaction %s: %w", m.TransactionID, err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
