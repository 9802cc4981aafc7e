package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EnrollmentReaderSvc defines read operations for enrollment data
type EnrollmentReaderSvc interface {
	// GetEnrollment retrieves an enrollment by its ID.
	GetEnrollment(ctx context.Context, enrollmentID string) (*domain.Enrollment, error)
}

// EnrollmentWriterSvc defines the enrollment state machine operations
type EnrollmentWriterSvc interface {
	// CreateEnrollment claims an item for a client, reserving capacity.
	CreateEnrollment(ctx context.Context, clientID string, item domain.ItemRef) (*domain.EnrollmentResult, error)

	// ChangeEnrollmentStatus applies an administrative status change.
	ChangeEnrollmentStatus(ctx context.Context, enrollmentID string, newState domain.PaymentState, actorID string) (*domain.Enrollment, error)

	// DeleteEnrollment releases capacity and removes an enrollment without payment history.
	DeleteEnrollment(ctx context.Context, enrollmentID string, actorID string) error

	// RecomputeEnrollmentBalance derives amount paid and state from approved transactions.
	RecomputeEnrollmentBalance(ctx context.Context, enrollmentID string, actorID string) (*domain.Enrollment, error)
}

// EnrollmentTxSvc exposes the state machine to services sharing a unit of work
type EnrollmentTxSvc interface {
	CreateEnrollmentInTx(ctx context.Context, scope *TxScope, clientID string, item domain.ItemRef) (*domain.EnrollmentResult, error)
	RecomputeEnrollmentBalanceInTx(ctx context.Context, scope *TxScope, enrollmentID string, actorID string) (*domain.Enrollment, error)
	MarkOrderEnrollmentsPaidInTx(ctx context.Context, scope *TxScope, orderID string, actorID string) ([]domain.Enrollment, error)

	// ItemPriceInTx resolves the full price of the item behind an enrollment.
	ItemPriceInTx(ctx context.Context, tx pgx.Tx, item domain.ItemRef) (decimal.Decimal, error)
}

// EnrollmentSvcFacade combines all enrollment-related service interfaces
type EnrollmentSvcFacade interface {
	EnrollmentReaderSvc
	EnrollmentWriterSvc
	EnrollmentTxSvc
}
