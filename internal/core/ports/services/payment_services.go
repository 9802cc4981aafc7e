package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentReaderSvc defines read operations for proof-of-payment transactions
type PaymentReaderSvc interface {
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactionsForTarget(ctx context.Context, target domain.TargetRef) ([]domain.Transaction, error)
}

// PaymentReviewSvc defines the reconciler operations
type PaymentReviewSvc interface {
	// SubmitTransaction records a new proof of payment for review.
	SubmitTransaction(ctx context.Context, target domain.TargetRef, amount decimal.Decimal, proofURL string, submittedBy string) (*domain.Transaction, error)

	// ApproveTransaction accepts a pending proof, optionally correcting its amount.
	ApproveTransaction(ctx context.Context, transactionID string, overrideAmount *decimal.Decimal, reviewerID string) (*domain.ApprovalResult, error)

	// RejectTransaction refuses a pending proof with a reason.
	RejectTransaction(ctx context.Context, transactionID string, reason string, reviewerID string) (*domain.Transaction, error)
}

// PaymentSvcFacade combines all payment-related service interfaces
type PaymentSvcFacade interface {
	PaymentReaderSvc
	PaymentReviewSvc
}
