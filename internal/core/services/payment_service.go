package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrRejectionReasonMissing = errors.New("rejection reason is required")

// paymentService is the transaction reconciler.
type paymentService struct {
	BaseService
	paymentRepo    portsrepo.PaymentRepositoryFacade
	enrollmentRepo portsrepo.EnrollmentTransactionSupport
	orderRepo      portsrepo.OrderTransactionSupport
	enrollments    portssvc.EnrollmentTxSvc
	orders         portssvc.OrderTxSvc
}

// PaymentServiceOption is a functional option for configuring the payment service
type PaymentServiceOption func(*paymentService)

// WithPaymentNotifier adds the outbound notification port
func WithPaymentNotifier(notifier portssvc.NotificationPort) PaymentServiceOption {
	return func(s *paymentService) {
		s.Notifier = notifier
	}
}

// NewPaymentService creates the transaction reconciler.
func NewPaymentService(
	uow portsrepo.UnitOfWork,
	paymentRepo portsrepo.PaymentRepositoryFacade,
	enrollmentRepo portsrepo.EnrollmentTransactionSupport,
	orderRepo portsrepo.OrderTransactionSupport,
	enrollments portssvc.EnrollmentTxSvc,
	orders portssvc.OrderTxSvc,
	options ...PaymentServiceOption,
) portssvc.PaymentSvcFacade {
	svc := &paymentService{
		BaseService:    BaseService{UnitOfWork: uow},
		paymentRepo:    paymentRepo,
		enrollmentRepo: enrollmentRepo,
		orderRepo:      orderRepo,
		enrollments:    enrollments,
		orders:         orders,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// GetTransaction implements portssvc.PaymentReaderSvc
func (s *paymentService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.paymentRepo.FindTransactionByID(ctx, transactionID)
}

// ListTransactionsForTarget implements portssvc.PaymentReaderSvc
func (s *paymentService) ListTransactionsForTarget(ctx context.Context, target domain.TargetRef) ([]domain.Transaction, error) {
	transactions, err := s.paymentRepo.ListTransactionsByTarget(ctx, target)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("target", target.String()))
		return nil, err
	}
	return transactions, nil
}

// SubmitTransaction implements portssvc.PaymentReviewSvc
func (s *paymentService) SubmitTransaction(ctx context.Context, target domain.TargetRef, amount decimal.Decimal, proofURL string, submittedBy string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	var created domain.Transaction
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		state, err := s.lockPayableTarget(ctx, scope, target)
		if err != nil {
			return err
		}
		if err := s.ensureNoPending(ctx, scope, target); err != nil {
			return err
		}
		if err := s.ensureWithinBalance(ctx, scope, target, state, amount); err != nil {
			return err
		}

		created = domain.Transaction{
			TransactionID: uuid.NewString(),
			Target:        target,
			Amount:        amount,
			State:         domain.TransactionPendingReview,
			ProofURL:      proofURL,
			AuditFields:   domain.NewAuditFields(submittedBy, s.Now()),
		}
		if err := s.paymentRepo.InsertTransaction(ctx, scope.Tx, created); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		received := created
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "payment_proof_received", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.PaymentProofReceived(ctx, received)
			}, slog.String("transaction_id", received.TransactionID))
		})
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to submit transaction",
			slog.String("target", target.String()),
			slog.String("amount", amount.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction submitted for review",
		slog.String("transaction_id", created.TransactionID),
		slog.String("target", target.String()),
		slog.String("amount", amount.String()))
	return &created, nil
}

// lockPayableTarget locks the enrollment or order, checks it can still take money and
// returns its payment state.
func (s *paymentService) lockPayableTarget(ctx context.Context, scope *portssvc.TxScope, target domain.TargetRef) (string, error) {
	switch target.Kind() {
	case domain.TargetEnrollment:
		enrollment, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, target.ID())
		if err != nil {
			return "", fmt.Errorf("enrollment %s: %w", target.ID(), err)
		}
		switch enrollment.PaymentState {
		case domain.PaymentVoided, domain.PaymentRejected, domain.PaymentPaid:
			return "", &apperrors.ConflictError{RecordID: enrollment.EnrollmentID, State: string(enrollment.PaymentState), Err: apperrors.ErrInvalidState}
		}
		return string(enrollment.PaymentState), nil
	case domain.TargetOrder:
		order, err := s.orderRepo.FindOrderForUpdate(ctx, scope.Tx, target.ID())
		if err != nil {
			return "", fmt.Errorf("order %s: %w", target.ID(), err)
		}
		if order.PaymentState == domain.OrderPaid {
			return "", &apperrors.ConflictError{RecordID: order.OrderID, State: string(order.PaymentState), Err: apperrors.ErrInvalidState}
		}
		return string(order.PaymentState), nil
	}
	return "", fmt.Errorf("%w: unknown target kind %q", apperrors.ErrValidation, target.Kind())
}

// ensureWithinBalance refuses a proof for more than the target still owes.
func (s *paymentService) ensureWithinBalance(ctx context.Context, scope *portssvc.TxScope, target domain.TargetRef, state string, amount decimal.Decimal) error {
	due, err := s.amountDue(ctx, scope, target)
	if err != nil {
		return err
	}
	approved, err := s.paymentRepo.SumApprovedForTarget(ctx, scope.Tx, target)
	if err != nil {
		return fmt.Errorf("failed to sum approved transactions: %w", err)
	}
	outstanding := domain.Outstanding(due, approved)
	if amount.GreaterThan(outstanding) {
		return &apperrors.ConflictError{
			RecordID:    target.ID(),
			State:       state,
			Amount:      &amount,
			Outstanding: &outstanding,
			Err:         apperrors.ErrAmountExceedsBalance,
		}
	}
	return nil
}

func (s *paymentService) ensureNoPending(ctx context.Context, scope *portssvc.TxScope, target domain.TargetRef) error {
	pending, err := s.paymentRepo.FindPendingTransactionForTarget(ctx, scope.Tx, target)
	if err == nil {
		amount := pending.Amount
		return &apperrors.ConflictError{
			RecordID: pending.TransactionID,
			State:    string(pending.State),
			Amount:   &amount,
			Err:      apperrors.ErrDuplicatePendingTransaction,
		}
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check pending transactions for %s: %w", target, err)
	}
	return nil
}

// amountDue locks the target and returns what it costs in full.
func (s *paymentService) amountDue(ctx context.Context, scope *portssvc.TxScope, target domain.TargetRef) (decimal.Decimal, error) {
	switch target.Kind() {
	case domain.TargetEnrollment:
		enrollment, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, target.ID())
		if err != nil {
			return decimal.Zero, fmt.Errorf("enrollment %s: %w", target.ID(), err)
		}
		return s.enrollments.ItemPriceInTx(ctx, scope.Tx, enrollment.Item)
	case domain.TargetOrder:
		order, err := s.orderRepo.FindOrderForUpdate(ctx, scope.Tx, target.ID())
		if err != nil {
			return decimal.Zero, fmt.Errorf("order %s: %w", target.ID(), err)
		}
		return order.TotalAmount, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown target kind %q", apperrors.ErrValidation, target.Kind())
}

// reviewTarget reads which record a transaction pays for. A transaction never changes
// target, so the read happens before the unit of work and lets review lock the target
// row ahead of the transaction row, the same order submit uses.
func (s *paymentService) reviewTarget(ctx context.Context, transactionID string) (domain.TargetRef, error) {
	transaction, err := s.paymentRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to read transaction for review", slog.String("transaction_id", transactionID))
		return domain.TargetRef{}, err
	}
	return transaction.Target, nil
}

// lockTarget locks the enrollment or order row a transaction pays for.
func (s *paymentService) lockTarget(ctx context.Context, scope *portssvc.TxScope, target domain.TargetRef) error {
	switch target.Kind() {
	case domain.TargetEnrollment:
		if _, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, target.ID()); err != nil {
			return fmt.Errorf("enrollment %s: %w", target.ID(), err)
		}
		return nil
	case domain.TargetOrder:
		if _, err := s.orderRepo.FindOrderForUpdate(ctx, scope.Tx, target.ID()); err != nil {
			return fmt.Errorf("order %s: %w", target.ID(), err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown target kind %q", apperrors.ErrValidation, target.Kind())
}

// ApproveTransaction implements portssvc.PaymentReviewSvc
func (s *paymentService) ApproveTransaction(ctx context.Context, transactionID string, overrideAmount *decimal.Decimal, reviewerID string) (*domain.ApprovalResult, error) {
	target, err := s.reviewTarget(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var result domain.ApprovalResult
	err = s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		due, err := s.amountDue(ctx, scope, target)
		if err != nil {
			return err
		}
		transaction, err := s.paymentRepo.FindTransactionForUpdate(ctx, scope.Tx, transactionID)
		if err != nil {
			return err
		}
		if !transaction.IsPendingReview() {
			return &apperrors.ConflictError{RecordID: transactionID, State: string(transaction.State), Err: apperrors.ErrInvalidState}
		}

		approved, err := s.paymentRepo.SumApprovedForTarget(ctx, scope.Tx, transaction.Target)
		if err != nil {
			return fmt.Errorf("failed to sum approved transactions: %w", err)
		}
		outstanding := domain.Outstanding(due, approved)

		if overrideAmount != nil {
			if !overrideAmount.IsPositive() {
				return fmt.Errorf("%w: override amount must be positive", apperrors.ErrValidation)
			}
			if overrideAmount.GreaterThan(outstanding) {
				amount := *overrideAmount
				return &apperrors.ConflictError{
					RecordID:    transaction.Target.ID(),
					State:       string(transaction.State),
					Amount:      &amount,
					Outstanding: &outstanding,
					Err:         apperrors.ErrAmountExceedsBalance,
				}
			}
			transaction.Amount = *overrideAmount
		}

		now := s.Now()
		transaction.State = domain.TransactionApproved
		transaction.ReviewedBy = &reviewerID
		transaction.ReviewedAt = &now
		transaction.Touch(reviewerID, now)
		if err := s.paymentRepo.UpdateTransactionReview(ctx, scope.Tx, *transaction); err != nil {
			return fmt.Errorf("failed to approve transaction %s: %w", transactionID, err)
		}
		result.Transaction = *transaction

		switch transaction.Target.Kind() {
		case domain.TargetEnrollment:
			enrollment, err := s.enrollments.RecomputeEnrollmentBalanceInTx(ctx, scope, transaction.Target.ID(), reviewerID)
			if err != nil {
				return err
			}
			result.Enrollment = enrollment
			remainder, err := s.remainderFor(ctx, scope, *enrollment, due, reviewerID)
			if err != nil {
				return err
			}
			result.Remainder = remainder
		case domain.TargetOrder:
			order, err := s.orders.RecomputeOrderBalanceInTx(ctx, scope, transaction.Target.ID(), reviewerID)
			if err != nil {
				return err
			}
			result.Order = order
		}

		accepted := *transaction
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "payment_proof_approved", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.PaymentProofApproved(ctx, accepted)
			}, slog.String("transaction_id", accepted.TransactionID))
		})
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to approve transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction approved",
		slog.String("transaction_id", transactionID),
		slog.String("amount", result.Transaction.Amount.String()),
		slog.Bool("remainder_created", result.Remainder != nil),
		slog.String("reviewer_id", reviewerID))
	return &result, nil
}

// remainderFor prompts the next instalment with a pending transaction for what is still
// owed, unless one is already waiting.
func (s *paymentService) remainderFor(ctx context.Context, scope *portssvc.TxScope, enrollment domain.Enrollment, due decimal.Decimal, reviewerID string) (*domain.Transaction, error) {
	if enrollment.PaymentState == domain.PaymentVoided || enrollment.PaymentState == domain.PaymentRejected {
		return nil, nil
	}
	remaining := domain.Outstanding(due, enrollment.AmountPaid)
	if !remaining.IsPositive() {
		return nil, nil
	}

	target := domain.EnrollmentTarget(enrollment.EnrollmentID)
	_, err := s.paymentRepo.FindPendingTransactionForTarget(ctx, scope.Tx, target)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check pending transactions for %s: %w", target, err)
	}

	remainder := domain.Transaction{
		TransactionID: uuid.NewString(),
		Target:        target,
		Amount:        remaining,
		State:         domain.TransactionPendingReview,
		Note:          domain.RemainderNote,
		AuditFields:   domain.NewAuditFields(reviewerID, s.Now()),
	}
	if err := s.paymentRepo.InsertTransaction(ctx, scope.Tx, remainder); err != nil {
		return nil, fmt.Errorf("failed to create remainder transaction: %w", err)
	}
	return &remainder, nil
}

// RejectTransaction implements portssvc.PaymentReviewSvc
func (s *paymentService) RejectTransaction(ctx context.Context, transactionID string, reason string, reviewerID string) (*domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrRejectionReasonMissing)
	}

	target, err := s.reviewTarget(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var rejected domain.Transaction
	err = s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		if err := s.lockTarget(ctx, scope, target); err != nil {
			return err
		}
		transaction, err := s.paymentRepo.FindTransactionForUpdate(ctx, scope.Tx, transactionID)
		if err != nil {
			return err
		}
		if !transaction.IsPendingReview() {
			return &apperrors.ConflictError{RecordID: transactionID, State: string(transaction.State), Err: apperrors.ErrInvalidState}
		}

		now := s.Now()
		transaction.State = domain.TransactionRejected
		transaction.RejectionReason = reason
		transaction.ReviewedBy = &reviewerID
		transaction.ReviewedAt = &now
		transaction.Touch(reviewerID, now)
		if err := s.paymentRepo.UpdateTransactionReview(ctx, scope.Tx, *transaction); err != nil {
			return fmt.Errorf("failed to reject transaction %s: %w", transactionID, err)
		}

		// No money was approved, so the order goes straight to REJECTED.
		if transaction.Target.IsOrder() {
			order, err := s.orderRepo.FindOrderForUpdate(ctx, scope.Tx, transaction.Target.ID())
			if err != nil {
				return fmt.Errorf("order %s: %w", transaction.Target.ID(), err)
			}
			order.PaymentState = domain.OrderRejected
			order.Touch(reviewerID, now)
			if err := s.orderRepo.UpdateOrder(ctx, scope.Tx, *order); err != nil {
				return fmt.Errorf("failed to reject order %s: %w", order.OrderID, err)
			}
		}

		rejected = *transaction
		notice := rejected
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "payment_proof_rejected", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.PaymentProofRejected(ctx, notice)
			}, slog.String("transaction_id", notice.TransactionID))
		})
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reject transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction rejected",
		slog.String("transaction_id", transactionID),
		slog.String("reviewer_id", reviewerID))
	return &rejected, nil
}
