package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// enrollmentService is the enrollment state machine.
type enrollmentService struct {
	BaseService
	catalogRepo    portsrepo.CatalogTransactionSupport
	enrollmentRepo portsrepo.EnrollmentRepositoryFacade
	paymentRepo    portsrepo.PaymentTransactionSupport
	ledger         portssvc.CapacityLedgerSvc
	waitlist       portssvc.WaitlistSvc
}

// EnrollmentServiceOption is a functional option for configuring the enrollment service
type EnrollmentServiceOption func(*enrollmentService)

// WithWaitlistCascade reacts to released workshop seats through the waitlist.
func WithWaitlistCascade(waitlist portssvc.WaitlistSvc) EnrollmentServiceOption {
	return func(s *enrollmentService) {
		s.waitlist = waitlist
	}
}

// WithEnrollmentNotifier adds the outbound notification port
func WithEnrollmentNotifier(notifier portssvc.NotificationPort) EnrollmentServiceOption {
	return func(s *enrollmentService) {
		s.Notifier = notifier
	}
}

// NewEnrollmentService creates the enrollment state machine with the provided options
func NewEnrollmentService(
	uow portsrepo.UnitOfWork,
	catalogRepo portsrepo.CatalogTransactionSupport,
	enrollmentRepo portsrepo.EnrollmentRepositoryFacade,
	paymentRepo portsrepo.PaymentTransactionSupport,
	ledger portssvc.CapacityLedgerSvc,
	options ...EnrollmentServiceOption,
) portssvc.EnrollmentSvcFacade {
	svc := &enrollmentService{
		BaseService:    BaseService{UnitOfWork: uow},
		catalogRepo:    catalogRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		ledger:         ledger,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.EnrollmentSvcFacade = (*enrollmentService)(nil)

// GetEnrollment implements portssvc.EnrollmentReaderSvc
func (s *enrollmentService) GetEnrollment(ctx context.Context, enrollmentID string) (*domain.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get enrollment", slog.String("enrollment_id", enrollmentID))
		}
		return nil, err
	}
	return enrollment, nil
}

// CreateEnrollment implements portssvc.EnrollmentWriterSvc
func (s *enrollmentService) CreateEnrollment(ctx context.Context, clientID string, item domain.ItemRef) (*domain.EnrollmentResult, error) {
	var result *domain.EnrollmentResult
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		var err error
		result, err = s.CreateEnrollmentInTx(ctx, scope, clientID, item)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create enrollment",
			slog.String("client_id", clientID),
			slog.String("item", item.String()))
		return nil, err
	}

	s.LogInfo(ctx, "Enrollment claimed",
		slog.String("enrollment_id", result.Enrollment.EnrollmentID),
		slog.String("item", item.String()),
		slog.Bool("already_enrolled", result.AlreadyEnrolled),
		slog.Bool("reactivated", result.Reactivated))
	return result, nil
}

// CreateEnrollmentInTx claims item for clientID inside the caller's unit of work.
// The item row is locked before the existing claim is read, so two claims on the last
// seat serialize on that lock.
func (s *enrollmentService) CreateEnrollmentInTx(ctx context.Context, scope *portssvc.TxScope, clientID string, item domain.ItemRef) (*domain.EnrollmentResult, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", apperrors.ErrValidation)
	}
	if item.IsZero() || item.ID() == "" {
		return nil, fmt.Errorf("%w: item reference is required", apperrors.ErrValidation)
	}

	bookable, err := s.lockItem(ctx, scope.Tx, item)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	existing, err := s.enrollmentRepo.FindEnrollmentByClientItemForUpdate(ctx, scope.Tx, clientID, item)
	switch {
	case err == nil && existing.PaymentState.HoldsCapacity():
		return &domain.EnrollmentResult{Enrollment: *existing, AlreadyEnrolled: true}, nil

	case err == nil:
		// Reactivation reuses the voided record and takes the seat again.
		if !bookable.Active() {
			return nil, notOpen(item)
		}
		if _, err := s.ledger.Reserve(ctx, scope.Tx, item.Resource(), 1); err != nil {
			return nil, err
		}
		existing.PaymentState = domain.PaymentPending
		existing.AmountPaid = decimal.Zero
		existing.OrderID = nil
		existing.Touch(clientID, now)
		if err := s.enrollmentRepo.UpdateEnrollment(ctx, scope.Tx, *existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate enrollment %s: %w", existing.EnrollmentID, err)
		}
		return &domain.EnrollmentResult{Enrollment: *existing, Reactivated: true}, nil

	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to look up existing enrollment: %w", err)
	}
	if !bookable.Active() {
		return nil, notOpen(item)
	}

	enrollment := domain.Enrollment{
		EnrollmentID: uuid.NewString(),
		ClientID:     clientID,
		Item:         item,
		AmountPaid:   decimal.Zero,
		PaymentState: domain.PaymentPending,
		AuditFields:  domain.NewAuditFields(clientID, now),
	}
	inserted, err := s.enrollmentRepo.InsertEnrollment(ctx, scope.Tx, enrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert enrollment: %w", err)
	}
	if !inserted {
		// A concurrent claim on an unlocked item (a course) committed first.
		winner, err := s.enrollmentRepo.FindEnrollmentByClientItemForUpdate(ctx, scope.Tx, clientID, item)
		if err != nil {
			return nil, fmt.Errorf("%w: concurrent enrollment on %s", apperrors.ErrBusy, item)
		}
		return &domain.EnrollmentResult{Enrollment: *winner, AlreadyEnrolled: true}, nil
	}

	if _, err := s.ledger.Reserve(ctx, scope.Tx, item.Resource(), 1); err != nil {
		return nil, err
	}
	return &domain.EnrollmentResult{Enrollment: enrollment}, nil
}

// notOpen refuses a claim that would take new capacity on an inactive item. Existing
// holders keep getting their enrollment back.
func notOpen(item domain.ItemRef) error {
	return fmt.Errorf("%w: %s is not open for enrollment", apperrors.ErrValidation, item)
}

// ChangeEnrollmentStatus implements portssvc.EnrollmentWriterSvc
func (s *enrollmentService) ChangeEnrollmentStatus(ctx context.Context, enrollmentID string, newState domain.PaymentState, actorID string) (*domain.Enrollment, error) {
	if !newState.Valid() {
		return nil, fmt.Errorf("%w: unknown payment state %q", apperrors.ErrValidation, newState)
	}
	current, err := s.enrollmentRepo.FindEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	var updated domain.Enrollment
	var from domain.PaymentState
	err = s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		// Item before enrollment, the same lock order create uses.
		if _, err := s.lockItem(ctx, scope.Tx, current.Item); err != nil {
			return err
		}
		enrollment, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, enrollmentID)
		if err != nil {
			return err
		}
		from = enrollment.PaymentState
		if from == newState {
			updated = *enrollment
			return nil
		}

		switch domain.CapacityEffectOf(from, newState) {
		case domain.CapacityRelease:
			if _, err := s.ledger.Release(ctx, scope.Tx, enrollment.Item.Resource(), 1); err != nil {
				return err
			}
			if enrollment.Item.IsWorkshop() {
				s.cascadeAfterCommit(scope, enrollment.Item.ID())
			}
		case domain.CapacityReserve:
			if _, err := s.ledger.Reserve(ctx, scope.Tx, enrollment.Item.Resource(), 1); err != nil {
				return err
			}
		}

		enrollment.PaymentState = newState
		enrollment.Touch(actorID, s.Now())
		if err := s.enrollmentRepo.UpdateEnrollment(ctx, scope.Tx, *enrollment); err != nil {
			return fmt.Errorf("failed to update enrollment %s: %w", enrollmentID, err)
		}
		if newState == domain.PaymentPaid {
			s.confirmAfterCommit(scope, *enrollment)
		}
		updated = *enrollment
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to change enrollment status",
			slog.String("enrollment_id", enrollmentID),
			slog.String("new_state", string(newState)))
		return nil, err
	}

	s.LogInfo(ctx, "Enrollment status changed",
		slog.String("enrollment_id", enrollmentID),
		slog.String("from", string(from)),
		slog.String("to", string(newState)),
		slog.String("actor_id", actorID))
	return &updated, nil
}

// DeleteEnrollment implements portssvc.EnrollmentWriterSvc
func (s *enrollmentService) DeleteEnrollment(ctx context.Context, enrollmentID string, actorID string) error {
	current, err := s.enrollmentRepo.FindEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return err
	}

	err = s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		if _, err := s.lockItem(ctx, scope.Tx, current.Item); err != nil {
			return err
		}
		enrollment, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, enrollmentID)
		if err != nil {
			return err
		}
		count, err := s.paymentRepo.CountTransactionsForTarget(ctx, scope.Tx, domain.EnrollmentTarget(enrollmentID))
		if err != nil {
			return fmt.Errorf("failed to count transactions for enrollment %s: %w", enrollmentID, err)
		}
		if count > 0 {
			return &apperrors.ConflictError{RecordID: enrollmentID, State: string(enrollment.PaymentState), Err: apperrors.ErrHasPaymentHistory}
		}

		// A voided enrollment already gave its seat back.
		if enrollment.PaymentState.HoldsCapacity() {
			if _, err := s.ledger.Release(ctx, scope.Tx, enrollment.Item.Resource(), 1); err != nil {
				return err
			}
			if enrollment.Item.IsWorkshop() {
				s.cascadeAfterCommit(scope, enrollment.Item.ID())
			}
		}
		return s.enrollmentRepo.DeleteEnrollment(ctx, scope.Tx, enrollmentID)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete enrollment", slog.String("enrollment_id", enrollmentID))
		return err
	}

	s.LogInfo(ctx, "Enrollment deleted", slog.String("enrollment_id", enrollmentID), slog.String("actor_id", actorID))
	return nil
}

// RecomputeEnrollmentBalance implements portssvc.EnrollmentWriterSvc
func (s *enrollmentService) RecomputeEnrollmentBalance(ctx context.Context, enrollmentID string, actorID string) (*domain.Enrollment, error) {
	var updated *domain.Enrollment
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		var err error
		updated, err = s.RecomputeEnrollmentBalanceInTx(ctx, scope, enrollmentID, actorID)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to recompute enrollment balance", slog.String("enrollment_id", enrollmentID))
		return nil, err
	}
	return updated, nil
}

// RecomputeEnrollmentBalanceInTx sets amount paid to the approved sum and derives the state.
func (s *enrollmentService) RecomputeEnrollmentBalanceInTx(ctx context.Context, scope *portssvc.TxScope, enrollmentID string, actorID string) (*domain.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindEnrollmentForUpdate(ctx, scope.Tx, enrollmentID)
	if err != nil {
		return nil, err
	}
	price, err := s.ItemPriceInTx(ctx, scope.Tx, enrollment.Item)
	if err != nil {
		return nil, err
	}
	approved, err := s.paymentRepo.SumApprovedForTarget(ctx, scope.Tx, domain.EnrollmentTarget(enrollmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to sum approved transactions for enrollment %s: %w", enrollmentID, err)
	}

	becamePaid := enrollment.ApplyBalance(approved, price)
	enrollment.Touch(actorID, s.Now())
	if err := s.enrollmentRepo.UpdateEnrollment(ctx, scope.Tx, *enrollment); err != nil {
		return nil, fmt.Errorf("failed to update enrollment balance %s: %w", enrollmentID, err)
	}
	if becamePaid {
		s.confirmAfterCommit(scope, *enrollment)
	}

	s.LogDebug(ctx, "Enrollment balance recomputed",
		slog.String("enrollment_id", enrollmentID),
		slog.String("amount_paid", approved.String()),
		slog.String("price", price.String()),
		slog.String("state", string(enrollment.PaymentState)))
	return enrollment, nil
}

// MarkOrderEnrollmentsPaidInTx cascades a paid order down to its enrollments.
// Voided enrollments keep their state.
func (s *enrollmentService) MarkOrderEnrollmentsPaidInTx(ctx context.Context, scope *portssvc.TxScope, orderID string, actorID string) ([]domain.Enrollment, error) {
	enrollments, err := s.enrollmentRepo.ListEnrollmentsByOrderForUpdate(ctx, scope.Tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock enrollments of order %s: %w", orderID, err)
	}

	now := s.Now()
	changed := make([]domain.Enrollment, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.PaymentState == domain.PaymentPaid || enrollment.PaymentState == domain.PaymentVoided {
			continue
		}
		enrollment.PaymentState = domain.PaymentPaid
		enrollment.Touch(actorID, now)
		if err := s.enrollmentRepo.UpdateEnrollment(ctx, scope.Tx, enrollment); err != nil {
			return nil, fmt.Errorf("failed to mark enrollment %s paid: %w", enrollment.EnrollmentID, err)
		}
		s.confirmAfterCommit(scope, enrollment)
		changed = append(changed, enrollment)
	}
	return changed, nil
}

// ItemPriceInTx implements portssvc.EnrollmentTxSvc
func (s *enrollmentService) ItemPriceInTx(ctx context.Context, tx pgx.Tx, item domain.ItemRef) (decimal.Decimal, error) {
	switch item.Kind() {
	case domain.ItemKindWorkshop:
		workshop, err := s.catalogRepo.FindWorkshopInTx(ctx, tx, item.ID())
		if err != nil {
			return decimal.Zero, err
		}
		return workshop.Price, nil
	case domain.ItemKindCourse:
		course, err := s.catalogRepo.FindCourseInTx(ctx, tx, item.ID())
		if err != nil {
			return decimal.Zero, err
		}
		return course.Price, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown item kind %q", apperrors.ErrValidation, item.Kind())
}

// lockItem locks a workshop row. Courses have no counter to guard and are only read.
func (s *enrollmentService) lockItem(ctx context.Context, tx pgx.Tx, item domain.ItemRef) (domain.BookableItem, error) {
	switch item.Kind() {
	case domain.ItemKindWorkshop:
		workshop, err := s.catalogRepo.FindWorkshopForUpdate(ctx, tx, item.ID())
		if err != nil {
			return domain.BookableItem{}, fmt.Errorf("workshop %s: %w", item.ID(), err)
		}
		return domain.BookableItem{Workshop: workshop}, nil
	case domain.ItemKindCourse:
		course, err := s.catalogRepo.FindCourseInTx(ctx, tx, item.ID())
		if err != nil {
			return domain.BookableItem{}, fmt.Errorf("course %s: %w", item.ID(), err)
		}
		return domain.BookableItem{Course: course}, nil
	}
	return domain.BookableItem{}, fmt.Errorf("%w: unknown item kind %q", apperrors.ErrValidation, item.Kind())
}

func (s *enrollmentService) cascadeAfterCommit(scope *portssvc.TxScope, workshopID string) {
	if s.waitlist == nil {
		return
	}
	scope.AfterCommit(func(ctx context.Context) {
		if _, err := s.waitlist.OnSeatReleased(ctx, workshopID); err != nil {
			s.LogError(ctx, err, "Waitlist cascade failed", slog.String("workshop_id", workshopID))
		}
	})
}

func (s *enrollmentService) confirmAfterCommit(scope *portssvc.TxScope, enrollment domain.Enrollment) {
	scope.AfterCommit(func(ctx context.Context) {
		s.Notify(ctx, "enrollment_confirmed", func(ctx context.Context, port portssvc.NotificationPort) error {
			return port.EnrollmentConfirmed(ctx, enrollment)
		}, slog.String("enrollment_id", enrollment.EnrollmentID))
	})
}
