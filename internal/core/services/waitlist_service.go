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
)

var (
	ErrWorkshopNotFull = errors.New("workshop still has seats available")
	ErrAlreadyEnrolled = errors.New("client already holds a seat in this workshop")
)

// waitlistService is the FIFO waitlist cascade.
type waitlistService struct {
	BaseService
	catalogRepo    portsrepo.CatalogTransactionSupport
	enrollmentRepo portsrepo.EnrollmentTransactionSupport
	waitlistRepo   portsrepo.WaitlistRepository
}

// WaitlistServiceOption is a functional option for configuring the waitlist service
type WaitlistServiceOption func(*waitlistService)

// WithWaitlistNotifier adds the outbound notification port
func WithWaitlistNotifier(notifier portssvc.NotificationPort) WaitlistServiceOption {
	return func(s *waitlistService) {
		s.Notifier = notifier
	}
}

// NewWaitlistService creates the waitlist cascade.
func NewWaitlistService(
	uow portsrepo.UnitOfWork,
	catalogRepo portsrepo.CatalogTransactionSupport,
	enrollmentRepo portsrepo.EnrollmentTransactionSupport,
	waitlistRepo portsrepo.WaitlistRepository,
	options ...WaitlistServiceOption,
) portssvc.WaitlistSvc {
	svc := &waitlistService{
		BaseService:    BaseService{UnitOfWork: uow},
		catalogRepo:    catalogRepo,
		enrollmentRepo: enrollmentRepo,
		waitlistRepo:   waitlistRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.WaitlistSvc = (*waitlistService)(nil)

// JoinWaitlist implements portssvc.WaitlistSvc
func (s *waitlistService) JoinWaitlist(ctx context.Context, workshopID string, clientID string) (*domain.WaitlistPosition, error) {
	if clientID == "" || workshopID == "" {
		return nil, fmt.Errorf("%w: workshop and client are required", apperrors.ErrValidation)
	}

	var position *domain.WaitlistPosition
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		workshop, err := s.catalogRepo.FindWorkshopForUpdate(ctx, scope.Tx, workshopID)
		if err != nil {
			return fmt.Errorf("workshop %s: %w", workshopID, err)
		}

		existing, err := s.waitlistRepo.FindWaitlistEntry(ctx, scope.Tx, workshopID, clientID)
		if err == nil {
			position, err = s.positionOf(ctx, scope, *existing)
			return err
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up waitlist entry: %w", err)
		}

		if !workshop.Active {
			return fmt.Errorf("%w: workshop %s is not open", apperrors.ErrValidation, workshopID)
		}
		if !workshop.IsFull() {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrWorkshopNotFull)
		}
		enrollment, err := s.enrollmentRepo.FindEnrollmentByClientItemForUpdate(ctx, scope.Tx, clientID, domain.WorkshopItem(workshopID))
		if err == nil && enrollment.PaymentState.HoldsCapacity() {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrAlreadyEnrolled)
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up enrollment: %w", err)
		}

		entry := domain.WaitlistEntry{
			EntryID:      uuid.NewString(),
			WorkshopID:   workshopID,
			ClientID:     clientID,
			RegisteredAt: s.Now(),
		}
		if _, err := s.waitlistRepo.InsertWaitlistEntry(ctx, scope.Tx, entry); err != nil {
			return fmt.Errorf("failed to join waitlist: %w", err)
		}
		stored, err := s.waitlistRepo.FindWaitlistEntry(ctx, scope.Tx, workshopID, clientID)
		if err != nil {
			return fmt.Errorf("failed to read waitlist entry: %w", err)
		}
		position, err = s.positionOf(ctx, scope, *stored)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to join waitlist",
			slog.String("workshop_id", workshopID),
			slog.String("client_id", clientID))
		return nil, err
	}

	s.LogInfo(ctx, "Client on waitlist",
		slog.String("workshop_id", workshopID),
		slog.String("entry_id", position.Entry.EntryID),
		slog.Int("ahead", position.Ahead))
	return position, nil
}

// GetWaitlistPosition implements portssvc.WaitlistSvc
func (s *waitlistService) GetWaitlistPosition(ctx context.Context, workshopID string, clientID string) (*domain.WaitlistPosition, error) {
	var position *domain.WaitlistPosition
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		entry, err := s.waitlistRepo.FindWaitlistEntry(ctx, scope.Tx, workshopID, clientID)
		if err != nil {
			return err
		}
		position, err = s.positionOf(ctx, scope, *entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

func (s *waitlistService) positionOf(ctx context.Context, scope *portssvc.TxScope, entry domain.WaitlistEntry) (*domain.WaitlistPosition, error) {
	if entry.Notified {
		return &domain.WaitlistPosition{Entry: entry}, nil
	}
	ahead, err := s.waitlistRepo.CountWaitlistAhead(ctx, scope.Tx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to count waitlist position: %w", err)
	}
	return &domain.WaitlistPosition{Entry: entry, Ahead: ahead}, nil
}

// OnSeatReleased implements portssvc.WaitlistSvc. It runs in its own unit of work after
// the releasing transaction committed, flips the oldest un-notified entry and notifies
// that client once the flip is durable.
func (s *waitlistService) OnSeatReleased(ctx context.Context, workshopID string) (*domain.WaitlistEntry, error) {
	var claimed *domain.WaitlistEntry
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		workshop, err := s.catalogRepo.FindWorkshopInTx(ctx, scope.Tx, workshopID)
		if err != nil {
			return fmt.Errorf("workshop %s: %w", workshopID, err)
		}
		if workshop.SeatsAvailable <= 0 {
			s.LogInfo(ctx, "Released seat already re-claimed, waitlist untouched", slog.String("workshop_id", workshopID))
			return nil
		}

		entry, err := s.waitlistRepo.ClaimNextWaitlistEntry(ctx, scope.Tx, workshopID, s.Now())
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "Nobody waiting for released seat", slog.String("workshop_id", workshopID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim next waitlist entry: %w", err)
		}
		claimed = entry

		notified := *entry
		snapshot := *workshop
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "seat_available", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.SeatAvailable(ctx, notified.ClientID, snapshot)
			}, slog.String("workshop_id", snapshot.WorkshopID), slog.String("client_id", notified.ClientID))
		})
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Waitlist cascade failed", slog.String("workshop_id", workshopID))
		return nil, err
	}

	if claimed != nil {
		s.LogInfo(ctx, "Waitlist entry notified",
			slog.String("workshop_id", workshopID),
			slog.String("entry_id", claimed.EntryID),
			slog.String("client_id", claimed.ClientID))
	}
	return claimed, nil
}
