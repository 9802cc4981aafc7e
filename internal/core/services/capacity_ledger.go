package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
)

// capacityLedger enforces the bounds on every seat and stock counter.
type capacityLedger struct {
	BaseService
	capacityRepo portsrepo.CapacityRepository
}

// NewCapacityLedger creates the ledger over the guarded counter updates.
func NewCapacityLedger(capacityRepo portsrepo.CapacityRepository) portssvc.CapacityLedgerSvc {
	return &capacityLedger{capacityRepo: capacityRepo}
}

var _ portssvc.CapacityLedgerSvc = (*capacityLedger)(nil)

// Reserve implements portssvc.CapacityLedgerSvc
func (l *capacityLedger) Reserve(ctx context.Context, tx pgx.Tx, resource domain.Resource, n int) (domain.Reservation, error) {
	if n <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: reservation quantity must be positive, got %d", apperrors.ErrValidation, n)
	}
	reservation := domain.Reservation{Resource: resource, Quantity: n}

	switch resource.Kind() {
	case domain.ResourceWorkshopSeats:
		remaining, ok, err := l.capacityRepo.ConsumeWorkshopSeats(ctx, tx, resource.ID(), n)
		if err != nil {
			return reservation, fmt.Errorf("failed to reserve seats on %s: %w", resource, err)
		}
		if !ok {
			l.LogInfo(ctx, "Seat reservation refused",
				slog.String("resource", resource.String()),
				slog.Int("requested", n),
				slog.Int("available", remaining))
			return reservation, apperrors.NewNoCapacityError(resource.String(), n, remaining)
		}
		reservation.Remaining = remaining
		reservation.Tracked = true

	case domain.ResourceCourseSeats:
		count, err := l.capacityRepo.AdjustCourseEnrollment(ctx, tx, resource.ID(), n)
		if err != nil {
			return reservation, fmt.Errorf("failed to count enrollment on %s: %w", resource, err)
		}
		reservation.Remaining = count

	case domain.ResourceStock:
		remaining, tracked, ok, err := l.capacityRepo.ConsumeStock(ctx, tx, resource.ID(), n)
		if err != nil {
			return reservation, fmt.Errorf("failed to reserve stock on %s: %w", resource, err)
		}
		if !ok {
			l.LogInfo(ctx, "Stock reservation refused",
				slog.String("resource", resource.String()),
				slog.Int("requested", n),
				slog.Int("available", remaining))
			return reservation, apperrors.NewInsufficientStockError(resource.String(), n, remaining)
		}
		reservation.Remaining = remaining
		reservation.Tracked = tracked

	default:
		return reservation, fmt.Errorf("%w: unknown resource kind %q", apperrors.ErrValidation, resource.Kind())
	}

	l.LogDebug(ctx, "Capacity reserved",
		slog.String("resource", resource.String()),
		slog.Int("quantity", n),
		slog.Int("remaining", reservation.Remaining))
	return reservation, nil
}

// Release implements portssvc.CapacityLedgerSvc
func (l *capacityLedger) Release(ctx context.Context, tx pgx.Tx, resource domain.Resource, n int) (domain.Reservation, error) {
	if n <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: release quantity must be positive, got %d", apperrors.ErrValidation, n)
	}
	reservation := domain.Reservation{Resource: resource, Quantity: n}

	switch resource.Kind() {
	case domain.ResourceWorkshopSeats:
		remaining, err := l.capacityRepo.RestoreWorkshopSeats(ctx, tx, resource.ID(), n)
		if err != nil {
			return reservation, fmt.Errorf("failed to release seats on %s: %w", resource, err)
		}
		reservation.Remaining = remaining
		reservation.Tracked = true

	case domain.ResourceCourseSeats:
		count, err := l.capacityRepo.AdjustCourseEnrollment(ctx, tx, resource.ID(), -n)
		if err != nil {
			return reservation, fmt.Errorf("failed to uncount enrollment on %s: %w", resource, err)
		}
		reservation.Remaining = count

	case domain.ResourceStock:
		remaining, tracked, err := l.capacityRepo.RestoreStock(ctx, tx, resource.ID(), n)
		if err != nil {
			return reservation, fmt.Errorf("failed to release stock on %s: %w", resource, err)
		}
		reservation.Remaining = remaining
		reservation.Tracked = tracked

	default:
		return reservation, fmt.Errorf("%w: unknown resource kind %q", apperrors.ErrValidation, resource.Kind())
	}

	l.LogDebug(ctx, "Capacity released",
		slog.String("resource", resource.String()),
		slog.Int("quantity", n),
		slog.Int("remaining", reservation.Remaining))
	return reservation, nil
}
