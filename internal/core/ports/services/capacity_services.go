package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// CapacityLedgerSvc guards seat and stock counters. Callers decide when to reserve or
// release; the ledger only enforces the bounds.
type CapacityLedgerSvc interface {
	// Reserve takes n units. Fails with a *apperrors.CapacityError when fewer are available.
	Reserve(ctx context.Context, tx pgx.Tx, resource domain.Resource, n int) (domain.Reservation, error)

	// Release gives n units back, never exceeding the total.
	Release(ctx context.Context, tx pgx.Tx, resource domain.Resource, n int) (domain.Reservation, error)
}
