package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// WaitlistRepository defines persistence for the per-workshop FIFO queue
type WaitlistRepository interface {
	// InsertWaitlistEntry adds an entry. inserted is false when the client is already queued.
	InsertWaitlistEntry(ctx context.Context, tx pgx.Tx, entry domain.WaitlistEntry) (inserted bool, err error)

	// FindWaitlistEntry returns the entry of a client for a workshop.
	FindWaitlistEntry(ctx context.Context, tx pgx.Tx, workshopID string, clientID string) (*domain.WaitlistEntry, error)

	// CountWaitlistAhead counts un-notified entries registered before the given one.
	CountWaitlistAhead(ctx context.Context, tx pgx.Tx, entry domain.WaitlistEntry) (int, error)

	// ClaimNextWaitlistEntry locks the oldest un-notified entry of a workshop, skipping rows
	// locked by a concurrent cascade, and flips it to notified.
	// Returns apperrors.ErrNotFound when nobody is waiting.
	ClaimNextWaitlistEntry(ctx context.Context, tx pgx.Tx, workshopID string, now time.Time) (*domain.WaitlistEntry, error)
}
