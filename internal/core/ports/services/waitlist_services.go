package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
)

// WaitlistSvc defines the waitlist cascade operations
type WaitlistSvc interface {
	// JoinWaitlist queues a client for a full workshop. Joining twice returns the same entry.
	JoinWaitlist(ctx context.Context, workshopID string, clientID string) (*domain.WaitlistPosition, error)

	// GetWaitlistPosition reports the entry of a client and how many are ahead.
	GetWaitlistPosition(ctx context.Context, workshopID string, clientID string) (*domain.WaitlistPosition, error)

	// OnSeatReleased notifies the oldest waiting client, at most one per call.
	// Returns nil when nobody was notified.
	OnSeatReleased(ctx context.Context, workshopID string) (*domain.WaitlistEntry, error)
}
