package dto

import (
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
)

// JoinWaitlistRequest defines the optional body for joining a waitlist.
type JoinWaitlistRequest struct {
	ClientID string `json:"clientID,omitempty"`
}

// WaitlistPositionResponse defines the data returned for a waitlist entry.
type WaitlistPositionResponse struct {
	EntryID      string     `json:"entryID"`
	WorkshopID   string     `json:"workshopID"`
	ClientID     string     `json:"clientID"`
	RegisteredAt time.Time  `json:"registeredAt"`
	Notified     bool       `json:"notified"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
	Ahead        int        `json:"ahead"`
}

// ToWaitlistPositionResponse converts a domain.WaitlistPosition.
func ToWaitlistPositionResponse(p *domain.WaitlistPosition) WaitlistPositionResponse {
	return WaitlistPositionResponse{
		EntryID:      p.Entry.EntryID,
		WorkshopID:   p.Entry.WorkshopID,
		ClientID:     p.Entry.ClientID,
		RegisteredAt: p.Entry.RegisteredAt,
		Notified:     p.Entry.Notified,
		NotifiedAt:   p.Entry.NotifiedAt,
		Ahead:        p.Ahead,
	}
}
