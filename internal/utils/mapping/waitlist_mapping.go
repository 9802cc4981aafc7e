package mapping

import (
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/models"
)

// ToModelWaitlistEntry converts a domain WaitlistEntry to a model WaitlistEntry
func ToModelWaitlistEntry(d domain.WaitlistEntry) models.WaitlistEntry {
	return models.WaitlistEntry{
		EntryID:      d.EntryID,
		WorkshopID:   d.WorkshopID,
		ClientID:     d.ClientID,
		RegisteredAt: d.RegisteredAt,
		Notified:     d.Notified,
		NotifiedAt:   toNullTime(d.NotifiedAt),
	}
}

// ToDomainWaitlistEntry converts a model WaitlistEntry to a domain WaitlistEntry
func ToDomainWaitlistEntry(m models.WaitlistEntry) domain.WaitlistEntry {
	return domain.WaitlistEntry{
		EntryID:      m.EntryID,
		WorkshopID:   m.WorkshopID,
		ClientID:     m.ClientID,
		RegisteredAt: m.RegisteredAt,
		Notified:     m.Notified,
		NotifiedAt:   fromNullTime(m.NotifiedAt),
	}
}
