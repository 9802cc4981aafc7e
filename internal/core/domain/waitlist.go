package domain

import "time"

// WaitlistEntry is one client queued for a full workshop.
type WaitlistEntry struct {
	EntryID      string     `json:"entryID"`
	WorkshopID   string     `json:"workshopID"`
	ClientID     string     `json:"clientID"`
	RegisteredAt time.Time  `json:"registeredAt"`
	Notified     bool       `json:"notified"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
}

// WaitlistPosition is an entry plus how many un-notified entries are ahead of it.
type WaitlistPosition struct {
	Entry WaitlistEntry `json:"entry"`
	Ahead int           `json:"ahead"`
}
