package models

import (
	"database/sql"
	"time"
)

// WaitlistEntry is the waitlist_entries row.
type WaitlistEntry struct {
	EntryID      string       `db:"entry_id"`
	WorkshopID   string       `db:"workshop_id"`
	ClientID     string       `db:"client_id"`
	RegisteredAt time.Time    `db:"registered_at"`
	Notified     bool         `db:"notified"`
	NotifiedAt   sql.NullTime `db:"notified_at"`
}
