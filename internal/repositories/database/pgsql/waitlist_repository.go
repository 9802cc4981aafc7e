package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/SscSPs/enrollment_engine/internal/models"
	"github.com/SscSPs/enrollment_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const waitlistColumns = `entry_id, workshop_id, client_id, registered_at, notified, notified_at`

// PgxWaitlistRepository persists the per-workshop FIFO queues.
type PgxWaitlistRepository struct{}

func newPgxWaitlistRepository() portsrepo.WaitlistRepository {
	return &PgxWaitlistRepository{}
}

var _ portsrepo.WaitlistRepository = (*PgxWaitlistRepository)(nil)

func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	var m models.WaitlistEntry
	if err := row.Scan(&m.EntryID, &m.WorkshopID, &m.ClientID, &m.RegisteredAt, &m.Notified, &m.NotifiedAt); err != nil {
		return nil, err
	}
	d := mapping.ToDomainWaitlistEntry(m)
	return &d, nil
}

// InsertWaitlistEntry adds an entry. inserted is false when the client is already queued.
func (r *PgxWaitlistRepository) InsertWaitlistEntry(ctx context.Context, tx pgx.Tx, entry domain.WaitlistEntry) (bool, error) {
	m := mapping.ToModelWaitlistEntry(entry)
	query := `
		INSERT INTO waitlist_entries (` + waitlistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT waitlist_entries_workshop_client_key DO NOTHING;
	`
	tag, err := tx.Exec(ctx, query, m.EntryID, m.WorkshopID, m.ClientID, m.RegisteredAt, m.Notified, m.NotifiedAt)
	if err != nil {
		return false, mapPgError(fmt.Errorf("failed to insert waitlist entry %s: %w", m.EntryID, err))
	}
	return tag.RowsAffected() == 1, nil
}

// FindWaitlistEntry returns the entry of a client for a workshop.
func (r *PgxWaitlistRepository) FindWaitlistEntry(ctx context.Context, tx pgx.Tx, workshopID string, clientID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE workshop_id = $1 AND client_id = $2`
	entry, err := scanWaitlistEntry(tx.QueryRow(ctx, query, workshopID, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find waitlist entry: %w", err))
	}
	return entry, nil
}

// CountWaitlistAhead counts un-notified entries registered before the given one.
func (r *PgxWaitlistRepository) CountWaitlistAhead(ctx context.Context, tx pgx.Tx, entry domain.WaitlistEntry) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM waitlist_entries
		WHERE workshop_id = $1 AND notified = FALSE
		  AND (registered_at, entry_id) < ($2, $3)`
	var ahead int
	if err := tx.QueryRow(ctx, query, entry.WorkshopID, entry.RegisteredAt, entry.EntryID).Scan(&ahead); err != nil {
		return 0, mapPgError(fmt.Errorf("failed to count waitlist position: %w", err))
	}
	return ahead, nil
}

// ClaimNextWaitlistEntry flips the oldest un-notified entry of a workshop to notified.
func (r *PgxWaitlistRepository) ClaimNextWaitlistEntry(ctx context.Context, tx pgx.Tx, workshopID string, now time.Time) (*domain.WaitlistEntry, error) {
	query := `
		UPDATE waitlist_entries
		SET notified = TRUE, notified_at = $2
		WHERE entry_id = (
			SELECT entry_id
			FROM waitlist_entries
			WHERE workshop_id = $1 AND notified = FALSE
			ORDER BY registered_at, entry_id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + waitlistColumns
	entry, err := scanWaitlistEntry(tx.QueryRow(ctx, query, workshopID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to claim waitlist entry of workshop %s: %w", workshopID, err))
	}
	return entry, nil
}
