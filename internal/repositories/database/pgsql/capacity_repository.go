package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxCapacityRepository owns every write to seats_available, stock_quantity and enrolled_count.
type PgxCapacityRepository struct{}

func newPgxCapacityRepository() portsrepo.CapacityRepository {
	return &PgxCapacityRepository{}
}

var _ portsrepo.CapacityRepository = (*PgxCapacityRepository)(nil)

// ConsumeWorkshopSeats implements portsrepo.CapacityRepository
func (r *PgxCapacityRepository) ConsumeWorkshopSeats(ctx context.Context, tx pgx.Tx, workshopID string, n int) (int, bool, error) {
	// The WHERE guard makes check and decrement one statement.
	query := `
		UPDATE workshops
		SET seats_available = seats_available - $2, last_updated_at = NOW()
		WHERE workshop_id = $1 AND seats_available >= $2
		RETURNING seats_available;
	`
	var remaining int
	err := tx.QueryRow(ctx, query, workshopID, n).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, mapPgError(fmt.Errorf("failed to consume seats of workshop %s: %w", workshopID, err))
	}

	// Guard failed: either the workshop is gone or it is short on seats.
	if err := tx.QueryRow(ctx, `SELECT seats_available FROM workshops WHERE workshop_id = $1`, workshopID).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, apperrors.ErrNotFound
		}
		return 0, false, mapPgError(fmt.Errorf("failed to read seats of workshop %s: %w", workshopID, err))
	}
	return remaining, false, nil
}

// RestoreWorkshopSeats implements portsrepo.CapacityRepository
func (r *PgxCapacityRepository) RestoreWorkshopSeats(ctx context.Context, tx pgx.Tx, workshopID string, n int) (int, error) {
	query := `
		UPDATE workshops
		SET seats_available = LEAST(seats_available + $2, seats_total), last_updated_at = NOW()
		WHERE workshop_id = $1
		RETURNING seats_available;
	`
	var remaining int
	if err := tx.QueryRow(ctx, query, workshopID, n).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, mapPgError(fmt.Errorf("failed to restore seats of workshop %s: %w", workshopID, err))
	}
	return remaining, nil
}

// ConsumeStock implements portsrepo.CapacityRepository
func (r *PgxCapacityRepository) ConsumeStock(ctx context.Context, tx pgx.Tx, stockItemID string, n int) (int, bool, bool, error) {
	query := `
		UPDATE stock_items
		SET stock_quantity = CASE WHEN stock_tracked THEN stock_quantity - $2 ELSE stock_quantity END,
		    last_updated_at = NOW()
		WHERE stock_item_id = $1 AND (NOT stock_tracked OR stock_quantity >= $2)
		RETURNING stock_quantity, stock_tracked;
	`
	var remaining int
	var tracked bool
	err := tx.QueryRow(ctx, query, stockItemID, n).Scan(&remaining, &tracked)
	if err == nil {
		return remaining, tracked, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, false, mapPgError(fmt.Errorf("failed to consume stock of %s: %w", stockItemID, err))
	}

	if err := tx.QueryRow(ctx, `SELECT stock_quantity, stock_tracked FROM stock_items WHERE stock_item_id = $1`, stockItemID).Scan(&remaining, &tracked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, false, apperrors.ErrNotFound
		}
		return 0, false, false, mapPgError(fmt.Errorf("failed to read stock of %s: %w", stockItemID, err))
	}
	return remaining, tracked, false, nil
}

// RestoreStock implements portsrepo.CapacityRepository
func (r *PgxCapacityRepository) RestoreStock(ctx context.Context, tx pgx.Tx, stockItemID string, n int) (int, bool, error) {
	query := `
		UPDATE stock_items
		SET stock_quantity = CASE WHEN stock_tracked THEN stock_quantity + $2 ELSE stock_quantity END,
		    last_updated_at = NOW()
		WHERE stock_item_id = $1
		RETURNING stock_quantity, stock_tracked;
	`
	var remaining int
	var tracked bool
	if err := tx.QueryRow(ctx, query, stockItemID, n).Scan(&remaining, &tracked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, apperrors.ErrNotFound
		}
		return 0, false, mapPgError(fmt.Errorf("failed to restore stock of %s: %w", stockItemID, err))
	}
	return remaining, tracked, nil
}

// AdjustCourseEnrollment implements portsrepo.CapacityRepository
func (r *PgxCapacityRepository) AdjustCourseEnrollment(ctx context.Context, tx pgx.Tx, courseID string, delta int) (int, error) {
	query := `
		UPDATE courses
		SET enrolled_count = GREATEST(enrolled_count + $2, 0), last_updated_at = NOW()
		WHERE course_id = $1
		RETURNING enrolled_count;
	`
	var count int
	if err := tx.QueryRow(ctx, query, courseID, delta).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, mapPgError(fmt.Errorf("failed to adjust enrolled count of course %s: %w", courseID, err))
	}
	return count, nil
}
