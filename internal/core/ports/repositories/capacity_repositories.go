package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// CapacityRepository holds the guarded counter updates. Nothing else may write the
// seat, stock or enrolled counters.
type CapacityRepository interface {
	// ConsumeWorkshopSeats decrements seats_available by n only if it stays >= 0.
	// ok is false when the guard failed; remaining then holds the current available count.
	ConsumeWorkshopSeats(ctx context.Context, tx pgx.Tx, workshopID string, n int) (remaining int, ok bool, err error)

	// RestoreWorkshopSeats increments seats_available by n, capped at seats_total.
	RestoreWorkshopSeats(ctx context.Context, tx pgx.Tx, workshopID string, n int) (remaining int, err error)

	// ConsumeStock decrements a tracked product by n only if it stays >= 0. Untracked
	// products always succeed and are left unchanged.
	ConsumeStock(ctx context.Context, tx pgx.Tx, stockItemID string, n int) (remaining int, tracked bool, ok bool, err error)

	// RestoreStock increments a tracked product by n.
	RestoreStock(ctx context.Context, tx pgx.Tx, stockItemID string, n int) (remaining int, tracked bool, err error)

	// AdjustCourseEnrollment moves the soft enrolled counter by delta, floored at 0.
	AdjustCourseEnrollment(ctx context.Context, tx pgx.Tx, courseID string, delta int) (count int, err error)
}
