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
	"github.com/jackc/pgx/v5/pgxpool"
)

const enrollmentColumns = `enrollment_id, client_id, item_type, item_id, order_id, amount_paid, payment_state, created_at, created_by, last_updated_at, last_updated_by`

type PgxEnrollmentRepository struct {
	pool *pgxpool.Pool
}

// newPgxEnrollmentRepository creates a new repository for enrollment data.
func newPgxEnrollmentRepository(pool *pgxpool.Pool) portsrepo.EnrollmentRepositoryFacade {
	return &PgxEnrollmentRepository{pool: pool}
}

var _ portsrepo.EnrollmentRepositoryFacade = (*PgxEnrollmentRepository)(nil)

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var m models.Enrollment
	err := row.Scan(
		&m.EnrollmentID,
		&m.ClientID,
		&m.ItemType,
		&m.ItemID,
		&m.OrderID,
		&m.AmountPaid,
		&m.PaymentState,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	d, err := mapping.ToDomainEnrollment(m)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PgxEnrollmentRepository) findOne(ctx context.Context, q querier, query string, args ...any) (*domain.Enrollment, error) {
	e, err := scanEnrollment(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find enrollment: %w", err))
	}
	return e, nil
}

func (r *PgxEnrollmentRepository) list(ctx context.Context, q querier, query string, args ...any) ([]domain.Enrollment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(fmt.Errorf("failed to query enrollments: %w", err))
	}
	defer rows.Close()

	enrollments := make([]domain.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(fmt.Errorf("error iterating enrollment rows: %w", err))
	}
	return enrollments, nil
}

// FindEnrollmentByID retrieves an enrollment by its ID.
func (r *PgxEnrollmentRepository) FindEnrollmentByID(ctx context.Context, enrollmentID string) (*domain.Enrollment, error) {
	return r.findOne(ctx, r.pool, `SELECT `+enrollmentColumns+` FROM enrollments WHERE enrollment_id = $1`, enrollmentID)
}

// ListEnrollmentsByOrder retrieves the enrollments linked to an order.
func (r *PgxEnrollmentRepository) ListEnrollmentsByOrder(ctx context.Context, orderID string) ([]domain.Enrollment, error) {
	return r.list(ctx, r.pool, `SELECT `+enrollmentColumns+` FROM enrollments WHERE order_id = $1 ORDER BY created_at, enrollment_id`, orderID)
}

// FindEnrollmentForUpdate locks the enrollment row.
func (r *PgxEnrollmentRepository) FindEnrollmentForUpdate(ctx context.Context, tx pgx.Tx, enrollmentID string) (*domain.Enrollment, error) {
	return r.findOne(ctx, tx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE enrollment_id = $1 FOR UPDATE`, enrollmentID)
}

// FindEnrollmentByClientItemForUpdate locks the enrollment of a client on an item.
func (r *PgxEnrollmentRepository) FindEnrollmentByClientItemForUpdate(ctx context.Context, tx pgx.Tx, clientID string, item domain.ItemRef) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE client_id = $1 AND item_type = $2 AND item_id = $3 FOR UPDATE`
	return r.findOne(ctx, tx, query, clientID, string(item.Kind()), item.ID())
}

// InsertEnrollment inserts a new enrollment. inserted is false when the (client, item)
// pair already exists.
func (r *PgxEnrollmentRepository) InsertEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) (bool, error) {
	m := mapping.ToModelEnrollment(enrollment)
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT ON CONSTRAINT enrollments_client_item_key DO NOTHING;
	`
	tag, err := tx.Exec(ctx, query,
		m.EnrollmentID,
		m.ClientID,
		m.ItemType,
		m.ItemID,
		m.OrderID,
		m.AmountPaid,
		m.PaymentState,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return false, mapPgError(fmt.Errorf("failed to insert enrollment %s: %w", m.EnrollmentID, err))
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateEnrollment persists state, amount paid, order link and audit fields.
func (r *PgxEnrollmentRepository) UpdateEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) error {
	m := mapping.ToModelEnrollment(enrollment)
	query := `
		UPDATE enrollments
		SET payment_state = $2, amount_paid = $3, order_id = $4, last_updated_at = $5, last_updated_by = $6
		WHERE enrollment_id = $1;
	`
	tag, err := tx.Exec(ctx, query, m.EnrollmentID, m.PaymentState, m.AmountPaid, m.OrderID, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to update enrollment %s: %w", m.EnrollmentID, err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteEnrollment removes the record.
func (r *PgxEnrollmentRepository) DeleteEnrollment(ctx context.Context, tx pgx.Tx, enrollmentID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE enrollment_id = $1`, enrollmentID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to delete enrollment %s: %w", enrollmentID, err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// LinkEnrollmentsToOrder sets order_id on the given enrollments.
func (r *PgxEnrollmentRepository) LinkEnrollmentsToOrder(ctx context.Context, tx pgx.Tx, orderID string, enrollmentIDs []string, userID string, now time.Time) error {
	if len(enrollmentIDs) == 0 {
		return nil
	}
	query := `
		UPDATE enrollments
		SET order_id = $1, last_updated_at = $3, last_updated_by = $4
		WHERE enrollment_id = ANY($2);
	`
	tag, err := tx.Exec(ctx, query, orderID, enrollmentIDs, now, userID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to link enrollments to order %s: %w", orderID, err))
	}
	if int(tag.RowsAffected()) != len(enrollmentIDs) {
		return fmt.Errorf("linked %d of %d enrollments to order %s", tag.RowsAffected(), len(enrollmentIDs), orderID)
	}
	return nil
}

// ListEnrollmentsByOrderForUpdate locks and returns the enrollments linked to an order.
func (r *PgxEnrollmentRepository) ListEnrollmentsByOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.Enrollment, error) {
	return r.list(ctx, tx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE order_id = $1 ORDER BY enrollment_id FOR UPDATE`, orderID)
}
