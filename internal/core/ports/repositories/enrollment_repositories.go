package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// EnrollmentReader defines read operations for enrollment data
type EnrollmentReader interface {
	// FindEnrollmentByID retrieves an enrollment by its ID.
	FindEnrollmentByID(ctx context.Context, enrollmentID string) (*domain.Enrollment, error)

	// ListEnrollmentsByOrder retrieves the enrollments linked to an order.
	ListEnrollmentsByOrder(ctx context.Context, orderID string) ([]domain.Enrollment, error)
}

// EnrollmentTransactionSupport defines writes and locking reads used inside a unit of work
type EnrollmentTransactionSupport interface {
	// FindEnrollmentForUpdate selects an enrollment and locks its row.
	FindEnrollmentForUpdate(ctx context.Context, tx pgx.Tx, enrollmentID string) (*domain.Enrollment, error)

	// FindEnrollmentByClientItemForUpdate locks the enrollment of a client on an item.
	// Returns apperrors.ErrNotFound when the client holds none.
	FindEnrollmentByClientItemForUpdate(ctx context.Context, tx pgx.Tx, clientID string, item domain.ItemRef) (*domain.Enrollment, error)

	// InsertEnrollment inserts a new enrollment. inserted is false when a concurrent claim
	// on the same (client, item) won the uniqueness constraint.
	InsertEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) (inserted bool, err error)

	// UpdateEnrollment persists state, amount paid, order link and audit fields.
	UpdateEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) error

	// DeleteEnrollment removes the record.
	DeleteEnrollment(ctx context.Context, tx pgx.Tx, enrollmentID string) error

	// LinkEnrollmentsToOrder sets order_id on the given enrollments.
	LinkEnrollmentsToOrder(ctx context.Context, tx pgx.Tx, orderID string, enrollmentIDs []string, userID string, now time.Time) error

	// ListEnrollmentsByOrderForUpdate locks and returns the enrollments linked to an order.
	ListEnrollmentsByOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.Enrollment, error)
}

// EnrollmentRepositoryFacade combines all enrollment repository interfaces
type EnrollmentRepositoryFacade interface {
	EnrollmentReader
	EnrollmentTransactionSupport
}
