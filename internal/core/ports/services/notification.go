package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
)

// NotificationPort is the outbound channel to clients and operators. Services call it
// only after commit; its errors are logged and never fail the operation.
type NotificationPort interface {
	EnrollmentConfirmed(ctx context.Context, enrollment domain.Enrollment) error
	OrderPaid(ctx context.Context, order domain.Order) error
	SeatAvailable(ctx context.Context, clientID string, workshop domain.Workshop) error
	PaymentProofReceived(ctx context.Context, transaction domain.Transaction) error
	PaymentProofApproved(ctx context.Context, transaction domain.Transaction) error
	PaymentProofRejected(ctx context.Context, transaction domain.Transaction) error
	LowStock(ctx context.Context, item domain.StockItem, remaining int) error
}
