package notification

import (
	"context"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/google/uuid"
)

// Event types published for each notification.
const (
	EventEnrollmentConfirmed  = "enrollment.confirmed"
	EventOrderPaid            = "order.paid"
	EventSeatAvailable        = "waitlist.seat_available"
	EventPaymentProofReceived = "payment.proof_received"
	EventPaymentProofApproved = "payment.proof_approved"
	EventPaymentProofRejected = "payment.proof_rejected"
	EventLowStock             = "stock.low"
)

// Event is the envelope every transport carries.
type Event struct {
	EventID    string    `json:"eventID"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events to one transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type seatAvailablePayload struct {
	ClientID string          `json:"clientID"`
	Workshop domain.Workshop `json:"workshop"`
}

type lowStockPayload struct {
	Item      domain.StockItem `json:"item"`
	Remaining int              `json:"remaining"`
}

// Notifier turns NotificationPort calls into events on a Publisher.
type Notifier struct {
	publisher Publisher
	clock     func() time.Time
}

// NewNotifier wraps publisher.
func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{publisher: publisher, clock: time.Now}
}

var _ portssvc.NotificationPort = (*Notifier)(nil)

func (n *Notifier) publish(ctx context.Context, eventType string, key string, payload any) error {
	return n.publisher.Publish(ctx, Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: n.clock().UTC(),
		Payload:    payload,
	})
}

func (n *Notifier) EnrollmentConfirmed(ctx context.Context, enrollment domain.Enrollment) error {
	return n.publish(ctx, EventEnrollmentConfirmed, enrollment.EnrollmentID, enrollment)
}

func (n *Notifier) OrderPaid(ctx context.Context, order domain.Order) error {
	return n.publish(ctx, EventOrderPaid, order.OrderID, order)
}

func (n *Notifier) SeatAvailable(ctx context.Context, clientID string, workshop domain.Workshop) error {
	return n.publish(ctx, EventSeatAvailable, workshop.WorkshopID, seatAvailablePayload{ClientID: clientID, Workshop: workshop})
}

func (n *Notifier) PaymentProofReceived(ctx context.Context, transaction domain.Transaction) error {
	return n.publish(ctx, EventPaymentProofReceived, transaction.Target.ID(), transaction)
}

func (n *Notifier) PaymentProofApproved(ctx context.Context, transaction domain.Transaction) error {
	return n.publish(ctx, EventPaymentProofApproved, transaction.Target.ID(), transaction)
}

func (n *Notifier) PaymentProofRejected(ctx context.Context, transaction domain.Transaction) error {
	return n.publish(ctx, EventPaymentProofRejected, transaction.Target.ID(), transaction)
}

func (n *Notifier) LowStock(ctx context.Context, item domain.StockItem, remaining int) error {
	return n.publish(ctx, EventLowStock, item.StockItemID, lowStockPayload{Item: item, Remaining: remaining})
}

// Close releases the underlying transports.
func (n *Notifier) Close() error {
	return n.publisher.Close()
}
