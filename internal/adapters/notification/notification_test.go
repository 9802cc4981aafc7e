package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/platform/config"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type fakeWriter struct {
	messages []kafkaGo.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNotifier_PublishesTypedEvents(t *testing.T) {
	pub := new(MockPublisher)
	n := NewNotifier(pub)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n.clock = func() time.Time { return fixed }

	enrollment := domain.Enrollment{EnrollmentID: "e-1", Item: domain.WorkshopItem("w-1"), PaymentState: domain.PaymentPaid}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		return e.Type == EventEnrollmentConfirmed && e.Key == "e-1" && e.OccurredAt.Equal(fixed) && e.EventID != ""
	})).Return(nil).Once()

	require.NoError(t, n.EnrollmentConfirmed(context.Background(), enrollment))
	pub.AssertExpectations(t)
}

func TestNotifier_SeatAvailableCarriesClient(t *testing.T) {
	pub := new(MockPublisher)
	n := NewNotifier(pub)

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		p, ok := e.Payload.(seatAvailablePayload)
		return ok && e.Type == EventSeatAvailable && p.ClientID == "client-9" && e.Key == "w-1"
	})).Return(nil).Once()

	require.NoError(t, n.SeatAvailable(context.Background(), "client-9", domain.Workshop{WorkshopID: "w-1"}))
	pub.AssertExpectations(t)
}

func TestNotifier_PropagatesPublishError(t *testing.T) {
	pub := new(MockPublisher)
	n := NewNotifier(pub)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := n.LowStock(context.Background(), domain.StockItem{StockItemID: "p-1"}, 2)
	assert.EqualError(t, err, "broker down")
}

func TestFanOut_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := new(MockPublisher)
	healthy := new(MockPublisher)
	failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("amqp down"))
	healthy.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := NewFanOut(failing, healthy).Publish(context.Background(), Event{Type: EventOrderPaid})
	assert.ErrorContains(t, err, "amqp down")
	healthy.AssertCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestKafkaPublisher_KeysByRecord(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	n := NewNotifier(p)

	tx := domain.Transaction{
		TransactionID: "t-1",
		Target:        domain.OrderTarget("o-7"),
		Amount:        decimal.NewFromInt(25),
		State:         domain.TransactionPendingReview,
	}
	require.NoError(t, n.PaymentProofReceived(context.Background(), tx))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "o-7", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventPaymentProofReceived, decoded["type"])

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestNewFromConfig(t *testing.T) {
	n, err := NewFromConfig(&config.Config{NotifierDrivers: []string{"log"}})
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, n.publisher)

	n, err = NewFromConfig(&config.Config{NotifierDrivers: []string{"log", "kafka"}, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"})
	require.NoError(t, err)
	assert.IsType(t, &FanOut{}, n.publisher)
	require.NoError(t, n.Close())

	_, err = NewFromConfig(&config.Config{NotifierDrivers: []string{"amqp"}})
	assert.ErrorContains(t, err, "AMQP_URL")

	_, err = NewFromConfig(&config.Config{NotifierDrivers: []string{"kafka"}})
	assert.ErrorContains(t, err, "KAFKA_BROKERS")

	_, err = NewFromConfig(&config.Config{NotifierDrivers: []string{"pigeon"}})
	assert.ErrorContains(t, err, "unknown notifier driver")
}
