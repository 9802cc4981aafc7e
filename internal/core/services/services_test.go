package services_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/SscSPs/enrollment_engine/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock NotificationPort ---
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) EnrollmentConfirmed(ctx context.Context, enrollment domain.Enrollment) error {
	return m.Called(ctx, enrollment).Error(0)
}
func (m *MockNotifier) OrderPaid(ctx context.Context, order domain.Order) error {
	return m.Called(ctx, order).Error(0)
}
func (m *MockNotifier) SeatAvailable(ctx context.Context, clientID string, workshop domain.Workshop) error {
	return m.Called(ctx, clientID, workshop).Error(0)
}
func (m *MockNotifier) PaymentProofReceived(ctx context.Context, transaction domain.Transaction) error {
	return m.Called(ctx, transaction).Error(0)
}
func (m *MockNotifier) PaymentProofApproved(ctx context.Context, transaction domain.Transaction) error {
	return m.Called(ctx, transaction).Error(0)
}
func (m *MockNotifier) PaymentProofRejected(ctx context.Context, transaction domain.Transaction) error {
	return m.Called(ctx, transaction).Error(0)
}
func (m *MockNotifier) LowStock(ctx context.Context, item domain.StockItem, remaining int) error {
	return m.Called(ctx, item, remaining).Error(0)
}

var _ portssvc.NotificationPort = (*MockNotifier)(nil)

// acceptAll makes every notification succeed unless a test set a stricter expectation first.
func (m *MockNotifier) acceptAll(err error) {
	m.On("EnrollmentConfirmed", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("OrderPaid", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("SeatAvailable", mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PaymentProofReceived", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PaymentProofApproved", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PaymentProofRejected", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("LowStock", mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
}

// --- Test Suite Setup ---

type EngineTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memStore
	notifier *MockNotifier
	svc      *portssvc.ServiceContainer
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = newMemStore()
	suite.notifier = new(MockNotifier)
	suite.notifier.acceptAll(nil)
	suite.svc = services.NewServiceContainer(suite.store.provider(), suite.notifier)

	suite.store.addWorkshop(domain.Workshop{WorkshopID: "ws-1", Name: "Pottery", Price: dec(100000), SeatsTotal: 1, SeatsAvailable: 1, Date: time.Now().Add(72 * time.Hour), Active: true})
	suite.store.addWorkshop(domain.Workshop{WorkshopID: "ws-big", Name: "Yoga", Price: dec(50000), SeatsTotal: 10, SeatsAvailable: 10, Active: true})
	suite.store.addCourse(domain.Course{CourseID: "course-1", Name: "Online basics", Price: dec(30000), Active: true})
	suite.store.addStockItem(domain.StockItem{StockItemID: "mug", Name: "Mug", Price: dec(1500), StockQuantity: 2, StockTracked: true, LowStockThreshold: 1, Active: true})
	suite.store.addStockItem(domain.StockItem{StockItemID: "ebook", Name: "E-book", Price: dec(900), StockTracked: false, Active: true})
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (suite *EngineTestSuite) enroll(clientID string, item domain.ItemRef) domain.Enrollment {
	result, err := suite.svc.Enrollment.CreateEnrollment(suite.ctx, clientID, item)
	suite.Require().NoError(err)
	return result.Enrollment
}

// --- Capacity ledger ---

func (suite *EngineTestSuite) TestLedger_RejectsNonPositiveQuantity() {
	_, err := suite.svc.Ledger.Reserve(suite.ctx, nil, domain.WorkshopItem("ws-1").Resource(), 0)
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.svc.Ledger.Release(suite.ctx, nil, domain.StockResource("mug"), -1)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *EngineTestSuite) TestLedger_ReleaseNeverExceedsTotal() {
	reservation, err := suite.svc.Ledger.Release(suite.ctx, nil, domain.WorkshopItem("ws-1").Resource(), 3)
	suite.Require().NoError(err)
	suite.Equal(1, reservation.Remaining)
	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)
}

func (suite *EngineTestSuite) TestLedger_InsufficientStockReportsAvailable() {
	_, err := suite.svc.Ledger.Reserve(suite.ctx, nil, domain.StockResource("mug"), 5)
	var capErr *apperrors.CapacityError
	suite.Require().ErrorAs(err, &capErr)
	suite.ErrorIs(err, apperrors.ErrInsufficientStock)
	suite.Equal(5, capErr.Requested)
	suite.Equal(2, capErr.Available)
}

func (suite *EngineTestSuite) TestLedger_UntrackedStockNeverFails() {
	reservation, err := suite.svc.Ledger.Reserve(suite.ctx, nil, domain.StockResource("ebook"), 1000)
	suite.Require().NoError(err)
	suite.False(reservation.Tracked)
}

// --- Enrollment state machine ---

func (suite *EngineTestSuite) TestCreateEnrollment_LastSeatUnderConcurrency() {
	const clients = 5
	var wg sync.WaitGroup
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.svc.Enrollment.CreateEnrollment(suite.ctx, string(rune('a'+i)), domain.WorkshopItem("ws-1"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		suite.ErrorIs(err, apperrors.ErrNoCapacity)
	}
	suite.Equal(1, succeeded)
	suite.Equal(0, suite.store.workshop("ws-1").SeatsAvailable)
	enrollments, _, _ := suite.store.counts()
	suite.Equal(1, enrollments, "losing claims leave no record behind")
}

func (suite *EngineTestSuite) TestCreateEnrollment_SecondClaimIsIdempotent() {
	first := suite.enroll("client-1", domain.WorkshopItem("ws-big"))

	again, err := suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-big"))
	suite.Require().NoError(err)
	suite.True(again.AlreadyEnrolled)
	suite.Equal(first.EnrollmentID, again.Enrollment.EnrollmentID)
	suite.Equal(9, suite.store.workshop("ws-big").SeatsAvailable)
}

func (suite *EngineTestSuite) TestCreateEnrollment_CourseCountsWithoutLimit() {
	for _, client := range []string{"a", "b", "c"} {
		suite.enroll(client, domain.CourseItem("course-1"))
	}
	suite.Equal(3, suite.store.course("course-1").EnrolledCount)
}

func (suite *EngineTestSuite) TestCreateEnrollment_InactiveOrMissingItem() {
	suite.store.addWorkshop(domain.Workshop{WorkshopID: "ws-closed", SeatsTotal: 5, SeatsAvailable: 5, Active: false})

	_, err := suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-closed"))
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("nope"))
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.Enrollment.CreateEnrollment(suite.ctx, "", domain.WorkshopItem("ws-big"))
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *EngineTestSuite) TestCreateEnrollment_HolderKeepsClaimOnClosedWorkshop() {
	held := suite.enroll("client-1", domain.WorkshopItem("ws-big"))
	closed := suite.store.workshop("ws-big")
	closed.Active = false
	suite.store.addWorkshop(closed)

	again, err := suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-big"))
	suite.Require().NoError(err)
	suite.True(again.AlreadyEnrolled)
	suite.Equal(held.EnrollmentID, again.Enrollment.EnrollmentID)

	result, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-big"},
		{Kind: domain.CartCourse, ID: "course-1"},
	})
	suite.Require().NoError(err)
	suite.Equal([]domain.ItemRef{domain.WorkshopItem("ws-big")}, result.Skipped)
	suite.Len(result.Enrollments, 1)

	_, err = suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-2", domain.WorkshopItem("ws-big"))
	suite.ErrorIs(err, apperrors.ErrValidation, "new claims on a closed workshop are refused")

	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, held.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	_, err = suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-big"))
	suite.ErrorIs(err, apperrors.ErrValidation, "reactivation takes a seat and is refused too")
	suite.Equal(10, suite.store.workshop("ws-big").SeatsAvailable)
}

func (suite *EngineTestSuite) TestVoidThenReactivate() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	suite.Equal(0, suite.store.workshop("ws-1").SeatsAvailable)

	voided, err := suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentVoided, voided.PaymentState)
	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)

	// Voiding twice is a no-op and does not release a second seat.
	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)

	again, err := suite.svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-1"))
	suite.Require().NoError(err)
	suite.True(again.Reactivated)
	suite.Equal(enrollment.EnrollmentID, again.Enrollment.EnrollmentID)
	suite.Equal(domain.PaymentPending, again.Enrollment.PaymentState)
	suite.Equal(0, suite.store.workshop("ws-1").SeatsAvailable)
}

func (suite *EngineTestSuite) TestUnvoidWithoutSeatFails() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	_, err := suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	suite.enroll("client-2", domain.WorkshopItem("ws-1"))

	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentPending, "staff-1")
	suite.ErrorIs(err, apperrors.ErrNoCapacity)

	stored, err := suite.svc.Enrollment.GetEnrollment(suite.ctx, enrollment.EnrollmentID)
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentVoided, stored.PaymentState)
}

func (suite *EngineTestSuite) TestChangeEnrollmentStatus_UnknownState() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-big"))
	_, err := suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentState("LOST"), "staff-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *EngineTestSuite) TestDeleteEnrollment() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	suite.Require().NoError(suite.svc.Enrollment.DeleteEnrollment(suite.ctx, enrollment.EnrollmentID, "staff-1"))
	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)

	_, err := suite.svc.Enrollment.GetEnrollment(suite.ctx, enrollment.EnrollmentID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *EngineTestSuite) TestDeleteEnrollment_WithPaymentHistory() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	_, err := suite.svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget(enrollment.EnrollmentID), dec(10), "", "client-1")
	suite.Require().NoError(err)

	err = suite.svc.Enrollment.DeleteEnrollment(suite.ctx, enrollment.EnrollmentID, "staff-1")
	suite.ErrorIs(err, apperrors.ErrHasPaymentHistory)
	suite.Equal(0, suite.store.workshop("ws-1").SeatsAvailable)
}

// --- Payment reconciliation ---

func (suite *EngineTestSuite) TestPartialPaymentCreatesRemainder() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	target := domain.EnrollmentTarget(enrollment.EnrollmentID)

	first, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(60000), "https://proofs.example/1.jpg", "client-1")
	suite.Require().NoError(err)

	approval, err := suite.svc.Payment.ApproveTransaction(suite.ctx, first.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Require().NotNil(approval.Enrollment)
	suite.Equal(domain.PaymentPartiallyPaid, approval.Enrollment.PaymentState)
	suite.True(dec(60000).Equal(approval.Enrollment.AmountPaid))
	suite.Require().NotNil(approval.Remainder)
	suite.True(dec(40000).Equal(approval.Remainder.Amount))
	suite.Equal(domain.TransactionPendingReview, approval.Remainder.State)
	suite.Equal(domain.RemainderNote, approval.Remainder.Note)

	final, err := suite.svc.Payment.ApproveTransaction(suite.ctx, approval.Remainder.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentPaid, final.Enrollment.PaymentState)
	suite.True(dec(100000).Equal(final.Enrollment.AmountPaid))
	suite.Nil(final.Remainder)

	history, err := suite.svc.Payment.ListTransactionsForTarget(suite.ctx, target)
	suite.Require().NoError(err)
	suite.Len(history, 2)
	suite.notifier.AssertNumberOfCalls(suite.T(), "EnrollmentConfirmed", 1)
	suite.notifier.AssertNumberOfCalls(suite.T(), "PaymentProofApproved", 2)
}

func (suite *EngineTestSuite) TestSubmitTransaction_DuplicatePending() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	target := domain.EnrollmentTarget(enrollment.EnrollmentID)

	pending, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(100), "", "client-1")
	suite.Require().NoError(err)

	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(200), "", "client-1")
	var conflict *apperrors.ConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.ErrorIs(err, apperrors.ErrDuplicatePendingTransaction)
	suite.Equal(pending.TransactionID, conflict.RecordID)
	suite.True(dec(100).Equal(*conflict.Amount))
}

func (suite *EngineTestSuite) TestSubmitTransaction_Validation() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	target := domain.EnrollmentTarget(enrollment.EnrollmentID)

	_, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, decimal.Zero, "", "client-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget("missing"), dec(1), "", "client-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, enrollment.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(1), "", "client-1")
	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

func (suite *EngineTestSuite) TestSubmitTransaction_AmountAboveBalance() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-big"))
	target := domain.EnrollmentTarget(enrollment.EnrollmentID)

	_, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(90000), "", "client-1")
	var conflict *apperrors.ConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.ErrorIs(err, apperrors.ErrAmountExceedsBalance)
	suite.True(dec(50000).Equal(*conflict.Outstanding))
	_, _, transactions := suite.store.counts()
	suite.Zero(transactions)

	first, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(30000), "", "client-1")
	suite.Require().NoError(err)
	approval, err := suite.svc.Payment.ApproveTransaction(suite.ctx, first.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Require().NotNil(approval.Remainder)
	_, err = suite.svc.Payment.RejectTransaction(suite.ctx, approval.Remainder.TransactionID, "sent by mistake", "staff-1")
	suite.Require().NoError(err)

	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(25000), "", "client-1")
	suite.Require().ErrorAs(err, &conflict)
	suite.True(dec(20000).Equal(*conflict.Outstanding))

	rest, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(20000), "", "client-1")
	suite.Require().NoError(err)
	approval, err = suite.svc.Payment.ApproveTransaction(suite.ctx, rest.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentPaid, approval.Enrollment.PaymentState)
	suite.True(dec(50000).Equal(approval.Enrollment.AmountPaid))
}

func (suite *EngineTestSuite) TestReview_LocksTargetBeforeTransaction() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-big"))
	target := domain.EnrollmentTarget(enrollment.EnrollmentID)
	first, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(20000), "", "client-1")
	suite.Require().NoError(err)

	suite.store.takeLockLog()
	approval, err := suite.svc.Payment.ApproveTransaction(suite.ctx, first.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Require().NotNil(approval.Remainder)
	suite.lockedBefore(suite.store.takeLockLog(), "enrollment:"+enrollment.EnrollmentID, "transaction:"+first.TransactionID)

	_, err = suite.svc.Payment.RejectTransaction(suite.ctx, approval.Remainder.TransactionID, "blurry photo", "staff-1")
	suite.Require().NoError(err)
	suite.lockedBefore(suite.store.takeLockLog(), "enrollment:"+enrollment.EnrollmentID, "transaction:"+approval.Remainder.TransactionID)
}

// lockedBefore asserts both rows were locked and first was locked ahead of second.
func (suite *EngineTestSuite) lockedBefore(log []string, first, second string) {
	i, j := slices.Index(log, first), slices.Index(log, second)
	suite.Require().NotEqual(-1, i, "%s never locked in %v", first, log)
	suite.Require().NotEqual(-1, j, "%s never locked in %v", second, log)
	suite.Less(i, j, "lock order was %v", log)
}

func (suite *EngineTestSuite) TestApproveTransaction_OverrideExceedsBalance() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	pending, err := suite.svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget(enrollment.EnrollmentID), dec(100000), "", "client-1")
	suite.Require().NoError(err)

	override := dec(150000)
	_, err = suite.svc.Payment.ApproveTransaction(suite.ctx, pending.TransactionID, &override, "staff-1")
	var conflict *apperrors.ConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.ErrorIs(err, apperrors.ErrAmountExceedsBalance)
	suite.True(dec(100000).Equal(*conflict.Outstanding))

	stored, err := suite.svc.Payment.GetTransaction(suite.ctx, pending.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.TransactionPendingReview, stored.State, "a refused approval leaves the proof untouched")

	corrected := dec(90000)
	approval, err := suite.svc.Payment.ApproveTransaction(suite.ctx, pending.TransactionID, &corrected, "staff-1")
	suite.Require().NoError(err)
	suite.True(corrected.Equal(approval.Transaction.Amount))
	suite.Require().NotNil(approval.Remainder)
	suite.True(dec(10000).Equal(approval.Remainder.Amount))
}

func (suite *EngineTestSuite) TestRejectTransaction() {
	enrollment := suite.enroll("client-1", domain.WorkshopItem("ws-1"))
	pending, err := suite.svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget(enrollment.EnrollmentID), dec(500), "", "client-1")
	suite.Require().NoError(err)

	_, err = suite.svc.Payment.RejectTransaction(suite.ctx, pending.TransactionID, "   ", "staff-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	rejected, err := suite.svc.Payment.RejectTransaction(suite.ctx, pending.TransactionID, "blurry receipt", "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.TransactionRejected, rejected.State)
	suite.Equal("blurry receipt", rejected.RejectionReason)

	_, err = suite.svc.Payment.ApproveTransaction(suite.ctx, pending.TransactionID, nil, "staff-1")
	suite.ErrorIs(err, apperrors.ErrInvalidState)

	// The client may try again once the rejected proof is out of the way.
	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget(enrollment.EnrollmentID), dec(500), "", "client-1")
	suite.NoError(err)
	suite.notifier.AssertNumberOfCalls(suite.T(), "PaymentProofRejected", 1)
}

func (suite *EngineTestSuite) TestNotificationFailureDoesNotFailOperation() {
	failing := new(MockNotifier)
	failing.acceptAll(errors.New("smtp down"))
	svc := services.NewServiceContainer(suite.store.provider(), failing)

	result, err := svc.Enrollment.CreateEnrollment(suite.ctx, "client-1", domain.WorkshopItem("ws-1"))
	suite.Require().NoError(err)
	pending, err := svc.Payment.SubmitTransaction(suite.ctx, domain.EnrollmentTarget(result.Enrollment.EnrollmentID), dec(100000), "", "client-1")
	suite.Require().NoError(err)
	approval, err := svc.Payment.ApproveTransaction(suite.ctx, pending.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentPaid, approval.Enrollment.PaymentState)
	failing.AssertCalled(suite.T(), "EnrollmentConfirmed", mock.Anything, mock.Anything)
}

// --- Orders ---

func (suite *EngineTestSuite) TestCreateOrder_ShortfallRollsBackEverything() {
	_, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-1"},
		{Kind: domain.CartProduct, ID: "mug", Quantity: 5},
	})
	suite.ErrorIs(err, apperrors.ErrInsufficientStock)

	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)
	suite.Equal(2, suite.store.stockItem("mug").StockQuantity)
	enrollments, orders, _ := suite.store.counts()
	suite.Zero(enrollments)
	suite.Zero(orders)
}

func (suite *EngineTestSuite) TestCreateOrder_PaidCascadesToEnrollments() {
	result, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-big"},
		{Kind: domain.CartCourse, ID: "course-1"},
		{Kind: domain.CartProduct, ID: "mug", Quantity: 2},
		{Kind: domain.CartProduct, ID: "ebook", Quantity: 1},
	})
	suite.Require().NoError(err)
	suite.Len(result.Enrollments, 2)
	suite.Len(result.Order.Lines, 2)
	suite.True(dec(50000+30000+2*1500+900).Equal(result.Order.TotalAmount))
	suite.Equal(domain.OrderPending, result.Order.PaymentState)
	suite.Equal(0, suite.store.stockItem("mug").StockQuantity)
	suite.notifier.AssertCalled(suite.T(), "LowStock", mock.Anything, mock.Anything, 0)

	target := domain.OrderTarget(result.Order.OrderID)
	partial, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(40000), "", "client-1")
	suite.Require().NoError(err)
	approval, err := suite.svc.Payment.ApproveTransaction(suite.ctx, partial.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.OrderPending, approval.Order.PaymentState)
	suite.Nil(approval.Remainder, "orders get no remainder transaction")

	rest, err := suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(43900), "", "client-1")
	suite.Require().NoError(err)
	approval, err = suite.svc.Payment.ApproveTransaction(suite.ctx, rest.TransactionID, nil, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(domain.OrderPaid, approval.Order.PaymentState)

	enrollments, err := suite.store.ListEnrollmentsByOrder(suite.ctx, result.Order.OrderID)
	suite.Require().NoError(err)
	suite.Len(enrollments, 2)
	for _, e := range enrollments {
		suite.Equal(domain.PaymentPaid, e.PaymentState)
	}
	suite.notifier.AssertNumberOfCalls(suite.T(), "OrderPaid", 1)
	suite.notifier.AssertNumberOfCalls(suite.T(), "EnrollmentConfirmed", 2)

	_, err = suite.svc.Payment.SubmitTransaction(suite.ctx, target, dec(1), "", "client-1")
	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

func (suite *EngineTestSuite) TestCreateOrder_SkipsExistingEnrollments() {
	suite.enroll("client-1", domain.WorkshopItem("ws-big"))

	result, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-big"},
		{Kind: domain.CartCourse, ID: "course-1"},
	})
	suite.Require().NoError(err)
	suite.Len(result.Skipped, 1)
	suite.Len(result.Enrollments, 1)
	suite.True(dec(30000).Equal(result.Order.TotalAmount))

	_, err = suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-big"},
	})
	suite.ErrorIs(err, services.ErrNothingToBuy)
}

func (suite *EngineTestSuite) TestCreateOrder_LocksRowsInKeyOrder() {
	suite.store.addWorkshop(domain.Workshop{WorkshopID: "ws-2", Name: "Weaving", Price: dec(20000), SeatsTotal: 5, SeatsAvailable: 5, Active: true})
	cart := []domain.CartItem{
		{Kind: domain.CartWorkshop, ID: "ws-big"},
		{Kind: domain.CartProduct, ID: "mug", Quantity: 1},
		{Kind: domain.CartWorkshop, ID: "ws-2"},
	}
	want := []string{"stock:mug", "workshop:ws-2", "workshop:ws-big"}

	suite.store.takeLockLog()
	_, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", cart)
	suite.Require().NoError(err)
	suite.Equal(want, catalogLocks(suite.store.takeLockLog()))

	_, err = suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-2", []domain.CartItem{cart[2], cart[1], cart[0]})
	suite.Require().NoError(err)
	suite.Equal(want, catalogLocks(suite.store.takeLockLog()), "a reversed cart locks the same rows in the same order")
}

func catalogLocks(log []string) []string {
	var locks []string
	for _, entry := range log {
		if strings.HasPrefix(entry, "workshop:") || strings.HasPrefix(entry, "stock:") {
			locks = append(locks, entry)
		}
	}
	return locks
}

func (suite *EngineTestSuite) TestCreateOrder_InvalidCart() {
	_, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", nil)
	suite.ErrorIs(err, services.ErrEmptyCart)

	_, err = suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{{Kind: domain.CartProduct, ID: "mug", Quantity: 0}})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{{Kind: "GIFT_CARD", ID: "g"}})
	suite.ErrorIs(err, services.ErrInvalidCartItem)
}

func (suite *EngineTestSuite) TestRejectOrderTransaction() {
	result, err := suite.svc.Order.CreateOrderFromCart(suite.ctx, "client-1", []domain.CartItem{{Kind: domain.CartProduct, ID: "ebook", Quantity: 1}})
	suite.Require().NoError(err)
	pending, err := suite.svc.Payment.SubmitTransaction(suite.ctx, domain.OrderTarget(result.Order.OrderID), dec(900), "", "client-1")
	suite.Require().NoError(err)

	_, err = suite.svc.Payment.RejectTransaction(suite.ctx, pending.TransactionID, "wrong account", "staff-1")
	suite.Require().NoError(err)

	order, err := suite.svc.Order.GetOrder(suite.ctx, result.Order.OrderID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderRejected, order.PaymentState)
}

// --- Waitlist ---

func (suite *EngineTestSuite) TestWaitlist_FIFOCascadeOnVoid() {
	holder := suite.enroll("client-a", domain.WorkshopItem("ws-1"))

	b, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-b")
	suite.Require().NoError(err)
	suite.Equal(0, b.Ahead)
	c, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-c")
	suite.Require().NoError(err)
	suite.Equal(1, c.Ahead)

	again, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-c")
	suite.Require().NoError(err)
	suite.Equal(c.Entry.EntryID, again.Entry.EntryID)

	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, holder.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)

	suite.notifier.AssertNumberOfCalls(suite.T(), "SeatAvailable", 1)
	suite.notifier.AssertCalled(suite.T(), "SeatAvailable", mock.Anything, "client-b", mock.Anything)

	position, err := suite.svc.Waitlist.GetWaitlistPosition(suite.ctx, "ws-1", "client-b")
	suite.Require().NoError(err)
	suite.True(position.Entry.Notified)
	position, err = suite.svc.Waitlist.GetWaitlistPosition(suite.ctx, "ws-1", "client-c")
	suite.Require().NoError(err)
	suite.False(position.Entry.Notified)
	suite.Equal(0, position.Ahead)

	// Notification is not a reservation; the seat stays open.
	suite.Equal(1, suite.store.workshop("ws-1").SeatsAvailable)
}

func (suite *EngineTestSuite) TestWaitlist_CascadeOnDelete() {
	holder := suite.enroll("client-a", domain.WorkshopItem("ws-1"))
	_, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-b")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.svc.Enrollment.DeleteEnrollment(suite.ctx, holder.EnrollmentID, "staff-1"))
	suite.notifier.AssertCalled(suite.T(), "SeatAvailable", mock.Anything, "client-b", mock.Anything)
}

func (suite *EngineTestSuite) TestWaitlist_NobodyWaiting() {
	entry, err := suite.svc.Waitlist.OnSeatReleased(suite.ctx, "ws-1")
	suite.Require().NoError(err)
	suite.Nil(entry)
	suite.notifier.AssertNotCalled(suite.T(), "SeatAvailable", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *EngineTestSuite) TestWaitlist_EachVoidNotifiesNextInLine() {
	suite.store.addWorkshop(domain.Workshop{WorkshopID: "ws-2", Name: "Weaving", Price: dec(20000), SeatsTotal: 2, SeatsAvailable: 2, Active: true})
	first := suite.enroll("holder-1", domain.WorkshopItem("ws-2"))
	second := suite.enroll("holder-2", domain.WorkshopItem("ws-2"))
	for _, client := range []string{"c1", "c2", "c3"} {
		_, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-2", client)
		suite.Require().NoError(err)
	}

	_, err := suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, first.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(map[string]int{"c1": 1}, suite.seatNotices())

	_, err = suite.svc.Enrollment.ChangeEnrollmentStatus(suite.ctx, second.EnrollmentID, domain.PaymentVoided, "staff-1")
	suite.Require().NoError(err)
	suite.Equal(map[string]int{"c1": 1, "c2": 1}, suite.seatNotices())

	position, err := suite.svc.Waitlist.GetWaitlistPosition(suite.ctx, "ws-2", "c3")
	suite.Require().NoError(err)
	suite.False(position.Entry.Notified)
	suite.Equal(0, position.Ahead)
}

func (suite *EngineTestSuite) TestWaitlist_ReclaimedSeatNotifiesNobody() {
	suite.enroll("client-a", domain.WorkshopItem("ws-1"))
	_, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-b")
	suite.Require().NoError(err)

	entry, err := suite.svc.Waitlist.OnSeatReleased(suite.ctx, "ws-1")
	suite.Require().NoError(err)
	suite.Nil(entry)
	suite.notifier.AssertNotCalled(suite.T(), "SeatAvailable", mock.Anything, mock.Anything, mock.Anything)

	position, err := suite.svc.Waitlist.GetWaitlistPosition(suite.ctx, "ws-1", "client-b")
	suite.Require().NoError(err)
	suite.False(position.Entry.Notified, "the entry keeps its place for the next real release")
}

// seatNotices counts SeatAvailable notifications per client.
func (suite *EngineTestSuite) seatNotices() map[string]int {
	notices := map[string]int{}
	for _, call := range suite.notifier.Calls {
		if call.Method == "SeatAvailable" {
			notices[call.Arguments.String(1)]++
		}
	}
	return notices
}

func (suite *EngineTestSuite) TestWaitlist_JoinRules() {
	_, err := suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-b")
	suite.ErrorIs(err, services.ErrWorkshopNotFull)

	suite.enroll("client-a", domain.WorkshopItem("ws-1"))
	_, err = suite.svc.Waitlist.JoinWaitlist(suite.ctx, "ws-1", "client-a")
	suite.ErrorIs(err, services.ErrAlreadyEnrolled)

	_, err = suite.svc.Waitlist.GetWaitlistPosition(suite.ctx, "ws-1", "client-z")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Run Test Suite ---
func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
