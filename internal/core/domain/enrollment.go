package domain

import (
	"github.com/shopspring/decimal"
)

// PaymentState is the payment lifecycle of an enrollment.
type PaymentState string

const (
	PaymentPending       PaymentState = "PENDING"
	PaymentPartiallyPaid PaymentState = "PARTIALLY_PAID"
	PaymentPaid          PaymentState = "PAID"
	PaymentVoided        PaymentState = "VOIDED"
	PaymentRejected      PaymentState = "REJECTED"
)

// Valid reports whether s is one of the known states.
func (s PaymentState) Valid() bool {
	switch s {
	case PaymentPending, PaymentPartiallyPaid, PaymentPaid, PaymentVoided, PaymentRejected:
		return true
	}
	return false
}

// HoldsCapacity reports whether an enrollment in this state occupies a seat.
func (s PaymentState) HoldsCapacity() bool {
	return s != PaymentVoided
}

// CapacityEffect is what a state change does to the item's counter.
type CapacityEffect int

const (
	CapacityUnchanged CapacityEffect = iota
	CapacityRelease
	CapacityReserve
)

// CapacityEffectOf returns the ledger call required to move from one state to another.
// Only crossings into and out of VOIDED touch capacity.
func CapacityEffectOf(from, to PaymentState) CapacityEffect {
	switch {
	case from == to:
		return CapacityUnchanged
	case to == PaymentVoided:
		return CapacityRelease
	case from == PaymentVoided:
		return CapacityReserve
	}
	return CapacityUnchanged
}

// DerivePaymentState maps a paid amount against the price.
func DerivePaymentState(amountPaid, price decimal.Decimal) PaymentState {
	switch {
	case amountPaid.GreaterThanOrEqual(price):
		return PaymentPaid
	case amountPaid.IsPositive():
		return PaymentPartiallyPaid
	}
	return PaymentPending
}

// Enrollment is one client's claim on one bookable item.
type Enrollment struct {
	EnrollmentID string          `json:"enrollmentID"`
	ClientID     string          `json:"clientID"`
	Item         ItemRef         `json:"item"`
	OrderID      *string         `json:"orderID,omitempty"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	PaymentState PaymentState    `json:"paymentState"`
	AuditFields
}

// ApplyBalance sets the paid amount and derives the state, leaving VOIDED and REJECTED untouched.
// It returns true when the enrollment became PAID.
func (e *Enrollment) ApplyBalance(amountPaid, price decimal.Decimal) bool {
	e.AmountPaid = amountPaid
	if e.PaymentState == PaymentVoided || e.PaymentState == PaymentRejected {
		return false
	}
	before := e.PaymentState
	e.PaymentState = DerivePaymentState(amountPaid, price)
	return before != PaymentPaid && e.PaymentState == PaymentPaid
}

// EnrollmentResult is returned by create. AlreadyEnrolled marks an idempotent claim.
type EnrollmentResult struct {
	Enrollment      Enrollment
	AlreadyEnrolled bool
	Reactivated     bool
}
