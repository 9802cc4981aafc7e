package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionState is the review status of a proof of payment.
type TransactionState string

const (
	TransactionPendingReview TransactionState = "PENDING_REVIEW"
	TransactionApproved      TransactionState = "APPROVED"
	TransactionRejected      TransactionState = "REJECTED"
)

// TargetKind is the closed set of things a transaction can pay for.
type TargetKind string

const (
	TargetEnrollment TargetKind = "ENROLLMENT"
	TargetOrder      TargetKind = "ORDER"
)

// TargetRef points at exactly one enrollment or order.
type TargetRef struct {
	kind TargetKind
	id   string
}

// EnrollmentTarget references an enrollment.
func EnrollmentTarget(id string) TargetRef { return TargetRef{kind: TargetEnrollment, id: id} }

// OrderTarget references an order.
func OrderTarget(id string) TargetRef { return TargetRef{kind: TargetOrder, id: id} }

// ParseTargetRef rebuilds a reference from its stored (kind, id) pair.
func ParseTargetRef(kind string, id string) (TargetRef, error) {
	if id == "" {
		return TargetRef{}, fmt.Errorf("target id is required")
	}
	switch TargetKind(kind) {
	case TargetEnrollment:
		return EnrollmentTarget(id), nil
	case TargetOrder:
		return OrderTarget(id), nil
	default:
		return TargetRef{}, fmt.Errorf("unknown target kind %q", kind)
	}
}

func (t TargetRef) Kind() TargetKind { return t.kind }
func (t TargetRef) ID() string { return t.id }
func (t TargetRef) IsEnrollment() bool { return t.kind == TargetEnrollment }
func (t TargetRef) IsOrder() bool { return t.kind == TargetOrder }
func (t TargetRef) String() string { return fmt.Sprintf("%s:%s", t.kind, t.id) }

// MarshalJSON renders the reference as {"kind": ..., "id": ...}.
func (t TargetRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind TargetKind `json:"kind"`
		ID   string     `json:"id"`
	}{t.kind, t.id})
}

// Transaction is one submitted proof of payment.
type Transaction struct {
	TransactionID   string           `json:"transactionID"`
	Target          TargetRef        `json:"target"`
	Amount          decimal.Decimal  `json:"amount"`
	State           TransactionState `json:"state"`
	ProofURL        string           `json:"proofUrl,omitempty"`
	Note            string           `json:"note,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	ReviewedBy      *string          `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time       `json:"reviewedAt,omitempty"`
	AuditFields
}

// IsPendingReview reports whether the transaction still awaits a decision.
func (t Transaction) IsPendingReview() bool { return t.State == TransactionPendingReview }

// RemainderNote marks transactions created automatically for an outstanding balance.
const RemainderNote = "remaining balance generated after partial payment"

// Outstanding is what is still owed once approved payments are deducted, never negative.
func Outstanding(due, approved decimal.Decimal) decimal.Decimal {
	rest := due.Sub(approved)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// ApprovalResult is the outcome of approving a transaction.
type ApprovalResult struct {
	Transaction Transaction  `json:"transaction"`
	Remainder   *Transaction `json:"remainder,omitempty"`
	Enrollment  *Enrollment  `json:"enrollment,omitempty"`
	Order       *Order       `json:"order,omitempty"`
}
