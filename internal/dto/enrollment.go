package dto

import (
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateEnrollmentRequest defines the body for claiming a workshop or course.
// ClientID is only honoured for staff enrolling on behalf of a client.
type CreateEnrollmentRequest struct {
	ClientID string `json:"clientID,omitempty"`
	ItemType string `json:"itemType" binding:"required,item_kind"`
	ItemID   string `json:"itemID" binding:"required"`
}

// ChangeEnrollmentStatusRequest defines the body of an administrative status override.
type ChangeEnrollmentStatusRequest struct {
	Status string `json:"status" binding:"required,payment_state"`
}

// ItemRefResponse renders a bookable reference.
type ItemRefResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// EnrollmentResponse defines the data returned for an enrollment.
type EnrollmentResponse struct {
	EnrollmentID    string          `json:"enrollmentID"`
	ClientID        string          `json:"clientID"`
	Item            ItemRefResponse `json:"item"`
	OrderID         *string         `json:"orderID,omitempty"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	PaymentState    string          `json:"paymentState"`
	AlreadyEnrolled bool            `json:"alreadyEnrolled,omitempty"`
	Reactivated     bool            `json:"reactivated,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastUpdatedAt   time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy   string          `json:"lastUpdatedBy"`
}

// ToItemRefResponse converts a domain.ItemRef.
func ToItemRefResponse(ref domain.ItemRef) ItemRefResponse {
	return ItemRefResponse{Kind: string(ref.Kind()), ID: ref.ID()}
}

// ToEnrollmentResponse converts a domain.Enrollment to an EnrollmentResponse DTO.
func ToEnrollmentResponse(e *domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		EnrollmentID:  e.EnrollmentID,
		ClientID:      e.ClientID,
		Item:          ToItemRefResponse(e.Item),
		OrderID:       e.OrderID,
		AmountPaid:    e.AmountPaid,
		PaymentState:  string(e.PaymentState),
		CreatedAt:     e.CreatedAt,
		LastUpdatedAt: e.LastUpdatedAt,
		LastUpdatedBy: e.LastUpdatedBy,
	}
}

// ToEnrollmentResultResponse converts a create outcome, flagging idempotent claims.
func ToEnrollmentResultResponse(r *domain.EnrollmentResult) EnrollmentResponse {
	resp := ToEnrollmentResponse(&r.Enrollment)
	resp.AlreadyEnrolled = r.AlreadyEnrolled
	resp.Reactivated = r.Reactivated
	return resp
}

// ToEnrollmentResponses converts a slice of domain.Enrollment.
func ToEnrollmentResponses(es []domain.Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, len(es))
	for i := range es {
		out[i] = ToEnrollmentResponse(&es[i])
	}
	return out
}
