package dto

import (
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitTransactionRequest defines the body for submitting a proof of payment.
type SubmitTransactionRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"positive_amount"`
	ProofURL string          `json:"proofUrl,omitempty" binding:"omitempty,url"`
}

// ApproveTransactionRequest defines the optional amount correction made by the reviewer.
type ApproveTransactionRequest struct {
	OverrideAmount *decimal.Decimal `json:"overrideAmount,omitempty"`
}

// RejectTransactionRequest defines the body for rejecting a proof of payment.
type RejectTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// TargetResponse renders what a transaction pays for.
type TargetResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// TransactionResponse defines the data returned for a proof of payment.
type TransactionResponse struct {
	TransactionID   string          `json:"transactionID"`
	Target          TargetResponse  `json:"target"`
	Amount          decimal.Decimal `json:"amount"`
	State           string          `json:"state"`
	ProofURL        string          `json:"proofUrl,omitempty"`
	Note            string          `json:"note,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	ReviewedBy      *string         `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
}

// ApprovalResponse defines the data returned after an approval.
type ApprovalResponse struct {
	Transaction TransactionResponse  `json:"transaction"`
	Remainder   *TransactionResponse `json:"remainder,omitempty"`
	Enrollment  *EnrollmentResponse  `json:"enrollment,omitempty"`
	Order       *OrderResponse       `json:"order,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to a TransactionResponse DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   t.TransactionID,
		Target:          TargetResponse{Kind: string(t.Target.Kind()), ID: t.Target.ID()},
		Amount:          t.Amount,
		State:           string(t.State),
		ProofURL:        t.ProofURL,
		Note:            t.Note,
		RejectionReason: t.RejectionReason,
		ReviewedBy:      t.ReviewedBy,
		ReviewedAt:      t.ReviewedAt,
		CreatedAt:       t.CreatedAt,
		CreatedBy:       t.CreatedBy,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction.
func ToTransactionResponses(ts []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(ts))
	for i := range ts {
		out[i] = ToTransactionResponse(&ts[i])
	}
	return out
}

// ToApprovalResponse converts a domain.ApprovalResult.
func ToApprovalResponse(r *domain.ApprovalResult) ApprovalResponse {
	resp := ApprovalResponse{Transaction: ToTransactionResponse(&r.Transaction)}
	if r.Remainder != nil {
		rem := ToTransactionResponse(r.Remainder)
		resp.Remainder = &rem
	}
	if r.Enrollment != nil {
		e := ToEnrollmentResponse(r.Enrollment)
		resp.Enrollment = &e
	}
	if r.Order != nil {
		o := ToOrderResponse(r.Order)
		resp.Order = &o
	}
	return resp
}
