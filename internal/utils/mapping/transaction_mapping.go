package mapping

import (
	"fmt"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model PaymentTransaction
func ToModelTransaction(d domain.Transaction) models.PaymentTransaction {
	return models.PaymentTransaction{
		TransactionID:   d.TransactionID,
		TargetType:      string(d.Target.Kind()),
		TargetID:        d.Target.ID(),
		Amount:          d.Amount,
		State:           string(d.State),
		ProofURL:        optionalString(d.ProofURL),
		Note:            optionalString(d.Note),
		RejectionReason: optionalString(d.RejectionReason),
		ReviewedBy:      toNullString(d.ReviewedBy),
		ReviewedAt:      toNullTime(d.ReviewedAt),
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model PaymentTransaction to a domain Transaction
func ToDomainTransaction(m models.PaymentTransaction) (domain.Transaction, error) {
	target, err := domain.ParseTargetRef(m.TargetType, m.TargetID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", m.TransactionID, err)
	}
	return domain.Transaction{
		TransactionID:   m.TransactionID,
		Target:          target,
		Amount:          m.Amount,
		State:           domain.TransactionState(m.State),
		ProofURL:        m.ProofURL.String,
		Note:            m.Note.String,
		RejectionReason: m.RejectionReason.String,
		ReviewedBy:      fromNullString(m.ReviewedBy),
		ReviewedAt:      fromNullTime(m.ReviewedAt),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}, nil
}
