package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// PaymentTransaction is the payment_transactions row. The target is stored as (target_type, target_id).
type PaymentTransaction struct {
	TransactionID   string          `db:"transaction_id"`
	TargetType      string          `db:"target_type"`
	TargetID        string          `db:"target_id"`
	Amount          decimal.Decimal `db:"amount"`
	State           string          `db:"state"`
	ProofURL        sql.NullString  `db:"proof_url"`
	Note            sql.NullString  `db:"note"`
	RejectionReason sql.NullString  `db:"rejection_reason"`
	ReviewedBy      sql.NullString  `db:"reviewed_by"`
	ReviewedAt      sql.NullTime    `db:"reviewed_at"`
	AuditFields
}
