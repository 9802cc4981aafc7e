package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Enrollment is the enrollments row. The item reference is stored as (item_type, item_id).
type Enrollment struct {
	EnrollmentID string          `db:"enrollment_id"`
	ClientID     string          `db:"client_id"`
	ItemType     string          `db:"item_type"`
	ItemID       string          `db:"item_id"`
	OrderID      sql.NullString  `db:"order_id"`
	AmountPaid   decimal.Decimal `db:"amount_paid"`
	PaymentState string          `db:"payment_state"`
	AuditFields
}
