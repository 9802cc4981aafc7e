package models

import "github.com/shopspring/decimal"

// Order is the orders row.
type Order struct {
	OrderID      string          `db:"order_id"`
	ClientID     string          `db:"client_id"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	PaymentState string          `db:"payment_state"`
	AuditFields
}

// OrderLine is the order_lines row.
type OrderLine struct {
	LineID      string          `db:"line_id"`
	OrderID     string          `db:"order_id"`
	StockItemID string          `db:"stock_item_id"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal"`
}
