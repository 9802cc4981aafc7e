package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderState is the payment status of an order.
type OrderState string

const (
	OrderPending  OrderState = "PENDING"
	OrderPaid     OrderState = "PAID"
	OrderRejected OrderState = "REJECTED"
)

// CartItemKind is what a cart line asks for.
type CartItemKind string

const (
	CartProduct  CartItemKind = "PRODUCT"
	CartWorkshop CartItemKind = CartItemKind(ItemKindWorkshop)
	CartCourse   CartItemKind = CartItemKind(ItemKindCourse)
)

// CartItem is one requested line of a checkout.
type CartItem struct {
	Kind     CartItemKind `json:"kind"`
	ID       string       `json:"id"`
	Quantity int          `json:"quantity"`
}

// ItemRef converts a workshop or course line into a bookable reference.
func (c CartItem) ItemRef() (ItemRef, error) {
	switch c.Kind {
	case CartWorkshop:
		return WorkshopItem(c.ID), nil
	case CartCourse:
		return CourseItem(c.ID), nil
	}
	return ItemRef{}, fmt.Errorf("cart item kind %s is not bookable", c.Kind)
}

// LockKey names the row a cart line locks. Carts lock rows in LockKey order so two
// checkouts over the same items cannot wait on each other.
func (c CartItem) LockKey() string { return string(c.Kind) + ":" + c.ID }

// InLockOrder returns a copy of items sorted by LockKey.
func InLockOrder(items []CartItem) []CartItem {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b CartItem) int {
		return strings.Compare(a.LockKey(), b.LockKey())
	})
	return ordered
}

// Order groups products and enrollments bought together.
type Order struct {
	OrderID       string          `json:"orderID"`
	ClientID      string          `json:"clientID"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentState  OrderState      `json:"paymentState"`
	Lines         []OrderLine     `json:"lines,omitempty"`
	EnrollmentIDs []string        `json:"enrollmentIDs,omitempty"`
	AuditFields
}

// OrderLine is one product line of an order.
type OrderLine struct {
	LineID      string          `json:"lineID"`
	OrderID     string          `json:"orderID"`
	StockItemID string          `json:"stockItemID"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DeriveOrderState is PAID once approved payments cover the frozen total.
func DeriveOrderState(approved, total decimal.Decimal) OrderState {
	if approved.GreaterThanOrEqual(total) {
		return OrderPaid
	}
	return OrderPending
}

// OrderResult is returned by checkout.
type OrderResult struct {
	Order       Order
	Enrollments []Enrollment
	// Skipped lists items the client was already actively enrolled in.
	Skipped []ItemRef
}
