package dto

import (
	"time"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CartItemRequest is one requested line of a checkout. Quantity is only read for products.
type CartItemRequest struct {
	Kind     string `json:"kind" binding:"required,cart_kind"`
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

// CreateOrderRequest defines the body for a checkout.
type CreateOrderRequest struct {
	ClientID string            `json:"clientID,omitempty"`
	Items    []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToCartItems converts the request lines into domain cart items.
func (r CreateOrderRequest) ToCartItems() []domain.CartItem {
	items := make([]domain.CartItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.CartItem{Kind: domain.CartItemKind(it.Kind), ID: it.ID, Quantity: it.Quantity}
	}
	return items
}

// OrderLineResponse defines the data returned for a product line.
type OrderLineResponse struct {
	LineID      string          `json:"lineID"`
	StockItemID string          `json:"stockItemID"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderResponse defines the data returned for an order.
type OrderResponse struct {
	OrderID       string               `json:"orderID"`
	ClientID      string               `json:"clientID"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	PaymentState  string               `json:"paymentState"`
	Lines         []OrderLineResponse  `json:"lines"`
	EnrollmentIDs []string             `json:"enrollmentIDs"`
	Enrollments   []EnrollmentResponse `json:"enrollments,omitempty"`
	Skipped       []ItemRefResponse    `json:"skipped,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	LastUpdatedAt time.Time            `json:"lastUpdatedAt"`
}

// ToOrderResponse converts a domain.Order to an OrderResponse DTO.
func ToOrderResponse(o *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineResponse{
			LineID:      l.LineID,
			StockItemID: l.StockItemID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		}
	}
	ids := o.EnrollmentIDs
	if ids == nil {
		ids = []string{}
	}
	return OrderResponse{
		OrderID:       o.OrderID,
		ClientID:      o.ClientID,
		TotalAmount:   o.TotalAmount,
		PaymentState:  string(o.PaymentState),
		Lines:         lines,
		EnrollmentIDs: ids,
		CreatedAt:     o.CreatedAt,
		LastUpdatedAt: o.LastUpdatedAt,
	}
}

// ToOrderResultResponse converts a checkout outcome.
func ToOrderResultResponse(r *domain.OrderResult) OrderResponse {
	resp := ToOrderResponse(&r.Order)
	resp.Enrollments = ToEnrollmentResponses(r.Enrollments)
	for _, ref := range r.Skipped {
		resp.Skipped = append(resp.Skipped, ToItemRefResponse(ref))
	}
	return resp
}
