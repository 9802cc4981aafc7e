package services

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
)

// OrderReaderSvc defines read operations for order data
type OrderReaderSvc interface {
	// GetOrder retrieves an order with its lines and linked enrollments.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// OrderWriterSvc defines the order aggregator operations
type OrderWriterSvc interface {
	// CreateOrderFromCart checks out a cart atomically.
	CreateOrderFromCart(ctx context.Context, clientID string, items []domain.CartItem) (*domain.OrderResult, error)

	// RecomputeOrderBalance derives the order payment state from approved transactions.
	RecomputeOrderBalance(ctx context.Context, orderID string, actorID string) (*domain.Order, error)
}

// OrderTxSvc exposes the aggregator to services sharing a unit of work
type OrderTxSvc interface {
	RecomputeOrderBalanceInTx(ctx context.Context, scope *TxScope, orderID string, actorID string) (*domain.Order, error)
}

// OrderSvcFacade combines all order-related service interfaces
type OrderSvcFacade interface {
	OrderReaderSvc
	OrderWriterSvc
	OrderTxSvc
}
