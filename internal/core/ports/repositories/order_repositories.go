package repositories

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// OrderReader defines read operations for order data
type OrderReader interface {
	// FindOrderByID retrieves an order with its lines and linked enrollment IDs.
	FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
}

// OrderTransactionSupport defines writes and locking reads used inside a unit of work
type OrderTransactionSupport interface {
	// InsertOrder persists a new order shell.
	InsertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error

	// InsertOrderLine persists one product line.
	InsertOrderLine(ctx context.Context, tx pgx.Tx, line domain.OrderLine) error

	// FindOrderForUpdate selects an order and locks its row.
	FindOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Order, error)

	// UpdateOrder persists total, payment state and audit fields.
	UpdateOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error
}

// OrderRepositoryFacade combines all order repository interfaces
type OrderRepositoryFacade interface {
	OrderReader
	OrderTransactionSupport
}
