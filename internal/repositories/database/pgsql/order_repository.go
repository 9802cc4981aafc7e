package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/SscSPs/enrollment_engine/internal/models"
	"github.com/SscSPs/enrollment_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `order_id, client_id, total_amount, payment_state, created_at, created_by, last_updated_at, last_updated_by`

type PgxOrderRepository struct {
	pool *pgxpool.Pool
}

// newPgxOrderRepository creates a new repository for orders and their lines.
func newPgxOrderRepository(pool *pgxpool.Pool) portsrepo.OrderRepositoryFacade {
	return &PgxOrderRepository{pool: pool}
}

var _ portsrepo.OrderRepositoryFacade = (*PgxOrderRepository)(nil)

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var m models.Order
	err := row.Scan(&m.OrderID, &m.ClientID, &m.TotalAmount, &m.PaymentState, &m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainOrder(m)
	return &d, nil
}

func (r *PgxOrderRepository) findOrder(ctx context.Context, q querier, orderID string, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	order, err := scanOrder(q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find order %s: %w", orderID, err))
	}
	if err := r.loadChildren(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PgxOrderRepository) loadChildren(ctx context.Context, q querier, order *domain.Order) error {
	rows, err := q.Query(ctx, `
		SELECT line_id, order_id, stock_item_id, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = $1 ORDER BY line_id`, order.OrderID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to query lines of order %s: %w", order.OrderID, err))
	}
	defer rows.Close()
	for rows.Next() {
		var m models.OrderLine
		if err := rows.Scan(&m.LineID, &m.OrderID, &m.StockItemID, &m.Quantity, &m.UnitPrice, &m.Subtotal); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, mapping.ToDomainOrderLine(m))
	}
	if err := rows.Err(); err != nil {
		return mapPgError(err)
	}

	idRows, err := q.Query(ctx, `SELECT enrollment_id FROM enrollments WHERE order_id = $1 ORDER BY enrollment_id`, order.OrderID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to query enrollments of order %s: %w", order.OrderID, err))
	}
	ids, err := pgx.CollectRows(idRows, pgx.RowTo[string])
	if err != nil {
		return mapPgError(fmt.Errorf("failed to collect enrollments of order %s: %w", order.OrderID, err))
	}
	order.EnrollmentIDs = ids
	return nil
}

// FindOrderByID retrieves an order with its lines and linked enrollment IDs.
func (r *PgxOrderRepository) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.findOrder(ctx, r.pool, orderID, false)
}

// FindOrderForUpdate locks the order row.
func (r *PgxOrderRepository) FindOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Order, error) {
	return r.findOrder(ctx, tx, orderID, true)
}

// InsertOrder persists a new order shell.
func (r *PgxOrderRepository) InsertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	m := mapping.ToModelOrder(order)
	query := `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := tx.Exec(ctx, query, m.OrderID, m.ClientID, m.TotalAmount, m.PaymentState, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to insert order %s: %w", m.OrderID, err))
	}
	return nil
}

// InsertOrderLine persists one product line.
func (r *PgxOrderRepository) InsertOrderLine(ctx context.Context, tx pgx.Tx, line domain.OrderLine) error {
	m := mapping.ToModelOrderLine(line)
	query := `
		INSERT INTO order_lines (line_id, order_id, stock_item_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	if _, err := tx.Exec(ctx, query, m.LineID, m.OrderID, m.StockItemID, m.Quantity, m.UnitPrice, m.Subtotal); err != nil {
		return mapPgError(fmt.Errorf("failed to insert order line %s: %w", m.LineID, err))
	}
	return nil
}

// UpdateOrder persists total, payment state and audit fields.
func (r *PgxOrderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	m := mapping.ToModelOrder(order)
	query := `
		UPDATE orders
		SET total_amount = $2, payment_state = $3, last_updated_at = $4, last_updated_by = $5
		WHERE order_id = $1;
	`
	tag, err := tx.Exec(ctx, query, m.OrderID, m.TotalAmount, m.PaymentState, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to update order %s: %w", m.OrderID, err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
