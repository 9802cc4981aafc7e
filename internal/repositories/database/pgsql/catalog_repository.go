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

const (
	workshopColumns  = `workshop_id, name, price, seats_total, seats_available, date, is_active`
	courseColumns    = `course_id, name, price, enrolled_count, is_active`
	stockItemColumns = `stock_item_id, name, price, stock_quantity, stock_tracked, low_stock_threshold, is_active`
)

type PgxCatalogRepository struct {
	pool *pgxpool.Pool
}

// newPgxCatalogRepository creates a new repository for workshops, courses and products.
func newPgxCatalogRepository(pool *pgxpool.Pool) portsrepo.CatalogRepositoryFacade {
	return &PgxCatalogRepository{pool: pool}
}

var _ portsrepo.CatalogRepositoryFacade = (*PgxCatalogRepository)(nil)

func scanWorkshop(row pgx.Row) (*domain.Workshop, error) {
	var m models.Workshop
	if err := row.Scan(&m.WorkshopID, &m.Name, &m.Price, &m.SeatsTotal, &m.SeatsAvailable, &m.Date, &m.IsActive); err != nil {
		return nil, err
	}
	d := mapping.ToDomainWorkshop(m)
	return &d, nil
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var m models.Course
	if err := row.Scan(&m.CourseID, &m.Name, &m.Price, &m.EnrolledCount, &m.IsActive); err != nil {
		return nil, err
	}
	d := mapping.ToDomainCourse(m)
	return &d, nil
}

func scanStockItem(row pgx.Row) (*domain.StockItem, error) {
	var m models.StockItem
	if err := row.Scan(&m.StockItemID, &m.Name, &m.Price, &m.StockQuantity, &m.StockTracked, &m.LowStockThreshold, &m.IsActive); err != nil {
		return nil, err
	}
	d := mapping.ToDomainStockItem(m)
	return &d, nil
}

func (r *PgxCatalogRepository) findWorkshop(ctx context.Context, q querier, workshopID string, lock bool) (*domain.Workshop, error) {
	query := `SELECT ` + workshopColumns + ` FROM workshops WHERE workshop_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	w, err := scanWorkshop(q.QueryRow(ctx, query, workshopID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find workshop %s: %w", workshopID, err))
	}
	return w, nil
}

func (r *PgxCatalogRepository) findCourse(ctx context.Context, q querier, courseID string) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE course_id = $1`
	c, err := scanCourse(q.QueryRow(ctx, query, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find course %s: %w", courseID, err))
	}
	return c, nil
}

func (r *PgxCatalogRepository) findStockItem(ctx context.Context, q querier, stockItemID string, lock bool) (*domain.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE stock_item_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanStockItem(q.QueryRow(ctx, query, stockItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(fmt.Errorf("failed to find product %s: %w", stockItemID, err))
	}
	return s, nil
}

// FindWorkshopByID retrieves a workshop without locking it.
func (r *PgxCatalogRepository) FindWorkshopByID(ctx context.Context, workshopID string) (*domain.Workshop, error) {
	return r.findWorkshop(ctx, r.pool, workshopID, false)
}

// FindCourseByID retrieves a course.
func (r *PgxCatalogRepository) FindCourseByID(ctx context.Context, courseID string) (*domain.Course, error) {
	return r.findCourse(ctx, r.pool, courseID)
}

// FindStockItemByID retrieves a product.
func (r *PgxCatalogRepository) FindStockItemByID(ctx context.Context, stockItemID string) (*domain.StockItem, error) {
	return r.findStockItem(ctx, r.pool, stockItemID, false)
}

// FindWorkshopForUpdate locks the workshop row until the transaction ends.
func (r *PgxCatalogRepository) FindWorkshopForUpdate(ctx context.Context, tx pgx.Tx, workshopID string) (*domain.Workshop, error) {
	return r.findWorkshop(ctx, tx, workshopID, true)
}

// FindWorkshopInTx reads the workshop inside tx without locking it.
func (r *PgxCatalogRepository) FindWorkshopInTx(ctx context.Context, tx pgx.Tx, workshopID string) (*domain.Workshop, error) {
	return r.findWorkshop(ctx, tx, workshopID, false)
}

// FindCourseInTx reads the course inside tx.
func (r *PgxCatalogRepository) FindCourseInTx(ctx context.Context, tx pgx.Tx, courseID string) (*domain.Course, error) {
	return r.findCourse(ctx, tx, courseID)
}

// FindStockItemForUpdate locks the product row until the transaction ends.
func (r *PgxCatalogRepository) FindStockItemForUpdate(ctx context.Context, tx pgx.Tx, stockItemID string) (*domain.StockItem, error) {
	return r.findStockItem(ctx, tx, stockItemID, true)
}
