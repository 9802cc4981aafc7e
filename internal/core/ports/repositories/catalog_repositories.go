package repositories

import (
	"context"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// CatalogReader defines read operations for bookable items and products
type CatalogReader interface {
	// FindWorkshopByID retrieves a workshop without locking it.
	FindWorkshopByID(ctx context.Context, workshopID string) (*domain.Workshop, error)

	// FindCourseByID retrieves a course.
	FindCourseByID(ctx context.Context, courseID string) (*domain.Course, error)

	// FindStockItemByID retrieves a product.
	FindStockItemByID(ctx context.Context, stockItemID string) (*domain.StockItem, error)
}

// CatalogTransactionSupport defines locking reads used inside a unit of work
type CatalogTransactionSupport interface {
	// FindWorkshopForUpdate selects a workshop and locks its row until the transaction ends.
	FindWorkshopForUpdate(ctx context.Context, tx pgx.Tx, workshopID string) (*domain.Workshop, error)

	// FindWorkshopInTx reads a workshop inside the transaction without locking it.
	FindWorkshopInTx(ctx context.Context, tx pgx.Tx, workshopID string) (*domain.Workshop, error)

	// FindCourseInTx reads a course inside the transaction. Courses are never locked.
	FindCourseInTx(ctx context.Context, tx pgx.Tx, courseID string) (*domain.Course, error)

	// FindStockItemForUpdate selects a product and locks its row until the transaction ends.
	FindStockItemForUpdate(ctx context.Context, tx pgx.Tx, stockItemID string) (*domain.StockItem, error)
}

// CatalogRepositoryFacade combines all catalog repository interfaces
type CatalogRepositoryFacade interface {
	CatalogReader
	CatalogTransactionSupport
}
