package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Workshop is the workshops row.
type Workshop struct {
	WorkshopID     string          `db:"workshop_id"`
	Name           string          `db:"name"`
	Price          decimal.Decimal `db:"price"`
	SeatsTotal     int             `db:"seats_total"`
	SeatsAvailable int             `db:"seats_available"`
	Date           time.Time       `db:"date"`
	IsActive       bool            `db:"is_active"`
}

// Course is the courses row.
type Course struct {
	CourseID      string          `db:"course_id"`
	Name          string          `db:"name"`
	Price         decimal.Decimal `db:"price"`
	EnrolledCount int             `db:"enrolled_count"`
	IsActive      bool            `db:"is_active"`
}

// StockItem is the stock_items row.
type StockItem struct {
	StockItemID       string          `db:"stock_item_id"`
	Name              string          `db:"name"`
	Price             decimal.Decimal `db:"price"`
	StockQuantity     int             `db:"stock_quantity"`
	StockTracked      bool            `db:"stock_tracked"`
	LowStockThreshold int             `db:"low_stock_threshold"`
	IsActive          bool            `db:"is_active"`
}
