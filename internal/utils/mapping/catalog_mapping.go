package mapping

import (
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/models"
)

// ToDomainWorkshop converts a model Workshop to a domain Workshop
func ToDomainWorkshop(m models.Workshop) domain.Workshop {
	return domain.Workshop{
		WorkshopID:     m.WorkshopID,
		Name:           m.Name,
		Price:          m.Price,
		SeatsTotal:     m.SeatsTotal,
		SeatsAvailable: m.SeatsAvailable,
		Date:           m.Date,
		Active:         m.IsActive,
	}
}

// ToDomainCourse converts a model Course to a domain Course
func ToDomainCourse(m models.Course) domain.Course {
	return domain.Course{
		CourseID:      m.CourseID,
		Name:          m.Name,
		Price:         m.Price,
		EnrolledCount: m.EnrolledCount,
		Active:        m.IsActive,
	}
}

// ToDomainStockItem converts a model StockItem to a domain StockItem
func ToDomainStockItem(m models.StockItem) domain.StockItem {
	return domain.StockItem{
		StockItemID:       m.StockItemID,
		Name:              m.Name,
		Price:             m.Price,
		StockQuantity:     m.StockQuantity,
		StockTracked:      m.StockTracked,
		LowStockThreshold: m.LowStockThreshold,
		Active:            m.IsActive,
	}
}
