package mapping

import (
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/models"
)

// ToModelOrder converts a domain Order to a model Order
func ToModelOrder(d domain.Order) models.Order {
	return models.Order{
		OrderID:      d.OrderID,
		ClientID:     d.ClientID,
		TotalAmount:  d.TotalAmount,
		PaymentState: string(d.PaymentState),
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainOrder converts a model Order to a domain Order without lines
func ToDomainOrder(m models.Order) domain.Order {
	return domain.Order{
		OrderID:      m.OrderID,
		ClientID:     m.ClientID,
		TotalAmount:  m.TotalAmount,
		PaymentState: domain.OrderState(m.PaymentState),
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelOrderLine converts a domain OrderLine to a model OrderLine
func ToModelOrderLine(d domain.OrderLine) models.OrderLine {
	return models.OrderLine{
		LineID:      d.LineID,
		OrderID:     d.OrderID,
		StockItemID: d.StockItemID,
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		Subtotal:    d.Subtotal,
	}
}

// ToDomainOrderLine converts a model OrderLine to a domain OrderLine
func ToDomainOrderLine(m models.OrderLine) domain.OrderLine {
	return domain.OrderLine{
		LineID:      m.LineID,
		OrderID:     m.OrderID,
		StockItemID: m.StockItemID,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Subtotal:    m.Subtotal,
	}
}
