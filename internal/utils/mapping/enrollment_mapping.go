package mapping

import (
	"fmt"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/SscSPs/enrollment_engine/internal/models"
)

// ToModelEnrollment converts a domain Enrollment to a model Enrollment
func ToModelEnrollment(d domain.Enrollment) models.Enrollment {
	return models.Enrollment{
		EnrollmentID: d.EnrollmentID,
		ClientID:     d.ClientID,
		ItemType:     string(d.Item.Kind()),
		ItemID:       d.Item.ID(),
		OrderID:      toNullString(d.OrderID),
		AmountPaid:   d.AmountPaid,
		PaymentState: string(d.PaymentState),
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainEnrollment converts a model Enrollment to a domain Enrollment
func ToDomainEnrollment(m models.Enrollment) (domain.Enrollment, error) {
	item, err := domain.ParseItemRef(m.ItemType, m.ItemID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("enrollment %s: %w", m.EnrollmentID, err)
	}
	state := domain.PaymentState(m.PaymentState)
	if !state.Valid() {
		return domain.Enrollment{}, fmt.Errorf("enrollment %s: unknown payment state %q", m.EnrollmentID, m.PaymentState)
	}
	return domain.Enrollment{
		EnrollmentID: m.EnrollmentID,
		ClientID:     m.ClientID,
		Item:         item,
		OrderID:      fromNullString(m.OrderID),
		AmountPaid:   m.AmountPaid,
		PaymentState: state,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}, nil
}

// ToDomainEnrollmentSlice converts a slice of model Enrollments, failing on the first bad row
func ToDomainEnrollmentSlice(ms []models.Enrollment) ([]domain.Enrollment, error) {
	ds := make([]domain.Enrollment, 0, len(ms))
	for _, m := range ms {
		d, err := ToDomainEnrollment(m)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}
