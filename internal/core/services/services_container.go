package services

import (
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, notifier portssvc.NotificationPort) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Ledger = NewCapacityLedger(repos.CapacityRepo)

	// The waitlist is the reaction to released seats, so it is built before the state machine.
	container.Waitlist = NewWaitlistService(
		repos.UnitOfWork,
		repos.CatalogRepo,
		repos.EnrollmentRepo,
		repos.WaitlistRepo,
		WithWaitlistNotifier(notifier),
	)

	container.Enrollment = NewEnrollmentService(
		repos.UnitOfWork,
		repos.CatalogRepo,
		repos.EnrollmentRepo,
		repos.PaymentRepo,
		container.Ledger,
		WithWaitlistCascade(container.Waitlist),
		WithEnrollmentNotifier(notifier),
	)

	container.Order = NewOrderService(
		repos.UnitOfWork,
		repos.CatalogRepo,
		repos.OrderRepo,
		repos.EnrollmentRepo,
		repos.PaymentRepo,
		container.Ledger,
		container.Enrollment,
		WithOrderNotifier(notifier),
	)

	container.Payment = NewPaymentService(
		repos.UnitOfWork,
		repos.PaymentRepo,
		repos.EnrollmentRepo,
		repos.OrderRepo,
		container.Enrollment,
		container.Order,
		WithPaymentNotifier(notifier),
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.EnrollmentSvcFacade = (*enrollmentService)(nil)
	_ portssvc.OrderSvcFacade      = (*orderService)(nil)
	_ portssvc.PaymentSvcFacade    = (*paymentService)(nil)
	_ portssvc.WaitlistSvc         = (*waitlistService)(nil)
)
