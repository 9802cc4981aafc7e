package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	UnitOfWork     UnitOfWork
	CatalogRepo    CatalogRepositoryFacade
	CapacityRepo   CapacityRepository
	EnrollmentRepo EnrollmentRepositoryFacade
	OrderRepo      OrderRepositoryFacade
	PaymentRepo    PaymentRepositoryFacade
	WaitlistRepo   WaitlistRepository
}
