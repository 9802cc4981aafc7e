package pgsql

import (
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool, timeouts TxTimeouts) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UnitOfWork:     &BaseRepository{Pool: dbPool, Timeouts: timeouts},
		CatalogRepo:    newPgxCatalogRepository(dbPool),
		CapacityRepo:   newPgxCapacityRepository(),
		EnrollmentRepo: newPgxEnrollmentRepository(dbPool),
		OrderRepo:      newPgxOrderRepository(dbPool),
		PaymentRepo:    newPgxPaymentRepository(dbPool),
		WaitlistRepo:   newPgxWaitlistRepository(),
	}
}
