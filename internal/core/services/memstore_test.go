package services_test

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memStore implements every repository port in memory. A unit of work holds the store
// lock for its whole duration and restores a snapshot when fn fails, which gives the
// services the same serialization the row locks give them in postgres.
type memStore struct {
	mu sync.Mutex
	memState

	// lockLog records every row lock taken, in order, including rolled back units of work.
	lockLog []string
}

type memState struct {
	workshops    map[string]domain.Workshop
	courses      map[string]domain.Course
	stockItems   map[string]domain.StockItem
	enrollments  map[string]domain.Enrollment
	orders       map[string]domain.Order
	transactions map[string]domain.Transaction
	txSequence   []string
	waitlist     []domain.WaitlistEntry
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		workshops:    map[string]domain.Workshop{},
		courses:      map[string]domain.Course{},
		stockItems:   map[string]domain.StockItem{},
		enrollments:  map[string]domain.Enrollment{},
		orders:       map[string]domain.Order{},
		transactions: map[string]domain.Transaction{},
	}}
}

func (s memState) clone() memState {
	return memState{
		workshops:    maps.Clone(s.workshops),
		courses:      maps.Clone(s.courses),
		stockItems:   maps.Clone(s.stockItems),
		enrollments:  maps.Clone(s.enrollments),
		orders:       maps.Clone(s.orders),
		transactions: maps.Clone(s.transactions),
		txSequence:   slices.Clone(s.txSequence),
		waitlist:     slices.Clone(s.waitlist),
	}
}

func (s *memStore) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UnitOfWork:     s,
		CatalogRepo:    s,
		CapacityRepo:   s,
		EnrollmentRepo: s,
		OrderRepo:      s,
		PaymentRepo:    s,
		WaitlistRepo:   s,
	}
}

// --- seeding and inspection helpers, safe outside a unit of work ---

func (s *memStore) addWorkshop(w domain.Workshop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workshops[w.WorkshopID] = w
}

func (s *memStore) addCourse(c domain.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.CourseID] = c
}

func (s *memStore) addStockItem(p domain.StockItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockItems[p.StockItemID] = p
}

func (s *memStore) workshop(id string) domain.Workshop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workshops[id]
}

func (s *memStore) course(id string) domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courses[id]
}

func (s *memStore) stockItem(id string) domain.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stockItems[id]
}

func (s *memStore) counts() (enrollments, orders, transactions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.enrollments), len(s.orders), len(s.transactions)
}

func (s *memStore) takeLockLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := s.lockLog
	s.lockLog = nil
	return taken
}

// --- UnitOfWork ---

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperrors.ErrBusy
	}
	snapshot := s.memState.clone()
	if err := fn(ctx, nil); err != nil {
		s.memState = snapshot
		return err
	}
	return nil
}

// --- CatalogRepositoryFacade ---

func (s *memStore) FindWorkshopByID(_ context.Context, workshopID string) (*domain.Workshop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findWorkshop(workshopID)
}

func (s *memStore) FindCourseByID(_ context.Context, courseID string) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCourse(courseID)
}

func (s *memStore) FindStockItemByID(_ context.Context, stockItemID string) (*domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findStockItem(stockItemID)
}

func (s *memStore) FindWorkshopForUpdate(_ context.Context, _ pgx.Tx, workshopID string) (*domain.Workshop, error) {
	s.lockLog = append(s.lockLog, "workshop:"+workshopID)
	return s.findWorkshop(workshopID)
}

func (s *memStore) FindWorkshopInTx(_ context.Context, _ pgx.Tx, workshopID string) (*domain.Workshop, error) {
	return s.findWorkshop(workshopID)
}

func (s *memStore) FindCourseInTx(_ context.Context, _ pgx.Tx, courseID string) (*domain.Course, error) {
	return s.findCourse(courseID)
}

func (s *memStore) FindStockItemForUpdate(_ context.Context, _ pgx.Tx, stockItemID string) (*domain.StockItem, error) {
	s.lockLog = append(s.lockLog, "stock:"+stockItemID)
	return s.findStockItem(stockItemID)
}

func (s *memStore) findWorkshop(id string) (*domain.Workshop, error) {
	w, ok := s.workshops[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &w, nil
}

func (s *memStore) findCourse(id string) (*domain.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) findStockItem(id string) (*domain.StockItem, error) {
	p, ok := s.stockItems[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

// --- CapacityRepository ---

func (s *memStore) ConsumeWorkshopSeats(_ context.Context, _ pgx.Tx, workshopID string, n int) (int, bool, error) {
	w, ok := s.workshops[workshopID]
	if !ok {
		return 0, false, apperrors.ErrNotFound
	}
	if w.SeatsAvailable < n {
		return w.SeatsAvailable, false, nil
	}
	w.SeatsAvailable -= n
	s.workshops[workshopID] = w
	return w.SeatsAvailable, true, nil
}

func (s *memStore) RestoreWorkshopSeats(_ context.Context, _ pgx.Tx, workshopID string, n int) (int, error) {
	w, ok := s.workshops[workshopID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	w.SeatsAvailable = min(w.SeatsAvailable+n, w.SeatsTotal)
	s.workshops[workshopID] = w
	return w.SeatsAvailable, nil
}

func (s *memStore) ConsumeStock(_ context.Context, _ pgx.Tx, stockItemID string, n int) (int, bool, bool, error) {
	p, ok := s.stockItems[stockItemID]
	if !ok {
		return 0, false, false, apperrors.ErrNotFound
	}
	if !p.StockTracked {
		return p.StockQuantity, false, true, nil
	}
	if p.StockQuantity < n {
		return p.StockQuantity, true, false, nil
	}
	p.StockQuantity -= n
	s.stockItems[stockItemID] = p
	return p.StockQuantity, true, true, nil
}

func (s *memStore) RestoreStock(_ context.Context, _ pgx.Tx, stockItemID string, n int) (int, bool, error) {
	p, ok := s.stockItems[stockItemID]
	if !ok {
		return 0, false, apperrors.ErrNotFound
	}
	if p.StockTracked {
		p.StockQuantity += n
		s.stockItems[stockItemID] = p
	}
	return p.StockQuantity, p.StockTracked, nil
}

func (s *memStore) AdjustCourseEnrollment(_ context.Context, _ pgx.Tx, courseID string, delta int) (int, error) {
	c, ok := s.courses[courseID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	c.EnrolledCount = max(c.EnrolledCount+delta, 0)
	s.courses[courseID] = c
	return c.EnrolledCount, nil
}

// --- EnrollmentRepositoryFacade ---

func (s *memStore) FindEnrollmentByID(_ context.Context, enrollmentID string) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findEnrollment(enrollmentID)
}

func (s *memStore) ListEnrollmentsByOrder(_ context.Context, orderID string) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollmentsOf(orderID), nil
}

func (s *memStore) FindEnrollmentForUpdate(_ context.Context, _ pgx.Tx, enrollmentID string) (*domain.Enrollment, error) {
	s.lockLog = append(s.lockLog, "enrollment:"+enrollmentID)
	return s.findEnrollment(enrollmentID)
}

func (s *memStore) FindEnrollmentByClientItemForUpdate(_ context.Context, _ pgx.Tx, clientID string, item domain.ItemRef) (*domain.Enrollment, error) {
	for _, e := range s.enrollments {
		if e.ClientID == clientID && e.Item == item {
			return &e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) InsertEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) (bool, error) {
	if _, err := s.FindEnrollmentByClientItemForUpdate(ctx, tx, enrollment.ClientID, enrollment.Item); err == nil {
		return false, nil
	}
	s.enrollments[enrollment.EnrollmentID] = enrollment
	return true, nil
}

func (s *memStore) UpdateEnrollment(_ context.Context, _ pgx.Tx, enrollment domain.Enrollment) error {
	if _, ok := s.enrollments[enrollment.EnrollmentID]; !ok {
		return apperrors.ErrNotFound
	}
	s.enrollments[enrollment.EnrollmentID] = enrollment
	return nil
}

func (s *memStore) DeleteEnrollment(_ context.Context, _ pgx.Tx, enrollmentID string) error {
	if _, ok := s.enrollments[enrollmentID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.enrollments, enrollmentID)
	return nil
}

func (s *memStore) LinkEnrollmentsToOrder(_ context.Context, _ pgx.Tx, orderID string, enrollmentIDs []string, userID string, now time.Time) error {
	for _, id := range enrollmentIDs {
		e, ok := s.enrollments[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		linked := orderID
		e.OrderID = &linked
		e.Touch(userID, now)
		s.enrollments[id] = e
	}
	return nil
}

func (s *memStore) ListEnrollmentsByOrderForUpdate(_ context.Context, _ pgx.Tx, orderID string) ([]domain.Enrollment, error) {
	return s.enrollmentsOf(orderID), nil
}

func (s *memStore) findEnrollment(id string) (*domain.Enrollment, error) {
	e, ok := s.enrollments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

func (s *memStore) enrollmentsOf(orderID string) []domain.Enrollment {
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out
}

// --- OrderRepositoryFacade ---

func (s *memStore) FindOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOrder(orderID)
}

func (s *memStore) InsertOrder(_ context.Context, _ pgx.Tx, order domain.Order) error {
	if _, ok := s.orders[order.OrderID]; ok {
		return apperrors.ErrDuplicate
	}
	order.Lines = nil
	order.EnrollmentIDs = nil
	s.orders[order.OrderID] = order
	return nil
}

func (s *memStore) InsertOrderLine(_ context.Context, _ pgx.Tx, line domain.OrderLine) error {
	o, ok := s.orders[line.OrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.Lines = append(slices.Clone(o.Lines), line)
	s.orders[line.OrderID] = o
	return nil
}

func (s *memStore) FindOrderForUpdate(_ context.Context, _ pgx.Tx, orderID string) (*domain.Order, error) {
	s.lockLog = append(s.lockLog, "order:"+orderID)
	return s.findOrder(orderID)
}

func (s *memStore) UpdateOrder(_ context.Context, _ pgx.Tx, order domain.Order) error {
	stored, ok := s.orders[order.OrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.TotalAmount = order.TotalAmount
	stored.PaymentState = order.PaymentState
	stored.LastUpdatedAt = order.LastUpdatedAt
	stored.LastUpdatedBy = order.LastUpdatedBy
	s.orders[order.OrderID] = stored
	return nil
}

func (s *memStore) findOrder(id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	o.Lines = slices.Clone(o.Lines)
	o.EnrollmentIDs = nil
	for _, e := range s.enrollmentsOf(id) {
		o.EnrollmentIDs = append(o.EnrollmentIDs, e.EnrollmentID)
	}
	return &o, nil
}

// --- PaymentRepositoryFacade ---

func (s *memStore) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTransaction(transactionID)
}

func (s *memStore) ListTransactionsByTarget(_ context.Context, target domain.TargetRef) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionsOf(target), nil
}

func (s *memStore) FindTransactionForUpdate(_ context.Context, _ pgx.Tx, transactionID string) (*domain.Transaction, error) {
	s.lockLog = append(s.lockLog, "transaction:"+transactionID)
	return s.findTransaction(transactionID)
}

func (s *memStore) FindPendingTransactionForTarget(_ context.Context, _ pgx.Tx, target domain.TargetRef) (*domain.Transaction, error) {
	for _, t := range s.transactionsOf(target) {
		if t.IsPendingReview() {
			return &t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) SumApprovedForTarget(_ context.Context, _ pgx.Tx, target domain.TargetRef) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range s.transactionsOf(target) {
		if t.State == domain.TransactionApproved {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (s *memStore) CountTransactionsForTarget(_ context.Context, _ pgx.Tx, target domain.TargetRef) (int, error) {
	return len(s.transactionsOf(target)), nil
}

func (s *memStore) InsertTransaction(ctx context.Context, tx pgx.Tx, transaction domain.Transaction) error {
	if transaction.IsPendingReview() {
		if _, err := s.FindPendingTransactionForTarget(ctx, tx, transaction.Target); err == nil {
			return apperrors.ErrDuplicatePendingTransaction
		}
	}
	s.transactions[transaction.TransactionID] = transaction
	s.txSequence = append(s.txSequence, transaction.TransactionID)
	return nil
}

func (s *memStore) UpdateTransactionReview(_ context.Context, _ pgx.Tx, transaction domain.Transaction) error {
	if _, ok := s.transactions[transaction.TransactionID]; !ok {
		return apperrors.ErrNotFound
	}
	s.transactions[transaction.TransactionID] = transaction
	return nil
}

func (s *memStore) findTransaction(id string) (*domain.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) transactionsOf(target domain.TargetRef) []domain.Transaction {
	var out []domain.Transaction
	for _, id := range s.txSequence {
		if t := s.transactions[id]; t.Target == target {
			out = append(out, t)
		}
	}
	return out
}

// --- WaitlistRepository ---

// The queue keeps insertion order, which stands in for (registered_at, entry_id).

func (s *memStore) InsertWaitlistEntry(_ context.Context, _ pgx.Tx, entry domain.WaitlistEntry) (bool, error) {
	for _, e := range s.waitlist {
		if e.WorkshopID == entry.WorkshopID && e.ClientID == entry.ClientID {
			return false, nil
		}
	}
	s.waitlist = append(s.waitlist, entry)
	return true, nil
}

func (s *memStore) FindWaitlistEntry(_ context.Context, _ pgx.Tx, workshopID string, clientID string) (*domain.WaitlistEntry, error) {
	for _, e := range s.waitlist {
		if e.WorkshopID == workshopID && e.ClientID == clientID {
			return &e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) CountWaitlistAhead(_ context.Context, _ pgx.Tx, entry domain.WaitlistEntry) (int, error) {
	ahead := 0
	for _, e := range s.waitlist {
		if e.EntryID == entry.EntryID {
			return ahead, nil
		}
		if e.WorkshopID == entry.WorkshopID && !e.Notified {
			ahead++
		}
	}
	return 0, apperrors.ErrNotFound
}

func (s *memStore) ClaimNextWaitlistEntry(_ context.Context, _ pgx.Tx, workshopID string, now time.Time) (*domain.WaitlistEntry, error) {
	for i, e := range s.waitlist {
		if e.WorkshopID != workshopID || e.Notified {
			continue
		}
		at := now
		e.Notified = true
		e.NotifiedAt = &at
		s.waitlist[i] = e
		return &e, nil
	}
	return nil, apperrors.ErrNotFound
}

var (
	_ portsrepo.UnitOfWork                 = (*memStore)(nil)
	_ portsrepo.CatalogRepositoryFacade    = (*memStore)(nil)
	_ portsrepo.CapacityRepository         = (*memStore)(nil)
	_ portsrepo.EnrollmentRepositoryFacade = (*memStore)(nil)
	_ portsrepo.OrderRepositoryFacade      = (*memStore)(nil)
	_ portsrepo.PaymentRepositoryFacade    = (*memStore)(nil)
	_ portsrepo.WaitlistRepository         = (*memStore)(nil)
)
