package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart has no items")
	ErrNothingToBuy    = errors.New("every item in the cart is already enrolled")
	ErrInvalidCartItem = errors.New("invalid cart item")
)

// orderService is the order aggregator.
type orderService struct {
	BaseService
	catalogRepo    portsrepo.CatalogTransactionSupport
	orderRepo      portsrepo.OrderRepositoryFacade
	enrollmentRepo portsrepo.EnrollmentRepositoryFacade
	paymentRepo    portsrepo.PaymentTransactionSupport
	ledger         portssvc.CapacityLedgerSvc
	enrollments    portssvc.EnrollmentTxSvc
}

// OrderServiceOption is a functional option for configuring the order service
type OrderServiceOption func(*orderService)

// WithOrderNotifier adds the outbound notification port
func WithOrderNotifier(notifier portssvc.NotificationPort) OrderServiceOption {
	return func(s *orderService) {
		s.Notifier = notifier
	}
}

// NewOrderService creates the order aggregator.
func NewOrderService(
	uow portsrepo.UnitOfWork,
	catalogRepo portsrepo.CatalogTransactionSupport,
	orderRepo portsrepo.OrderRepositoryFacade,
	enrollmentRepo portsrepo.EnrollmentRepositoryFacade,
	paymentRepo portsrepo.PaymentTransactionSupport,
	ledger portssvc.CapacityLedgerSvc,
	enrollments portssvc.EnrollmentTxSvc,
	options ...OrderServiceOption,
) portssvc.OrderSvcFacade {
	svc := &orderService{
		BaseService:    BaseService{UnitOfWork: uow},
		catalogRepo:    catalogRepo,
		orderRepo:      orderRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		ledger:         ledger,
		enrollments:    enrollments,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.OrderSvcFacade = (*orderService)(nil)

// GetOrder implements portssvc.OrderReaderSvc
func (s *orderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindOrderByID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get order", slog.String("order_id", orderID))
		}
		return nil, err
	}
	return order, nil
}

func validateCart(clientID string, items []domain.CartItem) error {
	if clientID == "" {
		return fmt.Errorf("%w: client id is required", apperrors.ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrEmptyCart)
	}
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: %w: item %d has no id", apperrors.ErrValidation, ErrInvalidCartItem, i)
		}
		switch item.Kind {
		case domain.CartProduct:
			if item.Quantity < 1 {
				return fmt.Errorf("%w: %w: product %s quantity must be at least 1", apperrors.ErrValidation, ErrInvalidCartItem, item.ID)
			}
		case domain.CartWorkshop, domain.CartCourse:
		default:
			return fmt.Errorf("%w: %w: unknown kind %q", apperrors.ErrValidation, ErrInvalidCartItem, item.Kind)
		}
	}
	return nil
}

// CreateOrderFromCart implements portssvc.OrderWriterSvc. Every reservation happens in
// one unit of work so any shortfall undoes the items already processed. Lines are taken
// in lock order, not cart order.
func (s *orderService) CreateOrderFromCart(ctx context.Context, clientID string, items []domain.CartItem) (*domain.OrderResult, error) {
	if err := validateCart(clientID, items); err != nil {
		return nil, err
	}

	var result domain.OrderResult
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		now := s.Now()
		order := domain.Order{
			OrderID:      uuid.NewString(),
			ClientID:     clientID,
			TotalAmount:  decimal.Zero,
			PaymentState: domain.OrderPending,
			AuditFields:  domain.NewAuditFields(clientID, now),
		}
		if err := s.orderRepo.InsertOrder(ctx, scope.Tx, order); err != nil {
			return fmt.Errorf("failed to create order shell: %w", err)
		}

		total := decimal.Zero
		result = domain.OrderResult{}
		enrollmentIDs := make([]string, 0, len(items))

		for _, item := range domain.InLockOrder(items) {
			if item.Kind == domain.CartProduct {
				line, err := s.reserveProduct(ctx, scope, order.OrderID, item)
				if err != nil {
					return err
				}
				order.Lines = append(order.Lines, *line)
				total = total.Add(line.Subtotal)
				continue
			}

			ref, err := item.ItemRef()
			if err != nil {
				return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
			}
			claim, err := s.enrollments.CreateEnrollmentInTx(ctx, scope, clientID, ref)
			if err != nil {
				return err
			}
			if claim.AlreadyEnrolled {
				result.Skipped = append(result.Skipped, ref)
				continue
			}
			price, err := s.enrollments.ItemPriceInTx(ctx, scope.Tx, ref)
			if err != nil {
				return err
			}
			total = total.Add(price)
			enrollmentIDs = append(enrollmentIDs, claim.Enrollment.EnrollmentID)
			result.Enrollments = append(result.Enrollments, claim.Enrollment)
		}

		if len(order.Lines) == 0 && len(enrollmentIDs) == 0 {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrNothingToBuy)
		}

		if len(enrollmentIDs) > 0 {
			if err := s.enrollmentRepo.LinkEnrollmentsToOrder(ctx, scope.Tx, order.OrderID, enrollmentIDs, clientID, now); err != nil {
				return fmt.Errorf("failed to link enrollments to order: %w", err)
			}
			for i := range result.Enrollments {
				result.Enrollments[i].OrderID = &order.OrderID
			}
		}

		order.TotalAmount = total
		order.EnrollmentIDs = enrollmentIDs
		if err := s.orderRepo.UpdateOrder(ctx, scope.Tx, order); err != nil {
			return fmt.Errorf("failed to set order total: %w", err)
		}
		result.Order = order
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create order from cart",
			slog.String("client_id", clientID),
			slog.Int("items", len(items)))
		return nil, err
	}

	s.LogInfo(ctx, "Order created",
		slog.String("order_id", result.Order.OrderID),
		slog.String("total", result.Order.TotalAmount.String()),
		slog.Int("lines", len(result.Order.Lines)),
		slog.Int("enrollments", len(result.Enrollments)),
		slog.Int("skipped", len(result.Skipped)))
	return &result, nil
}

// reserveProduct locks the product, takes the stock and records the line.
func (s *orderService) reserveProduct(ctx context.Context, scope *portssvc.TxScope, orderID string, item domain.CartItem) (*domain.OrderLine, error) {
	product, err := s.catalogRepo.FindStockItemForUpdate(ctx, scope.Tx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", item.ID, err)
	}
	if !product.Active {
		return nil, fmt.Errorf("%w: product %s is not for sale", apperrors.ErrValidation, item.ID)
	}

	reservation, err := s.ledger.Reserve(ctx, scope.Tx, domain.StockResource(product.StockItemID), item.Quantity)
	if err != nil {
		return nil, err
	}

	line := domain.OrderLine{
		LineID:      uuid.NewString(),
		OrderID:     orderID,
		StockItemID: product.StockItemID,
		Quantity:    item.Quantity,
		UnitPrice:   product.Price,
		Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
	if err := s.orderRepo.InsertOrderLine(ctx, scope.Tx, line); err != nil {
		return nil, fmt.Errorf("failed to insert order line for %s: %w", product.StockItemID, err)
	}

	if reservation.Tracked && reservation.Remaining <= product.LowStockThreshold {
		snapshot := *product
		snapshot.StockQuantity = reservation.Remaining
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "low_stock", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.LowStock(ctx, snapshot, snapshot.StockQuantity)
			}, slog.String("stock_item_id", snapshot.StockItemID))
		})
	}
	return &line, nil
}

// RecomputeOrderBalance implements portssvc.OrderWriterSvc
func (s *orderService) RecomputeOrderBalance(ctx context.Context, orderID string, actorID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.RunInTx(ctx, func(ctx context.Context, scope *portssvc.TxScope) error {
		var err error
		order, err = s.RecomputeOrderBalanceInTx(ctx, scope, orderID, actorID)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to recompute order balance", slog.String("order_id", orderID))
		return nil, err
	}
	return order, nil
}

// RecomputeOrderBalanceInTx sets the order PAID once approved money covers the frozen
// total, cascading PAID to its enrollments.
func (s *orderService) RecomputeOrderBalanceInTx(ctx context.Context, scope *portssvc.TxScope, orderID string, actorID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindOrderForUpdate(ctx, scope.Tx, orderID)
	if err != nil {
		return nil, err
	}
	approved, err := s.paymentRepo.SumApprovedForTarget(ctx, scope.Tx, domain.OrderTarget(orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to sum approved transactions for order %s: %w", orderID, err)
	}

	wasPaid := order.PaymentState == domain.OrderPaid
	order.PaymentState = domain.DeriveOrderState(approved, order.TotalAmount)
	order.Touch(actorID, s.Now())
	if err := s.orderRepo.UpdateOrder(ctx, scope.Tx, *order); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}

	if order.PaymentState == domain.OrderPaid && !wasPaid {
		if _, err := s.enrollments.MarkOrderEnrollmentsPaidInTx(ctx, scope, orderID, actorID); err != nil {
			return nil, err
		}
		paid := *order
		scope.AfterCommit(func(ctx context.Context) {
			s.Notify(ctx, "order_paid", func(ctx context.Context, port portssvc.NotificationPort) error {
				return port.OrderPaid(ctx, paid)
			}, slog.String("order_id", paid.OrderID))
		})
	}

	s.LogDebug(ctx, "Order balance recomputed",
		slog.String("order_id", orderID),
		slog.String("approved", approved.String()),
		slog.String("total", order.TotalAmount.String()),
		slog.String("state", string(order.PaymentState)))
	return order, nil
}
