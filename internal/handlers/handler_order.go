package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/SscSPs/enrollment_engine/internal/dto"
	"github.com/SscSPs/enrollment_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// OrderAPI is what the order routes need from the service layer
type OrderAPI interface {
	portssvc.OrderReaderSvc
	portssvc.OrderWriterSvc
}

// orderHandler handles HTTP requests related to checkouts.
type orderHandler struct {
	orderService   OrderAPI
	paymentService portssvc.PaymentSvcFacade
}

func newOrderHandler(ordSvc OrderAPI, ps portssvc.PaymentSvcFacade) *orderHandler {
	return &orderHandler{orderService: ordSvc, paymentService: ps}
}

// RegisterOrderRoutes registers routes related to orders.
func RegisterOrderRoutes(rg *gin.RouterGroup, orderService OrderAPI, paymentService portssvc.PaymentSvcFacade) {
	h := newOrderHandler(orderService, paymentService)

	orders := rg.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("/:id", h.getOrder)
		orders.POST("/:id/transactions", h.submitTransaction)
		orders.GET("/:id/transactions", h.listTransactions)
	}
}

// createOrder godoc
// @Summary Check out a cart
// @Description Reserves every item atomically. A single shortfall fails the whole cart.
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   order body dto.CreateOrderRequest true "Cart"
// @Success 201 {object} dto.OrderResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid cart"
// @Failure 404 {object} dto.ErrorResponse "Item not found"
// @Failure 409 {object} dto.ErrorResponse "Insufficient stock or no seats"
// @Security BearerAuth
// @Router /orders [post]
func (h *orderHandler) createOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err)
		return
	}
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	clientID := clientFor(c, actorID, req.ClientID)
	logger = logger.With(slog.String("client_id", clientID), slog.Int("items", len(req.Items)))
	logger.Info("Received checkout request")

	result, err := h.orderService.CreateOrderFromCart(c.Request.Context(), clientID, req.ToCartItems())
	if err != nil {
		respondError(c, logger, err, "Failed to create order")
		return
	}
	c.JSON(http.StatusCreated, dto.ToOrderResultResponse(result))
}

// getOrder godoc
// @Summary Get an order by ID
// @Tags orders
// @Produce  json
// @Param   id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 403 {object} dto.ErrorResponse "Order belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Order not found"
// @Security BearerAuth
// @Router /orders/{id} [get]
func (h *orderHandler) getOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	orderID := c.Param("id")
	logger = logger.With(slog.String("order_id", orderID))

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve order")
		return
	}
	if order.ClientID != actorID && middleware.GetRoleFromContext(c) != middleware.RoleStaff {
		logger.Warn("User forbidden to read order", slog.String("owner_id", order.ClientID))
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// submitTransaction godoc
// @Summary Submit a proof of payment for an order
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   id path string true "Order ID"
// @Param   transaction body dto.SubmitTransactionRequest true "Payment proof"
// @Success 201 {object} dto.TransactionResponse
// @Failure 409 {object} dto.ErrorResponse "A transaction is already pending, the amount exceeds the balance or the order is paid"
// @Security BearerAuth
// @Router /orders/{id}/transactions [post]
func (h *orderHandler) submitTransaction(c *gin.Context) {
	submitTransactionFor(c, h.paymentService, domain.OrderTarget(c.Param("id")))
}

// listTransactions godoc
// @Summary List the payment proofs of an order
// @Tags orders
// @Produce  json
// @Param   id path string true "Order ID"
// @Success 200 {array} dto.TransactionResponse
// @Security BearerAuth
// @Router /orders/{id}/transactions [get]
func (h *orderHandler) listTransactions(c *gin.Context) {
	listTransactionsFor(c, h.paymentService, domain.OrderTarget(c.Param("id")))
}
