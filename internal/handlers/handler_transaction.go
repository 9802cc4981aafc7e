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

// transactionHandler handles the review of payment proofs.
type transactionHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

func newTransactionHandler(ps portssvc.PaymentSvcFacade) *transactionHandler {
	return &transactionHandler{paymentService: ps}
}

// RegisterTransactionRoutes registers routes related to payment proofs.
func RegisterTransactionRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := newTransactionHandler(paymentService)

	staffOnly := middleware.RequireRole(middleware.RoleStaff)
	transactions := rg.Group("/transactions")
	{
		transactions.GET("/:id", h.getTransaction)
		transactions.POST("/:id/approve", staffOnly, h.approveTransaction)
		transactions.POST("/:id/reject", staffOnly, h.rejectTransaction)
	}
}

// submitTransactionFor is shared by the enrollment and order routes.
func submitTransactionFor(c *gin.Context, paymentService portssvc.PaymentReviewSvc, target domain.TargetRef) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err)
		return
	}
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("target", target.String()), slog.String("amount", req.Amount.String()))
	logger.Info("Received payment proof")

	transaction, err := paymentService.SubmitTransaction(c.Request.Context(), target, req.Amount, req.ProofURL, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to submit transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(transaction))
}

func listTransactionsFor(c *gin.Context, paymentService portssvc.PaymentReaderSvc, target domain.TargetRef) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("target", target.String()))
	transactions, err := paymentService.ListTransactionsForTarget(c.Request.Context(), target)
	if err != nil {
		respondError(c, logger, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponses(transactions))
}

// getTransaction godoc
// @Summary Get a payment proof by ID
// @Tags transactions
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	transaction, err := h.paymentService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, logger.With(slog.String("transaction_id", transactionID)), err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(transaction))
}

// approveTransaction godoc
// @Summary Approve a payment proof
// @Description Staff only. An optional override corrects the amount; it may not exceed the outstanding balance.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Param   approval body dto.ApproveTransactionRequest false "Amount override"
// @Success 200 {object} dto.ApprovalResponse
// @Failure 403 {object} dto.ErrorResponse "Staff only"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Not pending or amount exceeds balance"
// @Security BearerAuth
// @Router /transactions/{id}/approve [post]
func (h *transactionHandler) approveTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ApproveTransactionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, logger, err)
			return
		}
	}
	reviewerID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	transactionID := c.Param("id")
	logger = logger.With(slog.String("transaction_id", transactionID))
	logger.Info("Received request to approve transaction")

	result, err := h.paymentService.ApproveTransaction(c.Request.Context(), transactionID, req.OverrideAmount, reviewerID)
	if err != nil {
		respondError(c, logger, err, "Failed to approve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToApprovalResponse(result))
}

// rejectTransaction godoc
// @Summary Reject a payment proof
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Param   rejection body dto.RejectTransactionRequest true "Reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Reason missing"
// @Failure 403 {object} dto.ErrorResponse "Staff only"
// @Failure 409 {object} dto.ErrorResponse "Not pending"
// @Security BearerAuth
// @Router /transactions/{id}/reject [post]
func (h *transactionHandler) rejectTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RejectTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err)
		return
	}
	reviewerID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	transactionID := c.Param("id")
	logger = logger.With(slog.String("transaction_id", transactionID))

	transaction, err := h.paymentService.RejectTransaction(c.Request.Context(), transactionID, req.Reason, reviewerID)
	if err != nil {
		respondError(c, logger, err, "Failed to reject transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(transaction))
}
