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

// EnrollmentAPI is what the enrollment routes need from the service layer
type EnrollmentAPI interface {
	portssvc.EnrollmentReaderSvc
	portssvc.EnrollmentWriterSvc
}

// enrollmentHandler handles HTTP requests related to enrollments.
type enrollmentHandler struct {
	enrollmentService EnrollmentAPI
	paymentService    portssvc.PaymentSvcFacade
}

// newEnrollmentHandler creates a new enrollmentHandler.
func newEnrollmentHandler(es EnrollmentAPI, ps portssvc.PaymentSvcFacade) *enrollmentHandler {
	return &enrollmentHandler{
		enrollmentService: es,
		paymentService:    ps,
	}
}

// RegisterEnrollmentRoutes registers routes related to enrollments.
func RegisterEnrollmentRoutes(rg *gin.RouterGroup, enrollmentService EnrollmentAPI, paymentService portssvc.PaymentSvcFacade) {
	h := newEnrollmentHandler(enrollmentService, paymentService)

	staffOnly := middleware.RequireRole(middleware.RoleStaff)
	enrollments := rg.Group("/enrollments")
	{
		enrollments.POST("", h.createEnrollment)
		enrollments.GET("/:id", h.getEnrollment)
		enrollments.PATCH("/:id/status", staffOnly, h.changeEnrollmentStatus)
		enrollments.DELETE("/:id", staffOnly, h.deleteEnrollment)
		enrollments.POST("/:id/transactions", h.submitTransaction)
		enrollments.GET("/:id/transactions", h.listTransactions)
	}
}

// createEnrollment godoc
// @Summary Enroll in a workshop or course
// @Description Claims a seat for the client. Enrolling twice returns the existing enrollment with 200.
// @Tags enrollments
// @Accept  json
// @Produce  json
// @Param   enrollment body dto.CreateEnrollmentRequest true "Item to enroll in"
// @Success 201 {object} dto.EnrollmentResponse
// @Success 200 {object} dto.EnrollmentResponse "Already enrolled"
// @Failure 400 {object} dto.ErrorResponse "Invalid input format or validation error"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Item not found"
// @Failure 409 {object} dto.ErrorResponse "Workshop is full"
// @Failure 503 {object} dto.ErrorResponse "Busy, retry"
// @Security BearerAuth
// @Router /enrollments [post]
func (h *enrollmentHandler) createEnrollment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err)
		return
	}

	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	item, err := domain.ParseItemRef(req.ItemType, req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	clientID := clientFor(c, actorID, req.ClientID)

	logger = logger.With(slog.String("client_id", clientID), slog.String("item", item.String()))
	logger.Info("Received request to create enrollment")

	result, err := h.enrollmentService.CreateEnrollment(c.Request.Context(), clientID, item)
	if err != nil {
		respondError(c, logger, err, "Failed to create enrollment")
		return
	}

	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	logger.Info("Enrollment claimed", slog.String("enrollment_id", result.Enrollment.EnrollmentID), slog.Bool("already_enrolled", result.AlreadyEnrolled))
	c.JSON(status, dto.ToEnrollmentResultResponse(result))
}

// getEnrollment godoc
// @Summary Get an enrollment by ID
// @Tags enrollments
// @Produce  json
// @Param   id path string true "Enrollment ID"
// @Success 200 {object} dto.EnrollmentResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Enrollment belongs to another client"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Security BearerAuth
// @Router /enrollments/{id} [get]
func (h *enrollmentHandler) getEnrollment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	enrollmentID := c.Param("id")
	logger = logger.With(slog.String("enrollment_id", enrollmentID))

	enrollment, err := h.enrollmentService.GetEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve enrollment")
		return
	}
	if enrollment.ClientID != actorID && middleware.GetRoleFromContext(c) != middleware.RoleStaff {
		logger.Warn("User forbidden to read enrollment", slog.String("owner_id", enrollment.ClientID))
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, dto.ToEnrollmentResponse(enrollment))
}

// changeEnrollmentStatus godoc
// @Summary Override the status of an enrollment
// @Description Staff only. Moving into VOIDED releases the seat, moving out of VOIDED reserves one.
// @Tags enrollments
// @Accept  json
// @Produce  json
// @Param   id path string true "Enrollment ID"
// @Param   status body dto.ChangeEnrollmentStatusRequest true "New status"
// @Success 200 {object} dto.EnrollmentResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown status"
// @Failure 403 {object} dto.ErrorResponse "Staff only"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Failure 409 {object} dto.ErrorResponse "No seat left to reactivate"
// @Security BearerAuth
// @Router /enrollments/{id}/status [patch]
func (h *enrollmentHandler) changeEnrollmentStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ChangeEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err)
		return
	}
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	enrollmentID := c.Param("id")
	logger = logger.With(slog.String("enrollment_id", enrollmentID), slog.String("new_state", req.Status))
	logger.Info("Received request to change enrollment status")

	enrollment, err := h.enrollmentService.ChangeEnrollmentStatus(c.Request.Context(), enrollmentID, domain.PaymentState(req.Status), actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to change enrollment status")
		return
	}
	c.JSON(http.StatusOK, dto.ToEnrollmentResponse(enrollment))
}

// deleteEnrollment godoc
// @Summary Delete an enrollment
// @Description Staff only. Refused once any payment was submitted for the enrollment.
// @Tags enrollments
// @Param   id path string true "Enrollment ID"
// @Success 204 "No Content"
// @Failure 403 {object} dto.ErrorResponse "Staff only"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Failure 409 {object} dto.ErrorResponse "Enrollment has payment history"
// @Security BearerAuth
// @Router /enrollments/{id} [delete]
func (h *enrollmentHandler) deleteEnrollment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	enrollmentID := c.Param("id")
	logger = logger.With(slog.String("enrollment_id", enrollmentID))

	if err := h.enrollmentService.DeleteEnrollment(c.Request.Context(), enrollmentID, actorID); err != nil {
		respondError(c, logger, err, "Failed to delete enrollment")
		return
	}
	logger.Info("Enrollment deleted")
	c.Status(http.StatusNoContent)
}

// submitTransaction godoc
// @Summary Submit a proof of payment for an enrollment
// @Tags enrollments
// @Accept  json
// @Produce  json
// @Param   id path string true "Enrollment ID"
// @Param   transaction body dto.SubmitTransactionRequest true "Payment proof"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Failure 409 {object} dto.ErrorResponse "A transaction is already pending, the amount exceeds the balance or the enrollment cannot be paid"
// @Security BearerAuth
// @Router /enrollments/{id}/transactions [post]
func (h *enrollmentHandler) submitTransaction(c *gin.Context) {
	submitTransactionFor(c, h.paymentService, domain.EnrollmentTarget(c.Param("id")))
}

// listTransactions godoc
// @Summary List the payment proofs of an enrollment
// @Tags enrollments
// @Produce  json
// @Param   id path string true "Enrollment ID"
// @Success 200 {array} dto.TransactionResponse
// @Security BearerAuth
// @Router /enrollments/{id}/transactions [get]
func (h *enrollmentHandler) listTransactions(c *gin.Context) {
	listTransactionsFor(c, h.paymentService, domain.EnrollmentTarget(c.Param("id")))
}
