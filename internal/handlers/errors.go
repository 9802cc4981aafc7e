package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/enrollment_engine/internal/apperrors"
	"github.com/SscSPs/enrollment_engine/internal/dto"
	"github.com/SscSPs/enrollment_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto a status code and an ErrorResponse.
// Unexpected errors are logged and hidden behind fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var capErr *apperrors.CapacityError
	if errors.As(err, &capErr) {
		logger.Warn("Capacity exhausted", slog.String("error", err.Error()))
		requested, available := capErr.Requested, capErr.Available
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:     err.Error(),
			Resource:  capErr.Resource,
			Requested: &requested,
			Available: &available,
		})
		return
	}

	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		logger.Warn("Conflicting record", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Conflict: &dto.ConflictResponse{
				RecordID:    conflict.RecordID,
				State:       conflict.State,
				Amount:      conflict.Amount,
				Outstanding: conflict.Outstanding,
			},
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Resource not found"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrDuplicatePendingTransaction),
		errors.Is(err, apperrors.ErrAmountExceedsBalance),
		errors.Is(err, apperrors.ErrHasPaymentHistory),
		errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrBusy):
		logger.Warn("Busy, client may retry", slog.String("error", err.Error()))
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: apperrors.ErrBusy.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Failed to bind JSON", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request format: " + err.Error()})
}

// actorFromContext returns the authenticated user, answering 401 when there is none.
func actorFromContext(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	return userID, true
}

// clientFor resolves whose claim a request makes. Staff may act for another client,
// everybody else acts for themselves.
func clientFor(c *gin.Context, actorID string, requested string) string {
	if requested != "" && middleware.GetRoleFromContext(c) == middleware.RoleStaff {
		return requested
	}
	return actorID
}
