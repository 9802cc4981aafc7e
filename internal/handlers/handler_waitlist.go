package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/SscSPs/enrollment_engine/internal/dto"
	"github.com/SscSPs/enrollment_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type waitlistHandler struct {
	waitlistService portssvc.WaitlistSvc
}

// RegisterWaitlistRoutes registers the waitlist routes of a workshop.
func RegisterWaitlistRoutes(rg *gin.RouterGroup, waitlistService portssvc.WaitlistSvc) {
	h := &waitlistHandler{waitlistService: waitlistService}

	workshops := rg.Group("/workshops/:id/waitlist")
	{
		workshops.POST("", h.joinWaitlist)
		workshops.GET("", h.getPosition)
	}
}

// joinWaitlist godoc
// @Summary Join the waitlist of a full workshop
// @Description Joining twice returns the existing position.
// @Tags waitlist
// @Accept  json
// @Produce  json
// @Param   id path string true "Workshop ID"
// @Param   entry body dto.JoinWaitlistRequest false "Client to queue (staff only)"
// @Success 200 {object} dto.WaitlistPositionResponse
// @Failure 400 {object} dto.ErrorResponse "Workshop not full or client already enrolled"
// @Failure 404 {object} dto.ErrorResponse "Workshop not found"
// @Security BearerAuth
// @Router /workshops/{id}/waitlist [post]
func (h *waitlistHandler) joinWaitlist(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.JoinWaitlistRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, logger, err)
			return
		}
	}
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	workshopID := c.Param("id")
	clientID := clientFor(c, actorID, req.ClientID)
	logger = logger.With(slog.String("workshop_id", workshopID), slog.String("client_id", clientID))

	position, err := h.waitlistService.JoinWaitlist(c.Request.Context(), workshopID, clientID)
	if err != nil {
		respondError(c, logger, err, "Failed to join waitlist")
		return
	}
	c.JSON(http.StatusOK, dto.ToWaitlistPositionResponse(position))
}

// getPosition godoc
// @Summary Get the waitlist position of the caller
// @Tags waitlist
// @Produce  json
// @Param   id path string true "Workshop ID"
// @Success 200 {object} dto.WaitlistPositionResponse
// @Failure 404 {object} dto.ErrorResponse "Not on the waitlist"
// @Security BearerAuth
// @Router /workshops/{id}/waitlist [get]
func (h *waitlistHandler) getPosition(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}
	workshopID := c.Param("id")
	position, err := h.waitlistService.GetWaitlistPosition(c.Request.Context(), workshopID, clientFor(c, actorID, c.Query("clientID")))
	if err != nil {
		respondError(c, logger.With(slog.String("workshop_id", workshopID)), err, "Failed to read waitlist position")
		return
	}
	c.JSON(http.StatusOK, dto.ToWaitlistPositionResponse(position))
}
