package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/service"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/response"
)

// CompletionHandler exposes the completion calculator.
type CompletionHandler struct {
	service *service.CompletionService
}

// NewCompletionHandler constructs handler.
func NewCompletionHandler(svc *service.CompletionService) *CompletionHandler {
	return &CompletionHandler{service: svc}
}

// GetParticipant godoc
// @Summary Compute a participant's completion for an event
// @Tags Completion
// @Produce json
// @Param id path string true "Event ID"
// @Param participantId path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/participants/{participantId}/completion [get]
func (h *CompletionHandler) GetParticipant(c *gin.Context) {
	result, err := h.service.Compute(c.Request.Context(), c.Param("id"), c.Param("participantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetEvent godoc
// @Summary Compute completion across an event's registrants
// @Tags Completion
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/completion [get]
func (h *CompletionHandler) GetEvent(c *gin.Context) {
	stats, err := h.service.ComputeEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Invalidate godoc
// @Summary Drop cached completion results for an event
// @Tags Completion
// @Produce json
// @Param id path string true "Event ID"
// @Success 204 "No Content"
// @Router /events/{id}/completion/cache [delete]
func (h *CompletionHandler) Invalidate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || !claims.Role.CanOperate() {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err := h.service.Invalidate(c.Request.Context(), c.Param("id"), ""); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
