package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/service"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/response"
)

// ScheduleHandler manages checkpoint schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List an event's checkpoints
// @Tags Checkpoints
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/checkpoints [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	checkpoints, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkpoints, nil)
}

// Replace godoc
// @Summary Replace an event's checkpoint schedule
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.ReplaceRequest true "Full replacement schedule"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/checkpoints [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req service.ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	checkpoints, err := h.service.Replace(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkpoints, nil)
}
