package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/models"
	"github.com/campuspulse/attendance-api/internal/service"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/response"
)

// StrategyHandler manages strategy classification endpoints.
type StrategyHandler struct {
	service *service.StrategyService
}

// NewStrategyHandler constructs handler.
func NewStrategyHandler(svc *service.StrategyService) *StrategyHandler {
	return &StrategyHandler{service: svc}
}

// Decide godoc
// @Summary Classify an event and synthesize its checkpoint schedule
// @Tags Strategy
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/strategy/decide [post]
func (h *StrategyHandler) Decide(c *gin.Context) {
	result, err := h.service.Decide(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get the stored strategy decision
// @Tags Strategy
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/strategy [get]
func (h *StrategyHandler) Get(c *gin.Context) {
	decision, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

type overrideStrategyRequest struct {
	Strategy string `json:"strategy" binding:"required"`
}

// Override godoc
// @Summary Override the classified strategy
// @Tags Strategy
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body overrideStrategyRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/strategy/override [put]
func (h *StrategyHandler) Override(c *gin.Context) {
	var req overrideStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decision, err := h.service.Override(c.Request.Context(), c.Param("id"), models.Strategy(req.Strategy), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
