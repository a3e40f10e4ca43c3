package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/service"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/response"
)

// ParticipationHandler manages mark recording and roster endpoints.
type ParticipationHandler struct {
	service *service.ParticipationService
	exports *service.ExportService
}

// NewParticipationHandler constructs handler.
func NewParticipationHandler(svc *service.ParticipationService, exports *service.ExportService) *ParticipationHandler {
	return &ParticipationHandler{service: svc, exports: exports}
}

type selfReportRequest struct {
	CheckpointID string `json:"checkpoint_id" binding:"required"`
}

// SelfReport godoc
// @Summary Record the caller's virtual mark for a checkpoint
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body selfReportRequest true "Checkpoint reference"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/self-report [post]
func (h *ParticipationHandler) SelfReport(c *gin.Context) {
	var req selfReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.service.SelfReport(c.Request.Context(), c.Param("id"), req.CheckpointID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// BulkOverride godoc
// @Summary Bulk-record marks for an event
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.BulkOverrideRequest true "Bulk mark payload"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/marks/bulk [post]
func (h *ParticipationHandler) BulkOverride(c *gin.Context) {
	var req service.BulkOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.BulkOverride(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListParticipantMarks godoc
// @Summary List a participant's marks for an event
// @Tags Participation
// @Produce json
// @Param id path string true "Event ID"
// @Param participantId path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/participants/{participantId}/marks [get]
func (h *ParticipationHandler) ListParticipantMarks(c *gin.Context) {
	marks, err := h.service.GetMarks(c.Request.Context(), c.Param("participantId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// ListCheckpointMarks godoc
// @Summary List a checkpoint's marks
// @Tags Participation
// @Produce json
// @Param id path string true "Checkpoint ID"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/{id}/marks [get]
func (h *ParticipationHandler) ListCheckpointMarks(c *gin.Context) {
	records, err := h.service.GetCheckpointMarks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportCheckpointMarks godoc
// @Summary Export a checkpoint's marks as CSV
// @Tags Participation
// @Produce text/csv
// @Param id path string true "Checkpoint ID"
// @Success 200 {file} binary
// @Router /checkpoints/{id}/marks/export [get]
func (h *ParticipationHandler) ExportCheckpointMarks(c *gin.Context) {
	data, err := h.exports.MarksCSV(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("checkpoint-%s-marks.csv", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// SignInSheet godoc
// @Summary Download the printable sign-in sheet for a checkpoint
// @Tags Participation
// @Produce application/pdf
// @Param id path string true "Checkpoint ID"
// @Success 200 {file} binary
// @Router /checkpoints/{id}/sheet [get]
func (h *ParticipationHandler) SignInSheet(c *gin.Context) {
	data, err := h.exports.SignInSheet(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("checkpoint-%s-sheet.pdf", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
