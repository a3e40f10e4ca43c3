package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/attendance-api/internal/service"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/response"
)

// VerificationHandler manages token issuance and the scan gateway.
type VerificationHandler struct {
	service *service.VerificationService
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(svc *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{service: svc}
}

type issueSessionTokenRequest struct {
	MaxUses *int `json:"max_uses,omitempty"`
}

// IssueSessionToken godoc
// @Summary Issue the shared QR token for a checkpoint
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Checkpoint ID"
// @Param payload body issueSessionTokenRequest false "Token options"
// @Success 201 {object} response.Envelope
// @Router /checkpoints/{id}/qr-token [post]
func (h *VerificationHandler) IssueSessionToken(c *gin.Context) {
	var req issueSessionTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	result, err := h.service.IssueSessionToken(c.Request.Context(), c.Param("id"), req.MaxUses, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// IssueRotatingCode godoc
// @Summary Issue a fresh rotating access code for an event
// @Tags Verification
// @Produce json
// @Param id path string true "Event ID"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/codes [post]
func (h *VerificationHandler) IssueRotatingCode(c *gin.Context) {
	result, err := h.service.IssueRotatingCode(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

type validateCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateCode godoc
// @Summary Validate a rotating access code
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body validateCodeRequest true "Code payload"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/codes/validate [post]
func (h *VerificationHandler) ValidateCode(c *gin.Context) {
	var req validateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	token, err := h.service.ValidateAccessCode(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token_id": token.ID, "expires_at": token.ExpiresAt}, nil)
}

// Scan godoc
// @Summary Record a physical mark via scanned QR token
// @Tags Verification
// @Accept json
// @Produce json
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 201 {object} response.Envelope
// @Router /scan [post]
func (h *VerificationHandler) Scan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IPAddress = c.ClientIP()
	if fp := c.GetHeader("X-Device-Fingerprint"); fp != "" && req.DeviceFingerprint == "" {
		req.DeviceFingerprint = fp
	}
	mark, err := h.service.Scan(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// ListAudit godoc
// @Summary List the verification audit trail for an event
// @Tags Verification
// @Produce json
// @Param id path string true "Event ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/audit [get]
func (h *VerificationHandler) ListAudit(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)
	entries, pagination, err := h.service.ListAudit(c.Request.Context(), c.Param("id"), page, limit, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
