package leads

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// CaptureRequest is the body for POST /leads.
type CaptureRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
	Source   string `json:"source"`
}

// Handler handles lead capture HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a leads handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Capture handles POST /leads (public). Validation happens before any
// persistence call.
func (h *Handler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		response.BadRequest(c, "invalid email address")
		return
	}

	source := req.Source
	switch source {
	case models.LeadSourceFreeWorkbook, models.LeadSourceWebinar, models.LeadSourceCheckout:
	default:
		source = models.LeadSourceFreeWorkbook
	}

	lead := &models.Lead{Email: req.Email, FullName: req.FullName, Source: source}
	if err := h.repo.Upsert(c.Request.Context(), lead); err != nil {
		h.logger.Error("lead upsert failed", zap.Error(err))
		response.Upstream(c, "could not save your details, please retry")
		return
	}
	response.Created(c, gin.H{"lead_id": lead.ID})
}
