package entitlements

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// Handler handles access-verification HTTP endpoints.
type Handler struct {
	svc    *Service
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an entitlements handler.
func NewHandler(svc *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, logger: logger}
}

// Verify handles GET /access/verify?product_type=... (bearer auth).
// Upstream failure answers 503 with the retryable flag so the client shows
// a retry affordance; it never answers granted.
func (h *Handler) Verify(c *gin.Context) {
	productType, err := models.ParseProductType(c.Query("product_type"))
	if err != nil {
		response.BadRequest(c, "invalid product_type")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	granted, err := h.svc.Verify(c.Request.Context(), userID, productType)
	if err != nil {
		h.logger.Error("access verification failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Upstream(c, "could not verify access, please retry")
		return
	}
	response.OK(c, gin.H{"has_access": granted})
}

// ListMine handles GET /access (bearer auth). Returns the caller's
// entitlements for account pages.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Upstream(c, "could not load purchases, please retry")
		return
	}
	response.OK(c, list)
}
