package schedule

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/queue"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// EntitlementSource looks up the entitlement a trigger should schedule for.
type EntitlementSource interface {
	LatestForUser(ctx context.Context, userID uuid.UUID, productType models.ProductType) (*models.Entitlement, error)
}

// Dispatcher kicks the worker after scheduling.
type Dispatcher interface {
	EnqueueDispatch(ctx context.Context, payload queue.DispatchPayload) error
}

// Handler exposes the scheduling trigger for trusted automation and the
// caller's own schedule listing.
type Handler struct {
	svc          *Service
	repo         *Repository
	entitlements EntitlementSource
	dispatcher   Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandler creates a schedule handler.
func NewHandler(svc *Service, repo *Repository, entitlements EntitlementSource, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, entitlements: entitlements, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// TriggerRequest is the body for POST /internal/emails/schedule.
type TriggerRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	Email       string `json:"email" binding:"required,email"`
	ProductType string `json:"product_type" binding:"required"`
}

// Trigger handles POST /internal/emails/schedule (internal secret auth).
// Re-runs purchase-lifecycle scheduling for a user; safe to call more than
// once since existing entries are suppressed.
func (h *Handler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user_id")
		return
	}
	productType, err := models.ParseProductType(req.ProductType)
	if err != nil {
		response.BadRequest(c, "invalid product_type")
		return
	}

	ent, err := h.entitlements.LatestForUser(c.Request.Context(), userID, productType)
	if err != nil {
		response.Upstream(c, "could not load entitlement, please retry")
		return
	}
	if ent == nil {
		response.NotFound(c, "no entitlement for user and product")
		return
	}

	scheduled, err := h.svc.ScheduleForPurchase(c.Request.Context(), ent, req.Email, h.now())
	if err != nil {
		h.logger.Error("trigger scheduling failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Upstream(c, "scheduling failed, please retry")
		return
	}
	if scheduled > 0 && h.dispatcher != nil {
		if err := h.dispatcher.EnqueueDispatch(c.Request.Context(), queue.DispatchPayload{UserID: userID, Reason: "internal_trigger"}); err != nil {
			h.logger.Warn("dispatch kick failed", zap.Error(err))
		}
	}
	response.OK(c, gin.H{"scheduled_count": scheduled})
}

// ListMine handles GET /emails/schedule (bearer auth). Returns the
// caller's scheduled emails.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	entries, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load schedules")
		return
	}
	response.OK(c, entries)
}
