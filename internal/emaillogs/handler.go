package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/queue"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// ScheduleSource looks up schedule entries for resends.
type ScheduleSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailScheduleEntry, error)
}

// Resender enqueues resend jobs for the worker.
type Resender interface {
	EnqueueResend(ctx context.Context, payload queue.ResendPayload) error
}

// Handler handles email log HTTP endpoints (admin only).
type Handler struct {
	repo      *Repository
	schedules ScheduleSource
	resender  Resender
	logger    *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository, schedules ScheduleSource, resender Resender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, schedules: schedules, resender: resender, logger: logger}
}

// List handles GET /admin/emails/logs?limit=&event_id=&email=.
func (h *Handler) List(c *gin.Context) {
	if email := c.Query("email"); email != "" {
		logs, err := h.repo.ListByRecipient(c.Request.Context(), email)
		if err != nil {
			response.Internal(c, "failed to load email logs")
			return
		}
		response.OK(c, logs)
		return
	}

	if raw := c.Query("event_id"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		logs, err := h.repo.ListByEvent(c.Request.Context(), eventID)
		if err != nil {
			response.Internal(c, "failed to load email logs")
			return
		}
		response.OK(c, logs)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// ResendRequest is the body for POST /admin/emails/resend.
type ResendRequest struct {
	ScheduleID string `json:"schedule_id" binding:"required,uuid"`
}

// Resend handles POST /admin/emails/resend. Enqueues a resend job for the
// worker; the schedule entry must exist.
func (h *Handler) Resend(c *gin.Context) {
	var body ResendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "schedule_id required")
		return
	}
	scheduleID, err := uuid.Parse(body.ScheduleID)
	if err != nil {
		response.BadRequest(c, "invalid schedule_id")
		return
	}

	entry, err := h.schedules.GetByID(c.Request.Context(), scheduleID)
	if err != nil {
		response.Internal(c, "failed to load schedule")
		return
	}
	if entry == nil {
		response.NotFound(c, "schedule not found")
		return
	}

	if err := h.resender.EnqueueResend(c.Request.Context(), queue.ResendPayload{ScheduleID: scheduleID}); err != nil {
		h.logger.Error("enqueue resend failed", zap.Error(err), zap.String("schedule_id", scheduleID.String()))
		response.Internal(c, "failed to enqueue resend")
		return
	}
	response.OK(c, gin.H{"message": "resend queued", "email_type": entry.EmailType})
}
