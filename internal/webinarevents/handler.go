package webinarevents

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/discount"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// CreateRequest is the body for POST /webinar-events (admin).
type CreateRequest struct {
	Title                           string `json:"title" binding:"required"`
	WebinarDate                     string `json:"webinar_date" binding:"required"`
	DiscountWindowHours             int    `json:"discount_window_hours"`
	PostWebinarTriggerOffsetMinutes int    `json:"post_webinar_trigger_offset_minutes"`
	IsActive                        bool   `json:"is_active"`
}

// Handler handles webinar event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a webinar events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /webinar-events (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	webinarDate, err := time.Parse(time.RFC3339, req.WebinarDate)
	if err != nil {
		response.BadRequest(c, "invalid webinar_date")
		return
	}
	if req.DiscountWindowHours <= 0 {
		req.DiscountWindowHours = 72
	}

	ev := &models.WebinarEvent{
		Title:                           req.Title,
		WebinarDate:                     webinarDate,
		DiscountWindowHours:             req.DiscountWindowHours,
		PostWebinarTriggerOffsetMinutes: req.PostWebinarTriggerOffsetMinutes,
		IsActive:                        req.IsActive,
	}
	if err := h.repo.Create(c.Request.Context(), ev); err != nil {
		h.logger.Error("create webinar event failed", zap.Error(err))
		response.Upstream(c, "failed to create event")
		return
	}
	response.Created(c, ev)
}

// List handles GET /webinar-events (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Upstream(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Activate handles POST /webinar-events/:id/activate (admin only).
func (h *Handler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Activate(c.Request.Context(), id); err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, gin.H{"activated": id})
}

// DiscountStatus handles GET /webinar/discount-status (public). Returns the
// countdown for the current active event's post-webinar discount window.
// The window opens at post_webinar_start; before the webinar the discount
// is reported inactive with the full window ahead.
func (h *Handler) DiscountStatus(c *gin.Context) {
	ev, err := h.repo.ActiveEvent(c.Request.Context())
	if err != nil {
		response.Upstream(c, "could not load discount status")
		return
	}
	if ev == nil {
		response.OK(c, gin.H{"active": false})
		return
	}

	now := time.Now()
	st := discount.Evaluate(ev.PostWebinarStart(), ev.DiscountWindow(), now)
	active := st.Active() && !now.Before(ev.PostWebinarStart())
	response.OK(c, gin.H{
		"active":       active,
		"expired":      st.Expired,
		"hours":        st.Hours,
		"minutes":      st.Minutes,
		"seconds":      st.Seconds,
		"deadline":     st.Deadline,
		"webinar_date": ev.WebinarDate,
	})
}
