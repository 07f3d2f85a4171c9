package registrations

import (
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/auth"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/internal/schedule"
	"github.com/inkwell-funnel/backend/internal/webinarevents"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// RegisterRequest is the body for POST /webinar/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
}

// Handler handles webinar registration HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *webinarevents.Repository
	authRepo  *auth.Repository
	scheduler *schedule.Service
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, eventRepo *webinarevents.Repository, authRepo *auth.Repository, scheduler *schedule.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, authRepo: authRepo, scheduler: scheduler, logger: logger}
}

// Register handles POST /webinar/register (public). Registers the email for
// the current active event and generates the reminder email sequence. A
// guest without an account gets the user ID minted at first registration;
// re-registering reuses it.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		response.BadRequest(c, "invalid email address")
		return
	}

	ctx := c.Request.Context()
	ev, err := h.eventRepo.ActiveEvent(ctx)
	if err != nil {
		response.Upstream(c, "could not load the current webinar, please retry")
		return
	}
	if ev == nil {
		response.NotFound(c, "no upcoming webinar is open for registration")
		return
	}

	// Tie the registration to an existing account when one matches.
	userID := uuid.New()
	if user, err := h.authRepo.GetByEmail(ctx, req.Email); err == nil && user != nil {
		userID = user.ID
	}

	reg := &models.WebinarRegistration{
		UserID:         userID,
		Email:          req.Email,
		WebinarEventID: ev.ID,
	}
	if err := h.repo.Upsert(ctx, reg); err != nil {
		h.logger.Error("register failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Upstream(c, "registration failed, please retry")
		return
	}

	scheduled, err := h.scheduler.ScheduleForRegistration(ctx, ev, reg.UserID, reg.Email, time.Now())
	if err != nil {
		// The registration itself stuck; emails can be rescheduled by a
		// later trigger, so report success with zero scheduled.
		h.logger.Error("schedule registration emails failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		scheduled = 0
	}

	response.Created(c, gin.H{
		"registration_id": reg.ID,
		"webinar_date":    ev.WebinarDate,
		"scheduled_count": scheduled,
	})
}

// ListByEvent handles GET /webinar-events/:id/registrations (admin only).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Upstream(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}
