package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// LeadSource counts captured leads.
type LeadSource interface {
	Count(ctx context.Context) (int, error)
}

// PurchaseSource reports completed purchase totals.
type PurchaseSource interface {
	Totals(ctx context.Context) (count, revenueCents int, err error)
}

// RegistrationSource counts webinar registrations.
type RegistrationSource interface {
	CountByEvent(ctx context.Context, eventID uuid.UUID) (total, attended int, err error)
}

// EventSource provides the active webinar event.
type EventSource interface {
	ActiveEvent(ctx context.Context) (*models.WebinarEvent, error)
}

// EmailLogSource aggregates delivery attempts.
type EmailLogSource interface {
	CountsByStatus(ctx context.Context) (map[string]int, error)
}

// Handler handles GET /admin/analytics (admin only).
type Handler struct {
	leads         LeadSource
	purchases     PurchaseSource
	registrations RegistrationSource
	events        EventSource
	emailLogs     EmailLogSource
	logger        *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(leads LeadSource, purchases PurchaseSource, registrations RegistrationSource, events EventSource, emailLogs EmailLogSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		leads:         leads,
		purchases:     purchases,
		registrations: registrations,
		events:        events,
		emailLogs:     emailLogs,
		logger:        logger,
	}
}

// SummaryResponse is the JSON shape for the funnel overview.
type SummaryResponse struct {
	Leads               int            `json:"leads"`
	ActiveEventTitle    string         `json:"active_event_title,omitempty"`
	ActiveRegistrations int            `json:"active_registrations"`
	ActiveAttended      int            `json:"active_attended"`
	Purchases           int            `json:"purchases"`
	RevenueCents        int            `json:"revenue_cents"`
	ConversionPercent   float64        `json:"conversion_percent"`
	EmailsByStatus      map[string]int `json:"emails_by_status"`
}

// Summary handles GET /admin/analytics: lead count, active-event
// registrations, purchase revenue, and email delivery totals in one shot.
func (h *Handler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	leadCount, err := h.leads.Count(ctx)
	if err != nil {
		h.logger.Error("lead count failed", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	purchaseCount, revenueCents, err := h.purchases.Totals(ctx)
	if err != nil {
		h.logger.Error("purchase totals failed", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	emailCounts, err := h.emailLogs.CountsByStatus(ctx)
	if err != nil {
		h.logger.Error("email counts failed", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}

	out := SummaryResponse{
		Leads:          leadCount,
		Purchases:      purchaseCount,
		RevenueCents:   revenueCents,
		EmailsByStatus: emailCounts,
	}
	if leadCount > 0 {
		out.ConversionPercent = float64(purchaseCount) / float64(leadCount) * 100
	}

	// Registrations are scoped to the active event; no active event just
	// means zero here.
	ev, err := h.events.ActiveEvent(ctx)
	if err != nil {
		h.logger.Warn("active event lookup failed", zap.Error(err))
	} else if ev != nil {
		out.ActiveEventTitle = ev.Title
		total, attended, err := h.registrations.CountByEvent(ctx, ev.ID)
		if err != nil {
			h.logger.Warn("registration count failed", zap.Error(err))
		} else {
			out.ActiveRegistrations = total
			out.ActiveAttended = attended
		}
	}

	response.OK(c, out)
}
