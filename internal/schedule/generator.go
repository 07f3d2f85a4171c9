// Package schedule generates lifecycle email schedules and filters out
// duplicates before they are persisted.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-funnel/backend/internal/models"
)

// step is one entry in a sequence: an email type, its template, and the
// offset from the sequence's reference time. Immediate steps are kept even
// when the reference time is already past ("send now").
type step struct {
	emailType string
	template  string
	offset    time.Duration
	immediate bool
}

// Registration sequence, relative to webinar_date.
var registrationSteps = []step{
	{models.EmailTypeConfirmation, "webinar-confirmation", 0, true},
	{models.EmailTypeReminder24h, "webinar-reminder-24h", -24 * time.Hour, false},
	{models.EmailTypeReminder2h, "webinar-reminder-2h", -2 * time.Hour, false},
	{models.EmailTypeReminder15m, "webinar-starting-soon", -15 * time.Minute, false},
}

// Post-webinar sequence, relative to post_webinar_start.
var postWebinarSteps = []step{
	{models.EmailTypeReplay, "webinar-replay", 0, false},
	{models.EmailTypeNudge12h, "discount-nudge-12h", 12 * time.Hour, false},
	{models.EmailTypeNudge36h, "discount-nudge-36h", 36 * time.Hour, false},
	{models.EmailTypeNudge60h, "discount-nudge-60h", 60 * time.Hour, false},
	{models.EmailTypeFinalHour, "discount-final-hour", 71 * time.Hour, false},
}

// Purchase sequence: welcome now, renewal nudges relative to expiry.
var purchaseRenewalSteps = []step{
	{models.EmailTypeRenewal7d, "renewal-reminder-7d", -7 * 24 * time.Hour, false},
	{models.EmailTypeRenewal24h, "renewal-reminder-24h", -24 * time.Hour, false},
}

// ForRegistration produces the candidate entries for a webinar registration:
// confirmation plus pre-event reminders, then the post-webinar sequence.
// Candidates already in the past at generation time are dropped, except
// immediate ones. The function is pure and re-runnable: duplicate protection
// is the suppression filter's job, not the generator's.
func ForRegistration(ev *models.WebinarEvent, userID uuid.UUID, email string, now time.Time) []models.EmailScheduleEntry {
	meta := map[string]string{
		"webinar_title": ev.Title,
		"webinar_date":  ev.WebinarDate.Format(time.RFC3339),
	}

	var out []models.EmailScheduleEntry
	out = appendSteps(out, registrationSteps, ev.WebinarDate, now, userID, email, &ev.ID, meta)
	out = appendSteps(out, postWebinarSteps, ev.PostWebinarStart(), now, userID, email, &ev.ID, meta)
	return out
}

// ForPurchase produces the candidate entries for a completed purchase:
// an immediate welcome plus renewal nudges ahead of the access expiry.
func ForPurchase(ent *models.Entitlement, email string, now time.Time) []models.EmailScheduleEntry {
	meta := map[string]string{
		"product_type": ent.ProductType.String(),
		"expires_at":   ent.ExpiresAt.Format(time.RFC3339),
	}

	out := []models.EmailScheduleEntry{{
		UserID:       ent.UserID,
		Email:        email,
		EmailType:    models.EmailTypeWelcome,
		TemplateName: "purchase-welcome",
		ScheduledFor: now,
		Status:       models.ScheduleStatusPending,
		Metadata:     meta,
	}}
	return appendSteps(out, purchaseRenewalSteps, ent.ExpiresAt, now, ent.UserID, email, nil, meta)
}

func appendSteps(out []models.EmailScheduleEntry, steps []step, ref, now time.Time, userID uuid.UUID, email string, eventID *uuid.UUID, meta map[string]string) []models.EmailScheduleEntry {
	for _, s := range steps {
		at := ref.Add(s.offset)
		if at.Before(now) && !s.immediate {
			continue
		}
		if s.immediate && at.Before(now) {
			at = now
		}
		out = append(out, models.EmailScheduleEntry{
			UserID:         userID,
			Email:          email,
			EmailType:      s.emailType,
			TemplateName:   s.template,
			ScheduledFor:   at,
			Status:         models.ScheduleStatusPending,
			Metadata:       meta,
			WebinarEventID: eventID,
		})
	}
	return out
}
