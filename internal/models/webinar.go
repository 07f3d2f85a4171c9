package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarEvent is a scheduled live event with its discount-window parameters.
// At most one event should be active for scheduling; when more are flagged
// active the earliest webinar_date wins.
type WebinarEvent struct {
	ID                             uuid.UUID `json:"id"`
	Title                          string    `json:"title"`
	WebinarDate                    time.Time `json:"webinar_date"`
	DiscountWindowHours            int       `json:"discount_window_hours"`
	PostWebinarTriggerOffsetMinutes int      `json:"post_webinar_trigger_offset_minutes"`
	IsActive                       bool      `json:"is_active"`
	CreatedAt                      time.Time `json:"created_at"`
	UpdatedAt                      time.Time `json:"updated_at"`
}

// PostWebinarStart is when the post-webinar email sequence begins.
func (w *WebinarEvent) PostWebinarStart() time.Time {
	return w.WebinarDate.Add(time.Duration(w.PostWebinarTriggerOffsetMinutes) * time.Minute)
}

// DiscountWindow is the configured discount duration.
func (w *WebinarEvent) DiscountWindow() time.Duration {
	return time.Duration(w.DiscountWindowHours) * time.Hour
}

// WebinarRegistration is one attendee registration, unique per (user, event).
type WebinarRegistration struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	WebinarEventID uuid.UUID `json:"webinar_event_id"`
	RegisteredAt   time.Time `json:"registered_at"`
	Attended       *bool     `json:"attended,omitempty"`
}
