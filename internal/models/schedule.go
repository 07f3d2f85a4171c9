package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType discriminates lifecycle emails. Immediate types are always kept
// by the generator regardless of timing; the rest are dropped once past.
const (
	// Registration sequence, relative to webinar_date.
	EmailTypeConfirmation = "confirmation"
	EmailTypeReminder24h  = "reminder_24h"
	EmailTypeReminder2h   = "reminder_2h"
	EmailTypeReminder15m  = "reminder_15m"

	// Post-webinar sequence, relative to post_webinar_start.
	EmailTypeReplay    = "replay"
	EmailTypeNudge12h  = "nudge_12h"
	EmailTypeNudge36h  = "nudge_36h"
	EmailTypeNudge60h  = "nudge_60h"
	EmailTypeFinalHour = "final_hour"

	// Purchase sequence.
	EmailTypeWelcome    = "welcome"
	EmailTypeRenewal7d  = "renewal_7d"
	EmailTypeRenewal24h = "renewal_24h"
)

// ScheduleStatus for email_schedules rows.
const (
	ScheduleStatusPending = "pending"
	ScheduleStatusSent    = "sent"
	ScheduleStatusFailed  = "failed"
)

// EmailScheduleEntry is one future (or immediate) email to send. A unique
// constraint on (user_id, email_type, webinar_event_id) is the authoritative
// duplicate guarantee; the application-level suppression filter is only the
// fast path.
type EmailScheduleEntry struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Email          string            `json:"email"`
	EmailType      string            `json:"email_type"`
	TemplateName   string            `json:"template_name"`
	ScheduledFor   time.Time         `json:"scheduled_for"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	WebinarEventID *uuid.UUID        `json:"webinar_event_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// EmailLogStatus for email_logs rows.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one delivery attempt.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	ScheduleID     *uuid.UUID `json:"schedule_id,omitempty"`
	WebinarEventID *uuid.UUID `json:"webinar_event_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
