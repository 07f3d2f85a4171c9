package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadSource for leads.
const (
	LeadSourceFreeWorkbook = "free_workbook"
	LeadSourceWebinar      = "webinar"
	LeadSourceCheckout     = "checkout"
)

// Lead is an email capture from the top of the funnel, unique per email.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
