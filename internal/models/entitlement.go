package models

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement grants a user access to a product until ExpiresAt.
// Rows live in webinar_access; they are created at payment confirmation,
// read on every gated-content request, and never deleted (audit history).
// Access is binary: current before ExpiresAt, gone after.
type Entitlement struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	ProductType ProductType `json:"product_type"`
	PurchasedAt time.Time   `json:"purchased_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Current reports whether the entitlement grants access at the given instant.
func (e *Entitlement) Current(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
