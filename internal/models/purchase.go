package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus for purchases.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusRefunded  = "refunded"
)

// Purchase is the payment audit record behind an entitlement.
type Purchase struct {
	ID                uuid.UUID   `json:"id"`
	UserID            *uuid.UUID  `json:"user_id,omitempty"`
	Email             string      `json:"email"`
	ProductType       ProductType `json:"product_type"`
	Provider          string      `json:"provider"`
	ProviderSessionID string      `json:"provider_session_id,omitempty"`
	ProviderPaymentID string      `json:"provider_payment_id,omitempty"`
	AmountCents       int         `json:"amount_cents"`
	Currency          string      `json:"currency"`
	Discounted        bool        `json:"discounted"`
	CouponCode        string      `json:"coupon_code,omitempty"`
	Status            string      `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
