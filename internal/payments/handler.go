package payments

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/config"
	"github.com/inkwell-funnel/backend/internal/discount"
	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// EventSource provides the current active webinar event for the discount
// decision.
type EventSource interface {
	ActiveEvent(ctx context.Context) (*models.WebinarEvent, error)
}

// AccountSource answers whether an account exists for a customer email.
type AccountSource interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PurchaseStore is the purchases persistence surface the handlers need.
type PurchaseStore interface {
	Create(ctx context.Context, p *models.Purchase) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error)
	MarkCompleted(ctx context.Context, sessionID, paymentID, email string, amountCents int, currency string) error
	LinkUser(ctx context.Context, purchaseID, userID uuid.UUID) error
}

// CheckoutRequest is the body for POST /payments/checkout. Discounted is a
// client hint only: the server recomputes the discount from the persisted
// webinar event and overrides a disagreeing hint.
type CheckoutRequest struct {
	ProductType string `json:"product_type" binding:"required"`
	CouponCode  string `json:"coupon_code"`
	Discounted  *bool  `json:"discounted"`
}

// VerifyRequest is the body for POST /payments/verify.
type VerifyRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	ProductType string `json:"product_type"`
}

// ClaimRequest is the body for POST /payments/claim (bearer auth), linking
// a pre-signup purchase to the freshly created account.
type ClaimRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Handler handles payment HTTP endpoints.
type Handler struct {
	cfg       config.StripeConfig
	events    EventSource
	purchases PurchaseStore
	accounts  AccountSource
	granter   *Granter
	logger    *zap.Logger

	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getCheckoutSession    func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	now                   func() time.Time
}

// NewHandler creates a payments handler backed by the Stripe API.
func NewHandler(cfg config.StripeConfig, events EventSource, purchases PurchaseStore, accounts AccountSource, granter *Granter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	stripe.Key = strings.TrimSpace(cfg.SecretKey)
	return &Handler{
		cfg:                   cfg,
		events:                events,
		purchases:             purchases,
		accounts:              accounts,
		granter:               granter,
		logger:                logger,
		createCheckoutSession: stripesession.New,
		getCheckoutSession:    stripesession.Get,
		now:                   time.Now,
	}
}

// resolveDiscount computes the discount decision server-side from the
// persisted active event. Any failure to load the event fails closed to
// full price.
func (h *Handler) resolveDiscount(ctx context.Context, now time.Time) bool {
	ev, err := h.events.ActiveEvent(ctx)
	if err != nil {
		h.logger.Warn("active event lookup failed, charging full price", zap.Error(err))
		return false
	}
	if ev == nil {
		return false
	}
	windowStart := ev.PostWebinarStart()
	if now.Before(windowStart) {
		return false
	}
	return discount.Evaluate(windowStart, ev.DiscountWindow(), now).Active()
}

// Checkout handles POST /payments/checkout. Responds {url} on success.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	productType, err := models.ParseProductType(req.ProductType)
	if err != nil {
		response.BadRequest(c, "invalid product_type")
		return
	}

	now := h.now()
	discounted := h.resolveDiscount(c.Request.Context(), now)
	if req.Discounted != nil && *req.Discounted != discounted {
		h.logger.Warn("client discount hint overridden",
			zap.Bool("client_hint", *req.Discounted),
			zap.Bool("server_decision", discounted),
			zap.String("product_type", productType.String()),
		)
	}

	priceID := h.cfg.Prices[productType.String()]
	if discounted {
		if dp := h.cfg.DiscountPrices[productType.String()]; dp != "" {
			priceID = dp
		}
	}
	if priceID == "" {
		h.logger.Error("no price configured", zap.String("product_type", productType.String()))
		response.Internal(c, "product not available for purchase")
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(h.cfg.SuccessURL),
		CancelURL:  stripe.String(h.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Metadata: map[string]string{
			"product_type": productType.String(),
			"discounted":   boolString(discounted),
		},
	}
	if req.CouponCode != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(req.CouponCode)},
		}
	}

	// A logged-in buyer gets the purchase linked immediately; guests are
	// linked at claim time.
	var userID *uuid.UUID
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			userID = &id
			params.Metadata["user_id"] = id.String()
		}
	}
	if v, ok := c.Get(middleware.ContextUserEmail); ok {
		if email, ok := v.(string); ok && email != "" {
			params.CustomerEmail = stripe.String(email)
		}
	}

	session, err := h.createCheckoutSession(params)
	if err != nil {
		h.logger.Error("create checkout session failed", zap.Error(err))
		response.Upstream(c, "payment processor unavailable, please retry")
		return
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		response.Upstream(c, "payment processor returned no checkout URL")
		return
	}

	purchase := &models.Purchase{
		UserID:            userID,
		ProductType:       productType,
		Provider:          "stripe",
		ProviderSessionID: session.ID,
		Discounted:        discounted,
		CouponCode:        req.CouponCode,
		Currency:          "usd",
		Status:            models.PurchaseStatusPending,
	}
	if err := h.purchases.Create(c.Request.Context(), purchase); err != nil {
		// The webhook recreates the row from session data if needed.
		h.logger.Error("record pending purchase failed", zap.Error(err), zap.String("session_id", session.ID))
	}

	response.OK(c, gin.H{"url": session.URL})
}

// Verify handles POST /payments/verify. Confirms the checkout session paid
// and reports whether the buyer still needs an account.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.getCheckoutSession(req.SessionID, nil)
	if err != nil {
		h.logger.Error("retrieve checkout session failed", zap.Error(err), zap.String("session_id", req.SessionID))
		response.Upstream(c, "could not verify payment, please retry")
		return
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		response.OK(c, gin.H{"success": false, "error": "payment not completed"})
		return
	}

	email := sessionEmail(session)
	needsAccount := true
	if email != "" {
		exists, err := h.accounts.ExistsByEmail(c.Request.Context(), email)
		if err != nil {
			response.Upstream(c, "could not verify payment, please retry")
			return
		}
		needsAccount = !exists
	}

	response.OK(c, gin.H{
		"success":       true,
		"needs_account": needsAccount,
		"email":         email,
	})
}

// Claim handles POST /payments/claim (bearer auth). Links a completed
// guest purchase to the caller and grants the entitlement.
func (h *Handler) Claim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	email, _ := c.MustGet(middleware.ContextUserEmail).(string)

	purchase, err := h.purchases.GetBySessionID(c.Request.Context(), req.SessionID)
	if err != nil {
		response.Upstream(c, "could not load purchase, please retry")
		return
	}
	if purchase == nil || purchase.Status != models.PurchaseStatusCompleted {
		response.NotFound(c, "no completed purchase for this session")
		return
	}
	if purchase.UserID != nil {
		// Already linked: either granted at webhook time (logged-in
		// checkout) or by an earlier claim. Never grant twice.
		if *purchase.UserID == userID {
			response.OK(c, gin.H{"already_claimed": true})
		} else {
			response.Forbidden(c, "purchase belongs to another account")
		}
		return
	}

	if err := h.purchases.LinkUser(c.Request.Context(), purchase.ID, userID); err != nil {
		response.Upstream(c, "could not link purchase, please retry")
		return
	}

	ent, err := h.granter.Grant(c.Request.Context(), userID, email, purchase.ProductType, h.now())
	if err != nil {
		response.Upstream(c, "could not activate access, please retry")
		return
	}
	response.OK(c, gin.H{"entitlement": ent})
}

func sessionEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
