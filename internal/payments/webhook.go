package payments

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
)

// maxWebhookBody caps webhook request bodies at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookHandler processes Stripe webhook events. Signature verification
// failures are rejected; processing failures return 5xx so Stripe retries
// the delivery.
type WebhookHandler struct {
	secret    string
	purchases PurchaseStore
	granter   *Granter
	logger    *zap.Logger

	constructEvent func(payload []byte, sigHeader, secret string) (stripe.Event, error)
	now            func() time.Time
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(secret string, purchases PurchaseStore, granter *Granter, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		secret:    secret,
		purchases: purchases,
		granter:   granter,
		logger:    logger,
		constructEvent: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			return webhook.ConstructEventWithOptions(payload, sigHeader, secret,
				webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		},
		now: time.Now,
	}
}

// Handle handles POST /webhooks/stripe.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.secret == "" {
		h.logger.Warn("stripe webhook secret not configured, rejecting event")
		response.Internal(c, "webhook not configured")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "could not read body")
		return
	}

	event, err := h.constructEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		response.BadRequest(c, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.logger.Error("webhook payload unmarshal failed", zap.Error(err), zap.String("event_id", event.ID))
			response.BadRequest(c, "malformed event payload")
			return
		}
		if err := h.handleCheckoutCompleted(c, &session); err != nil {
			h.logger.Error("checkout completion processing failed", zap.Error(err),
				zap.String("event_id", event.ID), zap.String("session_id", session.ID))
			response.Internal(c, "processing failed")
			return
		}
	default:
		h.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
	}

	response.OK(c, gin.H{"received": true})
}

func (h *WebhookHandler) handleCheckoutCompleted(c *gin.Context, session *stripe.CheckoutSession) error {
	ctx := c.Request.Context()
	email := sessionEmail(session)

	paymentID := ""
	if session.PaymentIntent != nil {
		paymentID = session.PaymentIntent.ID
	}

	existing, err := h.purchases.GetBySessionID(ctx, session.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == models.PurchaseStatusCompleted {
		// Stripe redelivers events; the first delivery already granted.
		h.logger.Debug("duplicate webhook delivery", zap.String("session_id", session.ID))
		return nil
	}

	if existing == nil {
		// The pending row from checkout can be missing if its insert
		// failed; rebuild the purchase from session data.
		productType, perr := models.ParseProductType(session.Metadata["product_type"])
		if perr != nil {
			return perr
		}
		purchase := &models.Purchase{
			Email:             email,
			ProductType:       productType,
			Provider:          "stripe",
			ProviderSessionID: session.ID,
			Discounted:        session.Metadata["discounted"] == "true",
			Currency:          string(session.Currency),
			Status:            models.PurchaseStatusPending,
		}
		if err := h.purchases.Create(ctx, purchase); err != nil {
			return err
		}
		existing = purchase
	}

	if err := h.purchases.MarkCompleted(ctx, session.ID, paymentID, email, int(session.AmountTotal), string(session.Currency)); err != nil {
		return err
	}

	// A guest purchase has no account yet; access is granted when the
	// buyer signs up and claims the session.
	rawUserID := session.Metadata["user_id"]
	if rawUserID == "" {
		h.logger.Info("guest purchase completed, awaiting claim",
			zap.String("session_id", session.ID), zap.String("email", email))
		return nil
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		h.logger.Warn("webhook user_id metadata unparseable", zap.String("raw", rawUserID))
		return nil
	}
	if _, err := h.granter.Grant(ctx, userID, email, existing.ProductType, h.now()); err != nil {
		return err
	}
	return nil
}
