package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/internal/schedule"
	"github.com/inkwell-funnel/backend/pkg/queue"
)

// EntitlementStore is the entitlement persistence surface granting needs.
type EntitlementStore interface {
	Create(ctx context.Context, e *models.Entitlement) error
}

// Dispatcher kicks the email worker so immediate sends do not wait for the
// next tick.
type Dispatcher interface {
	EnqueueDispatch(ctx context.Context, payload queue.DispatchPayload) error
}

// Granter turns a confirmed payment into an entitlement plus its lifecycle
// email schedule. The schedule pass is idempotent, so retried webhooks and
// claims do not duplicate emails.
type Granter struct {
	entitlements EntitlementStore
	scheduler    *schedule.Service
	dispatcher   Dispatcher
	logger       *zap.Logger
}

// NewGranter creates a Granter.
func NewGranter(entitlements EntitlementStore, scheduler *schedule.Service, dispatcher Dispatcher, logger *zap.Logger) *Granter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Granter{entitlements: entitlements, scheduler: scheduler, dispatcher: dispatcher, logger: logger}
}

// Grant creates the entitlement and schedules the purchase email sequence.
func (g *Granter) Grant(ctx context.Context, userID uuid.UUID, email string, productType models.ProductType, now time.Time) (*models.Entitlement, error) {
	ent := &models.Entitlement{
		UserID:      userID,
		ProductType: productType,
		PurchasedAt: now,
		ExpiresAt:   now.Add(productType.AccessDuration()),
	}
	if err := g.entitlements.Create(ctx, ent); err != nil {
		return nil, fmt.Errorf("create entitlement: %w", err)
	}

	scheduled, err := g.scheduler.ScheduleForPurchase(ctx, ent, email, now)
	if err != nil {
		// The entitlement is granted either way; the internal trigger
		// endpoint can re-run scheduling later.
		g.logger.Error("schedule purchase emails failed", zap.Error(err), zap.String("user_id", userID.String()))
		return ent, nil
	}
	if scheduled > 0 && g.dispatcher != nil {
		if err := g.dispatcher.EnqueueDispatch(ctx, queue.DispatchPayload{UserID: userID, Reason: "purchase"}); err != nil {
			g.logger.Warn("dispatch kick failed, welcome email waits for next tick", zap.Error(err))
		}
	}
	g.logger.Info("entitlement granted",
		zap.String("user_id", userID.String()),
		zap.String("product_type", productType.String()),
		zap.Time("expires_at", ent.ExpiresAt),
		zap.Int("emails_scheduled", scheduled),
	)
	return ent, nil
}
