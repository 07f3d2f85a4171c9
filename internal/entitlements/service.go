package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
)

// verifyTimeout bounds the authoritative entitlement lookup. A timed-out
// check is a failure, never an implicit grant.
const verifyTimeout = 5 * time.Second

// Store is the persistence surface the access gate needs.
type Store interface {
	LatestForUser(ctx context.Context, userID uuid.UUID, productType models.ProductType) (*models.Entitlement, error)
}

// Service is the server-side leg of the access gate: the client may render
// optimistically from its own cached entitlement, but anything sensitive
// waits for Verify. On any uncertainty the answer is denied.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an access-gate service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Verify reports whether the user holds a current entitlement for the
// product. The error return distinguishes "denied" from "could not check";
// callers must treat both as no access, but only the latter is retryable.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, productType models.ProductType) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	ent, err := s.store.LatestForUser(ctx, userID, productType)
	if err != nil {
		return false, fmt.Errorf("entitlement lookup: %w", err)
	}
	if ent == nil {
		return false, nil
	}
	granted := ent.Current(s.now())
	if !granted {
		s.logger.Debug("entitlement expired",
			zap.String("user_id", userID.String()),
			zap.String("product_type", productType.String()),
			zap.Time("expires_at", ent.ExpiresAt),
		)
	}
	return granted, nil
}
