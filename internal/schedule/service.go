package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Store is the persistence surface the suppression filter needs.
type Store interface {
	ExistingTypes(ctx context.Context, userID uuid.UUID, webinarEventID *uuid.UUID) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, entries []models.EmailScheduleEntry) (int, error)
}

// Service runs the generator and the duplicate suppression filter: compute
// candidates, subtract the types already persisted for the scope, insert
// only the net-new rows. If the existence check itself fails the whole
// batch is aborted with nothing inserted, since skipping the check risks
// duplicate sends.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a scheduling service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ScheduleForRegistration persists the registration email sequence for the
// user and event, returning how many net-new entries were inserted.
func (s *Service) ScheduleForRegistration(ctx context.Context, ev *models.WebinarEvent, userID uuid.UUID, email string, now time.Time) (int, error) {
	candidates := ForRegistration(ev, userID, email, now)
	return s.insertFiltered(ctx, userID, &ev.ID, candidates)
}

// ScheduleForPurchase persists the purchase email sequence for the
// entitlement, returning how many net-new entries were inserted.
func (s *Service) ScheduleForPurchase(ctx context.Context, ent *models.Entitlement, email string, now time.Time) (int, error) {
	candidates := ForPurchase(ent, email, now)
	return s.insertFiltered(ctx, ent.UserID, nil, candidates)
}

func (s *Service) insertFiltered(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID, candidates []models.EmailScheduleEntry) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	existing, err := s.store.ExistingTypes(ctx, userID, eventID)
	if err != nil {
		return 0, fmt.Errorf("duplicate check: %w", err)
	}

	fresh := candidates[:0:0]
	for _, c := range candidates {
		if _, dup := existing[c.EmailType]; dup {
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	inserted, err := s.store.InsertBatch(ctx, fresh)
	if err != nil {
		return inserted, fmt.Errorf("insert schedules: %w", err)
	}
	s.logger.Info("email schedules created",
		zap.String("user_id", userID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}
