package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-funnel/backend/internal/models"
)

type fakeStore struct {
	ent   *models.Entitlement
	err   error
	delay time.Duration
}

func (f *fakeStore) LatestForUser(ctx context.Context, _ uuid.UUID, _ models.ProductType) (*models.Entitlement, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.ent, f.err
}

func serviceAt(store Store, now time.Time) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestVerify_CurrentEntitlementGrants(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{ent: &models.Entitlement{
		UserID:      uuid.New(),
		ProductType: models.ProductWorkbook,
		PurchasedAt: now.Add(-30 * 24 * time.Hour),
		ExpiresAt:   now.Add(300 * 24 * time.Hour),
	}}

	granted, err := serviceAt(store, now).Verify(context.Background(), store.ent.UserID, models.ProductWorkbook)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestVerify_ExpiredEntitlementDenies(t *testing.T) {
	// Purchased 2025-01-01, expired 2025-07-01, checked 2025-08-01.
	store := &fakeStore{ent: &models.Entitlement{
		UserID:      uuid.New(),
		ProductType: models.ProductWorkbook,
		PurchasedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}}
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	granted, err := serviceAt(store, now).Verify(context.Background(), store.ent.UserID, models.ProductWorkbook)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestVerify_NoEntitlementDenies(t *testing.T) {
	store := &fakeStore{}
	granted, err := serviceAt(store, time.Now()).Verify(context.Background(), uuid.New(), models.ProductBundle)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestVerify_StoreErrorFailsClosed(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	granted, err := serviceAt(store, time.Now()).Verify(context.Background(), uuid.New(), models.ProductWorkbook)
	require.Error(t, err)
	assert.False(t, granted, "a failed check must never grant access")
}

func TestVerify_TimeoutFailsClosed(t *testing.T) {
	store := &fakeStore{
		delay: time.Minute,
		ent: &models.Entitlement{
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	svc := NewService(store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	granted, err := svc.Verify(ctx, uuid.New(), models.ProductWorkbook)
	require.Error(t, err)
	assert.False(t, granted)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	expires := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{ent: &models.Entitlement{
		PurchasedAt: expires.Add(-time.Hour),
		ExpiresAt:   expires,
	}}

	// Exactly at expiry the entitlement no longer grants access.
	granted, err := serviceAt(store, expires).Verify(context.Background(), uuid.New(), models.ProductWorkbook)
	require.NoError(t, err)
	assert.False(t, granted)

	granted, err = serviceAt(store, expires.Add(-time.Second)).Verify(context.Background(), uuid.New(), models.ProductWorkbook)
	require.NoError(t, err)
	assert.True(t, granted)
}
