package schedule

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

// fakeStore keeps inserted entries in memory, keyed the way the unique
// index would key them.
type fakeStore struct {
	rows      map[string]models.EmailScheduleEntry
	existsErr error
	insertErr error
	inserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]models.EmailScheduleEntry)}
}

func key(userID uuid.UUID, emailType string, eventID *uuid.UUID) string {
	scope := "purchase"
	if eventID != nil {
		scope = eventID.String()
	}
	return userID.String() + "/" + emailType + "/" + scope
}

func (f *fakeStore) ExistingTypes(_ context.Context, userID uuid.UUID, eventID *uuid.UUID) (map[string]struct{}, error) {
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	out := make(map[string]struct{})
	for _, e := range f.rows {
		if e.UserID != userID {
			continue
		}
		if (e.WebinarEventID == nil) != (eventID == nil) {
			continue
		}
		if eventID != nil && *e.WebinarEventID != *eventID {
			continue
		}
		out[e.EmailType] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) InsertBatch(_ context.Context, entries []models.EmailScheduleEntry) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	n := 0
	for _, e := range entries {
		k := key(e.UserID, e.EmailType, e.WebinarEventID)
		if _, dup := f.rows[k]; dup {
			continue
		}
		f.rows[k] = e
		n++
	}
	f.inserts += n
	return n, nil
}

func TestScheduleForRegistration_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	ev := testEvent(webinarDate)
	userID := uuid.New()
	now := webinarDate.Add(-72 * time.Hour)

	first, err := svc.ScheduleForRegistration(context.Background(), ev, userID, "x@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, 9, first)

	// Re-running with no time elapsed inserts nothing new.
	second, err := svc.ScheduleForRegistration(context.Background(), ev, userID, "x@example.com", now)
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, store.rows, 9)
}

func TestScheduleForRegistration_PastEntriesNeverPersisted(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	ev := testEvent(webinarDate)
	now := webinarDate.Add(-time.Hour) // reminder_24h and reminder_2h already past

	_, err := svc.ScheduleForRegistration(context.Background(), ev, uuid.New(), "y@example.com", now)
	require.NoError(t, err)

	for _, e := range store.rows {
		assert.NotEqual(t, models.EmailTypeReminder24h, e.EmailType)
		assert.NotEqual(t, models.EmailTypeReminder2h, e.EmailType)
	}
}

func TestScheduleForPurchase_AbortsWhenDuplicateCheckFails(t *testing.T) {
	store := newFakeStore()
	store.existsErr = errors.New("connection refused")
	svc := NewService(store, nil)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ent := &models.Entitlement{
		UserID:      uuid.New(),
		ProductType: models.ProductWorkbook,
		PurchasedAt: now,
		ExpiresAt:   now.Add(365 * 24 * time.Hour),
	}

	n, err := svc.ScheduleForPurchase(context.Background(), ent, "z@example.com", now)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.inserts, "nothing may be inserted when the existence check fails")
}

func TestScheduleForPurchase_SeparateScopesDoNotCollide(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()
	ent := &models.Entitlement{
		UserID:      userID,
		ProductType: models.ProductWorkbook,
		PurchasedAt: now,
		ExpiresAt:   now.Add(365 * 24 * time.Hour),
	}
	ev := testEvent(now.Add(30 * 24 * time.Hour))

	nPurchase, err := svc.ScheduleForPurchase(context.Background(), ent, "s@example.com", now)
	require.NoError(t, err)
	nReg, err := svc.ScheduleForRegistration(context.Background(), ev, userID, "s@example.com", now)
	require.NoError(t, err)

	assert.Equal(t, 3, nPurchase)
	assert.Equal(t, 9, nReg)
}
