package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-funnel/backend/internal/models"
)

func testEvent(webinarDate time.Time) *models.WebinarEvent {
	return &models.WebinarEvent{
		ID:                              uuid.New(),
		Title:                           "Launch Workshop",
		WebinarDate:                     webinarDate,
		DiscountWindowHours:             72,
		PostWebinarTriggerOffsetMinutes: 30,
		IsActive:                        true,
	}
}

func typesOf(entries []models.EmailScheduleEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EmailType)
	}
	return out
}

func TestForRegistration_FullSequenceBeforeEvent(t *testing.T) {
	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	now := webinarDate.Add(-7 * 24 * time.Hour)
	ev := testEvent(webinarDate)
	userID := uuid.New()

	entries := ForRegistration(ev, userID, "ana@example.com", now)

	assert.Equal(t, []string{
		models.EmailTypeConfirmation,
		models.EmailTypeReminder24h,
		models.EmailTypeReminder2h,
		models.EmailTypeReminder15m,
		models.EmailTypeReplay,
		models.EmailTypeNudge12h,
		models.EmailTypeNudge36h,
		models.EmailTypeNudge60h,
		models.EmailTypeFinalHour,
	}, typesOf(entries))

	byType := map[string]models.EmailScheduleEntry{}
	for _, e := range entries {
		byType[e.EmailType] = e
		assert.Equal(t, userID, e.UserID)
		assert.Equal(t, "ana@example.com", e.Email)
		assert.Equal(t, models.ScheduleStatusPending, e.Status)
		require.NotNil(t, e.WebinarEventID)
		assert.Equal(t, ev.ID, *e.WebinarEventID)
	}

	assert.Equal(t, webinarDate.Add(-24*time.Hour), byType[models.EmailTypeReminder24h].ScheduledFor)
	assert.Equal(t, webinarDate.Add(-15*time.Minute), byType[models.EmailTypeReminder15m].ScheduledFor)

	postStart := webinarDate.Add(30 * time.Minute)
	assert.Equal(t, postStart, byType[models.EmailTypeReplay].ScheduledFor)
	assert.Equal(t, postStart.Add(71*time.Hour), byType[models.EmailTypeFinalHour].ScheduledFor)
}

func TestForRegistration_DropsPastKeepsImmediate(t *testing.T) {
	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	// Registering 2 hours before start: the 24h and 2h reminders are past.
	now := webinarDate.Add(-90 * time.Minute)
	ev := testEvent(webinarDate)

	entries := ForRegistration(ev, uuid.New(), "late@example.com", now)
	types := typesOf(entries)

	assert.Contains(t, types, models.EmailTypeConfirmation)
	assert.Contains(t, types, models.EmailTypeReminder15m)
	assert.NotContains(t, types, models.EmailTypeReminder24h)
	assert.NotContains(t, types, models.EmailTypeReminder2h)
}

func TestForRegistration_AfterWebinarOnlyImmediateAndFutureNudges(t *testing.T) {
	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	// 13 hours after post_webinar_start: replay and the 12h nudge are past.
	now := webinarDate.Add(30*time.Minute + 13*time.Hour)
	ev := testEvent(webinarDate)

	entries := ForRegistration(ev, uuid.New(), "replay@example.com", now)
	types := typesOf(entries)

	assert.Contains(t, types, models.EmailTypeConfirmation)
	assert.NotContains(t, types, models.EmailTypeReplay)
	assert.NotContains(t, types, models.EmailTypeNudge12h)
	assert.Contains(t, types, models.EmailTypeNudge36h)
	assert.Contains(t, types, models.EmailTypeFinalHour)

	// The immediate entry is pinned to "now", never in the past.
	for _, e := range entries {
		if e.EmailType == models.EmailTypeConfirmation {
			assert.False(t, e.ScheduledFor.Before(now))
		}
	}
}

func TestForRegistration_Rerunnable(t *testing.T) {
	webinarDate := time.Date(2025, 11, 18, 18, 0, 0, 0, time.UTC)
	now := webinarDate.Add(-48 * time.Hour)
	ev := testEvent(webinarDate)
	userID := uuid.New()

	first := ForRegistration(ev, userID, "a@example.com", now)
	second := ForRegistration(ev, userID, "a@example.com", now)
	assert.Equal(t, first, second)
}

func TestForPurchase_Sequence(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ent := &models.Entitlement{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ProductType: models.ProductWorkbook,
		PurchasedAt: now,
		ExpiresAt:   now.Add(365 * 24 * time.Hour),
	}

	entries := ForPurchase(ent, "buyer@example.com", now)

	assert.Equal(t, []string{
		models.EmailTypeWelcome,
		models.EmailTypeRenewal7d,
		models.EmailTypeRenewal24h,
	}, typesOf(entries))

	assert.Equal(t, now, entries[0].ScheduledFor)
	assert.Equal(t, ent.ExpiresAt.Add(-7*24*time.Hour), entries[1].ScheduledFor)
	assert.Equal(t, ent.ExpiresAt.Add(-24*time.Hour), entries[2].ScheduledFor)
	for _, e := range entries {
		assert.Nil(t, e.WebinarEventID)
	}
}

func TestForPurchase_NearExpiryDropsPastRenewals(t *testing.T) {
	expires := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	now := expires.Add(-12 * time.Hour)
	ent := &models.Entitlement{
		UserID:      uuid.New(),
		ProductType: models.ProductMasterclass,
		PurchasedAt: expires.Add(-180 * 24 * time.Hour),
		ExpiresAt:   expires,
	}

	entries := ForPurchase(ent, "old@example.com", now)
	types := typesOf(entries)

	assert.Contains(t, types, models.EmailTypeWelcome)
	assert.NotContains(t, types, models.EmailTypeRenewal7d)
	assert.NotContains(t, types, models.EmailTypeRenewal24h)
}
