package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/internal/schedule"
	"github.com/inkwell-funnel/backend/pkg/queue"
)

type fakeEntitlements struct {
	created []*models.Entitlement
	err     error
}

func (f *fakeEntitlements) Create(ctx context.Context, e *models.Entitlement) error {
	if f.err != nil {
		return f.err
	}
	e.ID = uuid.New()
	f.created = append(f.created, e)
	return nil
}

type fakeScheduleStore struct {
	inserted []models.EmailScheduleEntry
}

func (f *fakeScheduleStore) ExistingTypes(ctx context.Context, userID uuid.UUID, webinarEventID *uuid.UUID) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (f *fakeScheduleStore) InsertBatch(ctx context.Context, entries []models.EmailScheduleEntry) (int, error) {
	f.inserted = append(f.inserted, entries...)
	return len(entries), nil
}

type fakeDispatcher struct {
	kicks []queue.DispatchPayload
}

func (f *fakeDispatcher) EnqueueDispatch(ctx context.Context, payload queue.DispatchPayload) error {
	f.kicks = append(f.kicks, payload)
	return nil
}

func newTestWebhook(purchases *fakePurchases, ents *fakeEntitlements, dispatcher *fakeDispatcher) *WebhookHandler {
	granter := NewGranter(ents, schedule.NewService(&fakeScheduleStore{}, zap.NewNop()), dispatcher, zap.NewNop())
	h := NewWebhookHandler("whsec_test", purchases, granter, zap.NewNop())
	h.now = func() time.Time { return time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC) }
	return h
}

func deliver(t *testing.T, h *WebhookHandler, session stripe.CheckoutSession) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	h.constructEvent = func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
		return stripe.Event{
			ID:   "evt_" + session.ID,
			Type: "checkout.session.completed",
			Data: &stripe.EventData{Raw: raw},
		}, nil
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	h.Handle(c)
	return w
}

func TestWebhookGuestCompletionAwaitsClaim(t *testing.T) {
	purchases := newFakePurchases()
	purchases.bySession["cs_guest"] = &models.Purchase{
		ID:                uuid.New(),
		ProductType:       models.ProductWorkbook,
		ProviderSessionID: "cs_guest",
		Status:            models.PurchaseStatusPending,
	}
	ents := &fakeEntitlements{}
	h := newTestWebhook(purchases, ents, &fakeDispatcher{})

	w := deliver(t, h, stripe.CheckoutSession{
		ID:              "cs_guest",
		AmountTotal:     4900,
		Currency:        "usd",
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "guest@example.com"},
		Metadata:        map[string]string{"product_type": "workbook"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cs_guest"}, purchases.completed)
	assert.Empty(t, ents.created, "guest purchases grant at claim time, not webhook time")
}

func TestWebhookLoggedInCompletionGrantsAccess(t *testing.T) {
	userID := uuid.New()
	purchases := newFakePurchases()
	purchases.bySession["cs_member"] = &models.Purchase{
		ID:                uuid.New(),
		UserID:            &userID,
		ProductType:       models.ProductBundle,
		ProviderSessionID: "cs_member",
		Status:            models.PurchaseStatusPending,
	}
	ents := &fakeEntitlements{}
	dispatcher := &fakeDispatcher{}
	h := newTestWebhook(purchases, ents, dispatcher)

	w := deliver(t, h, stripe.CheckoutSession{
		ID:              "cs_member",
		AmountTotal:     9900,
		Currency:        "usd",
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "member@example.com"},
		Metadata: map[string]string{
			"product_type": "bundle",
			"user_id":      userID.String(),
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ents.created, 1)
	assert.Equal(t, userID, ents.created[0].UserID)
	assert.Equal(t, models.ProductBundle, ents.created[0].ProductType)
	require.Len(t, dispatcher.kicks, 1)
	assert.Equal(t, "purchase", dispatcher.kicks[0].Reason)
}

func TestWebhookRedeliveryDoesNotGrantTwice(t *testing.T) {
	userID := uuid.New()
	purchases := newFakePurchases()
	purchases.bySession["cs_dup"] = &models.Purchase{
		ID:                uuid.New(),
		UserID:            &userID,
		ProductType:       models.ProductWorkbook,
		ProviderSessionID: "cs_dup",
		Status:            models.PurchaseStatusCompleted,
	}
	ents := &fakeEntitlements{}
	h := newTestWebhook(purchases, ents, &fakeDispatcher{})

	w := deliver(t, h, stripe.CheckoutSession{
		ID:       "cs_dup",
		Metadata: map[string]string{"product_type": "workbook", "user_id": userID.String()},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, purchases.completed)
	assert.Empty(t, ents.created)
}

func TestWebhookRecreatesMissingPurchaseRow(t *testing.T) {
	purchases := newFakePurchases()
	h := newTestWebhook(purchases, &fakeEntitlements{}, &fakeDispatcher{})

	w := deliver(t, h, stripe.CheckoutSession{
		ID:              "cs_lost",
		AmountTotal:     4900,
		Currency:        "usd",
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "lost@example.com"},
		Metadata:        map[string]string{"product_type": "workbook", "discounted": "true"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, purchases.created, 1)
	assert.True(t, purchases.created[0].Discounted)
	assert.Equal(t, []string{"cs_lost"}, purchases.completed)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newTestWebhook(newFakePurchases(), &fakeEntitlements{}, &fakeDispatcher{})
	h.constructEvent = func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
		return stripe.Event{}, errors.New("signature mismatch")
	}

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	h.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
