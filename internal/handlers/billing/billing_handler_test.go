package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fluencr-service/internal/domain/audit"
	"fluencr-service/internal/domain/entitlement"
	wstypes "fluencr-service/internal/domain/websocket"
	"fluencr-service/internal/repository/memory"
	auditsvc "fluencr-service/internal/service/audit"
	service "fluencr-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stripe/stripe-go/v75"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	secret  = "whsec_test"
	account = "1f2e3d4c-5b6a-4978-8695-a4b3c2d1e0f9"
)

type fixture struct {
	router *gin.Engine
	svc    *service.EntitlementService
	events *auditsvc.MemoryStore
	clock  clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := clockwork.NewFakeClockAt(time.Now().UTC())
	logger := zap.NewNop()
	events := auditsvc.NewMemoryStore(10)
	svc := service.NewEntitlementService(
		memory.NewStore(), clock,
		auditsvc.NewAuditService(events, clock, logger),
		wstypes.NopNotifier{},
		service.Options{MaxWriteRetries: 3},
		logger,
	)

	r := gin.New()
	r.POST("/billing/webhook", NewBillingHandler(svc, secret, logger).StripeWebhook)
	return &fixture{router: r, svc: svc, events: events, clock: clock}
}

func sign(payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventType string, sub map[string]interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":          "evt_123",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]interface{}{"object": sub},
	})
	require.NoError(t, err)
	return raw
}

func subscription(status string, periodEnd time.Time, meta map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":                 "sub_123",
		"object":             "subscription",
		"status":             status,
		"current_period_end": periodEnd.Unix(),
		"metadata":           meta,
		"items": map[string]interface{}{
			"object": "list",
			"data": []interface{}{map[string]interface{}{
				"id":     "si_1",
				"object": "subscription_item",
				"price": map[string]interface{}{
					"id":          "price_pro",
					"object":      "price",
					"unit_amount": 8000,
					"currency":    "eur",
					"nickname":    "Fluencr Pro",
					"recurring":   map[string]interface{}{"interval": "month"},
				},
			}},
		},
	}
}

func (f *fixture) post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWebhookActivatesSubscription(t *testing.T) {
	f := newFixture(t)
	periodEnd := f.clock.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	payload := eventPayload(t, "customer.subscription.updated",
		subscription("active", periodEnd, map[string]string{"account_id": account}))

	w := f.post(payload, sign(payload, time.Now().Unix()))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view, err := f.svc.Current(context.Background(), account)
	require.NoError(t, err)
	require.NotNil(t, view.Subscription)
	assert.Equal(t, "sub_123", view.Subscription.ID)
	assert.Equal(t, entitlement.StatusActive, view.Subscription.Status)
	assert.Equal(t, "price_pro", view.Subscription.Plan.ID)
	assert.Equal(t, int64(8000), view.Subscription.Plan.Price)
	assert.True(t, view.Entitlement.IsSubscriptionActive)

	events, err := f.events.List(context.Background(), audit.ListFilters{Action: string(audit.ActionSubscriptionUpdated)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, actorBilling, events[0].Actor)
}

func TestWebhookDeletedCancels(t *testing.T) {
	f := newFixture(t)
	periodEnd := f.clock.Now().Add(10 * 24 * time.Hour)
	payload := eventPayload(t, "customer.subscription.deleted",
		subscription("active", periodEnd, map[string]string{"account_id": account}))

	w := f.post(payload, sign(payload, time.Now().Unix()))

	require.Equal(t, http.StatusOK, w.Code)
	view, err := f.svc.Current(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, entitlement.StatusCanceled, view.Subscription.Status)
	assert.False(t, view.Entitlement.IsSubscriptionActive)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	payload := eventPayload(t, "customer.subscription.updated",
		subscription("active", f.clock.Now().Add(time.Hour), map[string]string{"account_id": account}))

	w := f.post(payload, "t=1,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	events, _ := f.events.List(context.Background(), audit.ListFilters{})
	assert.Empty(t, events)
}

func TestWebhookIgnoresUnusableEvents(t *testing.T) {
	f := newFixture(t)
	end := f.clock.Now().Add(time.Hour)

	for name, payload := range map[string][]byte{
		"other event":    eventPayload(t, "invoice.paid", map[string]interface{}{"id": "in_1", "object": "invoice"}),
		"no account id":  eventPayload(t, "customer.subscription.updated", subscription("active", end, nil)),
		"bad account id": eventPayload(t, "customer.subscription.updated", subscription("active", end, map[string]string{"account_id": "42"})),
	} {
		t.Run(name, func(t *testing.T) {
			w := f.post(payload, sign(payload, time.Now().Unix()))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "ignored")
		})
	}
}

func TestMapStatus(t *testing.T) {
	tests := map[string]entitlement.Status{
		"active":             entitlement.StatusActive,
		"trialing":           entitlement.StatusTrialing,
		"past_due":           entitlement.StatusPastDue,
		"unpaid":             entitlement.StatusUnpaid,
		"incomplete":         entitlement.StatusUnpaid,
		"incomplete_expired": entitlement.StatusCanceled,
		"canceled":           entitlement.StatusCanceled,
		"paused":             entitlement.StatusCanceled,
	}
	for in, want := range tests {
		assert.Equal(t, want, mapStatus(stripeStatus(in)), in)
	}
}

func stripeStatus(s string) stripe.SubscriptionStatus { return stripe.SubscriptionStatus(s) }
