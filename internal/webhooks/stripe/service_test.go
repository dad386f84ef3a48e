package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const testSecret = "whsec_test_secret"

type stubOrders struct {
	mu     sync.Mutex
	calls  []orders.MarkPaidInput
	paid   map[uuid.UUID]bool
	failOn uuid.UUID
}

func (s *stubOrders) MarkPaid(_ context.Context, input orders.MarkPaidInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, input)
	if input.OrderID == s.failOn {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if s.paid == nil {
		s.paid = map[uuid.UUID]bool{}
	}
	if s.paid[input.OrderID] {
		return false, nil
	}
	s.paid[input.OrderID] = true
	return true, nil
}

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
		delete(m.ttls, key)
	}
	return nil
}

type failingGuard struct{}

func (failingGuard) CheckAndMark(context.Context, string) (bool, error) {
	return false, errors.New("redis unavailable")
}

func (failingGuard) Complete(context.Context, string) error { return nil }

func (failingGuard) Release(context.Context, string) error { return nil }

type fixture struct {
	svc    *Service
	orders *stubOrders
	store  *memoryStore
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, GuardScope)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	ord := &stubOrders{}
	svc, err := NewService(ServiceParams{
		SigningSecret: testSecret,
		Orders:        ord,
		Guard:         guard,
		Metrics:       metrics.NewWebhookMetrics(reg),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, orders: ord, store: store, reg: reg}
}

func eventPayload(t *testing.T, id string, eventType stripe.EventType, object map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC).Unix(),
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func sign(payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func intentSucceeded(t *testing.T, eventID string, orderID string) []byte {
	return eventPayload(t, eventID, stripe.EventTypePaymentIntentSucceeded, map[string]any{
		"id":       "pi_123",
		"object":   "payment_intent",
		"status":   "succeeded",
		"metadata": map[string]string{"orderId": orderID},
	})
}

func outcomeCount(f *fixture, eventType, outcome string) float64 {
	families, _ := f.reg.Gather()
	for _, family := range families {
		if family.GetName() != "stripe_webhook_events_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["event_type"] == eventType && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestHandlePaymentEventMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	payload := intentSucceeded(t, "evt_1", orderID.String())

	ack, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.True(t, ack.Received)
	require.False(t, ack.Duplicate)

	require.Len(t, f.orders.calls, 1)
	call := f.orders.calls[0]
	require.Equal(t, orderID, call.OrderID)
	require.Equal(t, "evt_1", call.ProcessorEventID)
	require.NotNil(t, call.Reference.PaymentIntentID)
	require.Equal(t, "pi_123", *call.Reference.PaymentIntentID)
	require.Equal(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), call.PaidAt)
	require.Equal(t, float64(1), outcomeCount(f, "payment_intent.succeeded", metrics.WebhookProcessed))

	key := f.store.IdempotencyKey(GuardScope, "evt_1")
	require.Equal(t, claimDone, f.store.keys[key])
	require.Equal(t, time.Hour, f.store.ttls[key])
}

func TestIdempotencyGuardClaimIsShortLived(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, 720*time.Hour, "")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(context.Background(), "evt_claim")
	require.NoError(t, err)
	require.False(t, seen)
	key := store.IdempotencyKey(GuardScope, "evt_claim")
	require.Equal(t, claimInFlight, store.keys[key])
	require.Equal(t, defaultClaimTTL, store.ttls[key])

	seen, err = guard.CheckAndMark(context.Background(), "evt_claim")
	require.NoError(t, err)
	require.True(t, seen)

	_, err = guard.CheckAndMark(context.Background(), "")
	require.Error(t, err)

	short, err := NewIdempotencyGuard(store, time.Minute, GuardScope)
	require.NoError(t, err)
	require.Equal(t, time.Minute, short.claimTTL)
	_, err = NewIdempotencyGuard(store, 0, GuardScope)
	require.Error(t, err)
}

func TestHandlePaymentEventRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	payload := intentSucceeded(t, "evt_bad", uuid.NewString())

	_, err := f.svc.HandlePaymentEvent(context.Background(), payload, "t=1,v1=deadbeef")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))

	tampered := append([]byte{}, payload...)
	header := sign(payload)
	tampered[len(tampered)-2] = ' '
	_, err = f.svc.HandlePaymentEvent(context.Background(), tampered, header)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))
	require.Empty(t, f.orders.calls)
}

func TestHandlePaymentEventDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	payload := intentSucceeded(t, "evt_dup", uuid.NewString())

	_, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	ack, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.True(t, ack.Duplicate)
	require.Len(t, f.orders.calls, 1)
	require.Equal(t, float64(1), outcomeCount(f, "payment_intent.succeeded", metrics.WebhookDuplicate))
}

func TestHandlePaymentEventDistinctEventsSameOrderSettleOnce(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.NewString()
	first := intentSucceeded(t, "evt_a", orderID)
	second := intentSucceeded(t, "evt_b", orderID)

	_, err := f.svc.HandlePaymentEvent(context.Background(), first, sign(first))
	require.NoError(t, err)
	_, err = f.svc.HandlePaymentEvent(context.Background(), second, sign(second))
	require.NoError(t, err)

	require.Len(t, f.orders.calls, 2)
	require.Len(t, f.orders.paid, 1)
}

func TestHandlePaymentEventCheckoutSession(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	payload := eventPayload(t, "evt_cs", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":                  "cs_123",
		"object":              "checkout.session",
		"payment_status":      "paid",
		"client_reference_id": orderID.String(),
		"payment_intent":      "pi_789",
	})

	_, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.Len(t, f.orders.calls, 1)
	call := f.orders.calls[0]
	require.Equal(t, orderID, call.OrderID)
	require.Equal(t, "cs_123", *call.Reference.CheckoutSessionID)
	require.Equal(t, "pi_789", *call.Reference.PaymentIntentID)
}

func TestHandlePaymentEventIgnoresUnpaidSessionAndUnknownTypes(t *testing.T) {
	f := newFixture(t)
	unpaid := eventPayload(t, "evt_unpaid", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_456",
		"object":         "checkout.session",
		"payment_status": "unpaid",
		"metadata":       map[string]string{"orderId": uuid.NewString()},
	})
	ack, err := f.svc.HandlePaymentEvent(context.Background(), unpaid, sign(unpaid))
	require.NoError(t, err)
	require.True(t, ack.Received)

	other := eventPayload(t, "evt_other", stripe.EventType("customer.created"), map[string]any{
		"id":     "cus_1",
		"object": "customer",
	})
	ack, err = f.svc.HandlePaymentEvent(context.Background(), other, sign(other))
	require.NoError(t, err)
	require.True(t, ack.Received)

	require.Empty(t, f.orders.calls)
	require.Equal(t, float64(1), outcomeCount(f, "customer.created", metrics.WebhookIgnored))
}

func TestHandlePaymentEventFailureReleasesGuard(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	f.orders.failOn = orderID
	payload := intentSucceeded(t, "evt_fail", orderID.String())

	ack, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.True(t, ack.Received)
	require.Empty(t, f.store.keys)

	ack, err = f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.False(t, ack.Duplicate)
	require.Len(t, f.orders.calls, 2)
	require.Equal(t, float64(2), outcomeCount(f, "payment_intent.succeeded", metrics.WebhookFailed))
}

func TestHandlePaymentEventMissingMetadataIsAcked(t *testing.T) {
	f := newFixture(t)
	payload := intentSucceeded(t, "evt_nometa", "")

	ack, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	require.True(t, ack.Received)
	require.Empty(t, f.orders.calls)
	require.Empty(t, f.store.keys)
}

func TestHandlePaymentEventGuardUnavailable(t *testing.T) {
	svc, err := NewService(ServiceParams{
		SigningSecret: testSecret,
		Orders:        &stubOrders{},
		Guard:         failingGuard{},
	})
	require.NoError(t, err)
	payload := intentSucceeded(t, "evt_guard", uuid.NewString())

	_, err = svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Orders: &stubOrders{}, Guard: failingGuard{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{SigningSecret: testSecret, Guard: failingGuard{}})
	require.Error(t, err)
	_, err = NewIdempotencyGuard(nil, time.Hour, GuardScope)
	require.Error(t, err)
}
