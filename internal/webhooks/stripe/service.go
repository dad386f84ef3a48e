package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type orderPayments interface {
	MarkPaid(ctx context.Context, input orders.MarkPaidInput) (bool, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

// Ack is the outcome reported back to Stripe.
type Ack struct {
	EventID   string `json:"-"`
	Duplicate bool   `json:"-"`
	Received  bool   `json:"received"`
}

type ServiceParams struct {
	SigningSecret string
	Orders        orderPayments
	Guard         eventGuard
	Metrics       *metrics.WebhookMetrics
	Logger        *logger.Logger
}

// Service verifies Stripe deliveries and settles the matching orders.
type Service struct {
	secret  string
	orders  orderPayments
	guard   eventGuard
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if strings.TrimSpace(params.SigningSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe signing secret required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		secret:  params.SigningSecret,
		orders:  params.Orders,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

// HandlePaymentEvent verifies the payload signature and applies payment confirmations.
// Only an invalid signature or an unavailable guard produce an error; processing
// failures are logged and acknowledged after releasing the event id.
func (s *Service) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (Ack, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.secret)
	if err != nil {
		s.metrics.Observe("unknown", metrics.WebhookRejected)
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid stripe signature")
	}

	eventType := string(event.Type)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": eventType,
	})
	ack := Ack{EventID: event.ID, Received: true}

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		s.metrics.Observe(eventType, metrics.WebhookFailed)
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if seen {
		ack.Duplicate = true
		s.metrics.Observe(eventType, metrics.WebhookDuplicate)
		s.logg.Debug(logCtx, "duplicate stripe event")
		return ack, nil
	}

	input, handled, err := paymentFromEvent(event)
	if err == nil && handled {
		_, err = s.orders.MarkPaid(ctx, input)
	}
	if err != nil {
		s.logg.Error(logCtx, "stripe event processing failed", err)
		if releaseErr := s.guard.Release(ctx, event.ID); releaseErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "release_error", releaseErr.Error()), "failed to release webhook idempotency key")
		}
		s.metrics.Observe(eventType, metrics.WebhookFailed)
		return ack, nil
	}
	if err := s.guard.Complete(ctx, event.ID); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "complete_error", err.Error()), "failed to complete webhook idempotency key")
	}
	if !handled {
		s.metrics.Observe(eventType, metrics.WebhookIgnored)
		return ack, nil
	}

	s.metrics.Observe(eventType, metrics.WebhookProcessed)
	s.logg.Info(s.logg.WithOrderID(logCtx, input.OrderID.String()), "stripe payment applied")
	return ack, nil
}

// paymentFromEvent maps a settled payment event to a MarkPaid request.
// The second result is false for event types that carry no payment.
func paymentFromEvent(event stripe.Event) (orders.MarkPaidInput, bool, error) {
	if event.Data == nil {
		return orders.MarkPaidInput{}, false, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	paidAt := time.Unix(event.Created, 0).UTC()
	if event.Created == 0 {
		paidAt = time.Time{}
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return orders.MarkPaidInput{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		orderID, err := orderIDFrom(intent.Metadata[payments.MetadataOrderID])
		if err != nil {
			return orders.MarkPaidInput{}, false, err
		}
		ref := orders.PaymentReference{}
		if intent.ID != "" {
			ref.PaymentIntentID = &intent.ID
		}
		return orders.MarkPaidInput{
			OrderID:          orderID,
			PaidAt:           paidAt,
			Reference:        ref,
			ProcessorEventID: event.ID,
		}, true, nil

	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return orders.MarkPaidInput{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return orders.MarkPaidInput{}, false, nil
		}
		raw := sess.Metadata[payments.MetadataOrderID]
		if strings.TrimSpace(raw) == "" {
			raw = sess.ClientReferenceID
		}
		orderID, err := orderIDFrom(raw)
		if err != nil {
			return orders.MarkPaidInput{}, false, err
		}
		ref := orders.PaymentReference{}
		if sess.ID != "" {
			ref.CheckoutSessionID = &sess.ID
		}
		if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
			ref.PaymentIntentID = &sess.PaymentIntent.ID
		}
		return orders.MarkPaidInput{
			OrderID:          orderID,
			PaidAt:           paidAt,
			Reference:        ref,
			ProcessorEventID: event.ID,
		}, true, nil

	default:
		return orders.MarkPaidInput{}, false, nil
	}
}

func orderIDFrom(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from stripe metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in stripe metadata")
	}
	return id, nil
}
