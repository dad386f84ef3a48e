package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	// Stripe caps webhook payloads well below this.
	maxPayloadBytes = 512 << 10
)

type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (stripewebhook.Ack, error)
}

// StripeWebhook verifies and applies Stripe payment events. Every verified delivery is
// acknowledged with {"data":{"received":true}}.
func StripeWebhook(svc PaymentEventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing"))
			return
		}

		payload, err := readPayload(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ack, err := svc.HandlePaymentEvent(ctx, payload, signature)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}

// readPayload returns the raw body; signature verification needs it byte for byte.
func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload too large").
			WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	case len(payload) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	return payload, nil
}
