package payments

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalpayments "github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type intentRequest struct {
	OrderID      string  `json:"order_id" validate:"required,uuid"`
	Currency     string  `json:"currency,omitempty" validate:"currency"`
	ReceiptEmail *string `json:"receipt_email,omitempty" validate:"omitempty,email"`
}

type checkoutRequest struct {
	OrderID       string  `json:"order_id" validate:"required,uuid"`
	Currency      string  `json:"currency,omitempty" validate:"currency"`
	SuccessURL    string  `json:"success_url,omitempty" validate:"omitempty,url"`
	CancelURL     string  `json:"cancel_url,omitempty" validate:"omitempty,url"`
	CustomerEmail *string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// CreateIntent creates a card payment intent for one of the caller's unpaid orders.
func CreateIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req intentRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateIntent(r.Context(), internalpayments.CreatePaymentInput{
			OrderID:      uuid.MustParse(req.OrderID),
			Actor:        actor,
			Currency:     req.Currency,
			ReceiptEmail: req.ReceiptEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreateCheckoutSession creates a hosted checkout page for one of the caller's unpaid orders.
func CreateCheckoutSession(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), internalpayments.CreateCheckoutInput{
			OrderID:       uuid.MustParse(req.OrderID),
			Actor:         actor,
			Currency:      req.Currency,
			SuccessURL:    req.SuccessURL,
			CancelURL:     req.CancelURL,
			CustomerEmail: req.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func principal(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}
