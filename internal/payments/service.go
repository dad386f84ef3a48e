package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type orderService interface {
	GetOrder(ctx context.Context, orderID uuid.UUID, actor auth.Principal) (*orders.OrderDTO, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, ref orders.PaymentReference) error
}

// Service creates processor payment objects for unpaid orders.
type Service interface {
	CreateIntent(ctx context.Context, input CreatePaymentInput) (*IntentResult, error)
	CreateCheckoutSession(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error)
}

// ServiceParams groups the collaborators and defaults of the payment service.
type ServiceParams struct {
	Orders     orderService
	Processor  Processor
	Logger     *logger.Logger
	Currency   string
	SuccessURL string
	CancelURL  string
}

type service struct {
	orders     orderService
	processor  Processor
	logg       *logger.Logger
	currency   string
	successURL string
	cancelURL  string
}

// CreatePaymentInput requests a payment intent for an order.
type CreatePaymentInput struct {
	OrderID      uuid.UUID
	Actor        auth.Principal
	Currency     string
	ReceiptEmail *string
}

// IntentResult is returned to the client to confirm the payment.
type IntentResult struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// CreateCheckoutInput requests a hosted checkout session for an order.
type CreateCheckoutInput struct {
	OrderID       uuid.UUID
	Actor         auth.Principal
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail *string
}

// CheckoutResult carries the redirect URL of the hosted checkout page.
type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// NewService builds a payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		orders:     params.Orders,
		processor:  params.Processor,
		logg:       logg,
		currency:   params.Currency,
		successURL: strings.TrimSpace(params.SuccessURL),
		cancelURL:  strings.TrimSpace(params.CancelURL),
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreatePaymentInput) (*IntentResult, error) {
	order, currency, err := s.payableOrder(ctx, input.OrderID, input.Actor, input.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := ToMinorUnits(order.TotalAmount, currency)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, IntentRequest{
		OrderID:      order.ID,
		Amount:       amount,
		Currency:     currency,
		ReceiptEmail: trimmedOrNil(input.ReceiptEmail),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if err := s.orders.AttachPaymentReference(ctx, order.ID, orders.PaymentReference{PaymentIntentID: &intent.ID}); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_intent_id": intent.ID,
		"amount":            amount,
		"currency":          currency,
	})
	s.logg.Info(logCtx, "payment intent created")

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        currency,
	}, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error) {
	successURL := firstNonBlank(input.SuccessURL, s.successURL)
	cancelURL := firstNonBlank(input.CancelURL, s.cancelURL)
	if successURL == "" || cancelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}

	order, currency, err := s.payableOrder(ctx, input.OrderID, input.Actor, input.Currency)
	if err != nil {
		return nil, err
	}

	lines := make([]CheckoutLine, 0, len(order.Items))
	for _, item := range order.Items {
		unit, err := ToMinorUnits(item.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, CheckoutLine{
			Name:       lineName(item),
			UnitAmount: unit,
			Quantity:   int64(item.Quantity),
		})
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	created, err := s.processor.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID:       order.ID,
		Currency:      currency,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		CustomerEmail: trimmedOrNil(input.CustomerEmail),
		Lines:         lines,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if err := s.orders.AttachPaymentReference(ctx, order.ID, orders.PaymentReference{CheckoutSessionID: &created.ID}); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithField(s.logg.WithOrderID(ctx, order.ID.String()), "checkout_session_id", created.ID)
	s.logg.Info(logCtx, "checkout session created")

	return &CheckoutResult{URL: created.URL, SessionID: created.ID}, nil
}

// payableOrder loads the order as the actor and resolves the charge currency.
func (s *service) payableOrder(ctx context.Context, orderID uuid.UUID, actor auth.Principal, requested string) (*orders.OrderDTO, string, error) {
	if orderID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, "", err
	}
	if order.Payment.Status != enums.PaymentStatusUnpaid {
		return nil, "", pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid")
	}
	currency, err := ResolveCurrency(requested, order.Currency, s.currency)
	if err != nil {
		return nil, "", err
	}
	return order, currency, nil
}

func lineName(item orders.LineItemDTO) string {
	var parts []string
	if item.Size != nil {
		parts = append(parts, *item.Size)
	}
	if item.Color != nil {
		parts = append(parts, *item.Color)
	}
	if len(parts) == 0 {
		return item.Title
	}
	return fmt.Sprintf("%s (%s)", item.Title, strings.Join(parts, " / "))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
