package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

type stripeProcessor struct {
	api *stripe.Client
}

// NewStripeProcessor wraps the configured Stripe client so the service can be tested.
func NewStripeProcessor(client *pkgstripe.Client) (Processor, error) {
	api := client.API()
	if api == nil {
		return nil, errors.New("stripe client required")
	}
	return &stripeProcessor{api: api}, nil
}

func (p *stripeProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*ProcessorIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.ReceiptEmail != nil {
		params.ReceiptEmail = stripe.String(*req.ReceiptEmail)
	}
	params.AddMetadata(MetadataOrderID, req.OrderID.String())

	intent, err := p.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &ProcessorIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (p *stripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*ProcessorSession, error) {
	orderID := req.OrderID.String()
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(orderID),
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: map[string]string{MetadataOrderID: orderID},
		},
	}
	if req.CustomerEmail != nil {
		params.CustomerEmail = stripe.String(*req.CustomerEmail)
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	params.AddMetadata(MetadataOrderID, orderID)

	created, err := p.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &ProcessorSession{ID: created.ID, URL: created.URL}, nil
}
