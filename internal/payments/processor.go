package payments

import (
	"context"

	"github.com/google/uuid"
)

// MetadataOrderID is the metadata key that links processor objects back to an order.
const MetadataOrderID = "orderId"

// Processor creates payment objects with an external payment provider.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*ProcessorIntent, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*ProcessorSession, error)
}

// IntentRequest asks the processor for a payment intent. Amount is in minor units.
type IntentRequest struct {
	OrderID      uuid.UUID
	Amount       int64
	Currency     string
	ReceiptEmail *string
}

// ProcessorIntent is the subset of a created payment intent the service needs.
type ProcessorIntent struct {
	ID           string
	ClientSecret string
}

// CheckoutRequest asks the processor for a hosted checkout session.
type CheckoutRequest struct {
	OrderID       uuid.UUID
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail *string
	Lines         []CheckoutLine
}

// CheckoutLine is one priced line of a checkout session. UnitAmount is in minor units.
type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// ProcessorSession is the subset of a created checkout session the service needs.
type ProcessorSession struct {
	ID  string
	URL string
}
