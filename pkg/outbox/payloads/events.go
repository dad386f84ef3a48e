package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent announces a new pending order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      string              `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// OrderDecidedEvent is emitted once an admin accepts or rejects an order.
type OrderDecidedEvent struct {
	OrderID             uuid.UUID         `json:"order_id"`
	UserID              uuid.UUID         `json:"user_id"`
	Status              enums.OrderStatus `json:"status"`
	EstimatedDeliveryAt *time.Time        `json:"estimated_delivery_at,omitempty"`
	DecidedAt           time.Time         `json:"decided_at"`
}

// OrderPaidEvent is emitted the first time a payment succeeds for an order.
type OrderPaidEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	UserID         uuid.UUID `json:"user_id"`
	ProcessorRef   string    `json:"processor_ref"`
	ProcessorEvent string    `json:"processor_event_id"`
	PaidAt         time.Time `json:"paid_at"`
}

func (e OrderCreatedEvent) AggregateID() uuid.UUID { return e.OrderID }
func (e OrderDecidedEvent) AggregateID() uuid.UUID { return e.OrderID }
func (e OrderPaidEvent) AggregateID() uuid.UUID    { return e.OrderID }
