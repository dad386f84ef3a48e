package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a customer purchase. TotalAmount is written once at creation.
type Order struct {
	ID                      uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID                  uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status                  enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod           enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	PaymentStatus           enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	TotalAmount             decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null;<-:create"`
	Currency                string                `gorm:"column:currency;type:text;not null"`
	ShippingAddress         types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	EstimatedDeliveryAt     *time.Time            `gorm:"column:estimated_delivery_at"`
	Tracking                *types.Tracking       `gorm:"column:tracking;type:jsonb"`
	Notes                   *string               `gorm:"column:notes"`
	StripePaymentIntentID   *string               `gorm:"column:stripe_payment_intent_id"`
	StripeCheckoutSessionID *string               `gorm:"column:stripe_checkout_session_id"`
	PaidAt                  *time.Time            `gorm:"column:paid_at"`
	Items                   []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History                 []OrderStatusEntry    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderLineItem snapshots the product title and price at order time.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Title     string          `gorm:"column:title;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Size      *string         `gorm:"column:size"`
	Color     *string         `gorm:"column:color"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderStatusEntry is one row of the append-only status history.
type OrderStatusEntry struct {
	ID      uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_status_history_seq,priority:1"`
	Seq     int               `gorm:"column:seq;not null;uniqueIndex:ux_order_status_history_seq,priority:2"`
	Status  enums.OrderStatus `gorm:"column:status;type:text;not null"`
	At      time.Time         `gorm:"column:at;not null"`
}

func (OrderStatusEntry) TableName() string {
	return "order_status_history"
}

func (e *OrderStatusEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
