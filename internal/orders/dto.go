package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the normalized read model returned to API callers.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Currency    string            `json:"currency"`
	Payment     PaymentDTO        `json:"payment"`
	Shipping    ShippingDTO       `json:"shipping"`
	Items       []LineItemDTO     `json:"items"`
	Timeline    []TimelineEntry   `json:"timeline"`
	Notes       *string           `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PaymentDTO groups the payment fields of an order.
type PaymentDTO struct {
	Method    enums.PaymentMethod `json:"method"`
	Status    enums.PaymentStatus `json:"status"`
	IntentID  *string             `json:"intent_id,omitempty"`
	SessionID *string             `json:"session_id,omitempty"`
	PaidAt    *time.Time          `json:"paid_at,omitempty"`
}

// ShippingDTO groups the delivery fields of an order.
type ShippingDTO struct {
	Address             types.ShippingAddress `json:"address"`
	EstimatedDeliveryAt *time.Time            `json:"estimated_delivery_at,omitempty"`
	Tracking            *types.Tracking       `json:"tracking,omitempty"`
}

// LineItemDTO is one snapshotted line of an order.
type LineItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toOrderDTO(order models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	timeline := make([]TimelineEntry, 0, len(order.History))
	for _, entry := range order.History {
		timeline = append(timeline, TimelineEntry{Status: entry.Status, At: entry.At})
	}

	return OrderDTO{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Payment: PaymentDTO{
			Method:    order.PaymentMethod,
			Status:    order.PaymentStatus,
			IntentID:  order.StripePaymentIntentID,
			SessionID: order.StripeCheckoutSessionID,
			PaidAt:    order.PaidAt,
		},
		Shipping: ShippingDTO{
			Address:             order.ShippingAddress,
			EstimatedDeliveryAt: order.EstimatedDeliveryAt,
			Tracking:            order.Tracking,
		},
		Items:     items,
		Timeline:  timeline,
		Notes:     order.Notes,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func toOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrderDTO(row))
	}
	return out
}
