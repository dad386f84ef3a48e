package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CreateOrderInput is the request to place an order.
type CreateOrderInput struct {
	UserID          uuid.UUID
	Items           []OrderItemInput
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.ShippingAddress
	Notes           *string
}

// OrderItemInput names a product, an optional size/color, and a quantity.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
	Color     *string
}

// CreateOrder validates every item against current stock and persists a pending order.
// No stock is held; the decrement happens when an admin accepts the order.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCOD
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": string(method)})
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required").
				WithDetails(map[string]any{"item": i})
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"item": i, "quantity": item.Quantity})
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.inventory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	now := s.now()
	orderID := uuid.New()
	total := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(input.Items))
	for i, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok || product.Status != enums.ProductStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidProduct, "product unavailable").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID.String()})
		}

		sel := inventory.NewSelector(item.Size, item.Color)
		key, err := inventory.Reserve(product, sel, item.Quantity)
		if err != nil {
			s.metrics.StockConflict("create")
			return nil, err
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		total = total.Add(product.Price.Mul(qty))
		items = append(items, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			Position:  i,
			ProductID: product.ID,
			VariantID: key.VariantID,
			Title:     product.Title,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Size:      sel.Size,
			Color:     sel.Color,
		})
	}

	timeline, err := Timeline{}.Append(enums.OrderStatusPending, now)
	if err != nil {
		return nil, err
	}
	first, _ := timeline.Last()

	order := models.Order{
		ID:              orderID,
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		TotalAmount:     total,
		Currency:        s.currency,
		ShippingAddress: input.ShippingAddress.Normalize(),
		Notes:           trimmedOrNil(input.Notes),
		Items:           items,
		History: []models.OrderStatusEntry{{
			ID:      uuid.New(),
			OrderID: orderID,
			Seq:     timeline.Len(),
			Status:  first.Status,
			At:      first.At,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	actor := auth.Principal{UserID: input.UserID, Role: enums.MemberRoleUser}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				TotalAmount:   order.TotalAmount,
				Currency:      order.Currency,
				PaymentMethod: order.PaymentMethod,
				ItemCount:     len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(order.PaymentMethod)
	logCtx := s.orderLogContext(ctx, order.ID, actor)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"total_amount": order.TotalAmount.StringFixed(2),
		"items":        len(order.Items),
	})
	s.logg.Info(logCtx, "order created")

	dto := toOrderDTO(order)
	return &dto, nil
}
