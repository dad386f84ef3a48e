package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// AcceptInput commits inventory for a pending order.
type AcceptInput struct {
	OrderID               uuid.UUID
	EstimatedDeliveryDays *int
	Notes                 *string
	Actor                 auth.Principal
}

// RejectInput declines a pending order without touching inventory.
type RejectInput struct {
	OrderID uuid.UUID
	Notes   *string
	Actor   auth.Principal
}

type decision struct {
	orderID      uuid.UUID
	target       enums.OrderStatus
	deliveryDays int
	notes        *string
	actor        auth.Principal
}

func (s *service) Accept(ctx context.Context, input AcceptInput) (*OrderDTO, error) {
	days := s.deliveryDays
	if input.EstimatedDeliveryDays != nil {
		days = *input.EstimatedDeliveryDays
	}
	if days < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery days must not be negative").
			WithDetails(map[string]any{"estimated_delivery_days": days})
	}
	return s.decide(ctx, decision{
		orderID:      input.OrderID,
		target:       enums.OrderStatusAccepted,
		deliveryDays: days,
		notes:        input.Notes,
		actor:        input.Actor,
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*OrderDTO, error) {
	return s.decide(ctx, decision{
		orderID: input.OrderID,
		target:  enums.OrderStatusRejected,
		notes:   input.Notes,
		actor:   input.Actor,
	})
}

// decide runs the status compare-and-set, the stock decrements, and the history append
// in a single transaction. Losing the compare-and-set means another decision already landed.
func (s *service) decide(ctx context.Context, d decision) (*OrderDTO, error) {
	if d.orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if d.actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !d.actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !d.target.IsDecision() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported decision")
	}

	logCtx := s.orderLogContext(ctx, d.orderID, d.actor)
	now := s.now()

	var decided *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		won, err := repo.TransitionFromPending(ctx, d.orderID, d.target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !won {
			exists, err := repo.Exists(ctx, d.orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending").
				WithDetails(map[string]any{"order_id": d.orderID.String(), "requested": string(d.target)})
		}

		order, err := repo.FindByID(ctx, d.orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		timeline, err := TimelineFromHistory(order.History)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order history is inconsistent")
		}
		at := now
		if last, ok := timeline.Last(); ok && last.At.After(at) {
			at = last.At
		}
		timeline, err = timeline.Append(d.target, at)
		if err != nil {
			return err
		}

		if d.target == enums.OrderStatusAccepted {
			if err := s.commitStock(ctx, tx, order.Items); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
					s.metrics.StockConflict("accept")
				}
				return err
			}
		}

		if err := repo.AppendStatus(ctx, &models.OrderStatusEntry{
			OrderID: order.ID,
			Seq:     timeline.Len(),
			Status:  d.target,
			At:      at,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		updates := map[string]any{}
		var eta *time.Time
		if d.target == enums.OrderStatusAccepted {
			value := at.AddDate(0, 0, d.deliveryDays)
			eta = &value
			updates["estimated_delivery_at"] = value
		}
		if notes := trimmedOrNil(d.notes); notes != nil {
			updates["notes"] = *notes
		}
		if err := repo.UpdateDecisionFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDecided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(d.actor),
			OccurredAt:    at,
			Data: payloads.OrderDecidedEvent{
				OrderID:             order.ID,
				UserID:              order.UserID,
				Status:              d.target,
				EstimatedDeliveryAt: eta,
				DecidedAt:           at,
			},
		}); err != nil {
			return err
		}

		decided, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "order decision rejected")
		return nil, err
	}

	s.metrics.OrderDecided(d.target)
	s.logg.Info(s.logg.WithField(logCtx, "status", string(d.target)), "order decided")

	dto := toOrderDTO(*decided)
	return &dto, nil
}

// commitStock re-resolves every line against the catalog as it is now and decrements
// the counter that can serve it. A line whose variant changed is updated to match.
func (s *service) commitStock(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	stock := s.inventory.WithTx(tx)
	repo := s.repo.WithTx(tx)

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := stock.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return inventory.Unavailable(item.ProductID, item.Quantity)
		}
		key, err := stock.Commit(ctx, product, inventory.NewSelector(item.Size, item.Color), item.Quantity)
		if err != nil {
			return err
		}
		if !sameVariant(key.VariantID, item.VariantID) {
			if err := repo.SetLineVariant(ctx, item.ID, key.VariantID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item")
			}
		}
	}
	return nil
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
