package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// MarkPaidInput records a processor-confirmed payment.
type MarkPaidInput struct {
	OrderID          uuid.UUID
	PaidAt           time.Time
	Reference        PaymentReference
	ProcessorEventID string
}

// AttachPaymentReference stores the processor correlation id created for an order.
func (s *service) AttachPaymentReference(ctx context.Context, orderID uuid.UUID, ref PaymentReference) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if ref.PaymentIntentID == nil && ref.CheckoutSessionID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if err := s.repo.SetPaymentReference(ctx, orderID, ref); err != nil {
		if pkgdb.IsUniqueViolation(err, "ux_orders_payment_intent") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment intent already attached to another order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment reference")
	}
	return nil
}

// MarkPaid flips the order to paid at most once and reports whether this call changed it.
// The order_paid event is emitted only by the call that changed the row.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error) {
	if input.OrderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkPaid(ctx, input.OrderID, paidAt, input.Reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !ok {
			return nil
		}
		changed = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				OrderID:        order.ID,
				UserID:         order.UserID,
				ProcessorRef:   processorRef(order),
				ProcessorEvent: input.ProcessorEventID,
				PaidAt:         paidAt,
			},
		})
	})
	if err != nil {
		return false, err
	}

	logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
	if changed {
		s.logg.Info(logCtx, "order marked paid")
	} else {
		s.logg.Debug(logCtx, "order already settled")
	}
	return changed, nil
}

func processorRef(order *models.Order) string {
	if order.StripePaymentIntentID != nil {
		return *order.StripePaymentIntentID
	}
	if order.StripeCheckoutSessionID != nil {
		return *order.StripeCheckoutSessionID
	}
	return ""
}
