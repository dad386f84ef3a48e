package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Accept(ctx context.Context, input AcceptInput) (*OrderDTO, error)
	Reject(ctx context.Context, input RejectInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor auth.Principal) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	PurgeOrders(ctx context.Context, actor auth.Principal) (int64, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, ref PaymentReference) error
	MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error)
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo                Repository
	Inventory           *inventory.Repository
	Tx                  txRunner
	Outbox              outboxPublisher
	Logger              *logger.Logger
	Metrics             Metrics
	DefaultDeliveryDays int
	Currency            string
	Now                 func() time.Time
}

type service struct {
	repo         Repository
	inventory    *inventory.Repository
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	metrics      Metrics
	deliveryDays int
	currency     string
	now          func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.DefaultDeliveryDays < 0 {
		return nil, fmt.Errorf("default delivery days must not be negative")
	}

	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		repo:         params.Repo,
		inventory:    params.Inventory,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         logg,
		metrics:      metrics,
		deliveryDays: params.DefaultDeliveryDays,
		currency:     currency,
		now:          now,
	}, nil
}

const defaultCurrency = "usd"

func actorRef(actor auth.Principal) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
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

// orderLogContext attaches order and actor fields used by every lifecycle log line.
func (s *service) orderLogContext(ctx context.Context, orderID uuid.UUID, actor auth.Principal) context.Context {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	if actor.UserID != uuid.Nil {
		ctx = s.logg.WithUserID(ctx, actor.UserID.String())
		ctx = s.logg.WithActorRole(ctx, string(actor.Role))
	}
	return ctx
}
