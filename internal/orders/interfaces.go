package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders, line items, and status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	TransitionFromPending(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error)
	AppendStatus(ctx context.Context, entry *models.OrderStatusEntry) error
	UpdateDecisionFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetLineVariant(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) error
	SetPaymentReference(ctx context.Context, id uuid.UUID, ref PaymentReference) error
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, ref PaymentReference) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params listParams) ([]models.Order, *pagination.Cursor, error)
	List(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error)
	PurgeAll(ctx context.Context) (int64, error)
}

// PaymentReference carries processor correlation ids. Nil fields are left untouched.
type PaymentReference struct {
	PaymentIntentID   *string
	CheckoutSessionID *string
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}

// Metrics records order lifecycle counters. Implementations must be safe for concurrent use.
type Metrics interface {
	OrderCreated(method enums.PaymentMethod)
	OrderDecided(status enums.OrderStatus)
	StockConflict(stage string)
}

type noopMetrics struct{}

func (noopMetrics) OrderCreated(enums.PaymentMethod) {}
func (noopMetrics) OrderDecided(enums.OrderStatus)   {}
func (noopMetrics) StockConflict(string)             {}
