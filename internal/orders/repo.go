package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order with its line items and status history rows.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order required")
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// TransitionFromPending moves a pending order to status and reports whether this call won.
func (r *repository) TransitionFromPending(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AppendStatus inserts the next history row. History rows are never updated or deleted individually.
func (r *repository) AppendStatus(ctx context.Context, entry *models.OrderStatusEntry) error {
	if entry == nil {
		return errors.New("status entry required")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateDecisionFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetLineVariant records which variant counter a line item's stock was taken from.
func (r *repository) SetLineVariant(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", itemID).
		Update("variant_id", variantID).Error
}

// SetPaymentReference stores processor correlation ids and marks the order as card-settled.
func (r *repository) SetPaymentReference(ctx context.Context, id uuid.UUID, ref PaymentReference) error {
	updates := map[string]any{
		"payment_method": enums.PaymentMethodCard,
		"updated_at":     time.Now().UTC(),
	}
	if ref.PaymentIntentID != nil {
		updates["stripe_payment_intent_id"] = *ref.PaymentIntentID
	}
	if ref.CheckoutSessionID != nil {
		updates["stripe_checkout_session_id"] = *ref.CheckoutSessionID
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkPaid flips an unpaid order to paid. It reports false when the order was not unpaid.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, ref PaymentReference) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"paid_at":        paidAt,
		"updated_at":     time.Now().UTC(),
	}
	if ref.PaymentIntentID != nil {
		updates["stripe_payment_intent_id"] = gorm.Expr("COALESCE(stripe_payment_intent_id, ?)", *ref.PaymentIntentID)
	}
	if ref.CheckoutSessionID != nil {
		updates["stripe_checkout_session_id"] = gorm.Expr("COALESCE(stripe_checkout_session_id, ?)", *ref.CheckoutSessionID)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusUnpaid).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params listParams) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.page(query, params)
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params listParams) ([]models.Order, *pagination.Cursor, error) {
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Order
	err := query.
		Scopes(pagination.Keyset(params.Cursor, params.Limit)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// PurgeAll hard-deletes every order together with its items and history.
func (r *repository) PurgeAll(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OrderStatusEntry{}).Error; err != nil {
		return 0, err
	}
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OrderLineItem{}).Error; err != nil {
		return 0, err
	}
	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Order{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
