package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockKey addresses one stock counter: a variant when VariantID is set, else the product base stock.
type StockKey struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Repository reads products and mutates stock counters.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a product together with its variants.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product == nil {
		return errors.New("product required")
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByIDs loads the referenced products in one round trip, variants ordered by position.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("id IN ?", uniqueIDs(ids)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindByID loads one product with its variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Available returns the current stock for the key.
func (r *Repository) Available(ctx context.Context, key StockKey) (int, error) {
	var stock int
	query := r.db.WithContext(ctx)
	if key.VariantID != nil {
		query = query.Model(&models.ProductVariant{}).Where("id = ? AND product_id = ?", *key.VariantID, key.ProductID)
	} else {
		query = query.Model(&models.Product{}).Where("id = ?", key.ProductID)
	}
	if err := query.Select("stock").Scan(&stock).Error; err != nil {
		return 0, err
	}
	return stock, nil
}

// DecrementStock removes qty units only when at least qty remain. The check and the
// write are one statement, so concurrent callers can never drive stock negative.
func (r *Repository) DecrementStock(ctx context.Context, key StockKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var res *gorm.DB
	if key.VariantID != nil {
		res = r.db.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND product_id = ? AND stock >= ?
		`, qty, *key.VariantID, key.ProductID, qty)
	} else {
		res = r.db.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, qty, key.ProductID, qty)
	}
	if res.Error != nil {
		if pkgdb.IsCheckViolation(res.Error, "") {
			return insufficientStock(key, qty)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return insufficientStock(key, qty)
	}
	return nil
}

// Commit takes qty units for sel from the current product row. Matching variants are
// tried in position order with the conditional decrement, so a variant drained since
// the order was placed falls through to the next one that still has stock.
func (r *Repository) Commit(ctx context.Context, product models.Product, sel Selector, qty int) (StockKey, error) {
	if !product.Status.Orderable() {
		return StockKey{ProductID: product.ID}, Unavailable(product.ID, qty)
	}
	if !sel.Targeted() {
		key := StockKey{ProductID: product.ID}
		if err := r.DecrementStock(ctx, key, qty); err != nil {
			return key, r.withAvailable(ctx, err, key)
		}
		return key, nil
	}

	var last error
	for _, variant := range product.Variants {
		if !sel.Matches(variant) {
			continue
		}
		id := variant.ID
		key := VariantKey(product.ID, &id)
		err := r.DecrementStock(ctx, key, qty)
		if err == nil {
			return key, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			return key, err
		}
		last = r.withAvailable(ctx, err, key)
	}
	if last == nil {
		return StockKey{ProductID: product.ID}, pkgerrors.New(pkgerrors.CodeInsufficientStock, "no matching variant").
			WithDetails(map[string]any{"product_id": product.ID.String(), "requested": qty})
	}
	return StockKey{ProductID: product.ID}, last
}

// Unavailable reports a product that can no longer be sold.
func Unavailable(productID uuid.UUID, qty int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "product unavailable").WithDetails(map[string]any{
		"product_id": productID.String(),
		"requested":  qty,
		"reason":     "product_unavailable",
	})
}

// withAvailable adds the counter's current stock to an insufficient-stock error.
func (r *Repository) withAvailable(ctx context.Context, err error, key StockKey) error {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		return err
	}
	available, lookupErr := r.Available(ctx, key)
	if lookupErr != nil {
		return err
	}
	details, _ := typed.Details().(map[string]any)
	merged := make(map[string]any, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	merged["available"] = available
	return typed.WithDetails(merged)
}

func insufficientStock(key StockKey, qty int) *pkgerrors.Error {
	details := map[string]any{
		"product_id": key.ProductID.String(),
		"requested":  qty,
	}
	if key.VariantID != nil {
		details["variant_id"] = key.VariantID.String()
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(details)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
