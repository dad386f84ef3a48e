package inventory

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Selector names a variant by size and/or color. A nil field matches any value.
type Selector struct {
	Size  *string
	Color *string
}

// NewSelector trims both fields and treats blanks as unspecified.
func NewSelector(size, color *string) Selector {
	return Selector{Size: normalize(size), Color: normalize(color)}
}

// Targeted reports whether the selector points at a variant rather than base stock.
func (s Selector) Targeted() bool {
	return s.Size != nil || s.Color != nil
}

// Matches reports whether the variant agrees with every specified field.
func (s Selector) Matches(v models.ProductVariant) bool {
	if s.Size != nil && (v.Size == nil || strings.TrimSpace(*v.Size) != *s.Size) {
		return false
	}
	if s.Color != nil && (v.Color == nil || strings.TrimSpace(*v.Color) != *s.Color) {
		return false
	}
	return true
}

// Reserve checks that product can cover qty units for the selector and returns the
// stock counter that should be decremented on acceptance. Variants are scanned in
// position order and the first match with enough stock wins.
func Reserve(product models.Product, sel Selector, qty int) (StockKey, error) {
	key := StockKey{ProductID: product.ID}
	if !sel.Targeted() {
		if product.Stock < qty {
			return key, insufficientStock(key, qty).WithDetails(map[string]any{
				"product_id": product.ID.String(),
				"requested":  qty,
				"available":  product.Stock,
			})
		}
		return key, nil
	}

	matched := false
	for _, variant := range product.Variants {
		if !sel.Matches(variant) {
			continue
		}
		matched = true
		if variant.Stock >= qty {
			id := variant.ID
			key.VariantID = &id
			return key, nil
		}
	}

	details := map[string]any{
		"product_id": product.ID.String(),
		"requested":  qty,
	}
	if sel.Size != nil {
		details["size"] = *sel.Size
	}
	if sel.Color != nil {
		details["color"] = *sel.Color
	}
	msg := "insufficient stock for variant"
	if !matched {
		msg = "no matching variant"
	}
	return key, pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(details)
}

// VariantKey builds the stock key for an item that already resolved to a variant.
func VariantKey(productID uuid.UUID, variantID *uuid.UUID) StockKey {
	return StockKey{ProductID: productID, VariantID: variantID}
}

func normalize(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
