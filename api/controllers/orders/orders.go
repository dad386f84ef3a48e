package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxNotesLength = 1000

type createOrderItem struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"min=1,max=1000"`
	Size      *string `json:"size,omitempty" validate:"omitempty,max=40"`
	Color     *string `json:"color,omitempty" validate:"omitempty,max=40"`
}

type createOrderRequest struct {
	Items           []createOrderItem     `json:"items" validate:"required,min=1,max=100,dive"`
	PaymentMethod   string                `json:"payment_method" validate:"payment_method"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	Notes           *string               `json:"notes,omitempty"`
}

func (r createOrderRequest) toInput(userID uuid.UUID) (internalorders.CreateOrderInput, error) {
	method := enums.PaymentMethodCOD
	if r.PaymentMethod != "" {
		parsed, err := enums.ParsePaymentMethod(r.PaymentMethod)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
		}
		method = parsed
	}

	items := make([]internalorders.OrderItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
		}
		items = append(items, internalorders.OrderItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	return internalorders.CreateOrderInput{
		UserID:          userID,
		Items:           items,
		PaymentMethod:   method,
		ShippingAddress: r.ShippingAddress,
		Notes:           sanitizedNotes(r.Notes),
	}, nil
}

// Create places a pending order for the caller.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListMine returns the caller's orders, newest first.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMyOrders(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns one order to its owner or an admin.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func principal(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

func sanitizedNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*notes, maxNotesLength)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
