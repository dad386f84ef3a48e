package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListOrdersInput filters the admin order listing.
type ListOrdersInput struct {
	Actor  auth.Principal
	Status *enums.OrderStatus
	Params pagination.Params
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor auth.Principal) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.CanView(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	query, err := toListParams(params, nil)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(rows, next), nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"status": string(*input.Status)})
	}
	query, err := toListParams(input.Params, input.Status)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(rows, next), nil
}

// PurgeOrders deletes every order with its items and history. Stock is not restored.
func (s *service) PurgeOrders(ctx context.Context, actor auth.Principal) (int64, error) {
	if !actor.IsAdmin() {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var deleted int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).PurgeAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge orders")
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
	s.logg.Warn(s.logg.WithField(logCtx, "deleted", deleted), "orders purged")
	return deleted, nil
}

func toListParams(params pagination.Params, status *enums.OrderStatus) (listParams, error) {
	query := listParams{Limit: params.Limit, Status: status}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return listParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func buildOrderList(rows []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: toOrderDTOs(rows)}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}
