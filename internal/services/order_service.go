package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
)

// ProductCatalog is the read surface the checkout needs from the catalog
// subsystem.
type ProductCatalog interface {
	ByID(ctx context.Context, productID int64) (*model.Product, error)
}

type OrderService struct {
	Orders    OrderStore
	Payments  PaymentStore
	Catalog   ProductCatalog
	Validator EmailValidator
	Log       *slog.Logger
}

func NewOrderService(
	orders OrderStore,
	payments PaymentStore,
	catalog ProductCatalog,
	validator EmailValidator,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		Orders:    orders,
		Payments:  payments,
		Catalog:   catalog,
		Validator: validator,
		Log:       log,
	}
}

type CreateOrderInput struct {
	ProductID int64
	Quantity  int
	Owner     model.Owner
}

// Create opens a pending order for a registered user or a guest. Guest
// emails go through the reputation validator before anything is persisted.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	switch in.Owner.Kind {
	case model.OwnerUser:
		if in.Owner.UserID <= 0 {
			return nil, fmt.Errorf("%w: missing user id", ErrValidation)
		}
	case model.OwnerGuest:
		if err := s.Validator.Validate(ctx, in.Owner.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown owner kind", ErrValidation)
	}

	product, err := s.Catalog.ByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, in.ProductID)
	}

	order := &model.Order{
		Owner:       in.Owner,
		ProductID:   product.ProductID,
		ProductName: product.Name,
		DownloadURL: product.DownloadURL,
		Quantity:    in.Quantity,
		UnitPrice:   product.Price,
		TotalAmount: product.Price * int64(in.Quantity),
		Status:      model.OrderPending,
	}

	id, err := s.Orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	order.OrderID = id
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID int64, actor Actor) (*model.Order, error) {
	order, err := s.Orders.ByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := authorizeOrder(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, actor Actor) ([]model.Order, error) {
	if actor.UserID == 0 {
		return nil, fmt.Errorf("%w: listing requires an account", ErrForbidden)
	}
	orders, err := s.Orders.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return orders, nil
}

// Cancel is the one order transition users trigger directly: a still-pending
// order plus its pending payment attempt, atomically. Anything the gateway
// already settled cannot be cancelled here.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, actor Actor) error {
	order, err := s.Orders.ByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := authorizeOrder(order, actor); err != nil {
		return err
	}

	active, err := s.Payments.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if active != nil && active.Status == model.PaymentCompleted {
		return fmt.Errorf("%w: order already paid", ErrConflict)
	}

	tx, err := s.Payments.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	cancelled, err := s.Orders.CancelPendingTx(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !cancelled {
		return fmt.Errorf("%w: order is %s", ErrConflict, order.Status)
	}

	if err := s.Payments.CancelPendingTx(ctx, tx, orderID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	order.Status = model.OrderCancelled
	return nil
}
