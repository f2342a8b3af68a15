package checkout

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

func (s *Service) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Order{}, orders.OrderNotFound(id)
	}
	return o, err
}

func (s *Service) ListOrders(ctx context.Context) ([]orders.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Service) GetOrderStatus(ctx context.Context, id int64) (orders.StatusStamp, error) {
	st, err := s.store.GetOrderStatus(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.StatusStamp{}, orders.OrderNotFound(id)
	}
	return st, err
}

// ---- catalog pass-through ----

func (s *Service) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	return s.store.CreateProduct(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	return p, productErr(id, err)
}

func (s *Service) ListProducts(ctx context.Context) ([]orders.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch orders.ProductPatch) (orders.Product, error) {
	p, err := s.store.UpdateProduct(ctx, id, patch)
	return p, productErr(id, err)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return productErr(id, s.store.DeleteProduct(ctx, id))
}

func productErr(id int64, err error) error {
	if errors.Is(err, orders.ErrNotFound) {
		return orders.ProductNotFound(id)
	}
	return err
}
