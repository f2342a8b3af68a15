package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/inventory"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func (s *Service) Confirm(ctx context.Context, orderID int64) (orders.Order, error) {
	return s.SetOrderStatus(ctx, orderID, orders.StatusConfirmed)
}

func (s *Service) Cancel(ctx context.Context, orderID int64) (orders.Order, error) {
	return s.SetOrderStatus(ctx, orderID, orders.StatusCancelled)
}

// SetOrderStatus applies one transition of the status table. Moving into
// cancelled restores every item's quantity in the same transaction.
func (s *Service) SetOrderStatus(ctx context.Context, orderID int64, target orders.Status) (orders.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.set_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("order.target_status", string(target)))

	if !target.Valid() {
		err := orders.Validation("status", "must be one of pending, confirmed, cancelled")
		span.SetStatus(codes.Error, err.Error())
		return orders.Order{}, err
	}

	var (
		from     orders.Status
		skipped  []int64
		snapshot orders.Order
	)
	err := s.inTx(ctx, "set_status", func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if errors.Is(err, orders.ErrNotFound) {
			return orders.OrderNotFound(orderID)
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}
		if err := orders.CheckTransition(orderID, o.Status, target); err != nil {
			return err
		}
		from = o.Status
		skipped = nil
		if from == target {
			snapshot = o
			return nil
		}
		if target == orders.StatusCancelled {
			if skipped, err = restoreStock(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		at, err := tx.SetOrderStatus(ctx, orderID, target)
		if err != nil {
			return fmt.Errorf("set order status: %w", err)
		}
		o.Status = target
		o.UpdatedAt = at
		snapshot = o
		return nil
	})
	if err != nil {
		kind := orders.KindOf(err)
		span.SetAttributes(attribute.String("error.kind", kind.String()))
		span.SetStatus(codes.Error, err.Error())
		if kind == orders.KindUnknown {
			s.log.Error("set order status failed", zap.Int64("order_id", orderID), zap.Error(err))
			return orders.Order{}, fmt.Errorf("set order status: %w", err)
		}
		s.log.Warn("status change rejected", zap.Int64("order_id", orderID),
			zap.String("target", string(target)), zap.Stringer("kind", kind))
		return orders.Order{}, err
	}

	if len(skipped) > 0 {
		s.log.Info("stock not restored for deleted products",
			zap.Int64("order_id", orderID), zap.Int64s("product_ids", skipped))
	}
	if from != target {
		s.log.Info("order status changed", zap.Int64("order_id", orderID),
			zap.String("from", string(from)), zap.String("to", string(target)))
		s.publish(ctx, orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, orderID, snapshot.UpdatedAt,
			orders.OrderStatusChangedPayload{OrderID: orderID, From: from, To: target})
	}

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		// committed already; hand back what the transaction saw
		return snapshot, nil
	}
	return o, nil
}

// restoreStock adds every item's quantity back, locking the products in
// ascending id order. Products that no longer exist are returned, not failed.
func restoreStock(ctx context.Context, tx orders.Tx, items []orders.OrderItem) (skipped []int64, err error) {
	qty := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
		ids = append(ids, it.ProductID)
	}
	inv := inventory.New(tx)
	for _, id := range inventory.SortedIDs(ids) {
		restored, err := inv.Increment(ctx, id, qty[id])
		if err != nil {
			return nil, err
		}
		if !restored {
			skipped = append(skipped, id)
		}
	}
	return skipped, nil
}
