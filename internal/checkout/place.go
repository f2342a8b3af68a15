package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-inventory-orders/internal/inventory"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// PlaceOrder creates the order, its items and the stock deductions as one unit.
// On error nothing of the call is persisted.
func (s *Service) PlaceOrder(ctx context.Context, customerName string, items []orders.ItemInput) (orders.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.customer", customerName),
		attribute.Int("order.item_count", len(items)),
	)

	if err := orders.ValidatePlacement(customerName, items); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return orders.Order{}, err
	}

	var placed orders.Order
	err := s.inTx(ctx, "place_order", func(ctx context.Context, tx orders.Tx) error {
		o, err := placeTx(ctx, tx, customerName, items)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		kind := orders.KindOf(err)
		span.SetAttributes(attribute.String("error.kind", kind.String()))
		span.SetStatus(codes.Error, err.Error())
		if kind == orders.KindUnknown {
			s.log.Error("place order failed", zap.String("customer", customerName), zap.Error(err))
			return orders.Order{}, fmt.Errorf("place order: %w", err)
		}
		s.log.Warn("place order rejected", zap.String("customer", customerName),
			zap.Stringer("kind", kind), zap.Error(err))
		return orders.Order{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", placed.ID))
	s.log.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.String("customer", placed.CustomerName),
		zap.Int("items", len(placed.Items)),
		zap.String("total", placed.TotalAmount.StringFixed(2)))
	s.publish(ctx, orders.TopicOrderPlaced, orders.EventOrderPlaced, placed.ID, placed.UpdatedAt, orders.PlacedPayload(placed))
	return placed, nil
}

func placeTx(ctx context.Context, tx orders.Tx, customerName string, items []orders.ItemInput) (orders.Order, error) {
	// total dikoreksi setelah semua item tercatat
	o := orders.Order{
		CustomerName: strings.TrimSpace(customerName),
		TotalAmount:  decimal.Zero,
		Status:       orders.StatusPending,
	}
	if err := tx.InsertOrder(ctx, &o); err != nil {
		return orders.Order{}, fmt.Errorf("insert order: %w", err)
	}

	inv := inventory.New(tx)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	if err := inv.LockAll(ctx, ids); err != nil {
		return orders.Order{}, err
	}

	total := decimal.Zero
	o.Items = make([]orders.OrderItem, 0, len(items))
	for i, it := range items {
		p, err := inv.LockAndGet(ctx, it.ProductID)
		if err != nil {
			return orders.Order{}, err
		}
		if err := inv.Decrement(ctx, p, it.Quantity); err != nil {
			return orders.Order{}, err
		}
		line := orders.NewItem(o.ID, *p, it.Quantity)
		if err := orders.ValidateAmount(fmt.Sprintf("items.%d.quantity", i), line.Subtotal); err != nil {
			return orders.Order{}, err
		}
		if err := tx.InsertOrderItem(ctx, &line); err != nil {
			return orders.Order{}, fmt.Errorf("insert order item: %w", err)
		}
		line.Product = &orders.ProductRef{ID: p.ID, Name: p.Name, SKU: p.SKU}
		o.Items = append(o.Items, line)
		total = total.Add(line.Subtotal)
	}
	if err := orders.ValidateAmount("total_amount", total); err != nil {
		return orders.Order{}, err
	}

	at, err := tx.SetOrderTotal(ctx, o.ID, total)
	if err != nil {
		return orders.Order{}, fmt.Errorf("set order total: %w", err)
	}
	o.TotalAmount = total
	o.UpdatedAt = at
	return o, nil
}
