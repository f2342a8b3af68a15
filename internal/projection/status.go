// Package projection keeps read-side views in step with order events.
package projection

import (
	"context"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type StatusStore interface {
	GetStatus(ctx context.Context, orderID int64) (redisx.StatusEntry, error)
	SetStatus(ctx context.Context, orderID int64, e redisx.StatusEntry) error
	Seen(ctx context.Context, service, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, service, eventID string) error
}

// StatusProjector writes the latest order status into the status cache.
type StatusProjector struct {
	Cache   StatusStore
	Service string
	Log     *zap.Logger
}

// HandleMessage dipasang sebagai handler consumer.
func (p *StatusProjector) HandleMessage(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return p.drop(m, err)
	}

	// dedup via Redis (pakai event_id)
	if seen, _ := p.Cache.Seen(ctx, p.Service, env.EventID); seen {
		return nil
	}

	var (
		orderID int64
		status  orders.Status
	)
	switch env.EventType {
	case orders.EventOrderPlaced:
		pl, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return p.drop(m, err)
		}
		orderID, status = pl.OrderID, pl.Status
	case orders.EventOrderStatusChanged:
		pl, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return p.drop(m, err)
		}
		orderID, status = pl.OrderID, pl.To
	default:
		return nil // ignore
	}

	// the two event types travel on different topics and the API writes
	// read-through entries, so an older event can arrive second
	if cur, err := p.Cache.GetStatus(ctx, orderID); err == nil && cur.UpdatedAt.After(env.OccurredAt) {
		p.logger().Debug("skip stale event", zap.String("event_id", env.EventID), zap.Int64("order_id", orderID))
		return p.Cache.MarkProcessed(ctx, p.Service, env.EventID)
	}

	if err := p.Cache.SetStatus(ctx, orderID, redisx.StatusEntry{Status: status, UpdatedAt: env.OccurredAt}); err != nil {
		return err
	}
	// recorded after the write; an error above makes the consumer retry
	if err := p.Cache.MarkProcessed(ctx, p.Service, env.EventID); err != nil {
		p.logger().Warn("mark event processed", zap.String("event_id", env.EventID), zap.Error(err))
	}
	p.logger().Info("status projected",
		zap.String("event_type", env.EventType),
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// drop acknowledges a message that can never be projected. Returning an
// error for it would stall its partition.
func (p *StatusProjector) drop(m kafkago.Message, err error) error {
	p.logger().Warn("drop undecodable message", zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
	return nil
}

func (p *StatusProjector) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
