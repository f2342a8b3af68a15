package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// publish runs after commit. A failure is logged and never undoes the order.
// occurredAt is the order's updated_at from the write, the same clock the
// status read path stamps cache entries with.
func (s *Service) publish(ctx context.Context, topic, eventType string, orderID int64, occurredAt time.Time, payload any) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("encode event payload", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    occurredAt.UTC(),
		Producer:      s.producer,
		CorrelationID: string(orders.PartitionKey(orderID)),
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	if err := s.publisher.PublishEvent(ctx, topic, orders.PartitionKey(orderID), env); err != nil {
		s.log.Error("publish event", zap.String("topic", topic), zap.Int64("order_id", orderID), zap.Error(err))
	}
}
