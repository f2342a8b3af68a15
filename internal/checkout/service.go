// Package checkout turns carts into orders and drives the order lifecycle.
//
// Placement and cancellation each run as one transaction against
// orders.Store: stock rows are locked in ascending product id order, checked
// and adjusted under the lock, and the whole unit commits or rolls back
// together. Failures come back as *orders.Error values.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/ariefcatur/go-inventory-orders/internal/checkout"

type Service struct {
	store     orders.Store
	publisher orders.Publisher
	log       *zap.Logger
	tracer    trace.Tracer
	producer  string
	txTimeout time.Duration
	retries   int
}

type Option func(*Service)

func WithPublisher(p orders.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithProducer names this service in published envelopes.
func WithProducer(name string) Option { return func(s *Service) { s.producer = name } }

// WithTxTimeout sets the ambient deadline of one transaction attempt.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// WithRetries sets how many times a transaction that lost a lock conflict is
// run again before the conflict is returned.
func WithRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func NewService(store orders.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		log:       zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		producer:  "order-api",
		txTimeout: 5 * time.Second,
		retries:   1,
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// inTx runs fn in a fresh transaction, retrying on TransientConflict. fn must
// rebuild all of its state on every call.
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx orders.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.attempt(ctx, fn)
		if orders.KindOf(err) != orders.KindTransientConflict || ctx.Err() != nil {
			return err
		}
		if attempt < s.retries {
			s.log.Warn("transaction conflict, retrying",
				zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
		}
	}
	return err
}

func (s *Service) attempt(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	err := s.store.InTx(txCtx, fn)
	// our own deadline firing means we sat behind other lock holders
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return orders.TransientConflict(err)
	}
	return err
}
