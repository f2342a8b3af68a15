package memstore

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

var errLockWait = errors.New("lock wait timeout")

// rowLock is an exclusive, context-aware lock. A buffered channel of one slot
// lets waiters give up on timeout or cancellation, which sync.Mutex cannot.
type rowLock chan struct{}

func newRowLock() rowLock { return make(rowLock, 1) }

func (l rowLock) acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case l <- struct{}{}:
		return nil
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return orders.TransientConflict(errLockWait)
	}
}

func (l rowLock) release() { <-l }
