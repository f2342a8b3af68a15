package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

var ErrInFlight = errors.New("request with this idempotency key is in progress")

type Idempotency struct{ R redis.Cmdable }

// Reserve claims key. If the key already finished it returns the order id
// recorded for it with fresh=false; a key still being processed yields
// ErrInFlight.
func (i *Idempotency) Reserve(ctx context.Context, key string) (orderID int64, fresh bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, key)
	ok, err := i.R.SetNX(ctx, k, idemPending, TTLIdempotency).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}
	v, err := i.R.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may retry
		return 0, false, ErrInFlight
	}
	if err != nil {
		return 0, false, err
	}
	if v == idemPending {
		return 0, false, ErrInFlight
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency key %q: %w", key, err)
	}
	return id, false, nil
}

func (i *Idempotency) Complete(ctx context.Context, key string, orderID int64) error {
	return i.R.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), strconv.FormatInt(orderID, 10), TTLIdempotency).Err()
}

func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.R.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Err()
}
