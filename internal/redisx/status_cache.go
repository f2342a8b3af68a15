package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

type StatusEntry struct {
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type StatusCache struct{ R redis.Cmdable }

func (c *StatusCache) GetStatus(ctx context.Context, orderID int64) (StatusEntry, error) {
	var e StatusEntry
	s, err := c.R.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return e, ErrCacheMiss
	}
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return e, fmt.Errorf("decode status entry: %w", err)
	}
	return e, nil
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID int64, e StatusEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

func (c *StatusCache) InvalidateStatus(ctx context.Context, orderID int64) error {
	return c.R.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

func (c *StatusCache) Seen(ctx context.Context, service, eventID string) (bool, error) {
	return Exists(ctx, c.R, fmt.Sprintf(KeyDedup, service, eventID))
}

func (c *StatusCache) MarkProcessed(ctx context.Context, service, eventID string) error {
	return c.R.Set(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Err()
}
