package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// order_items.product_id is a lookup key only: products can be deleted
// without touching order history.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id             BIGSERIAL PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		sku            VARCHAR(255) NOT NULL UNIQUE,
		price          NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id            BIGSERIAL PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL,
		total_amount  NUMERIC(18,2) NOT NULL DEFAULT 0,
		status        VARCHAR(16) NOT NULL DEFAULT 'pending'
		              CHECK (status IN ('pending','confirmed','cancelled')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity >= 1),
		unit_price NUMERIC(12,2) NOT NULL,
		subtotal   NUMERIC(18,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
