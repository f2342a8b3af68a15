package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type tx struct{ tx pgx.Tx }

func (t *tx) LockProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
	return p, classify(err)
}

func (t *tx) SetProductStock(ctx context.Context, id int64, stock int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2, updated_at=now() WHERE id=$1`, id, stock)
	if err != nil {
		return classify(err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("product %d: %w", id, orders.ErrNotFound)
	}
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, o *orders.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(customer_name, total_amount, status)
		VALUES ($1, $2::numeric, $3)
		RETURNING id, created_at, updated_at`,
		o.CustomerName, o.TotalAmount.String(), string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return classify(err)
}

func (t *tx) InsertOrderItem(ctx context.Context, it *orders.OrderItem) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice.String(), it.Subtotal.String(),
	).Scan(&it.ID)
	return classify(err)
}

// touchUpdatedAt keeps updated_at strictly increasing per row; now() is the
// transaction start and can trail a write committed meanwhile.
const touchUpdatedAt = `updated_at = GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')`

func (t *tx) SetOrderTotal(ctx context.Context, id int64, total decimal.Decimal) (time.Time, error) {
	var at time.Time
	err := t.tx.QueryRow(ctx, `UPDATE orders SET total_amount=$2::numeric, `+touchUpdatedAt+`
		WHERE id=$1 RETURNING updated_at`, id, total.String()).Scan(&at)
	return at, classify(err)
}

func (t *tx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return orders.Order{}, classify(err)
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price::text, subtotal::text
		FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return orders.Order{}, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it              orders.OrderItem
			price, subtotal string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price, &subtotal); err != nil {
			return orders.Order{}, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return orders.Order{}, err
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return orders.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, classify(rows.Err())
}

func (t *tx) SetOrderStatus(ctx context.Context, id int64, s orders.Status) (time.Time, error) {
	var at time.Time
	err := t.tx.QueryRow(ctx, `UPDATE orders SET status=$2, `+touchUpdatedAt+`
		WHERE id=$1 RETURNING updated_at`, id, string(s)).Scan(&at)
	return at, classify(err)
}
