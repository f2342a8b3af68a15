package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store implements orders.Store on Postgres. Row locks are SELECT ... FOR
// UPDATE inside the InTx transaction.
type Store struct{ DB *pgxpool.Pool }

var _ orders.Store = (*Store)(nil)

const productCols = `id, name, sku, price::text, stock_quantity, created_at, updated_at`

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	pgtx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(ctx, &tx{tx: pgtx}); err != nil {
		return err
	}
	return classify(pgtx.Commit(ctx))
}

// ---- catalog ----

func (s *Store) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	if err := orders.ValidateProduct(p); err != nil {
		return orders.Product{}, err
	}
	row := s.DB.QueryRow(ctx, `
		INSERT INTO products(name, sku, price, stock_quantity)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING `+productCols,
		p.Name, p.SKU, p.Price.String(), p.StockQuantity)
	out, err := scanProduct(row)
	return out, classify(err)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	return p, classify(err)
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []orders.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, classify(rows.Err())
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch orders.ProductPatch) (orders.Product, error) {
	var out orders.Product
	err := s.InTx(ctx, func(ctx context.Context, otx orders.Tx) error {
		t := otx.(*tx)
		p, err := t.LockProduct(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(&p)
		p.SKU = strings.TrimSpace(p.SKU)
		if err := orders.ValidateProduct(p); err != nil {
			return err
		}
		row := t.tx.QueryRow(ctx, `
			UPDATE products SET name=$2, sku=$3, price=$4::numeric, stock_quantity=$5, updated_at=now()
			WHERE id=$1
			RETURNING `+productCols,
			id, p.Name, p.SKU, p.Price.String(), p.StockQuantity)
		out, err = scanProduct(row)
		return classify(err)
	})
	return out, err
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

// ---- order reads ----

const orderCols = `id, customer_name, total_amount::text, status, created_at, updated_at`

func (s *Store) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return orders.Order{}, classify(err)
	}
	items, err := s.resolvedItems(ctx, []int64{id})
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []orders.OrderItem{}
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+orderCols+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	out := []orders.Order{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.resolvedItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []orders.OrderItem{}
		}
	}
	return out, nil
}

func (s *Store) GetOrderStatus(ctx context.Context, id int64) (orders.StatusStamp, error) {
	var (
		st string
		at time.Time
	)
	if err := s.DB.QueryRow(ctx, `SELECT status, updated_at FROM orders WHERE id=$1`, id).Scan(&st, &at); err != nil {
		return orders.StatusStamp{}, classify(err)
	}
	return orders.StatusStamp{Status: orders.Status(st), UpdatedAt: at}, nil
}

// resolvedItems loads items with their product reference; a deleted product
// leaves Product nil.
func (s *Store) resolvedItems(ctx context.Context, orderIDs []int64) (map[int64][]orders.OrderItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price::text, i.subtotal::text,
		       p.name, p.sku
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.id`, orderIDs)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make(map[int64][]orders.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			it              orders.OrderItem
			price, subtotal string
			name, sku       *string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price, &subtotal, &name, &sku); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %d unit_price: %w", it.ID, err)
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("order item %d subtotal: %w", it.ID, err)
		}
		if name != nil && sku != nil {
			it.Product = &orders.ProductRef{ID: it.ProductID, Name: *name, SKU: *sku}
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, classify(rows.Err())
}

func scanProduct(row pgx.Row) (orders.Product, error) {
	var (
		p     orders.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return orders.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return orders.Product{}, fmt.Errorf("product %d price: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o      orders.Order
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return orders.Order{}, fmt.Errorf("order %d total: %w", o.ID, err)
	}
	o.TotalAmount = d
	o.Status = orders.Status(status)
	return o, nil
}
