// Package inventory guards per-product stock counters. All reads that gate a
// decrement happen under the row lock, inside the caller's transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

// Store is bound to one transaction. Rows it locked stay locked, and the
// values it hands out stay current, until that transaction ends.
type Store struct {
	tx     orders.Tx
	locked map[int64]*orders.Product
}

func New(tx orders.Tx) *Store {
	return &Store{tx: tx, locked: make(map[int64]*orders.Product)}
}

// LockAndGet takes the exclusive lock on the product row.
func (s *Store) LockAndGet(ctx context.Context, productID int64) (*orders.Product, error) {
	if p, ok := s.locked[productID]; ok {
		return p, nil
	}
	p, err := s.tx.LockProduct(ctx, productID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, orders.ProductNotFound(productID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
	}
	s.locked[productID] = &p
	return &p, nil
}

// LockAll locks the distinct ids in ascending order, whatever order the caller
// passed them in. Two transactions over the same rows therefore never wait
// on each other in opposite directions.
func (s *Store) LockAll(ctx context.Context, productIDs []int64) error {
	for _, id := range SortedIDs(productIDs) {
		if _, err := s.LockAndGet(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Decrement fails with InsufficientStock rather than letting stock go negative.
func (s *Store) Decrement(ctx context.Context, p *orders.Product, qty int) error {
	if qty < 1 {
		return orders.Validation("quantity", "must be at least 1")
	}
	if _, ok := s.locked[p.ID]; !ok {
		return fmt.Errorf("decrement product %d: row not locked", p.ID)
	}
	if p.StockQuantity < qty {
		return orders.InsufficientStock(p.ID, qty, p.StockQuantity)
	}
	next := p.StockQuantity - qty
	if err := s.tx.SetProductStock(ctx, p.ID, next); err != nil {
		return fmt.Errorf("decrement product %d: %w", p.ID, err)
	}
	p.StockQuantity = next
	return nil
}

// Increment adds qty back. A product that no longer exists is skipped and
// reported with restored=false.
func (s *Store) Increment(ctx context.Context, productID int64, qty int) (restored bool, err error) {
	p, err := s.LockAndGet(ctx, productID)
	if orders.KindOf(err) == orders.KindProductNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if qty > orders.MaxStock-p.StockQuantity {
		return false, orders.Validation("stock_quantity", fmt.Sprintf("restoring %d to product %d would exceed %d", qty, productID, orders.MaxStock))
	}
	next := p.StockQuantity + qty
	if err := s.tx.SetProductStock(ctx, productID, next); err != nil {
		return false, fmt.Errorf("increment product %d: %w", productID, err)
	}
	p.StockQuantity = next
	return true, nil
}

func SortedIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
