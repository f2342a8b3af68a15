// Package memstore is an in-process implementation of orders.Store. Each
// product and order row carries its own exclusive lock; a transaction buffers
// its writes and publishes them in one step at commit, so a rolled back
// transaction leaves nothing behind.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

type productRow struct {
	lock    rowLock
	p       orders.Product
	deleted bool
}

type orderRow struct {
	lock rowLock
	o    orders.Order // Items kept in Store.items
}

type Store struct {
	opts options

	mu       sync.RWMutex // guards the tables below and the row contents
	products map[int64]*productRow
	skus     map[string]int64
	orders   map[int64]*orderRow
	items    map[int64][]orders.OrderItem

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

var _ orders.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	o := options{lockTimeout: 2 * time.Second, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return &Store{
		opts:     o,
		products: make(map[int64]*productRow),
		skus:     make(map[string]int64),
		orders:   make(map[int64]*orderRow),
		items:    make(map[int64][]orders.OrderItem),
	}
}

func (s *Store) now() time.Time { return s.opts.now().UTC() }

// touch returns the next updated_at for a row last written at prev; it never
// goes backwards even if the clock does.
func (s *Store) touch(prev time.Time) time.Time {
	at := s.now()
	if !at.After(prev) {
		at = prev.Add(time.Microsecond)
	}
	return at
}

// InTx runs fn in a transaction. Any error, a cancelled context, or a panic
// discards the buffered writes and releases every lock taken.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	t := s.begin()
	defer t.rollback()
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

// ---- catalog ----

func (s *Store) CreateProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	if err := orders.ValidateProduct(p); err != nil {
		return orders.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.skus[p.SKU]; taken {
		return orders.Product{}, orders.Validation("sku", "has already been taken")
	}
	s.nextProductID++
	p.ID = s.nextProductID
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = &productRow{lock: newRowLock(), p: p}
	s.skus[p.SKU] = p.ID
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return row.p, nil
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, row := range s.products {
		out = append(out, row.p)
	}
	slices.SortFunc(out, func(a, b orders.Product) int { return cmpID(a.ID, b.ID) })
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch orders.ProductPatch) (orders.Product, error) {
	row, err := s.lockProductRow(ctx, id)
	if err != nil {
		return orders.Product{}, err
	}
	defer row.lock.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	next := row.p
	patch.Apply(&next)
	next.SKU = strings.TrimSpace(next.SKU)
	if err := orders.ValidateProduct(next); err != nil {
		return orders.Product{}, err
	}
	if owner, taken := s.skus[next.SKU]; taken && owner != id {
		return orders.Product{}, orders.Validation("sku", "has already been taken")
	}
	delete(s.skus, row.p.SKU)
	s.skus[next.SKU] = id
	next.UpdatedAt = s.now()
	row.p = next
	return next, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	row, err := s.lockProductRow(ctx, id)
	if err != nil {
		return err
	}
	defer row.lock.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	row.deleted = true
	delete(s.products, id)
	delete(s.skus, row.p.SKU)
	return nil
}

// lockProductRow returns the live row with its lock held.
func (s *Store) lockProductRow(ctx context.Context, id int64) (*productRow, error) {
	s.mu.RLock()
	row, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, orders.ErrNotFound
	}
	if err := row.lock.acquire(ctx, s.opts.lockTimeout); err != nil {
		return nil, err
	}
	s.mu.RLock()
	deleted := row.deleted
	s.mu.RUnlock()
	if deleted {
		row.lock.release()
		return nil, orders.ErrNotFound
	}
	return row, nil
}

// ---- order reads ----

func (s *Store) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return s.resolve(row.o), nil
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, row := range s.orders {
		out = append(out, s.resolve(row.o))
	}
	slices.SortFunc(out, func(a, b orders.Order) int { return cmpID(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetOrderStatus(_ context.Context, id int64) (orders.StatusStamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.orders[id]
	if !ok {
		return orders.StatusStamp{}, orders.ErrNotFound
	}
	return orders.StatusStamp{Status: row.o.Status, UpdatedAt: row.o.UpdatedAt}, nil
}

// resolve copies the order with its items and product references. Caller
// holds s.mu.
func (s *Store) resolve(o orders.Order) orders.Order {
	stored := s.items[o.ID]
	o.Items = make([]orders.OrderItem, len(stored))
	for i, it := range stored {
		if row, ok := s.products[it.ProductID]; ok {
			it.Product = &orders.ProductRef{ID: row.p.ID, Name: row.p.Name, SKU: row.p.SKU}
		}
		o.Items[i] = it
	}
	return o
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
