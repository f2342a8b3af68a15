package memstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
)

var errTxDone = errors.New("transaction already finished")

type tx struct {
	s    *Store
	held []rowLock
	done bool

	products   map[int64]*orders.Product // working copies of locked rows
	orders     map[int64]*orders.Order   // locked existing orders
	newOrders  map[int64]*orders.Order
	newOrderID []int64
	newItems   []orders.OrderItem
}

func (s *Store) begin() *tx {
	return &tx{
		s:         s,
		products:  make(map[int64]*orders.Product),
		orders:    make(map[int64]*orders.Order),
		newOrders: make(map[int64]*orders.Order),
	}
}

func (t *tx) LockProduct(ctx context.Context, id int64) (orders.Product, error) {
	if t.done {
		return orders.Product{}, errTxDone
	}
	if p, ok := t.products[id]; ok {
		return *p, nil
	}
	row, err := t.s.lockProductRow(ctx, id)
	if err != nil {
		return orders.Product{}, err
	}
	t.held = append(t.held, row.lock)

	t.s.mu.RLock()
	p := row.p
	t.s.mu.RUnlock()
	t.products[id] = &p
	return p, nil
}

func (t *tx) SetProductStock(_ context.Context, id int64, stock int) error {
	if t.done {
		return errTxDone
	}
	p, ok := t.products[id]
	if !ok {
		return fmt.Errorf("product %d: row not locked", id)
	}
	if stock < 0 {
		return fmt.Errorf("product %d: stock would become %d", id, stock)
	}
	p.StockQuantity = stock
	return nil
}

func (t *tx) InsertOrder(_ context.Context, o *orders.Order) error {
	if t.done {
		return errTxDone
	}
	t.s.mu.Lock()
	t.s.nextOrderID++
	o.ID = t.s.nextOrderID
	t.s.mu.Unlock()

	o.CreatedAt = t.s.now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = nil
	t.newOrders[o.ID] = &cp
	t.newOrderID = append(t.newOrderID, o.ID)
	return nil
}

func (t *tx) InsertOrderItem(_ context.Context, it *orders.OrderItem) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.newOrders[it.OrderID]; !ok {
		if _, ok := t.orders[it.OrderID]; !ok {
			return fmt.Errorf("order %d: not written by this transaction", it.OrderID)
		}
	}
	t.s.mu.Lock()
	t.s.nextItemID++
	it.ID = t.s.nextItemID
	t.s.mu.Unlock()

	cp := *it
	cp.Product = nil
	t.newItems = append(t.newItems, cp)
	return nil
}

func (t *tx) SetOrderTotal(_ context.Context, id int64, total decimal.Decimal) (time.Time, error) {
	o, err := t.writableOrder(id)
	if err != nil {
		return time.Time{}, err
	}
	o.TotalAmount = total
	o.UpdatedAt = t.s.touch(o.UpdatedAt)
	return o.UpdatedAt, nil
}

func (t *tx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	if t.done {
		return orders.Order{}, errTxDone
	}
	if o, ok := t.newOrders[id]; ok {
		return t.withItems(*o), nil
	}
	if o, ok := t.orders[id]; ok {
		return t.withItems(*o), nil
	}

	t.s.mu.RLock()
	row, ok := t.s.orders[id]
	t.s.mu.RUnlock()
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	if err := row.lock.acquire(ctx, t.s.opts.lockTimeout); err != nil {
		return orders.Order{}, err
	}
	t.held = append(t.held, row.lock)

	t.s.mu.RLock()
	o := row.o
	t.s.mu.RUnlock()
	t.orders[id] = &o
	return t.withItems(o), nil
}

func (t *tx) SetOrderStatus(_ context.Context, id int64, st orders.Status) (time.Time, error) {
	o, err := t.writableOrder(id)
	if err != nil {
		return time.Time{}, err
	}
	o.Status = st
	o.UpdatedAt = t.s.touch(o.UpdatedAt)
	return o.UpdatedAt, nil
}

func (t *tx) writableOrder(id int64) (*orders.Order, error) {
	if t.done {
		return nil, errTxDone
	}
	if o, ok := t.newOrders[id]; ok {
		return o, nil
	}
	if o, ok := t.orders[id]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("order %d: row not locked", id)
}

// withItems attaches committed items plus the ones buffered here.
func (t *tx) withItems(o orders.Order) orders.Order {
	t.s.mu.RLock()
	committed := t.s.items[o.ID]
	o.Items = append([]orders.OrderItem(nil), committed...)
	t.s.mu.RUnlock()
	for _, it := range t.newItems {
		if it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	return o
}

// commit publishes every buffered write under one table lock, so readers see
// all of the transaction or none of it.
func (t *tx) commit() {
	if t.done {
		return
	}
	s := t.s
	now := s.now()
	s.mu.Lock()
	for id, p := range t.products {
		row, ok := s.products[id]
		if !ok {
			continue
		}
		if row.p.StockQuantity != p.StockQuantity {
			row.p.StockQuantity = p.StockQuantity
			row.p.UpdatedAt = now
		}
	}
	for id, o := range t.orders {
		if row, ok := s.orders[id]; ok {
			row.o = *o
		}
	}
	for _, id := range t.newOrderID {
		s.orders[id] = &orderRow{lock: newRowLock(), o: *t.newOrders[id]}
	}
	for _, it := range t.newItems {
		s.items[it.OrderID] = append(s.items[it.OrderID], it)
	}
	s.mu.Unlock()
	t.finish()
}

func (t *tx) rollback() {
	if t.done {
		return
	}
	t.finish()
}

func (t *tx) finish() {
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].release()
	}
	t.held = nil
}
