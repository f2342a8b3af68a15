package inventory

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records lock order and stock writes.
type fakeTx struct {
	orders.Tx
	products map[int64]orders.Product
	lockLog  []int64
	writes   map[int64]int
}

func newFakeTx(ps ...orders.Product) *fakeTx {
	f := &fakeTx{products: map[int64]orders.Product{}, writes: map[int64]int{}}
	for _, p := range ps {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeTx) LockProduct(_ context.Context, id int64) (orders.Product, error) {
	f.lockLog = append(f.lockLog, id)
	p, ok := f.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

func (f *fakeTx) SetProductStock(_ context.Context, id int64, stock int) error {
	f.writes[id] = stock
	return nil
}

func product(id int64, stock int) orders.Product {
	return orders.Product{ID: id, Name: "p", SKU: "sku", Price: decimal.NewFromInt(1), StockQuantity: stock}
}

func TestLockAllSortsAndDedupes(t *testing.T) {
	tx := newFakeTx(product(1, 1), product(2, 1), product(3, 1))
	s := New(tx)
	require.NoError(t, s.LockAll(context.Background(), []int64{3, 1, 2, 3, 1}))
	assert.Equal(t, []int64{1, 2, 3}, tx.lockLog)

	// already locked rows are not locked twice
	_, err := s.LockAndGet(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, tx.lockLog, 3)
}

func TestLockAndGetMissing(t *testing.T) {
	s := New(newFakeTx())
	_, err := s.LockAndGet(context.Background(), 9)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
	var e *orders.Error
	require.ErrorAs(t, err, &e)
	assert.EqualValues(t, 9, e.ProductID)
}

func TestDecrement(t *testing.T) {
	ctx := context.Background()
	tx := newFakeTx(product(1, 10))
	s := New(tx)
	p, err := s.LockAndGet(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.Decrement(ctx, p, 3))
	assert.Equal(t, 7, p.StockQuantity)
	assert.Equal(t, 7, tx.writes[1])

	err = s.Decrement(ctx, p, 8)
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)
	assert.Equal(t, 7, p.StockQuantity)
	assert.Equal(t, 7, tx.writes[1])

	require.NoError(t, s.Decrement(ctx, p, 7))
	assert.Equal(t, 0, p.StockQuantity)
}

func TestDecrementRequiresLock(t *testing.T) {
	s := New(newFakeTx(product(1, 10)))
	p := product(1, 10)
	assert.Error(t, s.Decrement(context.Background(), &p, 1))
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	tx := newFakeTx(product(1, 4))
	s := New(tx)

	restored, err := s.Increment(ctx, 1, 6)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, 10, tx.writes[1])

	restored, err = s.Increment(ctx, 2, 6)
	require.NoError(t, err)
	assert.False(t, restored)
	_, wrote := tx.writes[2]
	assert.False(t, wrote)
}

func TestIncrementRefusesToOverflowStockColumn(t *testing.T) {
	ctx := context.Background()
	tx := newFakeTx(product(1, orders.MaxStock-2))
	s := New(tx)

	_, err := s.Increment(ctx, 1, 3)
	assert.ErrorIs(t, err, orders.ErrValidation)
	_, wrote := tx.writes[1]
	assert.False(t, wrote)

	restored, err := s.Increment(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, orders.MaxStock, tx.writes[1])
}
