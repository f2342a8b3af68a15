package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewItemSnapshotsPrice(t *testing.T) {
	p := Product{ID: 1, Price: decimal.RequireFromString("5.00"), StockQuantity: 10}
	it := NewItem(11, p, 3)

	assert.EqualValues(t, 11, it.OrderID)
	assert.EqualValues(t, 1, it.ProductID)
	assert.True(t, it.UnitPrice.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, it.Subtotal.Equal(decimal.RequireFromString("15.00")))

	// later catalog edits don't reach the stored line
	p.Price = decimal.RequireFromString("9.99")
	assert.True(t, it.UnitPrice.Equal(decimal.RequireFromString("5.00")))
}

func TestSubtotalIsExact(t *testing.T) {
	p := Product{ID: 2, Price: decimal.RequireFromString("0.10")}
	it := NewItem(1, p, 3)
	assert.Equal(t, "0.30", it.Subtotal.StringFixed(2))
	assert.True(t, it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(3))))
}

func TestItemsTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Subtotal: decimal.RequireFromString("15.00")},
		{Subtotal: decimal.RequireFromString("0.30")},
	}}
	assert.Equal(t, "15.30", o.ItemsTotal().StringFixed(2))
	assert.True(t, Order{}.ItemsTotal().IsZero())
}
