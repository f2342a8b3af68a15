package orders

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlacement(t *testing.T) {
	ok := []ItemInput{{ProductID: 1, Quantity: 1}}
	tests := []struct {
		name  string
		cust  string
		items []ItemInput
		field string
	}{
		{"empty name", "", ok, "customer_name"},
		{"blank name", "   ", ok, "customer_name"},
		{"long name", strings.Repeat("a", 256), ok, "customer_name"},
		{"no items", "Alice", nil, "items"},
		{"zero quantity", "Alice", []ItemInput{{ProductID: 1, Quantity: 0}}, "items.0.quantity"},
		{"negative quantity", "Alice", []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: -2}}, "items.1.quantity"},
		{"missing product", "Alice", []ItemInput{{Quantity: 1}}, "items.0.product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlacement(tt.cust, tt.items)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, KindValidation, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
	assert.NoError(t, ValidatePlacement("Alice", ok))
}

func TestNameLengthCountsCharacters(t *testing.T) {
	ok := []ItemInput{{ProductID: 1, Quantity: 1}}
	// 255 karakter multibyte = 765 byte
	name := strings.Repeat("é", 255)
	assert.NoError(t, ValidatePlacement(name, ok))
	assert.NoError(t, ValidatePlacement("  "+name+"  ", ok), "surrounding spaces are not counted")
	assert.ErrorIs(t, ValidatePlacement(name+"é", ok), ErrValidation)

	p := Product{Name: name, SKU: "W-1", Price: decimal.NewFromInt(1)}
	assert.NoError(t, ValidateProduct(p))
	p.Name += "日"
	assert.ErrorIs(t, ValidateProduct(p), ErrValidation)
}

func TestValidateProductColumnBounds(t *testing.T) {
	good := Product{Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("1.50")}
	tests := []struct {
		name  string
		edit  func(*Product)
		field string
	}{
		{"three decimals", func(p *Product) { p.Price = decimal.RequireFromString("1.005") }, "price"},
		{"price too large", func(p *Product) { p.Price = MaxPrice.Add(decimal.RequireFromString("0.01")) }, "price"},
		{"stock too large", func(p *Product) { p.StockQuantity = MaxStock + 1 }, "stock_quantity"},
		{"long sku", func(p *Product) { p.SKU = strings.Repeat("s", 256) }, "sku"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.edit(&p)
			var e *Error
			require.ErrorAs(t, ValidateProduct(p), &e)
			assert.Equal(t, tt.field, e.Field)
		})
	}

	edge := good
	edge.Price = MaxPrice
	edge.StockQuantity = MaxStock
	assert.NoError(t, ValidateProduct(edge))
	edge.Price = decimal.RequireFromString("2.500")
	assert.NoError(t, ValidateProduct(edge), "trailing zeros do not add scale")
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount("total_amount", MaxAmount))
	var e *Error
	require.ErrorAs(t, ValidateAmount("total_amount", MaxAmount.Add(decimal.New(1, -2))), &e)
	assert.Equal(t, "total_amount", e.Field)
}

func TestValidateProduct(t *testing.T) {
	good := Product{Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("1.50"), StockQuantity: 0}
	require.NoError(t, ValidateProduct(good))

	bad := good
	bad.Price = decimal.RequireFromString("-0.01")
	assert.ErrorIs(t, ValidateProduct(bad), ErrValidation)

	bad = good
	bad.StockQuantity = -1
	assert.ErrorIs(t, ValidateProduct(bad), ErrValidation)

	bad = good
	bad.SKU = " "
	assert.ErrorIs(t, ValidateProduct(bad), ErrValidation)
}
