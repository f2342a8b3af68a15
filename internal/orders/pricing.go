package orders

import "github.com/shopspring/decimal"

// UnitPrice is the price snapshot taken for a new order line. The result is
// persisted on the item and never recomputed.
func UnitPrice(p Product) decimal.Decimal {
	return p.Price
}

// NewItem snapshots the product price and derives the subtotal.
func NewItem(orderID int64, p Product, qty int) OrderItem {
	price := UnitPrice(p)
	return OrderItem{
		OrderID:   orderID,
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(qty))),
	}
}
