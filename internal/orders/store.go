package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusStamp is an order's status with the updated_at of the write that set it.
type StatusStamp struct {
	Status    Status
	UpdatedAt time.Time
}

// Store is the persistence boundary. Every mutation of stock or order status
// runs inside InTx; fn's error rolls the whole transaction back.
type Store interface {
	Catalog
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrderStatus(ctx context.Context, id int64) (StatusStamp, error)
}

// Tx is a transaction scope. Locks taken through it are held until the
// enclosing InTx returns.
type Tx interface {
	// LockProduct takes the exclusive row lock and returns the committed row,
	// or ErrNotFound.
	LockProduct(ctx context.Context, id int64) (Product, error)
	// SetProductStock requires the row to be locked by this transaction.
	SetProductStock(ctx context.Context, id int64, stock int) error

	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItem(ctx context.Context, it *OrderItem) error
	// SetOrderTotal and SetOrderStatus return the new updated_at. It strictly
	// increases per order row, so it orders the events of one order.
	SetOrderTotal(ctx context.Context, id int64, total decimal.Decimal) (time.Time, error)

	// LockOrder takes the exclusive order row lock and returns the order with
	// its items, or ErrNotFound.
	LockOrder(ctx context.Context, id int64) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, s Status) (time.Time, error)
}

// Catalog covers product CRUD. Writes take the product row lock, so they
// serialize with order transactions.
type Catalog interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}
