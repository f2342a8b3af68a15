package orders

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindProductNotFound
	KindInsufficientStock
	KindAlreadyCancelled
	KindInvalidTransition
	KindOrderNotFound
	KindTransientConflict
)

var kindNames = map[Kind]string{
	KindUnknown:           "internal",
	KindValidation:        "validation_error",
	KindProductNotFound:   "product_not_found",
	KindInsufficientStock: "insufficient_stock",
	KindAlreadyCancelled:  "already_cancelled",
	KindInvalidTransition: "invalid_transition",
	KindOrderNotFound:     "order_not_found",
	KindTransientConflict: "transient_conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrNotFound is returned by stores for a missing row. The engine turns it into
// a classified error.
var ErrNotFound = errors.New("row not found")

// Error is the classified failure returned across the checkout boundary.
type Error struct {
	Kind      Kind
	OrderID   int64
	ProductID int64
	Field     string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Field != "":
		msg = e.Field + ": " + msg
	case e.ProductID != 0:
		msg = fmt.Sprintf("%s (product %d)", msg, e.ProductID)
	case e.OrderID != 0:
		msg = fmt.Sprintf("%s (order %d)", msg, e.OrderID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrProductNotFound   = &Error{Kind: KindProductNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrAlreadyCancelled  = &Error{Kind: KindAlreadyCancelled}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrOrderNotFound     = &Error{Kind: KindOrderNotFound}
	ErrTransientConflict = &Error{Kind: KindTransientConflict}
)

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func ProductNotFound(productID int64) *Error {
	return &Error{Kind: KindProductNotFound, ProductID: productID, Msg: "product not found"}
}

func OrderNotFound(orderID int64) *Error {
	return &Error{Kind: KindOrderNotFound, OrderID: orderID, Msg: "order not found"}
}

func InsufficientStock(productID int64, required, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		ProductID: productID,
		Msg:       fmt.Sprintf("insufficient stock: required %d, available %d", required, available),
	}
}

func TransientConflict(err error) *Error {
	return &Error{Kind: KindTransientConflict, Msg: "transaction conflict", Err: err}
}
