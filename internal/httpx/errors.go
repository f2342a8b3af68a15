package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"go.uber.org/zap"
)

type errorResp struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	OrderID   int64  `json:"order_id,omitempty"`
}

func statusFor(k orders.Kind) int {
	switch k {
	case orders.KindValidation:
		return http.StatusUnprocessableEntity
	case orders.KindProductNotFound, orders.KindOrderNotFound:
		return http.StatusNotFound
	case orders.KindInsufficientStock, orders.KindAlreadyCancelled, orders.KindInvalidTransition:
		return http.StatusConflict
	case orders.KindTransientConflict:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders a classified error; anything unclassified becomes a 500
// without leaking internals.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var e *orders.Error
	if !errors.As(err, &e) {
		log.Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal", Message: "internal server error"})
		return
	}
	if e.Kind == orders.KindTransientConflict {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, statusFor(e.Kind), errorResp{
		Error:     e.Kind.String(),
		Message:   e.Msg,
		Field:     e.Field,
		ProductID: e.ProductID,
		OrderID:   e.OrderID,
	})
}

func badRequest(w http.ResponseWriter, code, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: code, Message: msg})
}
