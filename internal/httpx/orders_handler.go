package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, customerName string, items []orders.ItemInput) (orders.Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, target orders.Status) (orders.Order, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	ListOrders(ctx context.Context) ([]orders.Order, error)
	GetOrderStatus(ctx context.Context, id int64) (orders.StatusStamp, error)
}

type StatusCache interface {
	GetStatus(ctx context.Context, orderID int64) (redisx.StatusEntry, error)
	SetStatus(ctx context.Context, orderID int64, e redisx.StatusEntry) error
	InvalidateStatus(ctx context.Context, orderID int64) error
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (orderID int64, fresh bool, err error)
	Complete(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}

// OrdersHandler serves the order endpoints. Cache and Idem are optional.
type OrdersHandler struct {
	Orders OrderService
	Cache  StatusCache
	Idem   IdempotencyStore
	Log    *zap.Logger
}

type CreateOrderReq struct {
	CustomerName string             `json:"customer_name"`
	Items        []orders.ItemInput `json:"items"`
}

type CreateOrderResp struct {
	orders.Order
	Idempotent bool `json:"idempotent"`
}

type UpdateOrderReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_json", "request body must be a JSON object")
		return
	}

	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Idem != nil {
		existing, fresh, err := h.Idem.Reserve(ctx, idemKey)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeJSON(w, http.StatusConflict, errorResp{Error: "request_in_progress", Message: err.Error()})
			return
		case err != nil:
			// Redis down: proceed without the shortcut, DB tetap jadi kebenaran
			h.Log.Warn("idempotency reserve", zap.Error(err))
			idemKey = ""
		case !fresh:
			o, err := h.Orders.GetOrder(ctx, existing)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, CreateOrderResp{Order: o, Idempotent: true})
			return
		}
	} else {
		idemKey = ""
	}

	o, err := h.Orders.PlaceOrder(ctx, req.CustomerName, req.Items)
	if err != nil {
		if idemKey != "" {
			_ = h.Idem.Release(ctx, idemKey)
		}
		writeError(w, h.Log, err)
		return
	}
	if idemKey != "" {
		if err := h.Idem.Complete(ctx, idemKey, o.ID); err != nil {
			h.Log.Warn("idempotency complete", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{Order: o})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "order id must be a positive integer")
		return
	}
	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "order id must be a positive integer")
		return
	}
	var req UpdateOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_json", "request body must be a JSON object")
		return
	}
	target, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	o, err := h.Orders.SetOrderStatus(r.Context(), id, target)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.InvalidateStatus(r.Context(), id); err != nil {
			h.Log.Warn("invalidate status cache", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus: coba cache dulu, fallback DB.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "order id must be a positive integer")
		return
	}
	ctx := r.Context()
	if h.Cache != nil {
		if e, err := h.Cache.GetStatus(ctx, id); err == nil {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}

	st, err := h.Orders.GetOrderStatus(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	// stamped with the row's updated_at, so a newer event still wins
	e := redisx.StatusEntry{Status: st.Status, UpdatedAt: st.UpdatedAt.UTC()}
	if h.Cache != nil {
		_ = h.Cache.SetStatus(ctx, id, e)
	}
	writeJSON(w, http.StatusOK, e)
}
