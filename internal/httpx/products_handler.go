package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error)
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch orders.ProductPatch) (orders.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type ProductsHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

type CreateProductReq struct {
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Patch("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid_json", "request body must be a JSON object")
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), orders.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "product id must be a positive integer")
		return
	}
	p, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "product id must be a positive integer")
		return
	}
	var patch orders.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		badRequest(w, "invalid_json", "request body must be a JSON object")
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid_id", "product id must be a positive integer")
		return
	}
	if err := h.Catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
