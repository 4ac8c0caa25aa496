package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

type productHandler struct {
	svc *Service
}

func newProductHandler(svc *Service) *productHandler {
	return &productHandler{svc: svc}
}

type createProductRequest struct {
	Sku               string          `json:"sku" validate:"required,sku"`
	Name              string          `json:"name" validate:"required"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price" validate:"money"`
	Cost              decimal.Decimal `json:"cost" validate:"money"`
	QuantityOnHand    int             `json:"quantity_on_hand" validate:"gte=0"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0"`
}

type updateProductRequest struct {
	Sku               string          `json:"sku" validate:"required,sku"`
	Name              string          `json:"name" validate:"required"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price" validate:"money"`
	Cost              decimal.Decimal `json:"cost" validate:"money"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0"`
}

type restockProductRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type restockProductResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	QuantityOnHand int       `json:"quantity_on_hand"`
}

func (h *productHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.catalog.List(r.Context())
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, products)
}

func (h *productHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := h.svc.decodeAndValidate(r, &req); err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	product, err := h.svc.catalog.Create(r.Context(), model.Product{
		Sku:               req.Sku,
		Name:              req.Name,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		QuantityOnHand:    req.QuantityOnHand,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusCreated, product)
}

func (h *productHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUUID(r, "productID")
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	product, err := h.svc.catalog.Get(r.Context(), id)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, product)
}

func (h *productHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUUID(r, "productID")
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	var req updateProductRequest
	if err := h.svc.decodeAndValidate(r, &req); err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	product, err := h.svc.catalog.Write(r.Context(), model.Product{
		ID:                id,
		Sku:               req.Sku,
		Name:              req.Name,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, product)
}

func (h *productHandler) restockProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUUID(r, "productID")
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	var req restockProductRequest
	if err := h.svc.decodeAndValidate(r, &req); err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	remaining, err := h.svc.catalog.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, restockProductResponse{
		ProductID:      id,
		QuantityOnHand: remaining,
	})
}

func urlParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.ValidationErr.WrapParent(err).
			WithMsg(name + " must be a valid UUID")
	}
	return id, nil
}
