package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/ledger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type saleHandler struct {
	svc *Service
}

func newSaleHandler(svc *Service) *saleHandler {
	return &saleHandler{svc: svc}
}

type saleLineItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type createSaleRequest struct {
	Lines      []saleLineItemRequest `json:"lines" validate:"required,min=1,dive"`
	Discount   decimal.Decimal       `json:"discount" validate:"money"`
	CustomerID *uuid.UUID            `json:"customer_id"`
	CreatedBy  uuid.UUID             `json:"created_by" validate:"required"`
}

type listSalesResponse struct {
	Items  []model.SaleRecord `json:"items"`
	Limit  int32              `json:"limit"`
	Offset int32              `json:"offset"`
}

func (h *saleHandler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := h.svc.decodeAndValidate(r, &req); err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	lines := make([]model.SaleLineItem, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = model.SaleLineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}

	record, err := h.svc.coordinator.Commit(r.Context(), model.SaleRequest{
		Lines:      lines,
		Discount:   req.Discount,
		CustomerID: req.CustomerID,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusCreated, record)
}

func (h *saleHandler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamUUID(r, "saleID")
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	record, err := h.svc.ledger.Get(r.Context(), id)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, record)
}

func (h *saleHandler) listSales(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	records, err := h.svc.ledger.List(r.Context(), params)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, listSalesResponse{
		Items:  records,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (h *saleHandler) dailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.svc.handleResponseError(w, r, apperr.ValidationErr.WrapParent(err).
				WithMsg("date must be formatted as YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	summary, err := h.svc.ledger.Summarize(r.Context(), from, to)
	if err != nil {
		h.svc.handleResponseError(w, r, err)
		return
	}

	h.svc.respondJSON(w, r, http.StatusOK, summary)
}

func parseListParams(r *http.Request) (ledger.ListParams, error) {
	params := ledger.ListParams{Limit: defaultPageLimit}
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, apperr.ValidationErr.WrapParent(err).
				WithMsg("from must be an RFC 3339 timestamp")
		}
		params.From = &from
	}

	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, apperr.ValidationErr.WrapParent(err).
				WithMsg("to must be an RFC 3339 timestamp")
		}
		params.To = &to
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return params, apperr.ValidationErr.
				WithMsg("limit must be an integer between 1 and 100")
		}
		params.Limit = int32(limit)
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || offset < 0 {
			return params, apperr.ValidationErr.
				WithMsg("offset must be a non-negative integer")
		}
		params.Offset = int32(offset)
	}

	return params, nil
}
