package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLineItem is one requested cart line. It is ephemeral: on commit it is
// transformed into a SaleLineRecord with price and cost snapshotted from the
// catalog. Totals are never taken from the client.
type SaleLineItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// SaleRequest is the validated input the coordinator consumes. It arrives
// from the HTTP layer after authentication, which is not this service's
// concern.
type SaleRequest struct {
	Lines      []SaleLineItem  `json:"lines"`
	Discount   decimal.Decimal `json:"discount"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	CreatedBy  uuid.UUID       `json:"created_by"`
}

// SaleLineRecord is the persisted form of one sold line. ProductName,
// UnitPrice and UnitCost are snapshots taken at commit time; later catalog
// edits never change them.
type SaleLineRecord struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Profit      decimal.Decimal `json:"profit"`
}

// NewSaleLineRecord builds the snapshot line for a product sold at its
// current catalog price. Subtotal and profit are derived here and nowhere else.
func NewSaleLineRecord(product Product, quantity int) SaleLineRecord {
	qty := decimal.NewFromInt(int64(quantity))
	return SaleLineRecord{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		UnitCost:    product.Cost,
		Subtotal:    product.Price.Mul(qty),
		Profit:      product.Price.Sub(product.Cost).Mul(qty),
	}
}

// SaleRecord is the immutable result of a committed sale. It is created
// exactly once by the coordinator; corrections require a compensating
// reversal record, never a mutation.
type SaleRecord struct {
	ID            uuid.UUID        `json:"id"`
	InvoiceNumber string           `json:"invoice_number"`
	Lines         []SaleLineRecord `json:"lines"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Discount      decimal.Decimal  `json:"discount"`
	TotalCost     decimal.Decimal  `json:"total_cost"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	TotalProfit   decimal.Decimal  `json:"total_profit"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
}

// SalesSummary aggregates committed sales over a reporting window.
type SalesSummary struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	SaleCount int             `json:"sale_count"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
}
