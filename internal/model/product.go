package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the authoritative catalog row for one sellable item.
//
// Invariants, enforced by the catalog write path: Price >= Cost, both
// non-negative, and QuantityOnHand never negative. QuantityOnHand is mutated
// only through catalog reserve/release/restock operations.
type Product struct {
	ID                uuid.UUID       `json:"id"`
	Sku               string          `json:"sku"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	QuantityOnHand    int             `json:"quantity_on_hand"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// UnitProfit is the margin for a single unit at current catalog pricing.
func (p Product) UnitProfit() decimal.Decimal {
	return p.Price.Sub(p.Cost)
}

// LowOnStock reports whether the product has fallen to or below its
// restock threshold.
func (p Product) LowOnStock() bool {
	return p.QuantityOnHand <= p.LowStockThreshold
}
