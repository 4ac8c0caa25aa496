// Package pricing holds the catalog pricing policy: a price may never fall
// below cost, and neither may be negative. The catalog applies it on every
// write; the coordinator never needs it because sale prices are snapshots of
// already-validated catalog rows.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
)

// Validate checks a proposed price/cost pair. It returns ErrInvalidPricing
// when cost exceeds price or either value is negative.
func Validate(price, cost decimal.Decimal) error {
	if price.IsNegative() || cost.IsNegative() {
		return apperr.ErrInvalidPricing.WithMsg(
			fmt.Sprintf("price %s and cost %s must be non-negative", price, cost))
	}

	if price.LessThan(cost) {
		return apperr.ErrInvalidPricing.WithMsg(
			fmt.Sprintf("price %s is below cost %s", price, cost))
	}

	return nil
}
