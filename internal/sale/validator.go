package sale

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/catalog"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

// Validator runs the pre-flight checks on a sale request so obviously broken
// carts fail fast, before any stock is touched. It is advisory by design:
// stock can drain between validation and reservation, so the catalog
// re-checks availability inside TryReserve. A request listing the same
// product twice is rejected rather than merged; merging would silently
// change what the client asked for.
type Validator struct {
	catalog catalog.Catalog
}

func NewValidator(catalog catalog.Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate checks the request lines against the catalog. On success it
// returns the products it read, keyed by id, so the caller can reuse them
// without another round of lookups.
func (v *Validator) Validate(ctx context.Context, req model.SaleRequest) (map[uuid.UUID]model.Product, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.ErrEmptyCart
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Lines))
	products := make(map[uuid.UUID]model.Product, len(req.Lines))

	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, apperr.ErrInvalidQuantity.WithMsg(fmt.Sprintf(
				"product %s: quantity %d must be at least 1", line.ProductID, line.Quantity))
		}

		if _, dup := seen[line.ProductID]; dup {
			return nil, apperr.ErrDuplicateProduct.WithMsg(fmt.Sprintf(
				"product %s listed more than once", line.ProductID))
		}
		seen[line.ProductID] = struct{}{}

		product, err := v.catalog.Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if product.QuantityOnHand < line.Quantity {
			return nil, apperr.ErrInsufficientStock.WithMsg(fmt.Sprintf(
				"product %s has %d on hand, requested %d",
				line.ProductID, product.QuantityOnHand, line.Quantity))
		}

		products[line.ProductID] = product
	}

	return products, nil
}
