package sale_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/catalog"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/sale"
)

func newUser() uuid.UUID {
	return uuid.New()
}

func seedProduct(t *testing.T, cat *catalog.MemoryCatalog, sku string, price, cost float64, quantity int) model.Product {
	t.Helper()

	product, err := cat.Create(context.Background(), model.Product{
		Sku:               sku,
		Name:              sku,
		Price:             decimal.NewFromFloat(price),
		Cost:              decimal.NewFromFloat(cost),
		QuantityOnHand:    quantity,
		LowStockThreshold: 2,
	})
	require.NoError(t, err)

	return product
}

func TestValidatorValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the products for a valid request", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		gadget := seedProduct(t, cat, "GADGET-1", 5.00, 3.00, 4)

		products, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{
				{ProductID: widget.ID, Quantity: 2},
				{ProductID: gadget.ID, Quantity: 4},
			},
		})
		require.NoError(t, err)

		require.Len(t, products, 2)
		assert.Equal(t, widget.Sku, products[widget.ID].Sku)
		assert.Equal(t, gadget.Sku, products[gadget.ID].Sku)
	})

	t.Run("Should reject an empty cart", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()

		_, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{})
		assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	})

	t.Run("Should reject non-positive line quantity", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)

		_, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{{ProductID: widget.ID, Quantity: 0}},
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
	})

	t.Run("Should reject a product listed twice", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)

		_, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{
				{ProductID: widget.ID, Quantity: 1},
				{ProductID: widget.ID, Quantity: 2},
			},
		})
		assert.ErrorIs(t, err, apperr.ErrDuplicateProduct)
	})

	t.Run("Should reject an unknown product", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()

		_, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{{ProductID: uuid.New(), Quantity: 1}},
		})
		assert.ErrorIs(t, err, apperr.ErrProductNotFound)
	})

	t.Run("Should reject quantities beyond stock on hand", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 3)

		_, err := sale.NewValidator(cat).Validate(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{{ProductID: widget.ID, Quantity: 4}},
		})
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	})
}
