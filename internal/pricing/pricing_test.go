package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/pricing"
)

func TestValidate(t *testing.T) {
	t.Run("Should accept price above cost", func(t *testing.T) {
		err := pricing.Validate(decimal.NewFromFloat(19.99), decimal.NewFromFloat(12.50))
		assert.NoError(t, err)
	})

	t.Run("Should accept price equal to cost", func(t *testing.T) {
		err := pricing.Validate(decimal.NewFromInt(10), decimal.NewFromInt(10))
		assert.NoError(t, err)
	})

	t.Run("Should accept zero price and zero cost", func(t *testing.T) {
		err := pricing.Validate(decimal.Zero, decimal.Zero)
		assert.NoError(t, err)
	})

	t.Run("Should reject price below cost", func(t *testing.T) {
		err := pricing.Validate(decimal.NewFromFloat(9.99), decimal.NewFromInt(10))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInvalidPricing)
	})

	t.Run("Should reject negative price", func(t *testing.T) {
		err := pricing.Validate(decimal.NewFromInt(-1), decimal.Zero)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInvalidPricing)
	})

	t.Run("Should reject negative cost even when price covers it", func(t *testing.T) {
		err := pricing.Validate(decimal.NewFromInt(5), decimal.NewFromInt(-2))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInvalidPricing)
	})
}
