package zerror_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/sale-ledger/pkg/zerror"
)

func TestZError(t *testing.T) {
	t.Parallel()

	base := zerror.NewConflict("INSUFFICIENT_STOCK", "insufficient stock")

	t.Run("Should keep matching the predefined error after WithMsg", func(t *testing.T) {
		t.Parallel()

		err := base.WithMsg("insufficient stock for WIDGET-1")

		assert.ErrorIs(t, err, base)
		assert.Equal(t, "insufficient stock for WIDGET-1", err.Msg())
		assert.Equal(t, zerror.StatusConflict, err.Status())
	})

	t.Run("Should unwrap to the wrapped parent", func(t *testing.T) {
		t.Parallel()

		parent := errors.New("row locked")
		err := base.WrapParent(parent)

		assert.ErrorIs(t, err, parent)
		assert.ErrorIs(t, err, base)
		assert.Equal(t, parent, err.Parent())
	})

	t.Run("Should not match a ZError with a different code", func(t *testing.T) {
		t.Parallel()

		other := zerror.NewConflict("DUPLICATE_SKU", "sku already exists")

		assert.NotErrorIs(t, base, other)
	})

	t.Run("Should not modify the original on copy", func(t *testing.T) {
		t.Parallel()

		_ = base.WithMsg("changed").WrapParent(errors.New("boom"))

		assert.Equal(t, "insufficient stock", base.Msg())
		assert.Nil(t, base.Parent())
	})
}
