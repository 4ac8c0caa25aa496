package sale_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/catalog"
	"github.com/tuanvumaihuynh/sale-ledger/internal/config"
	"github.com/tuanvumaihuynh/sale-ledger/internal/ledger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/sale"
)

var testLedgerCfg = config.Ledger{PersistTimeout: time.Second}

func newTestCoordinator(cat catalog.Catalog, store ledger.Writer, cfg config.Ledger) *sale.Coordinator {
	return sale.NewCoordinator(slog.New(slog.DiscardHandler), cat, store, cfg)
}

// failingWriter rejects every persist with a fixed error.
type failingWriter struct{ err error }

func (w failingWriter) Persist(context.Context, model.SaleRecord, []ledger.LowStockAlert) error {
	return w.err
}

// staleReadCatalog inflates the reported stock of one product on reads,
// simulating stock draining between the validation read and the reservation.
type staleReadCatalog struct {
	catalog.Catalog
	inflate uuid.UUID
}

func (c staleReadCatalog) Get(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := c.Catalog.Get(ctx, id)
	if err == nil && id == c.inflate {
		product.QuantityOnHand += 100
	}
	return product, err
}

// stalledWriter blocks until the persist context expires.
type stalledWriter struct{}

func (stalledWriter) Persist(ctx context.Context, _ model.SaleRecord, _ []ledger.LowStockAlert) error {
	<-ctx.Done()
	return ctx.Err()
}

func quantityOnHand(t *testing.T, cat catalog.Catalog, product model.Product) int {
	t.Helper()
	got, err := cat.Get(context.Background(), product.ID)
	require.NoError(t, err)
	return got.QuantityOnHand
}

func TestCoordinatorCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should commit a sale and compute all totals from snapshots", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		gadget := seedProduct(t, cat, "GADGET-1", 5.00, 3.00, 8)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		record, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{
				{ProductID: widget.ID, Quantity: 2},
				{ProductID: gadget.ID, Quantity: 4},
			},
			Discount:  decimal.NewFromInt(10),
			CreatedBy: newUser(),
		})
		require.NoError(t, err)

		assert.True(t, record.Subtotal.Equal(decimal.NewFromFloat(59.98)), record.Subtotal.String())
		assert.True(t, record.GrandTotal.Equal(decimal.NewFromFloat(49.98)), record.GrandTotal.String())
		assert.True(t, record.TotalCost.Equal(decimal.NewFromFloat(37.00)), record.TotalCost.String())
		assert.True(t, record.TotalProfit.Equal(decimal.NewFromFloat(12.98)), record.TotalProfit.String())

		assert.Equal(t, 8, quantityOnHand(t, cat, widget))
		assert.Equal(t, 4, quantityOnHand(t, cat, gadget))

		persisted, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.InvoiceNumber, persisted.InvoiceNumber)
		assert.Regexp(t, `^INV-\d+-[0-9A-F]{8}$`, record.InvoiceNumber)
	})

	t.Run("Should keep record lines in request order", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		first := seedProduct(t, cat, "B-PRODUCT", 2.00, 1.00, 5)
		second := seedProduct(t, cat, "A-PRODUCT", 3.00, 1.00, 5)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		record, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{
				{ProductID: second.ID, Quantity: 1},
				{ProductID: first.ID, Quantity: 1},
			},
			CreatedBy: newUser(),
		})
		require.NoError(t, err)

		require.Len(t, record.Lines, 2)
		assert.Equal(t, second.ID, record.Lines[0].ProductID)
		assert.Equal(t, first.ID, record.Lines[1].ProductID)
	})

	t.Run("Should release earlier reservations when a later line lacks stock", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		// Created first so its v7 id sorts first and it is reserved first.
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		gadget := seedProduct(t, cat, "GADGET-1", 5.00, 3.00, 0)
		store := ledger.NewMemoryStore()
		// Validation sees stale gadget availability; the reservation is the
		// authoritative check and fails.
		coordinator := newTestCoordinator(staleReadCatalog{Catalog: cat, inflate: gadget.ID}, store, testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines: []model.SaleLineItem{
				{ProductID: widget.ID, Quantity: 2},
				{ProductID: gadget.ID, Quantity: 1},
			},
			CreatedBy: newUser(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

		assert.Equal(t, 10, quantityOnHand(t, cat, widget), "reserved stock must come back")
		records, err := store.List(ctx, ledger.ListParams{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Should reject an oversized discount before touching stock", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			Discount:  decimal.NewFromInt(100),
			CreatedBy: newUser(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInvalidDiscount)

		assert.Equal(t, 10, quantityOnHand(t, cat, widget))
	})

	t.Run("Should reject a negative discount", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		coordinator := newTestCoordinator(cat, ledger.NewMemoryStore(), testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			Discount:  decimal.NewFromInt(-1),
			CreatedBy: newUser(),
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidDiscount)
	})

	t.Run("Should roll stock back when the ledger rejects the record", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		coordinator := newTestCoordinator(cat, failingWriter{err: errors.New("disk full")}, testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 4}},
			CreatedBy: newUser(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrStorage)

		assert.Equal(t, 10, quantityOnHand(t, cat, widget))
	})

	t.Run("Should time out a stalled persist and roll stock back", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		coordinator := newTestCoordinator(cat, stalledWriter{}, config.Ledger{
			PersistTimeout: 20 * time.Millisecond,
		})

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			CreatedBy: newUser(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrPersistTimeout)

		assert.Equal(t, 10, quantityOnHand(t, cat, widget))
	})

	t.Run("Should keep committed records immune to later catalog edits", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		record, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			CreatedBy: newUser(),
		})
		require.NoError(t, err)

		widget.Price = decimal.NewFromInt(99)
		widget.Cost = decimal.NewFromInt(50)
		_, err = cat.Write(ctx, widget)
		require.NoError(t, err)

		persisted, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, persisted.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(19.99)))
		assert.True(t, persisted.Lines[0].UnitCost.Equal(decimal.NewFromFloat(12.50)))
	})

	t.Run("Should raise a low stock alert when the sale crosses the threshold", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 3)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			CreatedBy: newUser(),
		})
		require.NoError(t, err)

		alerts := store.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, widget.ID, alerts[0].ProductID)
		assert.Equal(t, 2, alerts[0].Remaining)
		assert.Equal(t, 2, alerts[0].Threshold)
	})

	t.Run("Should not raise alerts while stock stays above the threshold", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 10)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		_, err := coordinator.Commit(ctx, model.SaleRequest{
			Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: 1}},
			CreatedBy: newUser(),
		})
		require.NoError(t, err)

		assert.Empty(t, store.Alerts())
	})

	t.Run("Should commit exactly one of two sales overcommitting the stock", func(t *testing.T) {
		cat := catalog.NewMemoryCatalog()
		widget := seedProduct(t, cat, "WIDGET-1", 19.99, 12.50, 5)
		store := ledger.NewMemoryStore()
		coordinator := newTestCoordinator(cat, store, testLedgerCfg)

		// 3 + 4 > 5 on hand: only one request can win.
		quantities := []int{3, 4}
		errs := make([]error, len(quantities))
		var wg sync.WaitGroup
		for i, quantity := range quantities {
			wg.Go(func() {
				_, errs[i] = coordinator.Commit(ctx, model.SaleRequest{
					Lines:     []model.SaleLineItem{{ProductID: widget.ID, Quantity: quantity}},
					CreatedBy: newUser(),
				})
			})
		}
		wg.Wait()

		sold := 0
		for i, err := range errs {
			if err == nil {
				sold += quantities[i]
			} else {
				assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
			}
		}
		require.Contains(t, []int{3, 4}, sold, "exactly one sale must commit")

		assert.Equal(t, 5-sold, quantityOnHand(t, cat, widget),
			"stock must reflect only the winning sale")
		records, err := store.List(ctx, ledger.ListParams{})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}
