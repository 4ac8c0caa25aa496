package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/ledger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/pkg/ptr"
)

func newRecord(t *testing.T, createdAt time.Time) model.SaleRecord {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	return model.SaleRecord{
		ID:            id,
		InvoiceNumber: fmt.Sprintf("INV-%d-TEST", createdAt.UnixMilli()),
		Lines: []model.SaleLineRecord{{
			ProductID:   uuid.New(),
			ProductName: "Widget",
			Quantity:    2,
			UnitPrice:   decimal.NewFromFloat(19.99),
			UnitCost:    decimal.NewFromFloat(12.50),
			Subtotal:    decimal.NewFromFloat(39.98),
			Profit:      decimal.NewFromFloat(14.98),
		}},
		Subtotal:    decimal.NewFromFloat(39.98),
		Discount:    decimal.Zero,
		TotalCost:   decimal.NewFromFloat(25.00),
		GrandTotal:  decimal.NewFromFloat(39.98),
		TotalProfit: decimal.NewFromFloat(14.98),
		CreatedBy:   uuid.New(),
		CreatedAt:   createdAt,
	}
}

func TestMemoryStorePersist(t *testing.T) {
	ctx := context.Background()

	t.Run("Should persist and fetch a record", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		record := newRecord(t, time.Now())

		require.NoError(t, store.Persist(ctx, record, nil))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.InvoiceNumber, got.InvoiceNumber)
		require.Len(t, got.Lines, 1)
	})

	t.Run("Should reject persisting the same record twice", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		record := newRecord(t, time.Now())

		require.NoError(t, store.Persist(ctx, record, nil))
		assert.Error(t, store.Persist(ctx, record, nil))
	})

	t.Run("Should return not found for an unknown sale", func(t *testing.T) {
		store := ledger.NewMemoryStore()

		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrSaleNotFound)
	})

	t.Run("Should keep alerts alongside their record", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		record := newRecord(t, time.Now())
		alert := ledger.LowStockAlert{
			ProductID: record.Lines[0].ProductID,
			Sku:       "WIDGET-1",
			Name:      "Widget",
			Remaining: 1,
			Threshold: 2,
		}

		require.NoError(t, store.Persist(ctx, record, []ledger.LowStockAlert{alert}))

		alerts := store.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, alert, alerts[0])
	})

	t.Run("Should not expose stored lines to caller mutation", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		record := newRecord(t, time.Now())
		require.NoError(t, store.Persist(ctx, record, nil))

		got, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		got.Lines[0].Quantity = 999
		got.Lines[0].ProductName = "Tampered"

		listed, err := store.List(ctx, ledger.ListParams{})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		listed[0].Lines[0].Quantity = 777

		fresh, err := store.Get(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, fresh.Lines[0].Quantity)
		assert.Equal(t, "Widget", fresh.Lines[0].ProductName)
	})
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) (*ledger.MemoryStore, []model.SaleRecord) {
		t.Helper()
		store := ledger.NewMemoryStore()
		records := make([]model.SaleRecord, 5)
		for i := range records {
			records[i] = newRecord(t, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, store.Persist(ctx, records[i], nil))
		}
		return store, records
	}

	t.Run("Should list newest first", func(t *testing.T) {
		store, records := seed(t)

		got, err := store.List(ctx, ledger.ListParams{})
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, records[4].ID, got[0].ID)
		assert.Equal(t, records[0].ID, got[4].ID)
	})

	t.Run("Should apply limit and offset", func(t *testing.T) {
		store, records := seed(t)

		got, err := store.List(ctx, ledger.ListParams{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, records[3].ID, got[0].ID)
		assert.Equal(t, records[2].ID, got[1].ID)
	})

	t.Run("Should filter by time window", func(t *testing.T) {
		store, records := seed(t)

		got, err := store.List(ctx, ledger.ListParams{
			From: ptr.New(base.Add(time.Hour)),
			To:   ptr.New(base.Add(3 * time.Hour)),
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, records[2].ID, got[0].ID)
		assert.Equal(t, records[1].ID, got[1].ID)
	})

	t.Run("Should return empty page past the end", func(t *testing.T) {
		store, _ := seed(t)

		got, err := store.List(ctx, ledger.ListParams{Offset: 50})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStoreSummarize(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)

	t.Run("Should aggregate records inside the window", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		inside := newRecord(t, base.Add(10*time.Hour))
		outside := newRecord(t, base.Add(30*time.Hour))
		require.NoError(t, store.Persist(ctx, inside, nil))
		require.NoError(t, store.Persist(ctx, outside, nil))

		summary, err := store.Summarize(ctx, base, base.Add(24*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, 1, summary.SaleCount)
		assert.True(t, summary.Revenue.Equal(inside.GrandTotal))
		assert.True(t, summary.Cost.Equal(inside.TotalCost))
		assert.True(t, summary.Profit.Equal(inside.TotalProfit))
	})

	t.Run("Should return a zeroed summary for an empty window", func(t *testing.T) {
		store := ledger.NewMemoryStore()

		summary, err := store.Summarize(ctx, base, base.Add(24*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, 0, summary.SaleCount)
		assert.True(t, summary.Revenue.IsZero())
	})
}
