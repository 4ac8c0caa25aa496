package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/storage/db"
)

// stubRow plays the RETURNING row of an insert or update.
type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *string:
			*d = v.(string)
		case *pgtype.Numeric:
			*d = v.(pgtype.Numeric)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		}
	}
	return nil
}

type stubDB struct {
	row pgx.Row
}

func (s stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (s stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return s.row
}

func (s stubDB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	return txFunc(s)
}

func mustNumeric(t *testing.T, value string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	require.NoError(t, n.Scan(value))
	return n
}

func TestProductRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the stored row, not the input", func(t *testing.T) {
		id := uuid.New()
		now := time.Now().Truncate(time.Second)
		// The table stores NUMERIC(12,2), so an over-precise price comes back
		// rounded.
		repo := NewProductRepository(stubDB{row: stubRow{values: []any{
			id, "WIDGET-1", "Widget", "widgets",
			mustNumeric(t, "20.00"), mustNumeric(t, "12.50"),
			10, 2, now, now,
		}}})

		created, err := repo.CreateProduct(ctx, model.Product{
			ID:    id,
			Sku:   "WIDGET-1",
			Name:  "Widget",
			Price: decimal.RequireFromString("19.999"),
			Cost:  decimal.NewFromFloat(12.50),
		})
		require.NoError(t, err)
		assert.True(t, created.Price.Equal(decimal.RequireFromString("20.00")),
			"expected the rounded stored price, got %s", created.Price)
		assert.Equal(t, 10, created.QuantityOnHand)
		assert.Equal(t, now, created.CreatedAt)
	})

	t.Run("Should report a unique violation as a duplicate key", func(t *testing.T) {
		repo := NewProductRepository(stubDB{row: stubRow{
			err: &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"},
		}})

		_, err := repo.CreateProduct(ctx, model.Product{
			Sku:   "WIDGET-1",
			Name:  "Widget",
			Price: decimal.NewFromFloat(19.99),
			Cost:  decimal.NewFromFloat(12.50),
		})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})
}
