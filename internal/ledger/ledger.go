// Package ledger persists finalized sale records. The ledger is append-only:
// no update or delete is exposed, and a persisted record is either fully
// visible with all its lines or not visible at all.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

// LowStockAlert describes a product a committed sale pushed to or below its
// threshold. Alerts ride in the same transaction as the record so they are
// never raised for a sale that did not happen.
type LowStockAlert struct {
	ProductID uuid.UUID `json:"product_id"`
	Sku       string    `json:"sku"`
	Name      string    `json:"name"`
	Remaining int       `json:"remaining"`
	Threshold int       `json:"threshold"`
}

// Writer persists committed sale records.
type Writer interface {
	// Persist writes the record atomically, together with any low-stock
	// alerts the sale caused. A failure leaves no trace of the record.
	Persist(ctx context.Context, record model.SaleRecord, alerts []LowStockAlert) error
}

type ListParams struct {
	From   *time.Time
	To     *time.Time
	Limit  int32
	Offset int32
}

// Reader queries committed records.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (model.SaleRecord, error)
	List(ctx context.Context, params ListParams) ([]model.SaleRecord, error)
	Summarize(ctx context.Context, from, to time.Time) (model.SalesSummary, error)
}

// Store is the full ledger surface.
type Store interface {
	Writer
	Reader
}
