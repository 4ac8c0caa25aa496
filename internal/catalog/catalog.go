// Package catalog owns authoritative product stock and pricing. Reserve,
// release, restock and write are the only mutation points for
// quantity_on_hand; everything else reads.
package catalog

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

// Reservation is the token returned by a successful TryReserve. It records
// what was taken so the coordinator can roll it back, and it is consumed by
// its first Release: a second Release must not double-restore stock.
type Reservation struct {
	ProductID uuid.UUID
	Quantity  int

	// Remaining is the quantity on hand immediately after the deduction,
	// used for low-stock detection without another read.
	Remaining int

	// Product is the catalog row snapshotted in the same critical section as
	// the deduction, so price/cost cannot drift between reserve and commit.
	Product model.Product

	released atomic.Bool
}

// consume marks the reservation released. It returns false if the
// reservation was already consumed.
func (r *Reservation) consume() bool {
	return r.released.CompareAndSwap(false, true)
}

// unconsume reopens the reservation after a failed restore so the caller can
// retry the release.
func (r *Reservation) unconsume() {
	r.released.Store(false)
}

// Catalog is the product store contract the sale core depends on. Both
// reservations and releases on the same product are mutually exclusive with
// respect to each other; operations on different products proceed in
// parallel. TryReserve never blocks waiting for stock: it returns
// InsufficientStock immediately.
type Catalog interface {
	// Get returns the product or ProductNotFound.
	Get(ctx context.Context, id uuid.UUID) (model.Product, error)

	// TryReserve atomically checks quantity-on-hand and deducts in the same
	// critical section. Two concurrent reservations can never together
	// oversell a product.
	TryReserve(ctx context.Context, id uuid.UUID, quantity int) (*Reservation, error)

	// Release restores the reserved quantity. The reservation is consumed on
	// the first call; later calls return ReservationConsumed.
	Release(ctx context.Context, reservation *Reservation) error

	// Write updates descriptive fields, pricing and threshold after applying
	// the pricing policy. It never touches quantity_on_hand.
	Write(ctx context.Context, product model.Product) (model.Product, error)

	// Create adds a new product after applying the pricing policy.
	Create(ctx context.Context, product model.Product) (model.Product, error)

	// Restock adds quantity units (> 0) and returns the new level.
	Restock(ctx context.Context, id uuid.UUID, quantity int) (int, error)

	// List returns the full catalog ordered by SKU.
	List(ctx context.Context) ([]model.Product, error)
}
