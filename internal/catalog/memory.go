package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/pricing"
)

var _ Catalog = (*MemoryCatalog)(nil)

// MemoryCatalog keeps the catalog in process memory. Each product has its own
// mutex, so reservations on different products proceed in parallel while
// reservations on the same product are mutually exclusive; there is no
// catalog-wide lock on the hot path. Used by tests and embedded setups.
type MemoryCatalog struct {
	mu    sync.RWMutex // guards the map itself, not the slots
	slots map[uuid.UUID]*productSlot
}

type productSlot struct {
	mu      sync.Mutex
	product model.Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{slots: map[uuid.UUID]*productSlot{}}
}

func (c *MemoryCatalog) slot(id uuid.UUID) (*productSlot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot, ok := c.slots[id]
	return slot, ok
}

func (c *MemoryCatalog) Get(_ context.Context, id uuid.UUID) (model.Product, error) {
	slot, ok := c.slot(id)
	if !ok {
		return model.Product{}, apperr.ErrProductNotFound.WithMsg(
			fmt.Sprintf("product %s not found", id))
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.product, nil
}

func (c *MemoryCatalog) TryReserve(_ context.Context, id uuid.UUID, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity.WithMsg(
			fmt.Sprintf("cannot reserve %d units of product %s", quantity, id))
	}

	slot, ok := c.slot(id)
	if !ok {
		return nil, apperr.ErrProductNotFound.WithMsg(fmt.Sprintf("product %s not found", id))
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.product.QuantityOnHand < quantity {
		return nil, apperr.ErrInsufficientStock.WithMsg(fmt.Sprintf(
			"product %s has %d on hand, requested %d", id, slot.product.QuantityOnHand, quantity))
	}

	slot.product.QuantityOnHand -= quantity
	slot.product.UpdatedAt = time.Now()

	return &Reservation{
		ProductID: id,
		Quantity:  quantity,
		Remaining: slot.product.QuantityOnHand,
		Product:   slot.product,
	}, nil
}

func (c *MemoryCatalog) Release(_ context.Context, reservation *Reservation) error {
	if !reservation.consume() {
		return apperr.ErrReservationConsumed
	}

	slot, ok := c.slot(reservation.ProductID)
	if !ok {
		reservation.unconsume()
		return apperr.ErrProductNotFound.WithMsg(
			fmt.Sprintf("product %s not found", reservation.ProductID))
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.product.QuantityOnHand += reservation.Quantity
	slot.product.UpdatedAt = time.Now()

	return nil
}

func (c *MemoryCatalog) Write(_ context.Context, product model.Product) (model.Product, error) {
	if err := pricing.Validate(product.Price, product.Cost); err != nil {
		return model.Product{}, err
	}

	slot, ok := c.slot(product.ID)
	if !ok {
		return model.Product{}, apperr.ErrProductNotFound.WithMsg(
			fmt.Sprintf("product %s not found", product.ID))
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	// Stock is never written through here.
	product.QuantityOnHand = slot.product.QuantityOnHand
	product.CreatedAt = slot.product.CreatedAt
	product.UpdatedAt = time.Now()
	slot.product = product

	return slot.product, nil
}

func (c *MemoryCatalog) Create(_ context.Context, product model.Product) (model.Product, error) {
	if err := pricing.Validate(product.Price, product.Cost); err != nil {
		return model.Product{}, err
	}
	if product.QuantityOnHand < 0 {
		return model.Product{}, apperr.ErrInvalidQuantity.WithMsg("initial stock cannot be negative")
	}

	if product.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
		}
		product.ID = id
	}

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.slots[product.ID]; exists {
		return model.Product{}, apperr.ErrStorage.WithMsg(
			fmt.Sprintf("product %s already exists", product.ID))
	}
	for _, slot := range c.slots {
		slot.mu.Lock()
		taken := slot.product.Sku == product.Sku
		slot.mu.Unlock()
		if taken {
			return model.Product{}, apperr.ErrDuplicateSku.WithMsg(
				fmt.Sprintf("sku %s already in use", product.Sku))
		}
	}
	c.slots[product.ID] = &productSlot{product: product}

	return product, nil
}

func (c *MemoryCatalog) Restock(_ context.Context, id uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, apperr.ErrInvalidRestock
	}

	slot, ok := c.slot(id)
	if !ok {
		return 0, apperr.ErrProductNotFound.WithMsg(fmt.Sprintf("product %s not found", id))
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.product.QuantityOnHand += quantity
	slot.product.UpdatedAt = time.Now()

	return slot.product.QuantityOnHand, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]model.Product, error) {
	c.mu.RLock()
	slots := make([]*productSlot, 0, len(c.slots))
	for _, slot := range c.slots {
		slots = append(slots, slot)
	}
	c.mu.RUnlock()

	products := make([]model.Product, 0, len(slots))
	for _, slot := range slots {
		slot.mu.Lock()
		products = append(products, slot.product)
		slot.mu.Unlock()
	}

	sort.Slice(products, func(i, j int) bool { return products[i].Sku < products[j].Sku })

	return products, nil
}
