package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/pricing"
	"github.com/tuanvumaihuynh/sale-ledger/internal/repository"
)

var _ Catalog = (*PostgresCatalog)(nil)

// PostgresCatalog backs the catalog contract with the products table. The
// per-product exclusion required by TryReserve comes from the row-level lock
// the conditional UPDATE takes: concurrent deductions on one product
// serialize, deductions on different products run in parallel, and the
// quantity guard in the WHERE clause makes overselling impossible.
type PostgresCatalog struct {
	productRepo repository.ProductRepository
}

func NewPostgresCatalog(productRepo repository.ProductRepository) *PostgresCatalog {
	return &PostgresCatalog{productRepo: productRepo}
}

func (c *PostgresCatalog) Get(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := c.productRepo.GetProduct(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Product{}, apperr.ErrProductNotFound.WithMsg(
				fmt.Sprintf("product %s not found", id))
		}
		return model.Product{}, apperr.ErrStorage.WrapParent(err)
	}

	return product, nil
}

func (c *PostgresCatalog) TryReserve(ctx context.Context, id uuid.UUID, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity.WithMsg(
			fmt.Sprintf("cannot reserve %d units of product %s", quantity, id))
	}

	product, err := c.productRepo.DeductStock(ctx, id, quantity)
	if errors.Is(err, repository.ErrNoRowUpdated) {
		// The guard failed. Read the row to tell a missing product from an
		// insufficient one; the race this read loses only changes the error
		// message, never the stock level.
		current, getErr := c.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.ErrInsufficientStock.WithMsg(fmt.Sprintf(
			"product %s has %d on hand, requested %d", id, current.QuantityOnHand, quantity))
	}
	if err != nil {
		return nil, apperr.ErrStorage.WrapParent(err)
	}

	return &Reservation{
		ProductID: id,
		Quantity:  quantity,
		Remaining: product.QuantityOnHand,
		Product:   product,
	}, nil
}

func (c *PostgresCatalog) Release(ctx context.Context, reservation *Reservation) error {
	if !reservation.consume() {
		return apperr.ErrReservationConsumed
	}

	if _, err := c.productRepo.AddStock(ctx, reservation.ProductID, reservation.Quantity); err != nil {
		// Nothing was restored; reopen the token so the release can be retried.
		reservation.unconsume()
		return apperr.ErrStorage.WrapParent(err)
	}

	return nil
}

func (c *PostgresCatalog) Write(ctx context.Context, product model.Product) (model.Product, error) {
	if err := pricing.Validate(product.Price, product.Cost); err != nil {
		return model.Product{}, err
	}

	if err := c.productRepo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNoRowUpdated) {
			return model.Product{}, apperr.ErrProductNotFound.WithMsg(
				fmt.Sprintf("product %s not found", product.ID))
		}
		return model.Product{}, apperr.ErrStorage.WrapParent(err)
	}

	return c.Get(ctx, product.ID)
}

func (c *PostgresCatalog) Create(ctx context.Context, product model.Product) (model.Product, error) {
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

	created, err := c.productRepo.CreateProduct(ctx, product)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return model.Product{}, apperr.ErrDuplicateSku.WithMsg(
			fmt.Sprintf("sku %s already in use", product.Sku))
	}
	if err != nil {
		return model.Product{}, apperr.ErrStorage.WrapParent(err)
	}

	return created, nil
}

func (c *PostgresCatalog) Restock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, apperr.ErrInvalidRestock
	}

	remaining, err := c.productRepo.AddStock(ctx, id, quantity)
	if errors.Is(err, repository.ErrNoRowUpdated) {
		return 0, apperr.ErrProductNotFound.WithMsg(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return 0, apperr.ErrStorage.WrapParent(err)
	}

	return remaining, nil
}

func (c *PostgresCatalog) List(ctx context.Context) ([]model.Product, error) {
	products, err := c.productRepo.ListAllProducts(ctx)
	if err != nil {
		return nil, apperr.ErrStorage.WrapParent(err)
	}

	return products, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repository.ErrNoRowUpdated)
}
