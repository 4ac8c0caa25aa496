package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/storage/db"
)

// ErrNoRowUpdated is returned by conditional stock updates when no row
// matched, either because the product does not exist or because the stock
// guard failed. Callers disambiguate with a follow-up read.
var ErrNoRowUpdated = errors.New("no row updated")

// ErrDuplicateKey is returned when an insert hits a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository

	// CreateProduct inserts the product and returns the stored row, with
	// money columns carrying the NUMERIC(12,2) precision of the table.
	// Returns ErrDuplicateKey when the sku is already taken.
	CreateProduct(ctx context.Context, product model.Product) (model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	ListAllProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, product model.Product) error

	// DeductStock atomically decrements quantity_on_hand when at least
	// quantity units are on hand, returning the full row after the
	// deduction. Returns ErrNoRowUpdated when the guard fails or the product
	// is missing. The row-level write lock makes concurrent deductions on
	// one product mutually exclusive while leaving other products untouched.
	DeductStock(ctx context.Context, id uuid.UUID, quantity int) (model.Product, error)

	// AddStock increments quantity_on_hand (reservation rollback, restock).
	AddStock(ctx context.Context, id uuid.UUID, quantity int) (int, error)
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	price, err := decimalToNumeric(product.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}
	cost, err := decimalToNumeric(product.Cost)
	if err != nil {
		return model.Product{}, fmt.Errorf("convert cost: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO products (
			id, sku, name, category, price, cost,
			quantity_on_hand, low_stock_threshold, created_at, updated_at
		) VALUES (
			@id, @sku, @name, @category, @price, @cost,
			@quantity_on_hand, @low_stock_threshold, @created_at, @updated_at
		)
		RETURNING id, sku, name, category, price, cost,
			quantity_on_hand, low_stock_threshold, created_at, updated_at;
	`, pgx.NamedArgs{
		"id":                  product.ID,
		"sku":                 product.Sku,
		"name":                product.Name,
		"category":            product.Category,
		"price":               price,
		"cost":                cost,
		"quantity_on_hand":    product.QuantityOnHand,
		"low_stock_threshold": product.LowStockThreshold,
		"created_at":          product.CreatedAt,
		"updated_at":          product.UpdatedAt,
	})

	created, err := scanProduct(row)
	if isUniqueViolation(err) {
		return model.Product{}, ErrDuplicateKey
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return created, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, sku, name, category, price, cost,
			quantity_on_hand, low_stock_threshold, created_at, updated_at
		FROM products
		WHERE id = @id;
	`, pgx.NamedArgs{"id": id})

	product, err := scanProduct(row)
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (r productRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sku, name, category, price, cost,
			quantity_on_hand, low_stock_threshold, created_at, updated_at
		FROM products
		ORDER BY sku;
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// UpdateProduct rewrites the descriptive and pricing columns. Stock columns
// are excluded on purpose: quantity_on_hand moves only through DeductStock
// and AddStock.
func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	price, err := decimalToNumeric(product.Price)
	if err != nil {
		return fmt.Errorf("convert price: %w", err)
	}
	cost, err := decimalToNumeric(product.Cost)
	if err != nil {
		return fmt.Errorf("convert cost: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET sku                 = @sku,
			name                = @name,
			category            = @category,
			price               = @price,
			cost                = @cost,
			low_stock_threshold = @low_stock_threshold,
			updated_at          = @updated_at
		WHERE id = @id;
	`, pgx.NamedArgs{
		"id":                  product.ID,
		"sku":                 product.Sku,
		"name":                product.Name,
		"category":            product.Category,
		"price":               price,
		"cost":                cost,
		"low_stock_threshold": product.LowStockThreshold,
		"updated_at":          time.Now(),
	})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowUpdated
	}

	return nil
}

func (r productRepository) DeductStock(ctx context.Context, id uuid.UUID, quantity int) (model.Product, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE products
		SET quantity_on_hand = quantity_on_hand - @quantity,
			updated_at       = @updated_at
		WHERE id = @id AND quantity_on_hand >= @quantity
		RETURNING id, sku, name, category, price, cost,
			quantity_on_hand, low_stock_threshold, created_at, updated_at;
	`, pgx.NamedArgs{
		"id":         id,
		"quantity":   quantity,
		"updated_at": time.Now(),
	})

	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, ErrNoRowUpdated
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("deduct stock: %w", err)
	}

	return product, nil
}

func (r productRepository) AddStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	var remaining int
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET quantity_on_hand = quantity_on_hand + @quantity,
			updated_at       = @updated_at
		WHERE id = @id
		RETURNING quantity_on_hand;
	`, pgx.NamedArgs{
		"id":         id,
		"quantity":   quantity,
		"updated_at": time.Now(),
	}).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoRowUpdated
	}
	if err != nil {
		return 0, fmt.Errorf("add stock: %w", err)
	}

	return remaining, nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		product     model.Product
		price, cost pgtype.Numeric
	)
	if err := row.Scan(
		&product.ID, &product.Sku, &product.Name, &product.Category,
		&price, &cost,
		&product.QuantityOnHand, &product.LowStockThreshold,
		&product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return model.Product{}, err
	}

	var err error
	if product.Price, err = numericToDecimal(price); err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}
	if product.Cost, err = numericToDecimal(cost); err != nil {
		return model.Product{}, fmt.Errorf("convert cost: %w", err)
	}

	return product, nil
}
