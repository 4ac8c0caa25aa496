package apperr

import "github.com/tuanvumaihuynh/sale-ledger/pkg/zerror"

const (
	ValidationErrorCode     = "VALIDATION_FAILED"
	EmptyCartCode           = "EMPTY_CART"
	InvalidQuantityCode     = "INVALID_QUANTITY"
	DuplicateProductCode    = "DUPLICATE_PRODUCT"
	ProductNotFoundCode     = "PRODUCT_NOT_FOUND"
	SaleNotFoundCode        = "SALE_NOT_FOUND"
	DuplicateSkuCode        = "DUPLICATE_SKU"
	InsufficientStockCode   = "INSUFFICIENT_STOCK"
	InvalidPricingCode      = "INVALID_PRICING"
	InvalidDiscountCode     = "INVALID_DISCOUNT"
	InvalidRestockCode      = "INVALID_RESTOCK"
	ReservationConsumedCode = "RESERVATION_CONSUMED"
	StorageErrorCode        = "STORAGE_ERROR"
	PersistTimeoutCode      = "PERSIST_TIMEOUT"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	// Client-input problems. No catalog mutation has happened when these are
	// returned; the caller can correct the request and retry.
	ErrEmptyCart        = zerror.NewValidationFailed(EmptyCartCode, "sale request has no lines")
	ErrInvalidQuantity  = zerror.NewValidationFailed(InvalidQuantityCode, "line quantity must be a positive integer")
	ErrDuplicateProduct = zerror.NewValidationFailed(DuplicateProductCode, "product listed more than once in one sale")
	ErrProductNotFound  = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	ErrSaleNotFound     = zerror.NewNotFound(SaleNotFoundCode, "sale not found")

	// Business conflicts and policy rejections.
	ErrDuplicateSku      = zerror.NewConflict(DuplicateSkuCode, "sku already in use")
	ErrInsufficientStock = zerror.NewConflict(InsufficientStockCode, "not enough stock on hand")
	ErrInvalidPricing    = zerror.NewUnprocessableEntity(InvalidPricingCode, "price must be >= cost and both non-negative")
	ErrInvalidDiscount   = zerror.NewUnprocessableEntity(InvalidDiscountCode, "discount must be >= 0 and <= subtotal")
	ErrInvalidRestock    = zerror.NewUnprocessableEntity(InvalidRestockCode, "restock quantity must be positive")

	// A reservation token is consumed by its first release; a second release
	// must not double-restore stock.
	ErrReservationConsumed = zerror.NewConflict(ReservationConsumedCode, "reservation already released")

	// Transient storage failures. The coordinator guarantees no partial
	// mutation survives them.
	ErrStorage        = zerror.NewInternalServerError(StorageErrorCode, "storage operation failed")
	ErrPersistTimeout = zerror.NewTimeout(PersistTimeoutCode, "ledger persist timed out")
)
