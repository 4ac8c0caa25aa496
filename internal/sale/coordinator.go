package sale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/catalog"
	"github.com/tuanvumaihuynh/sale-ledger/internal/config"
	"github.com/tuanvumaihuynh/sale-ledger/internal/ledger"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/pkg/zerror"
)

// txState tracks one sale through the coordinator.
type txState uint8

const (
	stateReceived txState = iota
	stateValidating
	stateReserving
	stateCommitting
	stateCommitted
	stateRejected
	stateRollingBack
	stateAborted
)

func (s txState) String() string {
	return [...]string{
		"received", "validating", "reserving", "committing",
		"committed", "rejected", "rolling_back", "aborted",
	}[s]
}

// Coordinator drives one sale request through
// validate -> reserve -> commit as a single unit. Any failure after the
// first reservation releases everything already taken: stock is never left
// decremented for a sale that was not recorded. Rejected and aborted sales
// are terminal; the coordinator never retries on its own.
type Coordinator struct {
	logger         *slog.Logger
	catalog        catalog.Catalog
	validator      *Validator
	ledger         ledger.Writer
	persistTimeout time.Duration
}

func NewCoordinator(
	logger *slog.Logger,
	cat catalog.Catalog,
	ledgerWriter ledger.Writer,
	cfg config.Ledger,
) *Coordinator {
	return &Coordinator{
		logger:         logger.With(slog.String("service", "sale_coordinator")),
		catalog:        cat,
		validator:      NewValidator(cat),
		ledger:         ledgerWriter,
		persistTimeout: cfg.PersistTimeout,
	}
}

// Commit executes the sale request and returns the committed record. All
// totals are computed here from catalog-snapshotted price and cost; nothing
// monetary is trusted from the request beyond the discount, which is bounded
// by the computed subtotal.
func (c *Coordinator) Commit(ctx context.Context, req model.SaleRequest) (model.SaleRecord, error) {
	tx := c.begin(ctx, req)

	if err := tx.validate(ctx); err != nil {
		return model.SaleRecord{}, err
	}

	if err := tx.reserve(ctx); err != nil {
		return model.SaleRecord{}, err
	}

	record, err := tx.commit(ctx)
	if err != nil {
		return model.SaleRecord{}, err
	}

	return record, nil
}

// saleTx carries the per-request state so Coordinator itself stays stateless
// and safe for concurrent use.
type saleTx struct {
	c            *Coordinator
	req          model.SaleRequest
	state        txState
	reservations []*catalog.Reservation
}

func (c *Coordinator) begin(ctx context.Context, req model.SaleRequest) *saleTx {
	tx := &saleTx{c: c, req: req, state: stateReceived}
	c.logger.DebugContext(ctx, "sale received",
		slog.Int("lines", len(req.Lines)),
		slog.String("created_by", req.CreatedBy.String()),
	)
	return tx
}

func (tx *saleTx) transition(ctx context.Context, next txState) {
	tx.c.logger.DebugContext(ctx, "sale state transition",
		slog.String("from", tx.state.String()),
		slog.String("to", next.String()),
	)
	tx.state = next
}

// validate runs the pre-flight checks. No catalog mutation has happened yet,
// so a failure here simply rejects the request.
func (tx *saleTx) validate(ctx context.Context) error {
	tx.transition(ctx, stateValidating)

	products, err := tx.c.validator.Validate(ctx, tx.req)
	if err != nil {
		tx.transition(ctx, stateRejected)
		return err
	}

	// Advisory discount bound against current prices, so an obviously
	// oversized discount fails before any stock is reserved. The
	// authoritative check against snapshot prices happens at commit.
	if err := checkDiscount(tx.req.Discount, estimateSubtotal(tx.req.Lines, products)); err != nil {
		tx.transition(ctx, stateRejected)
		return err
	}

	return nil
}

// reserve takes stock for every line in product-id order. The deterministic
// order means two concurrent sales over an overlapping product set always
// contend in the same sequence and cannot deadlock each other.
func (tx *saleTx) reserve(ctx context.Context) error {
	tx.transition(ctx, stateReserving)

	ordered := append([]model.SaleLineItem(nil), tx.req.Lines...)
	slices.SortFunc(ordered, func(a, b model.SaleLineItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})

	for _, line := range ordered {
		reservation, err := tx.c.catalog.TryReserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			// Insufficient stock here is legitimate even after validation
			// passed: a concurrent sale may have drained the product first.
			tx.rollback(ctx, err)
			return err
		}
		tx.reservations = append(tx.reservations, reservation)
	}

	return nil
}

// commit computes totals from the reservation snapshots, persists the record
// and finalizes the sale. Lines appear in the record in request order,
// independent of the reservation order used above.
func (tx *saleTx) commit(ctx context.Context) (model.SaleRecord, error) {
	tx.transition(ctx, stateCommitting)

	snapshots := make(map[uuid.UUID]*catalog.Reservation, len(tx.reservations))
	for _, reservation := range tx.reservations {
		snapshots[reservation.ProductID] = reservation
	}

	lines := make([]model.SaleLineRecord, 0, len(tx.req.Lines))
	subtotal, totalCost := decimal.Zero, decimal.Zero
	for _, item := range tx.req.Lines {
		reservation := snapshots[item.ProductID]
		line := model.NewSaleLineRecord(reservation.Product, item.Quantity)
		lines = append(lines, line)

		subtotal = subtotal.Add(line.Subtotal)
		totalCost = totalCost.Add(line.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if err := checkDiscount(tx.req.Discount, subtotal); err != nil {
		tx.rollback(ctx, err)
		return model.SaleRecord{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		wrapped := apperr.ErrStorage.WrapParent(fmt.Errorf("generate uuid v7: %w", err))
		tx.rollback(ctx, wrapped)
		return model.SaleRecord{}, wrapped
	}

	now := time.Now()
	grandTotal := subtotal.Sub(tx.req.Discount)
	record := model.SaleRecord{
		ID:            id,
		InvoiceNumber: invoiceNumber(id, now),
		Lines:         lines,
		Subtotal:      subtotal,
		Discount:      tx.req.Discount,
		TotalCost:     totalCost,
		GrandTotal:    grandTotal,
		TotalProfit:   grandTotal.Sub(totalCost),
		CustomerID:    tx.req.CustomerID,
		CreatedBy:     tx.req.CreatedBy,
		CreatedAt:     now,
	}

	persistCtx, cancel := context.WithTimeout(ctx, tx.c.persistTimeout)
	defer cancel()

	if err := tx.c.ledger.Persist(persistCtx, record, tx.lowStockAlerts()); err != nil {
		// The ledger rejected or timed out: the sale never happened, so the
		// reserved stock has to come back.
		wrapped := wrapPersistErr(err)
		tx.rollback(ctx, wrapped)
		return model.SaleRecord{}, wrapped
	}

	tx.transition(ctx, stateCommitted)
	tx.c.logger.InfoContext(ctx, "sale committed",
		slog.String("sale_id", record.ID.String()),
		slog.String("invoice_number", record.InvoiceNumber),
		slog.String("grand_total", record.GrandTotal.String()),
	)

	return record, nil
}

// rollback releases every reservation taken so far and marks the sale
// aborted (or rejected when nothing was reserved yet). Release failures are
// logged and do not stop the remaining releases.
func (tx *saleTx) rollback(ctx context.Context, cause error) {
	if len(tx.reservations) == 0 {
		tx.transition(ctx, stateRejected)
		return
	}

	tx.transition(ctx, stateRollingBack)

	// The request context may already be cancelled or timed out; restoring
	// stock must still go through.
	releaseCtx := context.WithoutCancel(ctx)
	for _, reservation := range tx.reservations {
		if err := tx.c.catalog.Release(releaseCtx, reservation); err != nil {
			tx.c.logger.ErrorContext(ctx, "failed to release reservation",
				slog.String("product_id", reservation.ProductID.String()),
				slog.Int("quantity", reservation.Quantity),
				slog.Any("error", err),
			)
		}
	}

	tx.transition(ctx, stateAborted)
	tx.c.logger.WarnContext(ctx, "sale aborted", slog.Any("cause", cause))
}

func (tx *saleTx) lowStockAlerts() []ledger.LowStockAlert {
	var alerts []ledger.LowStockAlert
	for _, reservation := range tx.reservations {
		product := reservation.Product
		if reservation.Remaining <= product.LowStockThreshold {
			alerts = append(alerts, ledger.LowStockAlert{
				ProductID: product.ID,
				Sku:       product.Sku,
				Name:      product.Name,
				Remaining: reservation.Remaining,
				Threshold: product.LowStockThreshold,
			})
		}
	}
	return alerts
}

func checkDiscount(discount, subtotal decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return apperr.ErrInvalidDiscount.WithMsg(fmt.Sprintf(
			"discount %s must be between 0 and subtotal %s", discount, subtotal))
	}
	return nil
}

func estimateSubtotal(items []model.SaleLineItem, products map[uuid.UUID]model.Product) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		product := products[item.ProductID]
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

func wrapPersistErr(err error) error {
	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.ErrPersistTimeout.WrapParent(err)
	}
	return apperr.ErrStorage.WrapParent(err)
}

// invoiceNumber builds the human-facing identifier, e.g. INV-1756425600000-0192A7F3.
// The suffix comes from the random tail of the sale ID. The leading bytes of a
// v7 UUID are its own millisecond timestamp, so they would collide for sales
// committed in the same instant.
func invoiceNumber(id uuid.UUID, at time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("INV-%d-%s", at.UnixMilli(), hex[len(hex)-8:])
}
