package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/storage/db"
)

// ErrSaleRowNotFound is returned when a sale id has no row.
var ErrSaleRowNotFound = errors.New("sale row not found")

type ListSalesParams struct {
	From   *time.Time
	To     *time.Time
	Limit  int32
	Offset int32
}

// SaleRepository reads and appends sale records. There is deliberately no
// update or delete: the ledger is append-only.
type SaleRepository interface {
	WithDB(db db.DB) SaleRepository
	CreateSale(ctx context.Context, record model.SaleRecord) error
	GetSale(ctx context.Context, id uuid.UUID) (model.SaleRecord, error)
	ListSales(ctx context.Context, params ListSalesParams) ([]model.SaleRecord, error)
	SummarizeSales(ctx context.Context, from, to time.Time) (model.SalesSummary, error)
}

type saleRepository struct {
	db db.DB
}

func NewSaleRepository(db db.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r saleRepository) WithDB(db db.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r saleRepository) CreateSale(ctx context.Context, record model.SaleRecord) error {
	args, err := saleNamedArgs(record)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO sales (
			id, invoice_number, subtotal, discount, total_cost,
			grand_total, total_profit, customer_id, created_by, created_at
		) VALUES (
			@id, @invoice_number, @subtotal, @discount, @total_cost,
			@grand_total, @total_profit, @customer_id, @created_by, @created_at
		);
	`, args); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, line := range record.Lines {
		lineArgs, err := saleLineNamedArgs(record.ID, i, line)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(ctx, `
			INSERT INTO sale_lines (
				sale_id, line_no, product_id, product_name, quantity,
				unit_price, unit_cost, subtotal, profit
			) VALUES (
				@sale_id, @line_no, @product_id, @product_name, @quantity,
				@unit_price, @unit_cost, @subtotal, @profit
			);
		`, lineArgs); err != nil {
			return fmt.Errorf("insert sale line %d: %w", i, err)
		}
	}

	return nil
}

func (r saleRepository) GetSale(ctx context.Context, id uuid.UUID) (model.SaleRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, invoice_number, subtotal, discount, total_cost,
			grand_total, total_profit, customer_id, created_by, created_at
		FROM sales
		WHERE id = @id;
	`, pgx.NamedArgs{"id": id})

	record, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SaleRecord{}, ErrSaleRowNotFound
	}
	if err != nil {
		return model.SaleRecord{}, fmt.Errorf("get sale: %w", err)
	}

	lines, err := r.listLines(ctx, []uuid.UUID{id})
	if err != nil {
		return model.SaleRecord{}, err
	}
	record.Lines = lines[id]

	return record, nil
}

func (r saleRepository) ListSales(ctx context.Context, params ListSalesParams) ([]model.SaleRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_number, subtotal, discount, total_cost,
			grand_total, total_profit, customer_id, created_by, created_at
		FROM sales
		WHERE (@from::timestamptz IS NULL OR created_at >= @from)
			AND (@to::timestamptz IS NULL OR created_at < @to)
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset;
	`, pgx.NamedArgs{
		"from":   params.From,
		"to":     params.To,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	records := make([]model.SaleRecord, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		record, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		records = append(records, record)
		ids = append(ids, record.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return records, nil
	}

	lines, err := r.listLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Lines = lines[records[i].ID]
	}

	return records, nil
}

func (r saleRepository) SummarizeSales(ctx context.Context, from, to time.Time) (model.SalesSummary, error) {
	var (
		count                 int
		revenue, cost, profit pgtype.Numeric
	)
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(grand_total), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(total_profit), 0)
		FROM sales
		WHERE created_at >= @from AND created_at < @to;
	`, pgx.NamedArgs{"from": from, "to": to}).Scan(&count, &revenue, &cost, &profit); err != nil {
		return model.SalesSummary{}, fmt.Errorf("summarize sales: %w", err)
	}

	summary := model.SalesSummary{From: from, To: to, SaleCount: count}
	var err error
	if summary.Revenue, err = numericToDecimal(revenue); err != nil {
		return model.SalesSummary{}, fmt.Errorf("convert revenue: %w", err)
	}
	if summary.Cost, err = numericToDecimal(cost); err != nil {
		return model.SalesSummary{}, fmt.Errorf("convert cost: %w", err)
	}
	if summary.Profit, err = numericToDecimal(profit); err != nil {
		return model.SalesSummary{}, fmt.Errorf("convert profit: %w", err)
	}

	return summary, nil
}

func (r saleRepository) listLines(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]model.SaleLineRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT sale_id, product_id, product_name, quantity,
			unit_price, unit_cost, subtotal, profit
		FROM sale_lines
		WHERE sale_id = ANY(@sale_ids::uuid[])
		ORDER BY sale_id, line_no;
	`, pgx.NamedArgs{"sale_ids": saleIDs})
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[uuid.UUID][]model.SaleLineRecord, len(saleIDs))
	for rows.Next() {
		var (
			saleID                              uuid.UUID
			line                                model.SaleLineRecord
			unitPrice, unitCost, subtotal, prof pgtype.Numeric
		)
		if err := rows.Scan(
			&saleID, &line.ProductID, &line.ProductName, &line.Quantity,
			&unitPrice, &unitCost, &subtotal, &prof,
		); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}

		if line.UnitPrice, err = numericToDecimal(unitPrice); err != nil {
			return nil, fmt.Errorf("convert unit price: %w", err)
		}
		if line.UnitCost, err = numericToDecimal(unitCost); err != nil {
			return nil, fmt.Errorf("convert unit cost: %w", err)
		}
		if line.Subtotal, err = numericToDecimal(subtotal); err != nil {
			return nil, fmt.Errorf("convert subtotal: %w", err)
		}
		if line.Profit, err = numericToDecimal(prof); err != nil {
			return nil, fmt.Errorf("convert profit: %w", err)
		}

		lines[saleID] = append(lines[saleID], line)
	}

	return lines, rows.Err()
}

func saleNamedArgs(record model.SaleRecord) (pgx.NamedArgs, error) {
	amounts := map[string]decimal.Decimal{
		"subtotal":     record.Subtotal,
		"discount":     record.Discount,
		"total_cost":   record.TotalCost,
		"grand_total":  record.GrandTotal,
		"total_profit": record.TotalProfit,
	}

	args := pgx.NamedArgs{
		"id":             record.ID,
		"invoice_number": record.InvoiceNumber,
		"customer_id":    record.CustomerID,
		"created_by":     record.CreatedBy,
		"created_at":     record.CreatedAt,
	}
	for name, amount := range amounts {
		numeric, err := decimalToNumeric(amount)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", name, err)
		}
		args[name] = numeric
	}

	return args, nil
}

func saleLineNamedArgs(saleID uuid.UUID, lineNo int, line model.SaleLineRecord) (pgx.NamedArgs, error) {
	amounts := map[string]decimal.Decimal{
		"unit_price": line.UnitPrice,
		"unit_cost":  line.UnitCost,
		"subtotal":   line.Subtotal,
		"profit":     line.Profit,
	}

	args := pgx.NamedArgs{
		"sale_id":      saleID,
		"line_no":      lineNo,
		"product_id":   line.ProductID,
		"product_name": line.ProductName,
		"quantity":     line.Quantity,
	}
	for name, amount := range amounts {
		numeric, err := decimalToNumeric(amount)
		if err != nil {
			return nil, fmt.Errorf("convert line %s: %w", name, err)
		}
		args[name] = numeric
	}

	return args, nil
}

func scanSale(row pgx.Row) (model.SaleRecord, error) {
	var (
		record                                            model.SaleRecord
		subtotal, discount, totalCost, grandTotal, profit pgtype.Numeric
	)
	if err := row.Scan(
		&record.ID, &record.InvoiceNumber,
		&subtotal, &discount, &totalCost, &grandTotal, &profit,
		&record.CustomerID, &record.CreatedBy, &record.CreatedAt,
	); err != nil {
		return model.SaleRecord{}, err
	}

	var err error
	if record.Subtotal, err = numericToDecimal(subtotal); err != nil {
		return model.SaleRecord{}, fmt.Errorf("convert subtotal: %w", err)
	}
	if record.Discount, err = numericToDecimal(discount); err != nil {
		return model.SaleRecord{}, fmt.Errorf("convert discount: %w", err)
	}
	if record.TotalCost, err = numericToDecimal(totalCost); err != nil {
		return model.SaleRecord{}, fmt.Errorf("convert total cost: %w", err)
	}
	if record.GrandTotal, err = numericToDecimal(grandTotal); err != nil {
		return model.SaleRecord{}, fmt.Errorf("convert grand total: %w", err)
	}
	if record.TotalProfit, err = numericToDecimal(profit); err != nil {
		return model.SaleRecord{}, fmt.Errorf("convert total profit: %w", err)
	}

	return record, nil
}
