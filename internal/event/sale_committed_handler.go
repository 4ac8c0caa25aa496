package event

import (
	"context"
	"log/slog"
)

const TopicSaleCommitted = "sale.committed"

// SaleCommittedEvent is published in the same transaction as the sale record.
// Amounts travel as decimal strings.
type SaleCommittedEvent struct {
	SaleID        string `json:"sale_id"`
	InvoiceNumber string `json:"invoice_number"`
	LineCount     int    `json:"line_count"`
	Subtotal      string `json:"subtotal"`
	Discount      string `json:"discount"`
	GrandTotal    string `json:"grand_total"`
	TotalProfit   string `json:"total_profit"`
	CreatedBy     string `json:"created_by"`
}

func (s *Service) handleSaleCommittedEvent(ctx context.Context, ev SaleCommittedEvent) error {
	s.logger.InfoContext(ctx, "handling sale committed event", slog.Any("event", ev))
	return nil
}
