package event

import (
	"context"
	"log/slog"
)

const TopicProductLowStock = "product.low_stock"

type ProductLowStockEvent struct {
	ProductID string `json:"product_id"`
	Sku       string `json:"sku"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}

func (s *Service) handleProductLowStockEvent(ctx context.Context, ev ProductLowStockEvent) error {
	s.logger.WarnContext(ctx, "product is low on stock",
		slog.String("product_id", ev.ProductID),
		slog.String("sku", ev.Sku),
		slog.Int("remaining", ev.Remaining),
		slog.Int("threshold", ev.Threshold),
	)
	return nil
}
