package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/event"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
	"github.com/tuanvumaihuynh/sale-ledger/internal/repository"
	"github.com/tuanvumaihuynh/sale-ledger/internal/storage/db"
	"github.com/tuanvumaihuynh/sale-ledger/pkg/outbox"
	"github.com/tuanvumaihuynh/sale-ledger/pkg/ptr"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore writes the sale record, its lines and the outbox messages for
// sale.committed and product.low_stock in a single database transaction, so
// the record and its events are visible together or not at all.
type PostgresStore struct {
	db            db.DB
	saleRepo      repository.SaleRepository
	outboxMsgRepo repository.OutboxMsgRepository
}

func NewPostgresStore(
	db db.DB,
	saleRepo repository.SaleRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
) *PostgresStore {
	return &PostgresStore{
		db:            db,
		saleRepo:      saleRepo,
		outboxMsgRepo: outboxMsgRepo,
	}
}

func (s *PostgresStore) Persist(ctx context.Context, record model.SaleRecord, alerts []LowStockAlert) error {
	headers := outbox.BuildHeaders(ctx)

	committedPayload, err := json.Marshal(event.SaleCommittedEvent{
		SaleID:        record.ID.String(),
		InvoiceNumber: record.InvoiceNumber,
		LineCount:     len(record.Lines),
		Subtotal:      record.Subtotal.String(),
		Discount:      record.Discount.String(),
		GrandTotal:    record.GrandTotal.String(),
		TotalProfit:   record.TotalProfit.String(),
		CreatedBy:     record.CreatedBy.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal sale committed event: %w", err)
	}

	return s.db.WithTx(ctx, func(tx db.DB) error {
		if err := s.saleRepo.WithDB(tx).CreateSale(ctx, record); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		outboxRepo := s.outboxMsgRepo.WithDB(tx)
		if err := outboxRepo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
			Topic:        event.TopicSaleCommitted,
			Headers:      headers,
			Payload:      committedPayload,
			PartitionKey: ptr.New(record.ID.String()),
		}); err != nil {
			return fmt.Errorf("create sale committed outbox msg: %w", err)
		}

		for _, alert := range alerts {
			alertPayload, err := json.Marshal(event.ProductLowStockEvent{
				ProductID: alert.ProductID.String(),
				Sku:       alert.Sku,
				Name:      alert.Name,
				Remaining: alert.Remaining,
				Threshold: alert.Threshold,
			})
			if err != nil {
				return fmt.Errorf("marshal low stock event: %w", err)
			}

			if err := outboxRepo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
				Topic:        event.TopicProductLowStock,
				Headers:      headers,
				Payload:      alertPayload,
				PartitionKey: ptr.New(alert.ProductID.String()),
			}); err != nil {
				return fmt.Errorf("create low stock outbox msg: %w", err)
			}
		}

		return nil
	})
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (model.SaleRecord, error) {
	record, err := s.saleRepo.GetSale(ctx, id)
	if errors.Is(err, repository.ErrSaleRowNotFound) {
		return model.SaleRecord{}, apperr.ErrSaleNotFound.WithMsg(fmt.Sprintf("sale %s not found", id))
	}
	if err != nil {
		return model.SaleRecord{}, apperr.ErrStorage.WrapParent(err)
	}

	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]model.SaleRecord, error) {
	records, err := s.saleRepo.ListSales(ctx, repository.ListSalesParams{
		From:   params.From,
		To:     params.To,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, apperr.ErrStorage.WrapParent(err)
	}

	return records, nil
}

func (s *PostgresStore) Summarize(ctx context.Context, from, to time.Time) (model.SalesSummary, error) {
	summary, err := s.saleRepo.SummarizeSales(ctx, from, to)
	if err != nil {
		return model.SalesSummary{}, apperr.ErrStorage.WrapParent(err)
	}

	return summary, nil
}
