package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/sale-ledger/internal/apperr"
	"github.com/tuanvumaihuynh/sale-ledger/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps committed records in process memory, newest first.
// Appends are all-or-nothing under one mutex. Used by tests and embedded
// setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.SaleRecord
	byID    map[uuid.UUID]int
	alerts  []LowStockAlert
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[uuid.UUID]int{}}
}

func (s *MemoryStore) Persist(_ context.Context, record model.SaleRecord, alerts []LowStockAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[record.ID]; exists {
		return fmt.Errorf("sale %s already persisted", record.ID)
	}

	// Copy the lines so later caller mutations cannot reach the ledger.
	record.Lines = append([]model.SaleLineRecord(nil), record.Lines...)

	s.byID[record.ID] = len(s.records)
	s.records = append(s.records, record)
	s.alerts = append(s.alerts, alerts...)

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (model.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.SaleRecord{}, apperr.ErrSaleNotFound.WithMsg(fmt.Sprintf("sale %s not found", id))
	}

	return copyRecord(s.records[idx]), nil
}

func (s *MemoryStore) List(_ context.Context, params ListParams) ([]model.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]model.SaleRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- { // newest first
		record := s.records[i]
		if params.From != nil && record.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !record.CreatedAt.Before(*params.To) {
			continue
		}
		matched = append(matched, copyRecord(record))
	}

	start := int(params.Offset)
	if start > len(matched) {
		return []model.SaleRecord{}, nil
	}
	end := len(matched)
	if params.Limit > 0 && start+int(params.Limit) < end {
		end = start + int(params.Limit)
	}

	return matched[start:end], nil
}

func (s *MemoryStore) Summarize(_ context.Context, from, to time.Time) (model.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := model.SalesSummary{
		From:    from,
		To:      to,
		Revenue: decimal.Zero,
		Cost:    decimal.Zero,
		Profit:  decimal.Zero,
	}
	for _, record := range s.records {
		if record.CreatedAt.Before(from) || !record.CreatedAt.Before(to) {
			continue
		}
		summary.SaleCount++
		summary.Revenue = summary.Revenue.Add(record.GrandTotal)
		summary.Cost = summary.Cost.Add(record.TotalCost)
		summary.Profit = summary.Profit.Add(record.TotalProfit)
	}

	return summary, nil
}

// copyRecord detaches the line slice so callers cannot edit stored records.
func copyRecord(record model.SaleRecord) model.SaleRecord {
	record.Lines = append([]model.SaleLineRecord(nil), record.Lines...)
	return record
}

// Alerts returns the low-stock alerts recorded so far.
func (s *MemoryStore) Alerts() []LowStockAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LowStockAlert(nil), s.alerts...)
}
