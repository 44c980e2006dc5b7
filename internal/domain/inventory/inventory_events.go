package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// Event types for the inventory domain
const (
	EventTypeStockConsumed       = "inventory.stock_consumed"
	EventTypeStockBelowThreshold = "inventory.stock_below_threshold"
)

// AggregateTypeInventoryItem is the aggregate type for inventory events
const AggregateTypeInventoryItem = "InventoryItem"

// StockConsumedEvent is published when stock is withdrawn for a dispatch
type StockConsumedEvent struct {
	shared.BaseDomainEvent
	ItemName  string          `json:"item_name"`
	LotNumber string          `json:"lot_number"`
	Packs     decimal.Decimal `json:"packs"`
	Remaining decimal.Decimal `json:"remaining"`
}

// NewStockConsumedEvent creates a new StockConsumedEvent
func NewStockConsumedEvent(item *InventoryItem, lotNumber string, packs decimal.Decimal) *StockConsumedEvent {
	return &StockConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockConsumed, AggregateTypeInventoryItem, item.ID),
		ItemName:        item.Name,
		LotNumber:       lotNumber,
		Packs:           packs,
		Remaining:       item.Quantity,
	}
}

// StockBelowThresholdEvent is published when a withdrawal drops stock below
// the configured low-stock threshold
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	ItemName  string          `json:"item_name"`
	Remaining decimal.Decimal `json:"remaining"`
	Threshold decimal.Decimal `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(item *InventoryItem) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeInventoryItem, item.ID),
		ItemName:        item.Name,
		Remaining:       item.Quantity,
		Threshold:       item.LowStockThreshold,
	}
}
