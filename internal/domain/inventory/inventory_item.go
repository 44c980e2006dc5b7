package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// InventoryItem represents a stock-keeping item aggregate root. The item
// tracks stock in purchase units (e.g. boxes); each purchase unit contains
// ItemsPerBaseUnit dose units, and each dose unit carries DoseValue of
// active ingredient. Lots break the stock down for traceability.
type InventoryItem struct {
	shared.BaseAggregateRoot
	Name              string
	Quantity          decimal.Decimal // Stock in purchase units, the authoritative counter
	Unit              string          // Purchase unit label (e.g. "box")
	ItemsPerBaseUnit  int64           // Dose units per purchase unit (e.g. tablets per box)
	DoseValue         decimal.Decimal // Active ingredient per dose unit
	DoseUnit          string          // Unit of DoseValue (e.g. "mg")
	Barcode           string
	LowStockThreshold decimal.Decimal
	Lots              []StockLot
}

// NewInventoryItem creates a new inventory item
func NewInventoryItem(name, unit string, quantity decimal.Decimal, itemsPerBaseUnit int64, doseValue decimal.Decimal, doseUnit, barcode string) (*InventoryItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item quantity cannot be negative")
	}

	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Quantity:          quantity,
		Unit:              unit,
		ItemsPerBaseUnit:  itemsPerBaseUnit,
		DoseValue:         doseValue,
		DoseUnit:          doseUnit,
		Barcode:           barcode,
		LowStockThreshold: decimal.Zero,
		Lots:              make([]StockLot, 0),
	}, nil
}

// AddLot registers a new lot for this item
func (i *InventoryItem) AddLot(lotNumber string, quantity decimal.Decimal, expiryDate time.Time) (*StockLot, error) {
	for idx := range i.Lots {
		if i.Lots[idx].LotNumber == lotNumber {
			return nil, shared.NewDomainError("DUPLICATE_LOT", fmt.Sprintf("Lot %s already exists for this item", lotNumber))
		}
	}

	lot, err := NewStockLot(i.ID, lotNumber, quantity, expiryDate)
	if err != nil {
		return nil, err
	}

	i.Lots = append(i.Lots, *lot)
	i.Touch()

	return lot, nil
}

// GetLot returns the lot with the given lot number, nil if absent
func (i *InventoryItem) GetLot(lotNumber string) *StockLot {
	for idx := range i.Lots {
		if i.Lots[idx].LotNumber == lotNumber {
			return &i.Lots[idx]
		}
	}
	return nil
}

// ActiveLots returns lots that still have consumable quantity. Exhausted lots
// are pruned from candidate selection but kept on the aggregate for history.
func (i *InventoryItem) ActiveLots() []StockLot {
	active := make([]StockLot, 0, len(i.Lots))
	for _, lot := range i.Lots {
		if lot.HasStock() {
			active = append(active, lot)
		}
	}
	return active
}

// HasStock returns true if the purchase-unit counter is positive
func (i *InventoryItem) HasStock() bool {
	return i.Quantity.GreaterThan(decimal.Zero)
}

// MatchesBarcode compares a scanned code against the item barcode
// character-for-character
func (i *InventoryItem) MatchesBarcode(scanned string) bool {
	return i.Barcode != "" && i.Barcode == scanned
}

// SetLowStockThreshold sets the threshold below which the item is flagged
func (i *InventoryItem) SetLowStockThreshold(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}
	i.LowStockThreshold = threshold
	i.Touch()
	return nil
}

// IsBelowThreshold returns true if stock has fallen below the configured threshold
func (i *InventoryItem) IsBelowThreshold() bool {
	return i.LowStockThreshold.GreaterThan(decimal.Zero) && i.Quantity.LessThan(i.LowStockThreshold)
}

// ConsumeForDispatch withdraws packs purchase units from the item and the
// selected lot in one operation, keeping both counters in step. Emits a
// StockBelowThreshold event when the withdrawal crosses the threshold.
func (i *InventoryItem) ConsumeForDispatch(lotNumber string, packs decimal.Decimal) error {
	if packs.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Dispatch quantity must be positive")
	}
	if packs.GreaterThan(i.Quantity) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Insufficient stock for %s: required %s, available %s", i.Name, packs, i.Quantity))
	}

	lot := i.GetLot(lotNumber)
	if lot == nil {
		return shared.NewDomainError("LOT_NOT_FOUND", fmt.Sprintf("Lot %s not found for item %s", lotNumber, i.Name))
	}
	if !lot.HasStock() {
		return shared.NewDomainError("LOT_EXHAUSTED", fmt.Sprintf("Lot %s is exhausted", lotNumber))
	}

	wasBelow := i.IsBelowThreshold()

	i.Quantity = i.Quantity.Sub(packs)
	lot.Deduct(packs)
	i.Touch()

	i.AddDomainEvent(NewStockConsumedEvent(i, lotNumber, packs))
	if !wasBelow && i.IsBelowThreshold() {
		i.AddDomainEvent(NewStockBelowThresholdEvent(i))
	}

	return nil
}

// Restock increases the purchase-unit counter (receiving, adjustments)
func (i *InventoryItem) Restock(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	i.Quantity = i.Quantity.Add(quantity)
	i.Touch()
	return nil
}
