package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// StockLot represents a physical lot of an inventory item. Lots carry the
// traceability detail (lot number + expiry); the purchase-unit counter on the
// owning item remains the authoritative stock figure.
type StockLot struct {
	shared.BaseEntity
	InventoryItemID uuid.UUID
	LotNumber       string
	Quantity        decimal.Decimal // Consumable units remaining in this lot
	ExpiryDate      time.Time
}

// NewStockLot creates a new stock lot
func NewStockLot(inventoryItemID uuid.UUID, lotNumber string, quantity decimal.Decimal, expiryDate time.Time) (*StockLot, error) {
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOT_NUMBER", "Lot number cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Lot quantity must be positive")
	}

	return &StockLot{
		BaseEntity:      shared.NewBaseEntity(),
		InventoryItemID: inventoryItemID,
		LotNumber:       lotNumber,
		Quantity:        quantity,
		ExpiryDate:      expiryDate,
	}, nil
}

// IsExpired returns true if the lot has expired as of the given time
func (l *StockLot) IsExpired(at time.Time) bool {
	if l.ExpiryDate.IsZero() {
		return false
	}
	return l.ExpiryDate.Before(at)
}

// HasStock returns true if the lot has consumable quantity left
func (l *StockLot) HasStock() bool {
	return l.Quantity.GreaterThan(decimal.Zero)
}

// Deduct reduces the lot quantity. Returns the actual quantity deducted,
// which may be less than requested when the lot runs out.
func (l *StockLot) Deduct(quantity decimal.Decimal) decimal.Decimal {
	if quantity.GreaterThan(l.Quantity) {
		deducted := l.Quantity
		l.Quantity = decimal.Zero
		l.Touch()
		return deducted
	}

	l.Quantity = l.Quantity.Sub(quantity)
	l.Touch()
	return quantity
}

// DaysUntilExpiry returns the number of days until expiry, -1 if no expiry date
func (l *StockLot) DaysUntilExpiry() int {
	if l.ExpiryDate.IsZero() {
		return -1
	}
	return int(time.Until(l.ExpiryDate).Hours() / 24)
}
