package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LotCandidate represents a stock lot offered for operator selection.
// The ordering engine ranks candidates; the operator makes the final pick.
type LotCandidate struct {
	InventoryItemID string
	LotNumber       string
	Quantity        decimal.Decimal
	ExpiryDate      time.Time
	ReceivedDate    time.Time
}

// LotOrderingContext provides context for candidate ordering
type LotOrderingContext struct {
	InventoryItemID string
	Date            time.Time
	PreferLot       string // Optional: lot number to surface first
}

// LotOrderingStrategy ranks candidate lots for withdrawal. It never selects a
// lot on its own; it only determines the order candidates are presented in.
type LotOrderingStrategy interface {
	Strategy
	// OrderCandidates filters out unusable lots and returns the remaining
	// candidates in presentation order
	OrderCandidates(ctx context.Context, ordCtx LotOrderingContext, lots []LotCandidate) ([]LotCandidate, error)
	// ConsidersExpiry returns true if the strategy considers expiry dates
	ConsidersExpiry() bool
}
