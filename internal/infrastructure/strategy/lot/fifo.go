package lot

import (
	"context"
	"sort"

	"github.com/skol/backend/internal/domain/shared/strategy"
)

// FIFOLotStrategy orders candidate lots First In First Out by the date the
// lot was received into stock. Used for preparations where expiry pressure
// is not the driving concern.
type FIFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOLotStrategy creates a new FIFO lot ordering strategy
func NewFIFOLotStrategy() *FIFOLotStrategy {
	return &FIFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo",
			strategy.StrategyTypeLot,
			"First In First Out - presents candidate lots by received date (oldest first)",
		),
	}
}

// OrderCandidates filters out exhausted lots and sorts the rest by received
// date ascending. Lots without a received date fall back to expiry date.
func (s *FIFOLotStrategy) OrderCandidates(
	_ context.Context,
	ordCtx strategy.LotOrderingContext,
	lots []strategy.LotCandidate,
) ([]strategy.LotCandidate, error) {
	filtered := filterAvailableLots(lots, ordCtx.InventoryItemID)

	if ordCtx.PreferLot != "" {
		filtered = prioritizePreferredLot(filtered, ordCtx.PreferLot)
		return filtered, nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		iDate := filtered[i].ReceivedDate
		jDate := filtered[j].ReceivedDate
		if iDate.IsZero() {
			iDate = filtered[i].ExpiryDate
		}
		if jDate.IsZero() {
			jDate = filtered[j].ExpiryDate
		}

		if iDate.IsZero() {
			return false
		}
		if jDate.IsZero() {
			return true
		}
		return iDate.Before(jDate)
	})

	return filtered, nil
}

// ConsidersExpiry returns false as FIFO orders by received date
func (s *FIFOLotStrategy) ConsidersExpiry() bool {
	return false
}
