package lot

import (
	"context"
	"sort"

	"github.com/skol/backend/internal/domain/shared/strategy"
)

// FEFOLotStrategy orders candidate lots First Expired First Out so the
// earliest-expiring lot is presented to the operator first. The operator
// makes the actual pick; the engine never auto-selects a lot.
type FEFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOLotStrategy creates a new FEFO lot ordering strategy
func NewFEFOLotStrategy() *FEFOLotStrategy {
	return &FEFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fefo",
			strategy.StrategyTypeLot,
			"First Expired First Out - presents candidate lots by expiry date (earliest first)",
		),
	}
}

// OrderCandidates filters out exhausted lots and sorts the rest by expiry
// date ascending. The sort is stable, so re-running it on an unchanged lot
// set yields the same order.
func (s *FEFOLotStrategy) OrderCandidates(
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
		iExpiry := filtered[i].ExpiryDate
		jExpiry := filtered[j].ExpiryDate

		// Lots without an expiry date go last
		if iExpiry.IsZero() {
			return false
		}
		if jExpiry.IsZero() {
			return true
		}
		return iExpiry.Before(jExpiry)
	})

	return filtered, nil
}

// ConsidersExpiry returns true as FEFO orders by expiry dates
func (s *FEFOLotStrategy) ConsidersExpiry() bool {
	return true
}

// filterAvailableLots keeps lots for the requested item that still have
// consumable quantity
func filterAvailableLots(lots []strategy.LotCandidate, inventoryItemID string) []strategy.LotCandidate {
	filtered := make([]strategy.LotCandidate, 0, len(lots))
	for _, l := range lots {
		if inventoryItemID != "" && l.InventoryItemID != inventoryItemID {
			continue
		}
		if l.Quantity.IsPositive() {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// prioritizePreferredLot moves the preferred lot to the front, keeping the
// relative order of the rest
func prioritizePreferredLot(lots []strategy.LotCandidate, preferLot string) []strategy.LotCandidate {
	ordered := make([]strategy.LotCandidate, 0, len(lots))
	rest := make([]strategy.LotCandidate, 0, len(lots))
	for _, l := range lots {
		if l.LotNumber == preferLot {
			ordered = append(ordered, l)
		} else {
			rest = append(rest, l)
		}
	}
	return append(ordered, rest...)
}
