package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T) *InventoryItem {
	t.Helper()

	item, err := NewInventoryItem("Minoxidil 10mg x30", "box", decimal.Zero, 30,
		decimal.NewFromInt(10), "mg", "7501001234567")
	require.NoError(t, err)
	return item
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestNewInventoryItemValidation(t *testing.T) {
	_, err := NewInventoryItem("", "box", decimal.Zero, 30, decimal.NewFromInt(10), "mg", "")
	assertDomainErrorCode(t, err, "INVALID_NAME")

	_, err = NewInventoryItem("Minoxidil", "box", decimal.NewFromInt(-1), 30, decimal.NewFromInt(10), "mg", "")
	assertDomainErrorCode(t, err, "INVALID_QUANTITY")
}

func TestAddLot(t *testing.T) {
	item := newTestItem(t)
	expiry := time.Now().AddDate(1, 0, 0)

	lot, err := item.AddLot("LOT-A", decimal.NewFromInt(10), expiry)
	require.NoError(t, err)
	assert.Equal(t, item.ID, lot.InventoryItemID)

	// Registering a lot tracks traceability only; the purchase-unit counter
	// moves through Restock
	assert.True(t, item.Quantity.IsZero())

	_, err = item.AddLot("LOT-A", decimal.NewFromInt(5), expiry)
	assertDomainErrorCode(t, err, "DUPLICATE_LOT")

	_, err = item.AddLot("", decimal.NewFromInt(5), expiry)
	assertDomainErrorCode(t, err, "INVALID_LOT_NUMBER")

	_, err = item.AddLot("LOT-B", decimal.Zero, expiry)
	assertDomainErrorCode(t, err, "INVALID_QUANTITY")
}

func TestActiveLotsSkipsExhausted(t *testing.T) {
	item := newTestItem(t)
	expiry := time.Now().AddDate(1, 0, 0)

	_, err := item.AddLot("LOT-A", decimal.NewFromInt(2), expiry)
	require.NoError(t, err)
	_, err = item.AddLot("LOT-B", decimal.NewFromInt(5), expiry)
	require.NoError(t, err)

	item.GetLot("LOT-A").Deduct(decimal.NewFromInt(2))

	active := item.ActiveLots()
	require.Len(t, active, 1)
	assert.Equal(t, "LOT-B", active[0].LotNumber)

	// Exhausted lots stay on the aggregate for history
	assert.Len(t, item.Lots, 2)
}

func TestConsumeForDispatch(t *testing.T) {
	item := newTestItem(t)
	_, err := item.AddLot("LOT-A", decimal.NewFromInt(10), time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	require.NoError(t, item.Restock(decimal.NewFromInt(10)))
	item.ClearDomainEvents()

	require.NoError(t, item.ConsumeForDispatch("LOT-A", decimal.NewFromInt(3)))
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(7)))
	assert.True(t, item.GetLot("LOT-A").Quantity.Equal(decimal.NewFromInt(7)))
	assert.Len(t, item.GetDomainEvents(), 1)
}

func TestConsumeForDispatchErrors(t *testing.T) {
	item := newTestItem(t)
	_, err := item.AddLot("LOT-A", decimal.NewFromInt(2), time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	require.NoError(t, item.Restock(decimal.NewFromInt(2)))

	assertDomainErrorCode(t, item.ConsumeForDispatch("LOT-A", decimal.Zero), "INVALID_QUANTITY")
	assertDomainErrorCode(t, item.ConsumeForDispatch("LOT-A", decimal.NewFromInt(5)), "INSUFFICIENT_STOCK")
	assertDomainErrorCode(t, item.ConsumeForDispatch("LOT-X", decimal.NewFromInt(1)), "LOT_NOT_FOUND")

	item.GetLot("LOT-A").Deduct(decimal.NewFromInt(2))
	assertDomainErrorCode(t, item.ConsumeForDispatch("LOT-A", decimal.NewFromInt(1)), "LOT_EXHAUSTED")
}

func TestConsumeForDispatchEmitsThresholdEvent(t *testing.T) {
	item := newTestItem(t)
	_, err := item.AddLot("LOT-A", decimal.NewFromInt(10), time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	require.NoError(t, item.Restock(decimal.NewFromInt(10)))
	require.NoError(t, item.SetLowStockThreshold(decimal.NewFromInt(5)))
	item.ClearDomainEvents()

	// 10 -> 6 stays above threshold
	require.NoError(t, item.ConsumeForDispatch("LOT-A", decimal.NewFromInt(4)))
	assert.Len(t, item.GetDomainEvents(), 1)
	item.ClearDomainEvents()

	// 6 -> 4 crosses it
	require.NoError(t, item.ConsumeForDispatch("LOT-A", decimal.NewFromInt(2)))
	events := item.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "inventory.stock_below_threshold", events[1].EventType())
}

func TestMatchesBarcode(t *testing.T) {
	item := newTestItem(t)
	assert.True(t, item.MatchesBarcode("7501001234567"))
	assert.False(t, item.MatchesBarcode("7501001234568"))
	assert.False(t, item.MatchesBarcode(""))

	unlabeled, err := NewInventoryItem("Bulk powder", "kg", decimal.Zero, 1, decimal.NewFromInt(1), "g", "")
	require.NoError(t, err)
	assert.False(t, unlabeled.MatchesBarcode(""))
}

func TestIsBelowThreshold(t *testing.T) {
	item := newTestItem(t)

	// Zero threshold disables the flag entirely
	assert.False(t, item.IsBelowThreshold())

	require.NoError(t, item.SetLowStockThreshold(decimal.NewFromInt(3)))
	assert.True(t, item.IsBelowThreshold())

	require.NoError(t, item.Restock(decimal.NewFromInt(3)))
	assert.False(t, item.IsBelowThreshold())

	assertDomainErrorCode(t, item.SetLowStockThreshold(decimal.NewFromInt(-1)), "INVALID_THRESHOLD")
}

func TestStockLotExpiryAndDeduct(t *testing.T) {
	now := time.Now()

	lot, err := NewStockLot(newTestItem(t).ID, "LOT-A", decimal.NewFromInt(5), now.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.False(t, lot.IsExpired(now))
	assert.True(t, lot.IsExpired(now.AddDate(0, 0, 11)))

	// Deducting past the remainder drains the lot and reports the actual amount
	deducted := lot.Deduct(decimal.NewFromInt(8))
	assert.True(t, deducted.Equal(decimal.NewFromInt(5)))
	assert.False(t, lot.HasStock())

	noExpiry, err := NewStockLot(newTestItem(t).ID, "LOT-B", decimal.NewFromInt(1), time.Time{})
	require.NoError(t, err)
	assert.False(t, noExpiry.IsExpired(now))
	assert.Equal(t, -1, noExpiry.DaysUntilExpiry())
}
