package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventoryItem(t *testing.T, barcode string) *inventory.InventoryItem {
	t.Helper()

	item, err := inventory.NewInventoryItem(
		"Minoxidil 10mg tablets", "box", decimal.NewFromInt(20), 30,
		decimal.NewFromInt(10), "mg", barcode,
	)
	require.NoError(t, err)

	_, err = item.AddLot("LOT-A", decimal.NewFromInt(20), time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)

	return item
}

func TestInventorySaveAndFindByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	item := newTestInventoryItem(t, "750100000001")
	require.NoError(t, repo.Save(ctx, item))

	loaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, "Minoxidil 10mg tablets", loaded.Name)
	assert.True(t, loaded.Quantity.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, int64(30), loaded.ItemsPerBaseUnit)
	assert.Equal(t, 1, loaded.Version)
	require.Len(t, loaded.Lots, 1)
	assert.Equal(t, "LOT-A", loaded.Lots[0].LotNumber)
}

func TestInventoryFindByBarcode(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	item := newTestInventoryItem(t, "750100000002")
	require.NoError(t, repo.Save(ctx, item))

	loaded, err := repo.FindByBarcode(ctx, "750100000002")
	require.NoError(t, err)
	assert.Equal(t, item.ID, loaded.ID)

	_, err = repo.FindByBarcode(ctx, "unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInventoryConsumePersistsCounters(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	item := newTestInventoryItem(t, "750100000003")
	require.NoError(t, repo.Save(ctx, item))

	loaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.ConsumeForDispatch("LOT-A", decimal.NewFromInt(3)))
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)

	assert.True(t, reloaded.Quantity.Equal(decimal.NewFromInt(17)))
	require.Len(t, reloaded.Lots, 1)
	assert.True(t, reloaded.Lots[0].Quantity.Equal(decimal.NewFromInt(17)))
	assert.Equal(t, 2, reloaded.Version)
}

func TestInventorySaveConcurrencyConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	item := newTestInventoryItem(t, "750100000004")
	require.NoError(t, repo.Save(ctx, item))

	first, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)

	require.NoError(t, first.ConsumeForDispatch("LOT-A", decimal.NewFromInt(5)))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.ConsumeForDispatch("LOT-A", decimal.NewFromInt(18)))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The losing withdrawal left no trace
	reloaded, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Quantity.Equal(decimal.NewFromInt(15)))
}

func TestInventoryFindAllHasStockFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	stocked := newTestInventoryItem(t, "750100000005")
	require.NoError(t, repo.Save(ctx, stocked))

	empty, err := inventory.NewInventoryItem(
		"Finasteride 5mg tablets", "box", decimal.Zero, 28,
		decimal.NewFromInt(5), "mg", "750100000006",
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, empty))

	filter := shared.DefaultFilter()
	filter.Filters["has_stock"] = true

	result, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, stocked.ID, result[0].ID)

	count, err := repo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInventoryFindByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
