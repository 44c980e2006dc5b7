package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagingKey() dispatch.StagingKey {
	return dispatch.StagingKey{
		PrescriptionID:  uuid.New(),
		InventoryItemID: uuid.New(),
	}
}

func TestStagingStore_GetAbsentReturnsPending(t *testing.T) {
	store := NewInMemoryStagingStore(time.Minute)
	key := stagingKey()

	staged, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, staged.Key)
	assert.Equal(t, dispatch.ValidationPending, staged.Outcome)
	assert.False(t, staged.IsValid())
}

func TestStagingStore_PutAndGet(t *testing.T) {
	store := NewInMemoryStagingStore(time.Minute)
	ctx := context.Background()
	key := stagingKey()

	err := store.Put(ctx, dispatch.LineStaging{
		Key:         key,
		SelectedLot: "LOT-A",
		ScannedCode: "7501001234567",
		Outcome:     dispatch.ValidationValid,
	})
	require.NoError(t, err)

	staged, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "LOT-A", staged.SelectedLot)
	assert.True(t, staged.IsValid())
}

func TestStagingStore_Remove(t *testing.T) {
	store := NewInMemoryStagingStore(time.Minute)
	ctx := context.Background()
	key := stagingKey()

	require.NoError(t, store.Put(ctx, dispatch.LineStaging{Key: key, Outcome: dispatch.ValidationValid}))
	require.NoError(t, store.Remove(ctx, key))

	staged, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, dispatch.ValidationPending, staged.Outcome)
}

func TestStagingStore_EntriesExpire(t *testing.T) {
	store := NewInMemoryStagingStore(10 * time.Millisecond)
	ctx := context.Background()
	key := stagingKey()

	require.NoError(t, store.Put(ctx, dispatch.LineStaging{Key: key, Outcome: dispatch.ValidationValid}))

	time.Sleep(20 * time.Millisecond)

	staged, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, dispatch.ValidationPending, staged.Outcome)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestStagingStore_List(t *testing.T) {
	store := NewInMemoryStagingStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, dispatch.LineStaging{Key: stagingKey(), Outcome: dispatch.ValidationValid}))
	require.NoError(t, store.Put(ctx, dispatch.LineStaging{Key: stagingKey(), Outcome: dispatch.ValidationInvalid}))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
