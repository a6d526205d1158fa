package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-field/pkg/db/models"
	"github.com/angelmondragon/packfinderz-field/pkg/enums"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.QueueDocument{}))

	repo, err := NewRepository(conn, "offline_queue")
	require.NoError(t, err)

	store, err := NewStore(StoreParams{Repo: repo})
	require.NoError(t, err)
	return store, conn
}

func TestNewStoreRequiresRepository(t *testing.T) {
	_, err := NewStore(StoreParams{})
	require.Error(t, err)
}

func TestEnqueuePersistsPendingEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationAdjustment, json.RawMessage(`{"sku":"ABC","delta":-2}`))
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	assert.Equal(t, enums.EntryPending, entry.Status)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Nil(t, entry.LastError)
	assert.False(t, entry.QueuedAt.IsZero())

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.JSONEq(t, `{"sku":"ABC","delta":-2}`, string(entries[0].Payload))
}

func TestEnqueueDefaultsEmptyPayload(t *testing.T) {
	store, _ := newTestStore(t)

	entry, err := store.Enqueue(context.Background(), enums.OperationSale, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(entry.Payload))
}

func TestEnqueueRejectsMissingOperation(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Enqueue(context.Background(), "", json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestGetAllPreservesInsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		entry, err := store.Enqueue(ctx, enums.OperationAdjustment, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, entry := range entries {
		assert.Equal(t, ids[i], entry.ID)
	}
}

func TestDequeueFirstPendingSkipsNonPending(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, first.ID, "boom"))

	popped, err := store.DequeueFirstPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, second.ID, popped.ID)

	popped, err = store.DequeueFirstPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, popped)

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)
}

func TestMarkFailedIncrementsRetryCountAndRecordsError(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, entry.ID, "insufficient stock"))
	require.NoError(t, store.MarkPending(ctx, entry.ID))
	require.NoError(t, store.MarkFailed(ctx, entry.ID, "timeout"))

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntryFailed, entries[0].Status)
	assert.Equal(t, 2, entries[0].RetryCount)
	require.NotNil(t, entries[0].LastError)
	assert.Equal(t, "timeout", *entries[0].LastError)
}

func TestMarkPendingKeepsFailureContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, entry.ID, "boom"))
	require.NoError(t, store.MarkPending(ctx, entry.ID))

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntryPending, entries[0].Status)
	assert.Equal(t, 1, entries[0].RetryCount)
	require.NotNil(t, entries[0].LastError)
	assert.Equal(t, "boom", *entries[0].LastError)
}

func TestMutationsOnMissingIDAreNoops(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)

	require.NoError(t, store.RemoveByID(ctx, "missing"))
	require.NoError(t, store.MarkSyncing(ctx, "missing"))
	require.NoError(t, store.MarkFailed(ctx, "missing", "boom"))

	count, err := store.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetCountsTreatsSyncingAsPending(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)
	syncing, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkSyncing(ctx, syncing.ID))
	failed, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, failed.ID, "boom"))

	counts, err := store.GetCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 2, Failed: 1, Total: 3}, counts)

	pendingCount, err := store.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pendingCount)

	failedItems, err := store.FailedItems(ctx)
	require.NoError(t, err)
	require.Len(t, failedItems, 1)
	assert.Equal(t, failed.ID, failedItems[0].ID)
}

func TestClearAllEmptiesTheQueue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)

	require.NoError(t, store.ClearAll(ctx))

	count, err := store.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestResetStuckSyncingDemotesToPending(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	stuck, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkSyncing(ctx, stuck.ID))
	failed, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, failed.ID, "boom"))

	reset, err := store.ResetStuckSyncing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.EntryPending, entries[0].Status)
	assert.Equal(t, enums.EntryFailed, entries[1].Status)
}

func TestStoreSurvivesRestart(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationSale, json.RawMessage(`{"orderId":"o1"}`))
	require.NoError(t, err)

	repo, err := NewRepository(conn, "offline_queue")
	require.NoError(t, err)
	reopened, err := NewStore(StoreParams{Repo: repo})
	require.NoError(t, err)

	entries, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, enums.OperationSale, entries[0].Type)
}
