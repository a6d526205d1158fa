package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-field/internal/connectivity"
	"github.com/angelmondragon/packfinderz-field/internal/queue"
	syncpkg "github.com/angelmondragon/packfinderz-field/internal/sync"
	"github.com/angelmondragon/packfinderz-field/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
)

type stubReplayer struct {
	err   error
	calls int
}

func (s *stubReplayer) Replay(ctx context.Context, op enums.OperationType, payload json.RawMessage) error {
	s.calls++
	return s.err
}

func newControllerEngine(t *testing.T, store *queue.Store, replayer syncpkg.Replayer) *syncpkg.Engine {
	t.Helper()
	engine, err := syncpkg.NewEngine(syncpkg.EngineParams{Store: store, Replayer: replayer})
	require.NoError(t, err)
	return engine
}

func newControllerMonitor(t *testing.T, store *queue.Store, engine *syncpkg.Engine) *connectivity.Monitor {
	t.Helper()
	monitor, err := connectivity.NewMonitor(connectivity.MonitorParams{
		Engine:   engine,
		Store:    store,
		Debounce: time.Millisecond,
	})
	require.NoError(t, err)
	return monitor
}

func TestRetryEntryUnknownIDReturns404(t *testing.T) {
	store := newControllerStore(t)
	engine := newControllerEngine(t, store, &stubReplayer{})

	router := chi.NewRouter()
	router.Post("/v1/queue/{entryId}/retry", RetryEntry(store, engine, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/queue/missing/retry", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	assert.Equal(t, "queue entry not found", envelope.Error.Message)
}

func TestRetryEntrySyncsFailedEntry(t *testing.T) {
	store := newControllerStore(t)
	replayer := &stubReplayer{}
	engine := newControllerEngine(t, store, replayer)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, entry.ID, "boom"))

	router := chi.NewRouter()
	router.Post("/v1/queue/{entryId}/retry", RetryEntry(store, engine, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/queue/"+entry.ID+"/retry", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"synced":true}}`, resp.Body.String())
	assert.Equal(t, 1, replayer.calls)

	count, err := store.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRetryEntryReportsFailedReplay(t *testing.T) {
	store := newControllerStore(t)
	engine := newControllerEngine(t, store, &stubReplayer{err: pkgerrors.New(pkgerrors.CodeRemote, "still down")})
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Post("/v1/queue/{entryId}/retry", RetryEntry(store, engine, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/queue/"+entry.ID+"/retry", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"synced":false}}`, resp.Body.String())
}

func TestRetryAllFailedRunsPass(t *testing.T) {
	store := newControllerStore(t)
	replayer := &stubReplayer{}
	engine := newControllerEngine(t, store, replayer)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		entry, err := store.Enqueue(ctx, enums.OperationSale, nil)
		require.NoError(t, err)
		require.NoError(t, store.MarkFailed(ctx, entry.ID, "boom"))
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/queue/retry-failed", nil)
	resp := httptest.NewRecorder()
	RetryAllFailed(engine, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"attempted":2,"succeeded":2,"failed":0}}`, resp.Body.String())
}

func TestTriggerSyncReturnsResult(t *testing.T) {
	store := newControllerStore(t)
	engine := newControllerEngine(t, store, &stubReplayer{})
	monitor := newControllerMonitor(t, store, engine)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, enums.OperationAdjustment, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
	resp := httptest.NewRecorder()
	TriggerSync(monitor, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"attempted":1,"succeeded":1,"failed":0}}`, resp.Body.String())
}

func TestSyncStatusReflectsMonitorState(t *testing.T) {
	store := newControllerStore(t)
	engine := newControllerEngine(t, store, &stubReplayer{})
	monitor := newControllerMonitor(t, store, engine)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, enums.OperationSale, nil)
	require.NoError(t, err)
	monitor.Start(ctx, nil)
	monitor.HandleStateChange(ctx, connectivity.State{Connected: true, Reachability: connectivity.ReachabilityUnreachable})

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	resp := httptest.NewRecorder()
	SyncStatus(monitor, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data connectivity.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Data.IsConnected)
	assert.Equal(t, connectivity.ReachabilityUnreachable, envelope.Data.IsInternetReachable)
	assert.Equal(t, 1, envelope.Data.PendingCount)
}

func TestReportConnectivityMapsTriState(t *testing.T) {
	store := newControllerStore(t)
	engine := newControllerEngine(t, store, &stubReplayer{})
	monitor := newControllerMonitor(t, store, engine)

	handler := ReportConnectivity(monitor, nil)

	resp := postJSON(t, handler, "/v1/connectivity", `{"isConnected":true}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data connectivity.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Data.IsConnected)
	assert.Equal(t, connectivity.ReachabilityUnknown, envelope.Data.IsInternetReachable)

	resp = postJSON(t, handler, "/v1/connectivity", `{"isConnected":true,"isInternetReachable":false}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, connectivity.ReachabilityUnreachable, envelope.Data.IsInternetReachable)
}
