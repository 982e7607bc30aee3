package httpserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/publisher"
	"tradesim/internal/taskstore"
	"tradesim/internal/testutil"
	"tradesim/pkg/healthprobe"
	"tradesim/pkg/types"
)

type fakeRunner struct {
	started  []int64
	stopped  []int64
	startErr error
	stopErr  error
}

func (f *fakeRunner) Start(_ context.Context, id int64) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, id)
	return nil
}

func (f *fakeRunner) Stop(_ context.Context, id int64) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, id)
	return nil
}

type testServer struct {
	*httptest.Server
	store  *taskstore.Store
	bus    *bus.Bus
	runner *fakeRunner
	health *healthprobe.HealthChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	b, err := bus.New(&bus.Config{Addr: mr.Addr(), Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	store := taskstore.New(&taskstore.Config{
		Client: b.Client(),
		Prefix: "backtest",
		Logger: zap.NewNop(),
	})
	runner := &fakeRunner{}
	health := healthprobe.New()

	srv := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: health,
		Store:         store,
		Bus:           b,
		Prefix:        "backtest",
		Runner:        runner,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, store: store, bus: b, runner: runner, health: health}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(blob)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	ts.health.SetReady(true)
	resp = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestTaskLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/tasks", testutil.Task(0, "sma-cross", 16))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created types.Task
	decodeJSON(t, resp, &created)
	require.Positive(t, created.ID)
	assert.False(t, created.IsRunning)

	resp = ts.do(t, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []types.Task
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	resp = ts.do(t, http.MethodGet, "/api/v1/tasks/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got types.Task
	decodeJSON(t, resp, &got)
	assert.Equal(t, "sma-cross", got.FileName)

	updated := created
	updated.Symbol = "ETH/USDT"
	resp = ts.do(t, http.MethodPut, "/api/v1/tasks/1", &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	assert.Equal(t, "ETH/USDT", got.Symbol)

	resp = ts.do(t, http.MethodDelete, "/api/v1/tasks/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/tasks/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTaskValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/tasks", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	task := testutil.Task(0, "sma-cross", 16)
	task.Symbol = ""
	resp = ts.do(t, http.MethodPost, "/api/v1/tasks", task)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body ErrorResponse
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Error, "symbol")

	resp = ts.do(t, http.MethodGet, "/api/v1/tasks/zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/tasks/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTaskDuplicateStrategyKey(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/tasks", testutil.Task(0, "sma-cross", 16))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/v1/tasks", testutil.Task(0, "sma-cross", 16))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestRunningTaskIsImmutable(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	task := testutil.Task(0, "sma-cross", 16)
	fresh, err := ts.store.NewTask(ctx)
	require.NoError(t, err)
	task.ID = fresh.ID
	task.IsRunning = true
	require.NoError(t, ts.store.Save(ctx, task))

	resp := ts.do(t, http.MethodPut, "/api/v1/tasks/1", task)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodDelete, "/api/v1/tasks/1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestStartAndStop(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/tasks/7/start", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int64{7}, ts.runner.started)

	resp = ts.do(t, http.MethodPost, "/api/v1/tasks/7/stop", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int64{7}, ts.runner.stopped)

	ts.runner.startErr = types.ErrTaskRunning
	resp = ts.do(t, http.MethodPost, "/api/v1/tasks/7/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	ts.runner.stopErr = types.ErrNotFound
	resp = ts.do(t, http.MethodPost, "/api/v1/tasks/7/stop", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestStrategiesCatalog(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog []struct {
		Name       string `json:"name"`
		Parameters map[string]struct {
			Default     any    `json:"default"`
			Description string `json:"description"`
		} `json:"parameters"`
	}
	decodeJSON(t, resp, &catalog)
	require.NotEmpty(t, catalog)

	var smaCross bool
	for _, d := range catalog {
		if d.Name != "sma-cross" {
			continue
		}
		smaCross = true
		require.Contains(t, d.Parameters, "fast")
		assert.NotEmpty(t, d.Parameters["fast"].Description)
		assert.EqualValues(t, 10, d.Parameters["fast"].Default)
	}
	assert.True(t, smaCross, "sma-cross should be in the catalog")
}

func TestResultsRead(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	profit := 0.0
	pub := publisher.New(&publisher.Config{
		Bus:      ts.bus,
		Prefix:   "backtest",
		ResultID: "r-xyz",
		Properties: []publisher.Property{
			publisher.Scalar("profit", func() any { return profit }),
		},
		Logger: zap.NewNop(),
	})
	require.NoError(t, pub.Reset(ctx))
	profit = 1.5
	require.NoError(t, pub.SendChanges(ctx))
	require.NoError(t, pub.Finish(ctx))

	resp := ts.do(t, http.MethodGet, "/api/v1/results/r-xyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page ResultsResponse
	decodeJSON(t, resp, &page)
	require.Len(t, page.Packets, 3)
	assert.Equal(t, types.PacketStart, page.Packets[0].Type)
	assert.Equal(t, types.PacketEnd, page.Packets[2].Type)
	assert.Equal(t, "r-xyz", page.Packets[1].ResultID)
	require.NotEmpty(t, page.LastID)

	resp = ts.do(t, http.MethodGet, "/api/v1/results/r-xyz?last_id="+page.LastID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rest ResultsResponse
	decodeJSON(t, resp, &rest)
	assert.Empty(t, rest.Packets)
	assert.Equal(t, page.LastID, rest.LastID, "empty page echoes the cursor")

	resp = ts.do(t, http.MethodGet, "/api/v1/results/r-xyz?count=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first ResultsResponse
	decodeJSON(t, resp, &first)
	require.Len(t, first.Packets, 1)
	assert.Equal(t, types.PacketStart, first.Packets[0].Type)

	resp = ts.do(t, http.MethodGet, "/api/v1/results/r-xyz?count=-3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/results/r-xyz?block_ms=oops", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEventsSocketForwardsEnvelopes(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	task := testutil.Task(0, "sma-cross", 16)
	fresh, err := ts.store.NewTask(ctx)
	require.NoError(t, err)
	task.ID = fresh.ID
	require.NoError(t, ts.store.Save(ctx, task))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/tasks/1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The handler subscribes asynchronously; keep publishing until a frame
	// comes through.
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				_ = ts.store.SendMessage(ctx, task.ID, types.LevelInfo, "bars loaded")
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := conn.ReadMessage()
	close(done)
	require.NoError(t, err)

	var msg types.Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, types.LevelInfo, msg.Level)
	assert.Equal(t, "bars loaded", msg.Message)
}

func TestEventsSocketRejectsUnknownTask(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/tasks/42/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
