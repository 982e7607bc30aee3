package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradesim/pkg/types"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(&Config{Client: client, Prefix: "backtest", Logger: zap.NewNop()}), client
}

func sampleTask(id int64, key string) *types.Task {
	return &types.Task{
		ID:              id,
		FileName:        key,
		Source:          "binance",
		Symbol:          "BTC/USDT",
		Timeframe:       types.TF1h,
		DateStart:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateEnd:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		FeeTaker:        0.001,
		FeeMaker:        0.0005,
		PriceStep:       0.01,
		PrecisionAmount: 0.0001,
		PrecisionPrice:  0.01,
	}
}

func TestNewTask_MonotonicIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.NewTask(ctx)
	require.NoError(t, err)
	second, err := store.NewTask(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	task := sampleTask(1, "sma-cross")
	require.NoError(t, store.Save(ctx, task))

	got, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, task.FileName, got.FileName)
	assert.Equal(t, task.Symbol, got.Symbol)
	assert.True(t, task.DateStart.Equal(got.DateStart))

	byKey, err := store.LoadByKey(ctx, "sma-cross")
	require.NoError(t, err)
	assert.Equal(t, task.ID, byKey.ID)
}

func TestLoad_Missing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), 42)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = store.LoadByKey(context.Background(), "ghost")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSave_UniqueKeyEnforced(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTask(1, "sma-cross")))

	// A different task claiming the same key must fail.
	err := store.Save(ctx, sampleTask(2, "sma-cross"))
	assert.True(t, errors.Is(err, types.ErrDuplicateKey))

	// Re-saving the owner is fine.
	assert.NoError(t, store.Save(ctx, sampleTask(1, "sma-cross")))
}

func TestSave_KeyChangeRepointsIndex(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTask(1, "old-name")))

	renamed := sampleTask(1, "new-name")
	require.NoError(t, store.Save(ctx, renamed))

	// Old index entry is gone; the key is reusable by another task.
	_, err := client.Get(ctx, "backtest:index:old-name").Result()
	assert.True(t, errors.Is(err, redis.Nil))

	got, err := store.LoadByKey(ctx, "new-name")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	require.NoError(t, store.Save(ctx, sampleTask(2, "old-name")))
}

func TestList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTask(3, "c")))
	require.NoError(t, store.Save(ctx, sampleTask(1, "a")))
	require.NoError(t, store.Save(ctx, sampleTask(2, "b")))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, want, tasks[i].ID, "tasks come back ordered by id")
	}
}

func TestDelete(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTask(1, "sma-cross")))
	require.NoError(t, store.Delete(ctx, 1))

	_, err := store.Load(ctx, 1)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = client.Get(ctx, "backtest:index:sma-cross").Result()
	assert.True(t, errors.Is(err, redis.Nil), "index entry removed with the object")

	// Deleting a missing task is a no-op.
	assert.NoError(t, store.Delete(ctx, 1))
}

func TestSendMessage(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "backtest:messages:7")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SendMessage(ctx, 7, types.LevelInfo, "backtest started"))

	select {
	case msg := <-sub.Channel():
		var envelope types.Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		assert.Equal(t, types.LevelInfo, envelope.Level)
		assert.Equal(t, "backtest started", envelope.Message)
		assert.False(t, envelope.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSendEvent(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "backtest:messages:7")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	data := map[string]any{"progress": 0.5, "result_id": "abc"}
	require.NoError(t, store.SendEvent(ctx, 7, types.EventBacktestingProgress, data))

	select {
	case msg := <-sub.Channel():
		var envelope types.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		assert.Equal(t, types.EventBacktestingProgress, envelope.Type)
		assert.Equal(t, 0.5, envelope.Data["progress"])
		assert.Equal(t, "abc", envelope.Data["result_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
