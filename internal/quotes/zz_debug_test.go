package quotes

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/pkg/types"
)

// Temporary diagnostic test: exercises the raw queue/reply plumbing and the
// service loop with a visible logger. Not part of the suite; deleted after
// debugging.
func TestZZDebug_BusPlumbing(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	mr := miniredis.RunT(t)

	b, err := bus.New(&bus.Config{Addr: mr.Addr(), Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()

	// 1. push then pop (non-racing order)
	if err := b.QueuePush(ctx, "dbg:queue", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := b.QueuePop(ctx, "dbg:queue", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("pop after push: %q err=%v", got, err)

	// 2. pop blocking, push from another goroutine while blocked
	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = b.QueuePush(ctx, "dbg:queue2", []byte("later"))
	}()
	got2, err := b.QueuePop(ctx, "dbg:queue2", 3*time.Second)
	t.Logf("pop while blocked: %q err=%v", got2, err)

	// 3. reply slot round trip
	if err := b.ReplyPush(ctx, "dbg:reply:1", []byte("pong"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got3, err := b.ReplyPop(ctx, "dbg:reply:1", time.Second)
	t.Logf("reply pop: %q err=%v", got3, err)
}

func TestZZDebug_ServiceLoop(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	mr := miniredis.RunT(t)

	b, err := bus.New(&bus.Config{Addr: mr.Addr(), Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })

	svc := New(&Config{
		Bus:         b,
		Store:       nil,
		Fetcher:     nil,
		Queue:       "quotes:requests",
		ReplyPrefix: "quotes:reply",
		ReplyTTL:    time.Minute,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	// no head start: replicate the harness ordering exactly
	t.Logf("keys before push: %v", mr.Keys())

	client := NewClient(&ClientConfig{
		Bus:         b,
		Queue:       "quotes:requests",
		ReplyPrefix: "quotes:reply",
		Timeout:     5 * time.Second,
		Logger:      logger,
	})

	// unknown timeframe short-circuits before store/fetcher are touched, so
	// nil Store/Fetcher are safe here.
	_, err = client.GetQuotes(ctx, "binance", "BTC/USDT", types.Timeframe("7m"), 0, 1000)
	t.Logf("GetQuotes err: %v", err)
	t.Logf("keys after: %v", mr.Keys())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Log("service did not stop")
	}
}
