package quotes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLock_FIFOOrder(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan int, 5)
	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := locks.Lock(ctx, "k")
			if err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			acquired <- i
			u()
		}(i)
		// Stagger arrivals so the queue order is deterministic.
		time.Sleep(20 * time.Millisecond)
	}

	unlock()
	wg.Wait()
	close(acquired)

	var order []int
	for i := range acquired {
		order = append(order, i)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order, "waiters acquire in arrival order")
}

func TestKeyLock_KeysAreIndependent(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlockA, err := locks.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, "b")
		if err == nil {
			u()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyLock_ReusableAfterRelease(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "k")
	require.NoError(t, err)
	unlock()

	done := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, "k")
		if err == nil {
			u()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relock after release blocked")
	}
}

func TestKeyLock_CanceledWaiterKeepsChainAlive(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "k")
	require.NoError(t, err)

	// A waiter that gives up while queued.
	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = locks.Lock(canceledCtx, "k")
	require.Error(t, err)

	// A later waiter must still acquire once the holder releases.
	done := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, "k")
		if err == nil {
			u()
		}
		close(done)
	}()

	unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter behind a canceled ticket never acquired")
	}
}
