package quotes

import (
	"context"
	"sync"
)

// keyLock serializes work per string key with FIFO fairness: waiters on the
// same key acquire in arrival order, different keys proceed in parallel.
//
// Acquisition is a ticket chain: each waiter parks a channel as the key's
// tail and blocks on its predecessor's channel. Tails are never removed;
// key cardinality is bounded by the traded universe.
type keyLock struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{tails: make(map[string]chan struct{})}
}

// Lock blocks until the key is held or ctx is done. On success the returned
// function releases the key; it must be called exactly once.
func (k *keyLock) Lock(ctx context.Context, key string) (func(), error) {
	done := make(chan struct{})

	k.mu.Lock()
	prev := k.tails[key]
	k.tails[key] = done
	k.mu.Unlock()

	unlock := func() { close(done) }

	if prev == nil {
		return unlock, nil
	}

	select {
	case <-prev:
		return unlock, nil
	case <-ctx.Done():
		// Keep the chain intact for waiters queued behind us.
		go func() {
			<-prev
			close(done)
		}()
		return nil, ctx.Err()
	}
}
