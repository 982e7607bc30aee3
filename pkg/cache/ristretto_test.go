package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(c.Close)

	return c.(*RistrettoCache)
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	if !c.Set("market:BTC/USDT", "payload", time.Hour) {
		t.Fatal("expected Set to admit the entry")
	}
	c.Wait()

	got, found := c.Get("market:BTC/USDT")
	if !found {
		t.Fatal("expected key to be found")
	}
	if got != "payload" {
		t.Errorf("expected %q, got %v", "payload", got)
	}
}

func TestRistrettoCache_Miss(t *testing.T) {
	c := newTestCache(t)

	if _, found := c.Get("absent"); found {
		t.Error("expected miss for an absent key")
	}
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 1, time.Hour)
	c.Wait()
	if _, found := c.Get("k"); !found {
		t.Fatal("expected key before delete")
	}

	c.Delete("k")

	if _, found := c.Get("k"); found {
		t.Error("expected key to be gone after delete")
	}
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 1, 150*time.Millisecond)
	c.Wait()
	if _, found := c.Get("k"); !found {
		t.Fatal("expected key before the TTL elapsed")
	}

	time.Sleep(300 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expected key to expire")
	}
}

func TestRistrettoCache_Clear(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Wait()

	_, foundA := c.Get("a")
	_, foundB := c.Get("b")
	if !foundA || !foundB {
		// Admission is probabilistic under cost pressure.
		t.Skipf("entries not admitted: a=%v b=%v", foundA, foundB)
	}

	c.Clear()

	if _, found := c.Get("a"); found {
		t.Error("expected cache to be empty after Clear")
	}
	if _, found := c.Get("b"); found {
		t.Error("expected cache to be empty after Clear")
	}
}
