package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache implements Cache on dgraph-io/ristretto. Entries are
// counted rather than sized: every entry costs 1, so MaxCost is the entry
// capacity.
type RistrettoCache struct {
	inner  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig sizes the cache. NumCounters should be roughly ten times
// the expected number of live entries; BufferItems is ristretto's Get buffer
// size, for which 64 is the recommended value.
type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Logger      *zap.Logger
}

// NewRistrettoCache builds a ristretto-backed cache with internal metrics
// enabled.
func NewRistrettoCache(cfg *RistrettoConfig) (Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{inner: inner, logger: cfg.Logger}, nil
}

// Get returns the value stored under key, if present.
func (r *RistrettoCache) Get(key string) (any, bool) {
	value, found := r.inner.Get(key)
	if found {
		HitsTotal.Inc()
	} else {
		MissesTotal.Inc()
	}
	r.logger.Debug("cache-get", zap.String("key", key), zap.Bool("hit", found))
	return value, found
}

// Set stores value under key with a TTL. Ristretto applies writes
// asynchronously; callers that must observe the write immediately call Wait.
func (r *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	admitted := r.inner.SetWithTTL(key, value, 1, ttl)
	if admitted {
		SetsTotal.Inc()
		r.logger.Debug("cache-set", zap.String("key", key), zap.Duration("ttl", ttl))
	}
	return admitted
}

// Delete drops the entry for key.
func (r *RistrettoCache) Delete(key string) {
	r.inner.Del(key)
	DeletesTotal.Inc()
	r.logger.Debug("cache-delete", zap.String("key", key))
}

// Clear drops every entry.
func (r *RistrettoCache) Clear() {
	r.inner.Clear()
	r.logger.Info("cache-cleared")
}

// Close releases the cache's resources.
func (r *RistrettoCache) Close() {
	r.inner.Close()
	r.logger.Info("cache-closed")
}

// Metrics exposes ristretto's internal hit/miss counters.
func (r *RistrettoCache) Metrics() *ristretto.Metrics {
	return r.inner.Metrics
}

// Wait blocks until pending writes have been applied.
func (r *RistrettoCache) Wait() {
	r.inner.Wait()
}
