package cache

import "time"

// Cache is a process-local key/value cache with per-entry TTLs. The exchange
// layer keeps market metadata in it so symbol validation does not hit the
// upstream on every request.
type Cache interface {
	// Get returns the value stored under key, if present and not expired.
	Get(key string) (any, bool)

	// Set stores value under key for the duration of ttl and reports
	// whether the entry was admitted. Writes may be applied asynchronously.
	Set(key string, value any, ttl time.Duration) bool

	// Delete drops the entry for key.
	Delete(key string)

	// Clear drops every entry.
	Clear()

	// Close releases the cache's resources.
	Close()
}
