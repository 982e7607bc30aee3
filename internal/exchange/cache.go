package exchange

import (
	"context"
	"fmt"
	"time"

	"tradesim/pkg/cache"
	"tradesim/pkg/types"
)

// CachedClient wraps a Client and caches market metadata lookups. Bar
// fetches always pass through; instrument metadata changes rarely enough
// that a long TTL is safe.
type CachedClient struct {
	client Client
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedClient creates a caching wrapper around an exchange client.
func NewCachedClient(client Client, c cache.Cache) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  c,
		ttl:    24 * time.Hour,
	}
}

// FetchOHLCV delegates to the wrapped client.
func (c *CachedClient) FetchOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since int64, limit int) ([]types.Bar, error) {
	return c.client.FetchOHLCV(ctx, symbol, timeframe, since, limit)
}

// FetchMarket returns market metadata, consulting the cache first.
func (c *CachedClient) FetchMarket(ctx context.Context, symbol string) (*Market, error) {
	cacheKey := fmt.Sprintf("market:%s", symbol)

	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if market, ok := cached.(*Market); ok {
				return market, nil
			}
		}
	}

	market, err := c.client.FetchMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, market, c.ttl)
	}

	return market, nil
}
