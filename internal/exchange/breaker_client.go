package exchange

import (
	"context"
	"errors"

	"tradesim/internal/circuitbreaker"
	"tradesim/pkg/types"
)

// BreakerClient wraps a Client with a circuit breaker so a broken upstream
// fails fast instead of being hammered by every gap-fill request.
type BreakerClient struct {
	client  Client
	breaker *circuitbreaker.Breaker
}

// NewBreakerClient creates a breaker-guarded wrapper around an exchange client.
func NewBreakerClient(client Client, breaker *circuitbreaker.Breaker) *BreakerClient {
	return &BreakerClient{client: client, breaker: breaker}
}

// FetchOHLCV delegates to the wrapped client while the breaker admits calls.
func (c *BreakerClient) FetchOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since int64, limit int) ([]types.Bar, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	bars, err := c.client.FetchOHLCV(ctx, symbol, timeframe, since, limit)
	c.report(err)
	return bars, err
}

// FetchMarket delegates to the wrapped client while the breaker admits calls.
func (c *BreakerClient) FetchMarket(ctx context.Context, symbol string) (*Market, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	m, err := c.client.FetchMarket(ctx, symbol)
	c.report(err)
	return m, err
}

func (c *BreakerClient) report(err error) {
	switch {
	case err == nil, errors.Is(err, types.ErrNoMarket):
		// An unknown symbol is a valid upstream answer, not an outage.
		c.breaker.ReportSuccess()
	case errors.Is(err, context.Canceled):
		// The caller gave up; says nothing about upstream health.
	default:
		c.breaker.ReportFailure()
	}
}
