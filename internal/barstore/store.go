package barstore

import (
	"context"

	"tradesim/pkg/types"
)

// Store is the interface for durable OHLCV bar storage keyed by
// (source, symbol, timeframe, time).
type Store interface {
	// Insert persists closed bars. Rows colliding with an existing
	// (source, symbol, timeframe, time) entry are skipped, so gap-fill
	// retries are idempotent.
	Insert(ctx context.Context, source, symbol string, timeframe types.Timeframe, bars []types.Bar) error

	// Get returns bars with time in [t0, t1] inclusive, ordered by time
	// ascending. An empty range yields an empty slice.
	Get(ctx context.Context, source, symbol string, timeframe types.Timeframe, t0, t1 int64) ([]types.Bar, error)

	// Close closes the storage connection.
	Close() error
}
