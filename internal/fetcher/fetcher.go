package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tradesim/internal/barstore"
	"tradesim/internal/exchange"
	"tradesim/pkg/types"
)

// Fetcher pulls missing bar ranges from the upstream exchange in paginated
// batches and persists them to the bar store.
//
// Batches are written with a one-batch hold-back: the most recent batch may
// end in an open, non-final candle, so it is only persisted once the next
// batch proves it closed. At termination the last bar of the held batch is
// dropped as a presumed open candle; the fetch window overshoots the
// requested range by two bars to compensate.
type Fetcher struct {
	store  barstore.Store
	client exchange.Client
	limit  int
	logger *zap.Logger
}

// Config holds configuration for the fetcher.
type Config struct {
	Store      barstore.Store
	Client     exchange.Client
	FetchLimit int // max bars per upstream request
	Logger     *zap.Logger
}

// New creates a fetcher.
func New(cfg *Config) *Fetcher {
	return &Fetcher{
		store:  cfg.Store,
		client: cfg.Client,
		limit:  cfg.FetchLimit,
		logger: cfg.Logger,
	}
}

// FillRange fetches bars covering [t0, t1] inclusive and persists the closed
// ones. A batch error aborts the fetch; no retry happens at this layer.
func (f *Fetcher) FillRange(ctx context.Context, source, symbol string, timeframe types.Timeframe, t0, t1 int64) error {
	if t0 > t1 {
		return fmt.Errorf("invalid range: %d > %d", t0, t1)
	}

	step := timeframe.Millis()

	// Two extra bars past the range end: one because endpoints are
	// inclusive, one so the open candle dropped at termination never eats
	// into the requested range.
	remaining := (t1-t0+step-1)/step + 2

	var held []types.Bar
	since := t0

	for remaining > 0 {
		limit := f.limit
		if remaining < int64(limit) {
			limit = int(remaining)
		}

		batch, err := f.client.FetchOHLCV(ctx, symbol, timeframe, since, limit)
		if err != nil {
			return fmt.Errorf("fetch batch since %d: %w", since, err)
		}
		if len(batch) == 0 {
			break
		}

		if len(held) > 0 {
			err = f.store.Insert(ctx, source, symbol, timeframe, held)
			if err != nil {
				return fmt.Errorf("persist batch: %w", err)
			}
		}
		held = batch
		remaining -= int64(len(batch))

		last := batch[len(batch)-1].Time
		next := last + step
		if next <= since {
			f.logger.Warn("fetch-made-no-progress",
				zap.String("symbol", symbol),
				zap.Int64("since", since),
				zap.Int64("last", last))
			break
		}
		since = next
	}

	// The trailing bar of the held batch may still be forming.
	if len(held) > 0 {
		held = held[:len(held)-1]
	}
	if len(held) > 0 {
		err := f.store.Insert(ctx, source, symbol, timeframe, held)
		if err != nil {
			return fmt.Errorf("persist final batch: %w", err)
		}
	}

	f.logger.Debug("range-filled",
		zap.String("source", source),
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int64("from", t0),
		zap.Int64("to", t1))

	return nil
}
