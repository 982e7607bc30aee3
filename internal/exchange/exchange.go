package exchange

import (
	"context"

	"tradesim/pkg/types"
)

// Market holds trading metadata for one instrument.
type Market struct {
	Symbol     string  // unified symbol, e.g. "BTC/USDT"
	ID         string  // exchange-native id, e.g. "BTCUSDT"
	Active     bool    // instrument currently tradable
	PriceStep  float64 // minimum price increment
	AmountStep float64 // minimum amount increment
}

// Client is the narrow upstream surface the quotes pipeline depends on.
type Client interface {
	// FetchOHLCV returns up to limit bars starting at or after since
	// (milliseconds), ordered by time ascending. The trailing bar may be
	// an open, non-final candle.
	FetchOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since int64, limit int) ([]types.Bar, error)

	// FetchMarket returns trading metadata for a unified symbol.
	// Returns types.ErrNoMarket for symbols the exchange does not list.
	FetchMarket(ctx context.Context, symbol string) (*Market, error)
}
