package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradesim/pkg/types"
)

// Binance error code for an unknown symbol.
const binanceInvalidSymbol = -1121

// BinanceClient fetches OHLCV data from the Binance spot REST API.
// Requests are rate-limited and retried on 5xx responses.
type BinanceClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// BinanceConfig holds configuration for the Binance client.
type BinanceConfig struct {
	BaseURL   string
	RateLimit float64 // requests per second
	Retries   int
	Logger    *zap.Logger
}

// NewBinanceClient creates a Binance REST client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &BinanceClient{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  cfg.Logger,
	}
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FetchOHLCV fetches one batch of klines starting at since.
func (c *BinanceClient) FetchOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since int64, limit int) ([]types.Bar, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var (
		rows   [][]any
		apiErr binanceError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", NativeSymbol(symbol)).
		SetQueryParam("interval", string(timeframe)).
		SetQueryParam("startTime", strconv.FormatInt(since, 10)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&rows).
		SetError(&apiErr).
		Get("/api/v3/klines")
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		FetchErrorsTotal.Inc()
		if apiErr.Code == binanceInvalidSymbol {
			return nil, fmt.Errorf("%w: %s", types.ErrNoMarket, symbol)
		}
		return nil, fmt.Errorf("fetch klines: status %d: %s", resp.StatusCode(), resp.String())
	}

	bars := make([]types.Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("parse kline: %w", err)
		}
		bars = append(bars, bar)
	}

	FetchesTotal.Inc()
	BarsFetchedTotal.Add(float64(len(bars)))
	FetchDurationSeconds.Observe(time.Since(start).Seconds())

	c.logger.Debug("klines-fetched",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int64("since", since),
		zap.Int("count", len(bars)))

	return bars, nil
}

// parseKline decodes one kline row. Binance encodes timestamps as JSON
// numbers and prices as strings:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []any) (types.Bar, error) {
	if len(row) < 6 {
		return types.Bar{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return types.Bar{}, fmt.Errorf("unexpected open time %v", row[0])
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		s, ok := row[i+1].(string)
		if !ok {
			return types.Bar{}, fmt.Errorf("unexpected field %v", row[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("parse field %q: %w", s, err)
		}
		values[i] = v
	}

	return types.Bar{
		Time:   int64(openTime),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

type binanceExchangeInfo struct {
	Symbols []binanceSymbol `json:"symbols"`
}

type binanceSymbol struct {
	Symbol  string          `json:"symbol"`
	Status  string          `json:"status"`
	Base    string          `json:"baseAsset"`
	Quote   string          `json:"quoteAsset"`
	Filters []binanceFilter `json:"filters"`
}

type binanceFilter struct {
	FilterType string `json:"filterType"`
	TickSize   string `json:"tickSize"`
	StepSize   string `json:"stepSize"`
}

// FetchMarket fetches instrument metadata from the exchangeInfo endpoint.
func (c *BinanceClient) FetchMarket(ctx context.Context, symbol string) (*Market, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var (
		info   binanceExchangeInfo
		apiErr binanceError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", NativeSymbol(symbol)).
		SetResult(&info).
		SetError(&apiErr).
		Get("/api/v3/exchangeInfo")
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		FetchErrorsTotal.Inc()
		if apiErr.Code == binanceInvalidSymbol {
			return nil, fmt.Errorf("%w: %s", types.ErrNoMarket, symbol)
		}
		return nil, fmt.Errorf("fetch exchange info: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(info.Symbols) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoMarket, symbol)
	}

	native := info.Symbols[0]
	market := &Market{
		Symbol: native.Base + "/" + native.Quote,
		ID:     native.Symbol,
		Active: native.Status == "TRADING",
	}

	for _, f := range native.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			market.PriceStep, _ = strconv.ParseFloat(f.TickSize, 64)
		case "LOT_SIZE":
			market.AmountStep, _ = strconv.ParseFloat(f.StepSize, 64)
		}
	}

	return market, nil
}

// NativeSymbol converts a unified "BASE/QUOTE" symbol to Binance's
// concatenated form.
func NativeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}
