package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradesim/internal/barstore"
	"tradesim/internal/bus"
	"tradesim/internal/circuitbreaker"
	"tradesim/internal/exchange"
	"tradesim/internal/fetcher"
	"tradesim/internal/quotes"
	"tradesim/pkg/cache"
	"tradesim/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var quotesServiceCmd = &cobra.Command{
	Use:   "quotes-service",
	Short: "Start the bar provider",
	Long: `Starts the quotes service, which:
1. Pops bar-range requests from the Redis queue
2. Serves covered ranges straight from the bar store
3. Fills history gaps from the upstream exchange, rate-limited and guarded
   by a circuit breaker
4. Answers on per-request reply slots

One instance serves any number of backtest workers.`,
	Args: cobra.NoArgs,
	RunE: runQuotesService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(quotesServiceCmd)
}

func runQuotesService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	msgBus, err := bus.New(&bus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer func() {
		_ = msgBus.Close()
	}()

	store, err := setupBarStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("setup bar store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	upstream, err := setupUpstream(cfg, logger)
	if err != nil {
		return fmt.Errorf("setup upstream: %w", err)
	}

	svc := quotes.New(&quotes.Config{
		Bus:   msgBus,
		Store: store,
		Fetcher: fetcher.New(&fetcher.Config{
			Store:      store,
			Client:     upstream,
			FetchLimit: cfg.ExchangeFetchLimit,
			Logger:     logger,
		}),
		Queue:       cfg.QuotesQueue,
		ReplyPrefix: cfg.QuotesReplyPrefix,
		ReplyTTL:    cfg.QuotesReplyTTL,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("run quotes service: %w", err)
	}

	return nil
}

// barStore is the closable store surface this command manages.
type barStore interface {
	barstore.Store
	Close() error
}

func setupBarStore(cfg *config.Config, logger *zap.Logger) (barStore, error) {
	if cfg.BarStoreMode == "postgres" {
		pgStore, err := barstore.NewPostgresStore(&barstore.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pgStore, nil
	}

	sqlStore, err := barstore.NewSQLiteStore(&barstore.SQLiteConfig{
		Path:   cfg.SQLitePath,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create sqlite store: %w", err)
	}
	return sqlStore, nil
}

// setupUpstream builds the exchange client stack: Binance REST at the bottom,
// a market-metadata cache above it, and the circuit breaker outermost so a
// broken upstream short-circuits before touching the cache.
func setupUpstream(cfg *config.Config, logger *zap.Logger) (exchange.Client, error) {
	binance := exchange.NewBinanceClient(&exchange.BinanceConfig{
		BaseURL:   cfg.ExchangeBaseURL,
		RateLimit: cfg.ExchangeRateLimit,
		Retries:   cfg.ExchangeRetries,
		Logger:    logger,
	})

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create market cache: %w", err)
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		CoolDown:         cfg.BreakerCoolDown,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	return exchange.NewBreakerClient(exchange.NewCachedClient(binance, marketCache), breaker), nil
}
