package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradesim/internal/bus"
	"tradesim/internal/driver"
	"tradesim/internal/publisher"
	"tradesim/internal/quotes"
	"tradesim/internal/taskstore"
	"tradesim/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runTaskID int64

//nolint:gochecknoglobals // Cobra boilerplate
var runTaskCmd = &cobra.Command{
	Use:   "run-task",
	Short: "Run one backtest to completion",
	Long: `Runs a single backtest in the current process and exits.

The serve command spawns this for every started task, but it also works
standalone: mark the task running first, then point --id at it. Results and
progress land on the same Redis streams either way.`,
	Args: cobra.NoArgs,
	RunE: runTask,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runTaskCmd)
	runTaskCmd.Flags().Int64Var(&runTaskID, "id", 0, "task id to execute")
	_ = runTaskCmd.MarkFlagRequired("id")
}

func runTask(cmd *cobra.Command, args []string) error {
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

	store := taskstore.New(&taskstore.Config{
		Client: msgBus.Client(),
		Prefix: cfg.KeyPrefix,
		Logger: logger,
	})

	quotesClient := quotes.NewClient(&quotes.ClientConfig{
		Bus:         msgBus,
		Queue:       cfg.QuotesQueue,
		ReplyPrefix: cfg.QuotesReplyPrefix,
		Timeout:     cfg.QuotesTimeout,
		Logger:      logger,
	})

	drv, err := driver.New(&driver.Config{
		Store:      store,
		Quotes:     quotesClient,
		SavePeriod: cfg.SavePeriod,
		Logger:     logger,
		NewSink: func(resultID string, props []publisher.Property) driver.ResultSink {
			return publisher.New(&publisher.Config{
				Bus:        msgBus,
				Prefix:     cfg.KeyPrefix,
				ResultID:   resultID,
				Properties: props,
				Logger:     logger,
			})
		},
	})
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}

	// SIGTERM from the server cancels the run; the driver still reports the
	// abort and hands the task back before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	task, err := store.Load(ctx, runTaskID)
	if err != nil {
		return fmt.Errorf("load task %d: %w", runTaskID, err)
	}

	err = drv.Run(ctx, task)
	if err != nil {
		return fmt.Errorf("run task %d: %w", runTaskID, err)
	}

	return nil
}
