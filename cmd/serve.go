package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradesim/internal/app"
	"tradesim/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backtesting API",
	Long: `Starts the backtesting API, which:
1. Serves task CRUD, the strategy catalog and result streams over HTTP
2. Pushes task progress over WebSocket
3. Spawns an isolated worker process per started backtest

Workers re-execute this binary as 'run-task', so the server needs no other
deployment artifacts.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run(context.Background())
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
