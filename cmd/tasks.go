package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tradesim/internal/bus"
	"tradesim/internal/taskstore"
	"tradesim/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List stored backtest tasks",
	Long: `Lists every stored task with its strategy, market, date range and
run state.

Examples:
  # List all tasks
  tradesim tasks`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewConsoleLogger()
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tasks, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks stored.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Strategy", "Source", "Symbol", "TF", "From", "To", "Running", "Result ID")

	for _, task := range tasks {
		resultID := task.ResultID
		if len(resultID) > 8 {
			resultID = resultID[:8] + "..."
		}
		if resultID == "" {
			resultID = "-"
		}

		table.Append(
			strconv.FormatInt(task.ID, 10),
			task.FileName,
			task.Source,
			task.Symbol,
			string(task.Timeframe),
			task.DateStart.Format("2006-01-02"),
			task.DateEnd.Format("2006-01-02"),
			strconv.FormatBool(task.IsRunning),
			resultID,
		)
	}

	table.Render()
	fmt.Printf("\n%d task(s)\n", len(tasks))

	return nil
}
