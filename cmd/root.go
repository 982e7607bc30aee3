package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "Event-driven backtesting engine",
	Long: `Tradesim runs trading strategies against historical exchange data.

The serve command hosts the HTTP API and spawns one worker process per
backtest. The quotes-service command hosts the bar provider that fills
history gaps from the upstream exchange. Both talk over Redis, so they can
run on different machines.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; the environment may be set by the host.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
