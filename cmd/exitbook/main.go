// Command exitbook is the CLI front-end for the ingestion and
// cost-basis accounting engine (spec §6): import, process, and
// inspect transactions across exchanges and blockchains, then compute
// FIFO/LIFO cost-basis reports against them.
package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/configs"
	"github.com/jbelanger/exitbook/internal/platform/logx"
)

var (
	cfgPath string
	dbPath  string
	theApp  *app
)

func main() {
	root := &cobra.Command{
		Use:   "exitbook",
		Short: "Ingest exchange and blockchain transactions and compute cost basis",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Best-effort: provider API keys and exchange credentials are
			// ordinary env vars, but a .env file is a convenient place to
			// keep them outside shell history. Missing is not an error.
			_ = godotenv.Load()

			cfg, err := configs.Load(cfgPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}

			level, _ := zerolog.ParseLevel(configs.ParseLogLevel(cfg.Logging.Level))
			logx.Configure(os.Stderr, level, cfg.Logging.JSON)

			theApp, err = newApp(cfg.Database.Path)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if theApp != nil {
				return theApp.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yml", "path to config.yml")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "override the configured SQLite database path")

	root.AddCommand(
		newImportCmd(),
		newProcessCmd(),
		newBalanceCmd(),
		newSessionsCmd(),
		newTransactionsCmd(),
		newPricesCmd(),
		newLinksCmd(),
		newGapsCmd(),
		newCostBasisCmd(),
		newExportCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(emitError(root.CalledAs(), time.Now(), err))
	}
}
