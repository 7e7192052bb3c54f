package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/pricing"
)

func newPricesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prices", Short: "View or enrich transaction prices"}
	cmd.AddCommand(newPricesViewCmd(), newPricesEnrichCmd())
	return cmd
}

func newPricesViewCmd() *cobra.Command {
	var asset string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List transactions still missing a price",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			txs, err := theApp.transactions.GetTransactionsNeedingPrices()
			if err != nil {
				return err
			}
			if asset != "" {
				filtered := txs[:0]
				for _, tx := range txs {
					for _, a := range assetsIn(tx) {
						if a == asset {
							filtered = append(filtered, tx)
							break
						}
					}
				}
				txs = filtered
			}
			emitSuccess("prices view", started, txs, map[string]any{"count": len(txs)})
			return nil
		},
	}
	cmd.Flags().StringVar(&asset, "asset", "", "filter by asset ticker")
	return cmd
}

func newPricesEnrichCmd() *cobra.Command {
	var deriveOnly, normalizeOnly, fetchOnly bool

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run the price enrichment pipeline over transactions missing prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			txs, err := theApp.transactions.GetTransactionsNeedingPrices()
			if err != nil {
				return err
			}

			var fx pricing.FxRateProvider
			var prices pricing.PriceProvider
			onlyStage := deriveOnly || normalizeOnly || fetchOnly
			if !onlyStage || normalizeOnly {
				if key := os.Getenv("EXCHANGERATE_API_KEY"); key != "" {
					fx = pricing.NewExchangeRateProvider("https://api.exchangerate.host", key)
				}
			}
			if !onlyStage || fetchOnly {
				if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
					prices = pricing.NewHistoricalPriceProvider("https://api.coingecko.com/api/v3", key)
				}
			}

			stats, err := pricing.Enrich(cmd.Context(), txs, nil, fx, prices, time.Now().UTC())
			if err != nil {
				return err
			}

			updated := 0
			for _, tx := range txs {
				if err := theApp.transactions.UpdatePriceMovements(tx); err != nil {
					return err
				}
				updated++
			}

			emitSuccess("prices enrich", started, stats, map[string]any{
				"transactions_examined": len(txs),
				"transactions_updated":  updated,
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&deriveOnly, "derive-only", false, "run only the trade-ratio derive stage")
	cmd.Flags().BoolVar(&normalizeOnly, "normalize-only", false, "run the USD normalization stage and skip the fetch stage; the trade-ratio derive stage always runs")
	cmd.Flags().BoolVar(&fetchOnly, "fetch-only", false, "run the residual price-fetch stage and skip USD normalization; the trade-ratio derive stage always runs")
	cmd.Flags().Bool("interactive", false, "accepted for CLI compatibility; unattended fetch is the only mode implemented")
	return cmd
}
