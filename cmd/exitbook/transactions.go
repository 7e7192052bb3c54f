package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/storage"
)

func newTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "transactions", Short: "Inspect canonical transactions"}
	cmd.AddCommand(newTransactionsViewCmd())
	return cmd
}

func newTransactionsViewCmd() *cobra.Command {
	var asset string
	var limit int

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List canonical transactions, optionally filtered by asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			txs, err := theApp.transactions.GetTransactions(storage.TransactionFilter{Asset: asset, Limit: limit})
			if err != nil {
				return err
			}
			emitSuccess("transactions view", started, txs, map[string]any{"count": len(txs)})
			return nil
		},
	}

	cmd.Flags().StringVar(&asset, "asset", "", "filter by asset ticker")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum transactions to return")
	return cmd
}
