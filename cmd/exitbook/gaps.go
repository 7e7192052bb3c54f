package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newGapsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "gaps", Short: "Inspect flagged transactions needing review"}
	cmd.AddCommand(newGapsViewCmd())
	return cmd
}

func newGapsViewCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List transactions carrying a classification or scam-detection note",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			txs, err := theApp.transactions.GetFlagged(category)
			if err != nil {
				return err
			}
			emitSuccess("gaps view", started, txs, map[string]any{"count": len(txs)})
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by note type, e.g. unsolicited_inflow")
	return cmd
}
