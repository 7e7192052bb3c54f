package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/storage"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect ingestion sessions"}
	cmd.AddCommand(newSessionsViewCmd())
	return cmd
}

func newSessionsViewCmd() *cobra.Command {
	var source, status string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List ingestion sessions, optionally filtered by source or status",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			accounts, err := theApp.accounts.FindAllForUser(storage.DefaultUserID)
			if err != nil {
				return err
			}

			var out []model.DataSource
			for _, a := range accounts {
				if source != "" && a.ChainOrExchange != source {
					continue
				}
				sessions, err := theApp.dataSources.FindAll(a.ID)
				if err != nil {
					return err
				}
				for _, s := range sessions {
					if status != "" && string(s.Status) != status {
						continue
					}
					out = append(out, s)
				}
			}

			emitSuccess("sessions view", started, out, map[string]any{"count": len(out)})
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "filter by chain or exchange name")
	cmd.Flags().StringVar(&status, "status", "", "filter by session status")
	return cmd
}
