package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/providers"
)

func newProcessCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Normalize raw records staged for a session into canonical transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			if sessionID == "" {
				return apperr.New(apperr.CodeValidation, "process requires --session")
			}

			pending, err := theApp.rawData.FindPending(sessionID)
			if err != nil {
				return err
			}

			ds, err := theApp.dataSources.Get(sessionID)
			if err != nil {
				return err
			}
			if ds == nil {
				return apperr.New(apperr.CodeNotFound, "no such session: "+sessionID)
			}
			account, _ := theApp.accounts.Get(ds.AccountID)
			sourceType := model.SourceTypeBlockchain
			providerName := ""
			if account != nil {
				providerName = account.ProviderName
				if account.Type == model.AccountTypeExchangeAPI || account.Type == model.AccountTypeExchangeCSV {
					sourceType = model.SourceTypeExchange
				}
			}

			processed, failed := 0, 0
			for _, rec := range pending {
				payload, err := json.Marshal(rec.RawPayload)
				if err != nil {
					failed++
					_ = theApp.rawData.MarkFailed(rec.ID, err.Error())
					continue
				}
				name := providerName
				if name == "" {
					name = rec.ProviderName
				}
				tx, err := theApp.normalize(name, rec.SourceAddress, providers.RawEvent{ID: rec.ExternalID, Payload: payload, SourceAddress: rec.SourceAddress})
				if err != nil {
					failed++
					_ = theApp.rawData.MarkFailed(rec.ID, err.Error())
					continue
				}
				if _, err := theApp.transactions.InsertBatch(sessionID, name, sourceType, []model.CanonicalTransaction{tx}); err != nil {
					failed++
					_ = theApp.rawData.MarkFailed(rec.ID, err.Error())
					continue
				}
				normalizedPayload := map[string]any{"id": tx.ID}
				if err := theApp.rawData.MarkProcessed(rec.ID, normalizedPayload); err != nil {
					failed++
					continue
				}
				processed++
			}

			emitSuccess("process", started, map[string]any{
				"session_id": sessionID,
				"processed":  processed,
				"failed":     failed,
			}, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session (data source) id to process")
	return cmd
}
