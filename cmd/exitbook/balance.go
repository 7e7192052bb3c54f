package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/storage"
)

func newBalanceCmd() *cobra.Command {
	var exchange, blockchain, address string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Compute the net per-asset balance for an account from its ingested transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			chainOrExchange := blockchain
			identifier := address
			if exchange != "" {
				chainOrExchange = exchange
			}
			if chainOrExchange == "" {
				return apperr.New(apperr.CodeValidation, "balance requires --exchange or --blockchain")
			}

			var account *model.Account
			var err error
			if identifier != "" {
				account, err = theApp.accounts.FindByIdentifier(chainOrExchange, identifier)
				if err != nil {
					return err
				}
			}
			if account == nil {
				return apperr.New(apperr.CodeNotFound, "no account found for "+chainOrExchange)
			}

			sessions, err := theApp.dataSources.FindAll(account.ID)
			if err != nil {
				return err
			}

			balances := make(map[string]money.Decimal)
			for _, ds := range sessions {
				txs, err := theApp.transactions.GetTransactions(storage.TransactionFilter{DataSourceID: ds.ID})
				if err != nil {
					return err
				}
				for _, tx := range txs {
					if tx.ExcludedFromAccounting {
						continue
					}
					for _, asset := range assetsIn(tx) {
						balances[asset] = balances[asset].Add(tx.NetAmount(asset))
					}
				}
			}

			out := make(map[string]string, len(balances))
			for asset, amount := range balances {
				out[asset] = money.FormatDecimal(amount)
			}
			emitSuccess("balance", started, out, map[string]any{"account_id": account.ID})
			return nil
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange name")
	cmd.Flags().StringVar(&blockchain, "blockchain", "", "chain name")
	cmd.Flags().StringVar(&address, "address", "", "account identifier (address or api-key fingerprint)")
	return cmd
}

func assetsIn(tx model.CanonicalTransaction) []string {
	seen := make(map[string]bool)
	var assets []string
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			assets = append(assets, a)
		}
	}
	for _, m := range tx.Movements.Inflows {
		add(m.Asset)
	}
	for _, m := range tx.Movements.Outflows {
		add(m.Asset)
	}
	for _, m := range tx.Fees.All() {
		add(m.Asset)
	}
	return assets
}
