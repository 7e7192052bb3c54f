package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/linker"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/storage"
)

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "links", Short: "Inspect and resolve cross-account transfer links"}
	cmd.AddCommand(newLinksViewCmd(), newLinksRunCmd(), newLinksConfirmCmd(), newLinksRejectCmd())
	return cmd
}

func newLinksViewCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List proposed, confirmed, or rejected transfer links",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			links, err := theApp.links.FindAll(model.TransactionLinkStatus(status))
			if err != nil {
				return err
			}
			emitSuccess("links view", started, links, map[string]any{"count": len(links)})
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by link status (proposed, confirmed, rejected)")
	return cmd
}

// accountTransactions gathers every non-excluded transaction across
// every account into the unit internal/linker matches candidates
// against, the same account->session->transaction walk balance uses.
func accountTransactions() ([]linker.AccountTransaction, error) {
	accounts, err := theApp.accounts.FindAllForUser(storage.DefaultUserID)
	if err != nil {
		return nil, err
	}

	var out []linker.AccountTransaction
	for _, a := range accounts {
		sessions, err := theApp.dataSources.FindAll(a.ID)
		if err != nil {
			return nil, err
		}
		for _, ds := range sessions {
			txs, err := theApp.transactions.GetTransactions(storage.TransactionFilter{DataSourceID: ds.ID})
			if err != nil {
				return nil, err
			}
			for _, tx := range txs {
				if tx.ExcludedFromAccounting {
					continue
				}
				out = append(out, linker.AccountTransaction{AccountID: a.ID, Transaction: tx})
			}
		}
	}
	return out, nil
}

func newLinksRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Propose cross-account transfer links from ingested transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			txs, err := accountTransactions()
			if err != nil {
				return err
			}

			candidates := linker.Detect(txs, linker.DefaultOptions())
			now := time.Now().UTC()
			proposed := 0
			for _, l := range candidates {
				existing, err := theApp.links.FindByTransactionIDs([]string{l.FromTransactionID, l.ToTransactionID})
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					continue
				}
				l.CreatedAt = now
				if err := theApp.links.Create(l); err != nil {
					return err
				}
				proposed++
			}

			emitSuccess("links run", started, candidates, map[string]any{
				"candidates_found": len(candidates),
				"links_proposed":   proposed,
			})
			return nil
		},
	}
	return cmd
}

func newLinksConfirmCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a proposed link and record a zero-cost-basis lot transfer from the sending to the receiving transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			if id == "" {
				return apperr.New(apperr.CodeValidation, "confirm requires --id")
			}

			link, err := theApp.links.Get(id)
			if err != nil {
				return err
			}
			if link == nil {
				return apperr.New(apperr.CodeNotFound, "no link with id "+id)
			}

			from, err := theApp.transactions.Get(link.FromTransactionID)
			if err != nil {
				return err
			}
			if from == nil {
				return apperr.New(apperr.CodeNotFound, "from transaction "+link.FromTransactionID+" not found")
			}

			if err := theApp.links.UpdateStatus(id, model.TransactionLinkStatusConfirmed); err != nil {
				return err
			}

			// The carry is recorded at the sent amount with a zero cost
			// basis. Nothing fills that basis in afterwards: the
			// cost-basis matcher does not read LotTransfer rows.
			quantity := outflowAmount(*from, link.Asset)
			transfer := model.LotTransfer{
				ID:                link.ID,
				FromTransactionID: link.FromTransactionID,
				ToTransactionID:   link.ToTransactionID,
				Asset:             link.Asset,
				Quantity:          quantity,
				CarriedCostBasis:  money.NewMoney(money.Zero, money.NewCurrency("USD")),
				Metadata:          map[string]any{"confidence": link.Confidence},
			}
			if err := theApp.transfers.Create(transfer); err != nil {
				return err
			}

			emitSuccess("links confirm", started, link, nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "link id to confirm")
	return cmd
}

func outflowAmount(tx model.CanonicalTransaction, asset string) money.Decimal {
	for _, m := range tx.Movements.Outflows {
		if m.Asset == asset {
			return m.Amount
		}
	}
	return money.Zero
}

func newLinksRejectCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject a proposed link",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			if id == "" {
				return apperr.New(apperr.CodeValidation, "reject requires --id")
			}
			if err := theApp.links.UpdateStatus(id, model.TransactionLinkStatusRejected); err != nil {
				return err
			}
			emitSuccess("links reject", started, map[string]string{"id": id}, nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "link id to reject")
	return cmd
}
