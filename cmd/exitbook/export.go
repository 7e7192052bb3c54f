package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/storage"
)

func newExportCmd() *cobra.Command {
	var exchange, blockchain, format, output, since string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export ingested transactions as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			chainOrExchange := blockchain
			if exchange != "" {
				chainOrExchange = exchange
			}

			var sinceTime time.Time
			if since != "" {
				var err error
				sinceTime, err = time.Parse(time.RFC3339, since)
				if err != nil {
					return apperr.New(apperr.CodeValidation, "invalid --since: "+err.Error())
				}
			}

			txs, err := exportableTransactions(chainOrExchange, sinceTime)
			if err != nil {
				return err
			}

			if format != "json" && format != "csv" && format != "" {
				return apperr.New(apperr.CodeValidation, "unknown --format "+format)
			}

			// CSV is always rendered to text up front, whether it ends up
			// in a file or riding along as the envelope's string payload;
			// JSON needs no intermediate form when it goes straight into
			// the envelope as structured data.
			var csvBody []byte
			if format != "json" {
				var buf bytes.Buffer
				if err := writeTransactionsCSV(&buf, txs); err != nil {
					return apperr.New(apperr.CodeInternal, "writing export: "+err.Error())
				}
				csvBody = buf.Bytes()
			}

			var data any = txs
			if csvBody != nil {
				data = string(csvBody)
			}

			if output != "" {
				if csvBody != nil {
					err = os.WriteFile(output, csvBody, 0o644)
				} else {
					err = writeJSONFile(output, txs)
				}
				if err != nil {
					return apperr.New(apperr.CodeInternal, "writing output file: "+err.Error())
				}
				data = nil
			}

			emitSuccess("export", started, data, map[string]any{
				"count":  len(txs),
				"format": format,
				"output": output,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "", "limit export to one exchange")
	cmd.Flags().StringVar(&blockchain, "blockchain", "", "limit export to one blockchain")
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or json")
	cmd.Flags().StringVar(&output, "output", "", "output file path (defaults to stdout)")
	cmd.Flags().StringVar(&since, "since", "", "only export transactions at or after this RFC3339 timestamp")
	return cmd
}

// exportableTransactions walks every matching account's sessions, the
// same enumeration sessions/balance/links already perform, filtering
// by chainOrExchange and since when set.
func exportableTransactions(chainOrExchange string, since time.Time) ([]model.CanonicalTransaction, error) {
	accounts, err := theApp.accounts.FindAllForUser(storage.DefaultUserID)
	if err != nil {
		return nil, err
	}

	var out []model.CanonicalTransaction
	for _, a := range accounts {
		if chainOrExchange != "" && a.ChainOrExchange != chainOrExchange {
			continue
		}
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
				if !since.IsZero() && tx.Datetime.Before(since) {
					continue
				}
				out = append(out, tx)
			}
		}
	}
	return out, nil
}

var csvHeader = []string{
	"id", "datetime", "status", "operation_category", "operation_type",
	"asset", "direction", "amount", "fiat_price", "fee_network", "fee_platform",
	"excluded_from_accounting",
}

// writeJSONFile is the --output path for --format json; when no
// --output is given the transactions ride along as the envelope's
// structured data instead, so json.Marshal never needs to touch a
// file directly.
func writeJSONFile(path string, txs []model.CanonicalTransaction) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(txs)
}

// writeTransactionsCSV flattens each transaction's movements to one
// row per movement, the same shape spreadsheet-based tax tools expect.
func writeTransactionsCSV(w io.Writer, txs []model.CanonicalTransaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		rows := movementRows(tx)
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	return cw.Error()
}

func movementRows(tx model.CanonicalTransaction) [][]string {
	var rows [][]string
	netFee := ""
	if tx.Fees.Network != nil {
		netFee = tx.Fees.Network.Amount.String() + " " + tx.Fees.Network.Asset
	}
	platFee := ""
	if tx.Fees.Platform != nil {
		platFee = tx.Fees.Platform.Amount.String() + " " + tx.Fees.Platform.Asset
	}

	appendRow := func(m model.AssetMovement, direction string) {
		price := ""
		if m.PriceAtTxTime != nil {
			price = m.PriceAtTxTime.Price.Amount.String() + " " + m.PriceAtTxTime.Price.Currency.Ticker()
		}
		excluded := "false"
		if tx.ExcludedFromAccounting {
			excluded = "true"
		}
		rows = append(rows, []string{
			tx.ID,
			tx.Datetime.UTC().Format(time.RFC3339),
			string(tx.Status),
			string(tx.Operation.Category),
			string(tx.Operation.Type),
			m.Asset,
			direction,
			m.Amount.String(),
			price,
			netFee,
			platFee,
			excluded,
		})
	}
	for _, m := range tx.Movements.Inflows {
		appendRow(m, "in")
	}
	for _, m := range tx.Movements.Outflows {
		appendRow(m, "out")
	}
	return rows
}
