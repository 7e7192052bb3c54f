// Package exchange normalizes centralized-exchange ledger rows (API or
// CSV sourced) into the canonical transaction model (spec §4.8, C9).
// Exchanges report their own operation semantics directly (unlike
// blockchains, there is no fund-flow inference step), so this mapper
// is a straight field translation plus decimal parsing.
package exchange

import (
	"errors"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

// RowKind is the ledger-row type an exchange API/CSV export reports.
type RowKind string

const (
	RowDeposit    RowKind = "deposit"
	RowWithdrawal RowKind = "withdrawal"
	RowTrade      RowKind = "trade"
	RowFee        RowKind = "fee"
)

// Row is the provider-agnostic shape an exchange adapter (API client
// or CSV reader) must reduce its native ledger entry to.
type Row struct {
	ExternalID string
	Kind       RowKind
	Timestamp  time.Time
	Asset      string
	Amount     string // canonical decimal string, no scientific notation
	QuoteAsset string // for trades: the asset paid/received on the other side
	QuoteAmount string
	FeeAsset   string
	FeeAmount  string
	OrderID    string // preserved for later trade linking
	TradeID    string
	Success    bool
}

// Normalize converts one exchange ledger row into a CanonicalTransaction.
func Normalize(providerName string, row Row) (model.CanonicalTransaction, error) {
	if row.ExternalID == "" {
		return model.CanonicalTransaction{}, errors.New("exchange: missing external id")
	}

	amt, err := money.NewDecimal(row.Amount)
	if err != nil {
		return model.CanonicalTransaction{}, err
	}

	tx := model.CanonicalTransaction{
		ID:         row.ExternalID,
		ExternalID: row.ExternalID,
		SourceName: providerName,
		SourceType: model.SourceTypeExchange,
		Datetime:   row.Timestamp,
		Status:     statusFor(row.Success),
	}
	if tx.RawNormalizedData == nil {
		tx.RawNormalizedData = map[string]any{}
	}
	if row.OrderID != "" {
		tx.RawNormalizedData["orderId"] = row.OrderID
	}
	if row.TradeID != "" {
		tx.RawNormalizedData["tradeId"] = row.TradeID
	}

	switch row.Kind {
	case RowDeposit:
		tx.Operation = model.Operation{Category: model.OperationCategoryTransfer, Type: model.OperationTypeDeposit}
		m := model.AssetMovement{Asset: row.Asset, Amount: amt, Direction: model.DirectionIn}
		tx.Movements.Inflows = []model.AssetMovement{m}
		tx.Movements.Primary = &tx.Movements.Inflows[0]

	case RowWithdrawal:
		tx.Operation = model.Operation{Category: model.OperationCategoryTransfer, Type: model.OperationTypeWithdrawal}
		m := model.AssetMovement{Asset: row.Asset, Amount: amt, Direction: model.DirectionOut}
		tx.Movements.Outflows = []model.AssetMovement{m}
		tx.Movements.Primary = &tx.Movements.Outflows[0]

	case RowTrade:
		tx.Operation = model.Operation{Category: model.OperationCategoryTrade, Type: model.OperationTypeSwap}
		quoteAmt, qerr := money.NewDecimal(row.QuoteAmount)
		if qerr != nil {
			return model.CanonicalTransaction{}, qerr
		}
		in := model.AssetMovement{Asset: row.Asset, Amount: amt, Direction: model.DirectionIn}
		out := model.AssetMovement{Asset: row.QuoteAsset, Amount: quoteAmt, Direction: model.DirectionOut}
		tx.Movements.Inflows = []model.AssetMovement{in}
		tx.Movements.Outflows = []model.AssetMovement{out}
		tx.Movements.Primary = &tx.Movements.Inflows[0]

	case RowFee:
		tx.Operation = model.Operation{Category: model.OperationCategoryFee, Type: model.OperationTypeFee}

	default:
		return model.CanonicalTransaction{}, errors.New("exchange: unsupported row kind " + string(row.Kind))
	}

	if row.FeeAsset != "" && row.FeeAmount != "" {
		feeAmt, ferr := money.NewDecimal(row.FeeAmount)
		if ferr != nil {
			return model.CanonicalTransaction{}, ferr
		}
		if !feeAmt.IsZero() {
			tx.Fees.Platform = &model.AssetMovement{Asset: row.FeeAsset, Amount: feeAmt, Direction: model.DirectionOut}
		}
	}

	return tx, nil
}

func statusFor(success bool) model.TransactionStatus {
	if success {
		return model.TransactionStatusSuccess
	}
	return model.TransactionStatusFailed
}
