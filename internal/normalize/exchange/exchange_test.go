package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbelanger/exitbook/internal/model"
)

func TestNormalize_Deposit(t *testing.T) {
	tx, err := Normalize("kraken", Row{
		ExternalID: "dep-1",
		Kind:       RowDeposit,
		Timestamp:  time.Now(),
		Asset:      "BTC",
		Amount:     "0.5",
		Success:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OperationTypeDeposit, tx.Operation.Type)
	require.Len(t, tx.Movements.Inflows, 1)
}

func TestNormalize_TradeWithFee(t *testing.T) {
	tx, err := Normalize("kraken", Row{
		ExternalID:  "trade-1",
		Kind:        RowTrade,
		Timestamp:   time.Now(),
		Asset:       "BTC",
		Amount:      "0.1",
		QuoteAsset:  "USDT",
		QuoteAmount: "6000",
		FeeAsset:    "USDT",
		FeeAmount:   "6",
		Success:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OperationCategoryTrade, tx.Operation.Category)
	require.Len(t, tx.Movements.Inflows, 1)
	require.Len(t, tx.Movements.Outflows, 1)
	require.NotNil(t, tx.Fees.Platform)
	assert.Equal(t, "6", tx.Fees.Platform.Amount.String())
}

func TestNormalize_RejectsMissingExternalID(t *testing.T) {
	_, err := Normalize("kraken", Row{Kind: RowDeposit})
	assert.Error(t, err)
}

func TestNormalize_ZeroFeeOmitsFeeEntry(t *testing.T) {
	tx, err := Normalize("kraken", Row{
		ExternalID: "dep-2",
		Kind:       RowDeposit,
		Asset:      "ETH",
		Amount:     "1",
		FeeAsset:   "ETH",
		FeeAmount:  "0",
		Success:    true,
	})
	require.NoError(t, err)
	assert.Nil(t, tx.Fees.Platform)
}
