package linker

import (
	"testing"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDec(t *testing.T, s string) money.Decimal {
	t.Helper()
	d, err := money.NewDecimal(s)
	require.NoError(t, err)
	return d
}

func TestDetect_MatchesWithdrawalToDeposit(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	withdrawal := model.CanonicalTransaction{
		ID:       "tx-withdraw",
		Datetime: base,
		Movements: model.Movements{
			Outflows: []model.AssetMovement{{Asset: "BTC", Amount: mustDec(t, "1.0")}},
		},
	}
	deposit := model.CanonicalTransaction{
		ID:       "tx-deposit",
		Datetime: base.Add(2 * time.Hour),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{{Asset: "BTC", Amount: mustDec(t, "0.999")}},
		},
	}

	links := Detect([]AccountTransaction{
		{AccountID: "exchange-1", Transaction: withdrawal},
		{AccountID: "wallet-1", Transaction: deposit},
	}, DefaultOptions())

	require.Len(t, links, 1)
	assert.Equal(t, "tx-withdraw", links[0].FromTransactionID)
	assert.Equal(t, "tx-deposit", links[0].ToTransactionID)
	assert.Equal(t, model.TransactionLinkStatusProposed, links[0].Status)
	assert.Greater(t, links[0].Confidence, 0.9)
}

func TestDetect_IgnoresSameAccountMovements(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := model.CanonicalTransaction{
		ID:       "tx-out",
		Datetime: base,
		Movements: model.Movements{Outflows: []model.AssetMovement{{Asset: "ETH", Amount: mustDec(t, "1.0")}}},
	}
	in := model.CanonicalTransaction{
		ID:       "tx-in",
		Datetime: base.Add(time.Hour),
		Movements: model.Movements{Inflows: []model.AssetMovement{{Asset: "ETH", Amount: mustDec(t, "1.0")}}},
	}

	links := Detect([]AccountTransaction{
		{AccountID: "acct-1", Transaction: out},
		{AccountID: "acct-1", Transaction: in},
	}, DefaultOptions())

	assert.Empty(t, links)
}

func TestDetect_RejectsAmountOutsideTolerance(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := model.CanonicalTransaction{
		ID:       "tx-out",
		Datetime: base,
		Movements: model.Movements{Outflows: []model.AssetMovement{{Asset: "ETH", Amount: mustDec(t, "1.0")}}},
	}
	in := model.CanonicalTransaction{
		ID:       "tx-in",
		Datetime: base.Add(time.Hour),
		Movements: model.Movements{Inflows: []model.AssetMovement{{Asset: "ETH", Amount: mustDec(t, "0.8")}}},
	}

	links := Detect([]AccountTransaction{
		{AccountID: "acct-1", Transaction: out},
		{AccountID: "acct-2", Transaction: in},
	}, DefaultOptions())

	assert.Empty(t, links)
}
