package pricing

import (
	"context"
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

func priced(t *testing.T, asset, amount, price, currency string) model.AssetMovement {
	return model.AssetMovement{
		Asset:  asset,
		Amount: mustDec(t, amount),
		PriceAtTxTime: &model.PriceAtTxTime{
			Price: money.NewMoney(mustDec(t, price), money.NewCurrency(currency)),
		},
	}
}

func unpriced(asset, amount string, t *testing.T) model.AssetMovement {
	return model.AssetMovement{Asset: asset, Amount: mustDec(t, amount)}
}

func TestDeriveFromTradeRatios_OperatesInPlaceOnSlice(t *testing.T) {
	txs := []model.CanonicalTransaction{{
		ID:       "tx-trade",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows:  []model.AssetMovement{unpriced("ETH", "2", t)},
			Outflows: []model.AssetMovement{priced(t, "USDC", "6000", "1", "USD")},
		},
	}}

	n := deriveFromTradeRatios(txs)
	require.Equal(t, 1, n)
	require.NotNil(t, txs[0].Movements.Inflows[0].PriceAtTxTime)
	assert.True(t, txs[0].Movements.Inflows[0].PriceAtTxTime.Price.Amount.Equal(mustDec(t, "3000")))
	assert.Equal(t, SourceDerived, txs[0].Movements.Inflows[0].PriceAtTxTime.Source)
}

type fakeFx struct {
	rate money.Decimal
}

func (f fakeFx) Rate(ctx context.Context, currency string, at time.Time) (money.Decimal, error) {
	return f.rate, nil
}

func TestNormalizeToUSD_ConvertsNonUSDPrice(t *testing.T) {
	txs := []model.CanonicalTransaction{{
		ID:       "tx-eur",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{priced(t, "BTC", "1", "45000", "EUR")},
		},
	}}

	err := normalizeToUSD(context.Background(), txs, fakeFx{rate: mustDec(t, "1.1")})
	require.NoError(t, err)
	assert.True(t, txs[0].Movements.Inflows[0].PriceAtTxTime.Price.Amount.Equal(mustDec(t, "49500")))
	assert.Equal(t, "USD", txs[0].Movements.Inflows[0].PriceAtTxTime.Price.Currency.Ticker())
}

type fakePriceProvider struct {
	price money.Decimal
}

func (f fakePriceProvider) Price(ctx context.Context, asset string, at time.Time) (money.Decimal, error) {
	return f.price, nil
}

func TestFetchResidual_PricesOnlyUnpricedNonFiatMovements(t *testing.T) {
	txs := []model.CanonicalTransaction{{
		ID:       "tx-residual",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{
				unpriced("SOL", "10", t),
				priced(t, "ETH", "1", "3000", "USD"),
				unpriced("USD", "50", t),
			},
		},
	}}

	fetched, err := fetchResidual(context.Background(), txs, fakePriceProvider{price: mustDec(t, "150")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	require.NotNil(t, txs[0].Movements.Inflows[0].PriceAtTxTime)
	assert.True(t, txs[0].Movements.Inflows[0].PriceAtTxTime.Price.Amount.Equal(mustDec(t, "150")))
	assert.Equal(t, SourceFetched, txs[0].Movements.Inflows[0].PriceAtTxTime.Source)
	assert.Nil(t, txs[0].Movements.Inflows[2].PriceAtTxTime, "fiat movements never need a fetched price")
}

func TestRederiveAcrossLinks_PropagatesKnownSideToUnknownSide(t *testing.T) {
	withdrawal := model.CanonicalTransaction{
		ID: "tx-withdraw",
		Movements: model.Movements{
			Outflows: []model.AssetMovement{priced(t, "BTC", "1", "60000", "USD")},
		},
	}
	deposit := model.CanonicalTransaction{
		ID: "tx-deposit",
		Movements: model.Movements{
			Inflows: []model.AssetMovement{unpriced("BTC", "1", t)},
		},
	}
	txs := []model.CanonicalTransaction{withdrawal, deposit}

	link := model.LotTransfer{
		ID:                "link-1",
		FromTransactionID: "tx-withdraw",
		ToTransactionID:   "tx-deposit",
		Asset:             "BTC",
		Quantity:          mustDec(t, "1"),
	}

	n := rederiveAcrossLinks(txs, []model.LotTransfer{link})
	require.Equal(t, 1, n)
	require.NotNil(t, txs[1].Movements.Inflows[0].PriceAtTxTime)
	assert.True(t, txs[1].Movements.Inflows[0].PriceAtTxTime.Price.Amount.Equal(mustDec(t, "60000")))
	assert.Equal(t, SourceRederived, txs[1].Movements.Inflows[0].PriceAtTxTime.Source)
}

func TestEnrich_RunsAllStagesInOrder(t *testing.T) {
	txs := []model.CanonicalTransaction{{
		ID:       "tx-trade",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows:  []model.AssetMovement{unpriced("ETH", "2", t)},
			Outflows: []model.AssetMovement{priced(t, "USDC", "6000", "1", "USD")},
		},
	}, {
		ID:       "tx-residual",
		Datetime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{unpriced("SOL", "5", t)},
		},
	}}

	stats, err := Enrich(context.Background(), txs, nil, fakeFx{rate: mustDec(t, "1")}, fakePriceProvider{price: mustDec(t, "20")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Derived)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 0, stats.Rederived)
}
