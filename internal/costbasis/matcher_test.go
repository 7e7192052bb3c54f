package costbasis

import (
	"strconv"
	"testing"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) money.Decimal {
	t.Helper()
	d, err := money.NewDecimal(s)
	require.NoError(t, err)
	return d
}

func priced(t *testing.T, asset, amount, price, currency string, dir model.Direction) model.AssetMovement {
	t.Helper()
	return model.AssetMovement{
		Asset:     asset,
		Amount:    mustDecimal(t, amount),
		Direction: dir,
		PriceAtTxTime: &model.PriceAtTxTime{
			Price: money.NewMoney(mustDecimal(t, price), money.NewCurrency(currency)),
		},
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func TestMatch_AcquireThenPartialDisposeFIFO(t *testing.T) {
	acquireDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	disposeDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acquire := model.CanonicalTransaction{
		ID:       "tx-acquire",
		Datetime: acquireDate,
		Movements: model.Movements{
			Inflows: []model.AssetMovement{priced(t, "BTC", "1", "50000", "USD", model.DirectionIn)},
		},
		Fees: model.Fees{
			Network: &model.AssetMovement{Asset: "USD", Amount: mustDecimal(t, "10"), Direction: model.DirectionOut},
		},
	}

	dispose := model.CanonicalTransaction{
		ID:       "tx-dispose",
		Datetime: disposeDate,
		Movements: model.Movements{
			Outflows: []model.AssetMovement{priced(t, "BTC", "0.6", "60000", "USD", model.DirectionOut)},
		},
		Fees: model.Fees{
			Network: &model.AssetMovement{Asset: "USD", Amount: mustDecimal(t, "6"), Direction: model.DirectionOut},
		},
	}

	strategy, err := StrategyFor(model.CostBasisMethodFIFO)
	require.NoError(t, err)

	result, err := Match([]model.CanonicalTransaction{acquire, dispose}, Options{
		CalculationID: "calc-1",
		Strategy:      strategy,
		NewID:         sequentialIDs("id"),
	})
	require.NoError(t, err)

	require.Len(t, result.Lots, 1)
	lot := result.Lots[0]
	assert.True(t, lot.CostBasisPerUnit.Amount.Equal(mustDecimal(t, "50010")), "cost basis per unit: %s", lot.CostBasisPerUnit.Amount)
	assert.True(t, lot.RemainingQuantity.Equal(mustDecimal(t, "0.4")))
	assert.Equal(t, model.LotStatusPartiallyDisposed, lot.Status)

	require.Len(t, result.Disposals, 1)
	d := result.Disposals[0]
	assert.True(t, d.ProceedsPerUnit.Amount.Equal(mustDecimal(t, "59990")), "proceeds per unit: %s", d.ProceedsPerUnit.Amount)
	assert.True(t, d.GainLoss.Amount.Equal(mustDecimal(t, "5988")), "gain/loss: %s", d.GainLoss.Amount)
	assert.True(t, d.QuantityDisposed.Equal(mustDecimal(t, "0.6")))
	assert.Equal(t, 152, d.HoldingPeriodDays)
}

func TestMatch_OversoldReturnsValidationError(t *testing.T) {
	acquireDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	disposeDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acquire := model.CanonicalTransaction{
		ID:       "tx-acquire",
		Datetime: acquireDate,
		Movements: model.Movements{
			Inflows: []model.AssetMovement{priced(t, "BTC", "1", "50000", "USD", model.DirectionIn)},
		},
	}
	dispose := model.CanonicalTransaction{
		ID:       "tx-dispose",
		Datetime: disposeDate,
		Movements: model.Movements{
			Outflows: []model.AssetMovement{priced(t, "BTC", "2", "60000", "USD", model.DirectionOut)},
		},
	}

	strategy, err := StrategyFor(model.CostBasisMethodFIFO)
	require.NoError(t, err)

	_, err = Match([]model.CanonicalTransaction{acquire, dispose}, Options{
		CalculationID: "calc-1",
		Strategy:      strategy,
		NewID:         sequentialIDs("id"),
	})
	require.Error(t, err)
}

func TestMatch_MissingPriceRejectsWholeRun(t *testing.T) {
	tx := model.CanonicalTransaction{
		ID:       "tx-unpriced",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{{
				Asset:     "BTC",
				Amount:    mustDecimal(t, "1"),
				Direction: model.DirectionIn,
			}},
		},
	}

	strategy, err := StrategyFor(model.CostBasisMethodFIFO)
	require.NoError(t, err)

	_, err = Match([]model.CanonicalTransaction{tx}, Options{
		CalculationID: "calc-1",
		Strategy:      strategy,
		NewID:         sequentialIDs("id"),
	})
	require.Error(t, err)
}

func TestMatch_FIFOAndLIFODivergeOnWhichLotIsConsumed(t *testing.T) {
	early := model.CanonicalTransaction{
		ID:       "tx-early",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{priced(t, "BTC", "1", "10000", "USD", model.DirectionIn)},
		},
	}
	late := model.CanonicalTransaction{
		ID:       "tx-late",
		Datetime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{priced(t, "BTC", "1", "30000", "USD", model.DirectionIn)},
		},
	}
	dispose := model.CanonicalTransaction{
		ID:       "tx-dispose",
		Datetime: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Outflows: []model.AssetMovement{priced(t, "BTC", "1", "40000", "USD", model.DirectionOut)},
		},
	}

	fifo, err := StrategyFor(model.CostBasisMethodFIFO)
	require.NoError(t, err)
	fifoResult, err := Match([]model.CanonicalTransaction{early, late, dispose}, Options{
		CalculationID: "calc-fifo",
		Strategy:      fifo,
		NewID:         sequentialIDs("fifo"),
	})
	require.NoError(t, err)
	require.Len(t, fifoResult.Disposals, 1)
	assert.True(t, fifoResult.Disposals[0].CostBasisPerUnit.Amount.Equal(mustDecimal(t, "10000")))

	lifo, err := StrategyFor(model.CostBasisMethodLIFO)
	require.NoError(t, err)
	lifoResult, err := Match([]model.CanonicalTransaction{early, late, dispose}, Options{
		CalculationID: "calc-lifo",
		Strategy:      lifo,
		NewID:         sequentialIDs("lifo"),
	})
	require.NoError(t, err)
	require.Len(t, lifoResult.Disposals, 1)
	assert.True(t, lifoResult.Disposals[0].CostBasisPerUnit.Amount.Equal(mustDecimal(t, "30000")))
}

func TestMatch_EvenFeeSplitWhenNoNonFiatMovementHasPositiveValue(t *testing.T) {
	tx := model.CanonicalTransaction{
		ID:       "tx-airdrop",
		Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Movements: model.Movements{
			Inflows: []model.AssetMovement{
				{
					Asset:     "FOO",
					Amount:    mustDecimal(t, "100"),
					Direction: model.DirectionIn,
					PriceAtTxTime: &model.PriceAtTxTime{
						Price: money.NewMoney(money.Zero, money.NewCurrency("USD")),
					},
				},
				{
					Asset:     "BAR",
					Amount:    mustDecimal(t, "50"),
					Direction: model.DirectionIn,
					PriceAtTxTime: &model.PriceAtTxTime{
						Price: money.NewMoney(money.Zero, money.NewCurrency("USD")),
					},
				},
			},
		},
		Fees: model.Fees{
			Network: &model.AssetMovement{Asset: "USD", Amount: mustDecimal(t, "10"), Direction: model.DirectionOut},
		},
	}

	strategy, err := StrategyFor(model.CostBasisMethodFIFO)
	require.NoError(t, err)
	result, err := Match([]model.CanonicalTransaction{tx}, Options{
		CalculationID: "calc-1",
		Strategy:      strategy,
		NewID:         sequentialIDs("id"),
	})
	require.NoError(t, err)
	require.Len(t, result.Lots, 2)
	for _, lot := range result.Lots {
		expectedFeePerUnit := mustDecimal(t, "5").Div(lot.Quantity)
		assert.True(t, lot.CostBasisPerUnit.Amount.Equal(expectedFeePerUnit), "lot %s cost basis %s vs expected fee-per-unit %s", lot.Asset, lot.CostBasisPerUnit.Amount, expectedFeePerUnit)
	}
}
