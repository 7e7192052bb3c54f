package pricing

import (
	"context"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

const usd = "USD"

// normalizeToUSD implements spec §4.14 stage 2: every price this
// engine stores is USD, so a price quoted in another fiat (e.g. a
// provider that returns EUR) is converted through fx at the
// transaction's own datetime before anything downstream sees it.
func normalizeToUSD(ctx context.Context, transactions []model.CanonicalTransaction, fx FxRateProvider) error {
	for i := range transactions {
		tx := &transactions[i]
		for _, movements := range [][]model.AssetMovement{tx.Movements.Inflows, tx.Movements.Outflows} {
			for j := range movements {
				if err := normalizeMovement(ctx, &movements[j], tx.Datetime, fx); err != nil {
					return err
				}
			}
		}
		if tx.Fees.Network != nil {
			if err := normalizeMovement(ctx, tx.Fees.Network, tx.Datetime, fx); err != nil {
				return err
			}
		}
		if tx.Fees.Platform != nil {
			if err := normalizeMovement(ctx, tx.Fees.Platform, tx.Datetime, fx); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalizeMovement(ctx context.Context, m *model.AssetMovement, at time.Time, fx FxRateProvider) error {
	if m.PriceAtTxTime == nil {
		return nil
	}
	currency := m.PriceAtTxTime.Price.Currency.Ticker()
	if currency == usd || currency == "" {
		return nil
	}
	rate, err := fx.Rate(ctx, currency, at)
	if err != nil {
		return err
	}
	m.PriceAtTxTime.Price = money.NewMoney(m.PriceAtTxTime.Price.Amount.Mul(rate), money.NewCurrency(usd))
	return nil
}
