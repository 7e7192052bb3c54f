package pricing

import (
	"context"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

// fetchResidual implements spec §4.14 stage 3: for every movement
// still unpriced after derive and normalize, query the price provider
// at the transaction's datetime. Fiat movements never need a price —
// the fiat amount already is its own value — so they are skipped.
func fetchResidual(ctx context.Context, transactions []model.CanonicalTransaction, provider PriceProvider, now time.Time) (int, error) {
	fetched := 0
	for i := range transactions {
		tx := &transactions[i]
		for _, movements := range [][]model.AssetMovement{tx.Movements.Inflows, tx.Movements.Outflows} {
			for j := range movements {
				ok, err := fetchMovement(ctx, &movements[j], tx.Datetime, provider, now)
				if err != nil {
					return fetched, err
				}
				if ok {
					fetched++
				}
			}
		}
		for _, fee := range []*model.AssetMovement{tx.Fees.Network, tx.Fees.Platform} {
			if fee == nil {
				continue
			}
			ok, err := fetchMovement(ctx, fee, tx.Datetime, provider, now)
			if err != nil {
				return fetched, err
			}
			if ok {
				fetched++
			}
		}
	}
	return fetched, nil
}

func fetchMovement(ctx context.Context, m *model.AssetMovement, txTime time.Time, provider PriceProvider, fetchedAt time.Time) (bool, error) {
	if m.PriceAtTxTime != nil {
		return false, nil
	}
	if money.NewCurrency(m.Asset).IsFiat() {
		return false, nil
	}
	amount, err := provider.Price(ctx, m.Asset, txTime)
	if err != nil {
		return false, err
	}
	m.PriceAtTxTime = &model.PriceAtTxTime{
		Price:     money.NewMoney(amount, money.NewCurrency(usd)),
		Source:    SourceFetched,
		FetchedAt: fetchedAt,
	}
	return true, nil
}
