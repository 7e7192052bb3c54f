package pricing

import (
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

// deriveFromTradeRatios implements spec §4.14 stage 1: for a
// transaction shaped like a trade — exactly one inflow and one outflow
// of two different assets — if one side already carries a price, the
// other side's price is implied by the value-preserving ratio between
// the two amounts. Transactions with any other shape are left alone;
// stage 3 (fetch) picks up the residue.
func deriveFromTradeRatios(transactions []model.CanonicalTransaction) int {
	derived := 0
	for i := range transactions {
		tx := &transactions[i]
		if len(tx.Movements.Inflows) != 1 || len(tx.Movements.Outflows) != 1 {
			continue
		}
		in := &tx.Movements.Inflows[0]
		out := &tx.Movements.Outflows[0]
		if in.Asset == out.Asset {
			continue
		}

		switch {
		case in.PriceAtTxTime != nil && out.PriceAtTxTime == nil:
			if impliedPrice(out, in, tx.Datetime) {
				derived++
			}
		case out.PriceAtTxTime != nil && in.PriceAtTxTime == nil:
			if impliedPrice(in, out, tx.Datetime) {
				derived++
			}
		}
	}
	return derived
}

// impliedPrice prices target from known's already-priced value, given
// both sides represent the same fiat value (amount * price). Returns
// false if known's amount is zero (no usable ratio).
func impliedPrice(target, known *model.AssetMovement, at time.Time) bool {
	if known.Amount.IsZero() || target.Amount.IsZero() {
		return false
	}
	knownValue := known.Amount.Mul(known.PriceAtTxTime.Price.Amount)
	price := knownValue.Div(target.Amount)
	target.PriceAtTxTime = &model.PriceAtTxTime{
		Price:     money.NewMoney(price, known.PriceAtTxTime.Price.Currency),
		Source:    SourceDerived,
		FetchedAt: at,
	}
	return true
}
