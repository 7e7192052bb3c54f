package costbasis

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
)

// feeFiatValue converts one fee movement to its fiat value in
// currency. A non-fiat fee movement with no attached price is a hard
// error per spec §4.13's fee apportionment rule.
func feeFiatValue(fee *model.AssetMovement) (money.Decimal, error) {
	if fee == nil {
		return money.Zero, nil
	}
	if money.NewCurrency(fee.Asset).IsFiat() {
		return fee.Amount, nil
	}
	if fee.PriceAtTxTime == nil {
		return money.Decimal{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("non-fiat fee movement in asset %s has no price", fee.Asset))
	}
	return fee.Amount.Mul(fee.PriceAtTxTime.Price.Amount), nil
}

// apportionFees allocates a transaction's total fiat fee across its
// non-fiat movements, proportional to each movement's fiat value, or
// evenly when none has a positive value (spec §4.13's fee apportionment
// rule). Fiat movements always receive a zero allocation. The returned
// slice parallels movements: allocated[i] is movements[i]'s share.
func apportionFees(tx model.CanonicalTransaction, movements []model.AssetMovement) ([]money.Decimal, error) {
	totalFee := money.Zero
	for _, fee := range tx.Fees.All() {
		v, err := feeFiatValue(&fee)
		if err != nil {
			return nil, err
		}
		totalFee = totalFee.Add(v)
	}

	allocated := make([]money.Decimal, len(movements))
	if totalFee.IsZero() {
		return allocated, nil
	}

	type valued struct {
		index int
		fiat  money.Decimal
	}
	var nonFiat []valued
	totalFiatValue := money.Zero
	for i, m := range movements {
		if money.NewCurrency(m.Asset).IsFiat() {
			continue
		}
		fiatValue := money.Zero
		if m.PriceAtTxTime != nil {
			fiatValue = m.Amount.Mul(m.PriceAtTxTime.Price.Amount)
		}
		nonFiat = append(nonFiat, valued{index: i, fiat: fiatValue})
		totalFiatValue = totalFiatValue.Add(fiatValue)
	}
	if len(nonFiat) == 0 {
		return allocated, nil
	}

	if totalFiatValue.IsPositive() {
		for _, v := range nonFiat {
			share := v.fiat.Div(totalFiatValue)
			allocated[v.index] = totalFee.Mul(share)
		}
		return allocated, nil
	}

	even := totalFee.Div(money.NewDecimalFromInt(int64(len(nonFiat))))
	for _, v := range nonFiat {
		allocated[v.index] = even
	}
	return allocated, nil
}
