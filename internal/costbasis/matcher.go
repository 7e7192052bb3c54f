// Package costbasis implements the lot matcher (C14): FIFO/LIFO
// cost-basis tracking with fee apportionment over canonical
// transactions, per spec §4.13.
package costbasis

import (
	"fmt"
	"sort"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
)

// Options configures one Match run.
type Options struct {
	CalculationID string
	Strategy      DisposalStrategy
	NewID         func() string
}

// Result is everything one lot-matcher run produces.
type Result struct {
	Lots      []model.AcquisitionLot
	Disposals []model.LotDisposal
}

// leg is one non-fiat movement reduced to the fields the matcher needs,
// already carrying its share of the transaction's fee.
type leg struct {
	asset        string
	direction    model.Direction
	quantity     money.Decimal
	price        money.Money
	allocatedFee money.Decimal
	datetime     time.Time
	txID         string
}

// Match runs the FIFO/LIFO lot-matching algorithm of spec §4.13 over
// transactions, producing one AcquisitionLot per inflow and one or
// more LotDisposal rows per outflow.
func Match(transactions []model.CanonicalTransaction, opts Options) (Result, error) {
	if opts.Strategy == nil {
		return Result{}, fmt.Errorf("costbasis: match options require a strategy")
	}
	if opts.NewID == nil {
		return Result{}, fmt.Errorf("costbasis: match options require an id generator")
	}

	if err := validatePrices(transactions); err != nil {
		return Result{}, err
	}

	legsByAsset := make(map[string][]leg)
	for _, tx := range transactions {
		if tx.ExcludedFromAccounting {
			continue
		}
		movements := make([]model.AssetMovement, 0, len(tx.Movements.Inflows)+len(tx.Movements.Outflows))
		movements = append(movements, tx.Movements.Inflows...)
		movements = append(movements, tx.Movements.Outflows...)

		allocated, err := apportionFees(tx, movements)
		if err != nil {
			return Result{}, err
		}

		for i, m := range movements {
			if money.NewCurrency(m.Asset).IsFiat() {
				continue
			}
			legsByAsset[m.Asset] = append(legsByAsset[m.Asset], leg{
				asset:        m.Asset,
				direction:    m.Direction,
				quantity:     m.Amount,
				price:        m.PriceAtTxTime.Price,
				allocatedFee: allocated[i],
				datetime:     tx.Datetime,
				txID:         tx.ID,
			})
		}
	}

	result := Result{}
	for asset, legs := range legsByAsset {
		sort.SliceStable(legs, func(i, j int) bool { return legs[i].datetime.Before(legs[j].datetime) })

		var open []*model.AcquisitionLot
		for _, lg := range legs {
			switch lg.direction {
			case model.DirectionIn:
				lot := acquire(opts, asset, lg)
				open = append(open, &lot)
				result.Lots = append(result.Lots, lot)
			case model.DirectionOut:
				disposals, err := dispose(opts, asset, lg, open)
				if err != nil {
					return Result{}, err
				}
				result.Disposals = append(result.Disposals, disposals...)
				for i := range open {
					result.Lots[lotIndex(result.Lots, open[i].ID)] = *open[i]
				}
			}
		}
	}

	return result, nil
}

func acquire(opts Options, asset string, lg leg) model.AcquisitionLot {
	costBasisPerUnit := lg.price.Amount.Add(lg.allocatedFee.Div(lg.quantity))
	return model.AcquisitionLot{
		ID:                  opts.NewID(),
		CalculationID:       opts.CalculationID,
		Asset:               asset,
		Quantity:            lg.quantity,
		RemainingQuantity:   lg.quantity,
		CostBasisPerUnit:    money.NewMoney(costBasisPerUnit, lg.price.Currency),
		AcquisitionDate:     lg.datetime,
		Method:              opts.Strategy.Method(),
		Status:              model.LotStatusOpen,
		SourceTransactionID: lg.txID,
	}
}

func dispose(opts Options, asset string, lg leg, open []*model.AcquisitionLot) ([]model.LotDisposal, error) {
	netProceeds := lg.quantity.Mul(lg.price.Amount).Sub(lg.allocatedFee)
	proceedsPerUnit := netProceeds.Div(lg.quantity)

	var candidates []*model.AcquisitionLot
	for _, lot := range open {
		if lot.RemainingQuantity.IsPositive() {
			candidates = append(candidates, lot)
		}
	}
	ordered := opts.Strategy.Order(candidates)

	remaining := lg.quantity
	var disposals []model.LotDisposal
	for _, lot := range ordered {
		if remaining.LessThanOrEqual(money.Zero) {
			break
		}
		consume := lot.RemainingQuantity
		if remaining.LessThan(consume) {
			consume = remaining
		}

		gainLoss := proceedsPerUnit.Sub(lot.CostBasisPerUnit.Amount).Mul(consume)
		holdingDays := int(lg.datetime.Sub(lot.AcquisitionDate).Hours() / 24)

		disposals = append(disposals, model.LotDisposal{
			ID:                    opts.NewID(),
			LotID:                 lot.ID,
			DisposalTransactionID: lg.txID,
			QuantityDisposed:      consume,
			ProceedsPerUnit:       money.NewMoney(proceedsPerUnit, lg.price.Currency),
			CostBasisPerUnit:      lot.CostBasisPerUnit,
			GainLoss:              money.NewMoney(gainLoss, lg.price.Currency),
			HoldingPeriodDays:     holdingDays,
		})

		lot.RemainingQuantity = lot.RemainingQuantity.Sub(consume)
		lot.Status = model.DeriveLotStatus(lot.Quantity, lot.RemainingQuantity)
		remaining = remaining.Sub(consume)
	}

	if remaining.IsPositive() {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("asset %s: disposal of %s exceeds open lot quantity by %s", asset, money.FormatDecimal(lg.quantity), money.FormatDecimal(remaining)))
	}
	return disposals, nil
}

func lotIndex(lots []model.AcquisitionLot, id string) int {
	for i := range lots {
		if lots[i].ID == id {
			return i
		}
	}
	return -1
}

// validatePrices rejects the whole run if any non-fiat movement or fee
// lacks a price, per spec §4.13 step 1.
func validatePrices(transactions []model.CanonicalTransaction) error {
	for _, tx := range transactions {
		if tx.ExcludedFromAccounting {
			continue
		}
		all := make([]model.AssetMovement, 0, len(tx.Movements.Inflows)+len(tx.Movements.Outflows)+2)
		all = append(all, tx.Movements.Inflows...)
		all = append(all, tx.Movements.Outflows...)
		all = append(all, tx.Fees.All()...)
		for _, m := range all {
			if money.NewCurrency(m.Asset).IsFiat() {
				continue
			}
			if m.PriceAtTxTime == nil {
				return apperr.New(apperr.CodeValidation, fmt.Sprintf("transaction %s: movement in %s has no price at transaction time", tx.ID, m.Asset))
			}
		}
	}
	return nil
}
