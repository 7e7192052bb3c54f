package pricing

import (
	"github.com/jbelanger/exitbook/internal/model"
)

// rederiveAcrossLinks implements spec §4.14 stage 4: a lot transfer
// links an outflow on one account to the matching inflow on another
// (e.g. an exchange withdrawal and the blockchain deposit it funds).
// The asset neither gains nor loses value crossing that link, so a
// price known on either side is propagated to the other.
func rederiveAcrossLinks(transactions []model.CanonicalTransaction, links []model.LotTransfer) int {
	if len(links) == 0 {
		return 0
	}

	byID := make(map[string]*model.CanonicalTransaction, len(transactions))
	for i := range transactions {
		byID[transactions[i].ID] = &transactions[i]
	}

	rederived := 0
	for _, link := range links {
		from := byID[link.FromTransactionID]
		to := byID[link.ToTransactionID]
		if from == nil || to == nil {
			continue
		}

		fromMovement := findMovement(from.Movements.Outflows, link.Asset)
		toMovement := findMovement(to.Movements.Inflows, link.Asset)
		if fromMovement == nil || toMovement == nil {
			continue
		}

		switch {
		case fromMovement.PriceAtTxTime != nil && toMovement.PriceAtTxTime == nil:
			price := *fromMovement.PriceAtTxTime
			price.Source = SourceRederived
			toMovement.PriceAtTxTime = &price
			rederived++
		case toMovement.PriceAtTxTime != nil && fromMovement.PriceAtTxTime == nil:
			price := *toMovement.PriceAtTxTime
			price.Source = SourceRederived
			fromMovement.PriceAtTxTime = &price
			rederived++
		}
	}
	return rederived
}

func findMovement(movements []model.AssetMovement, asset string) *model.AssetMovement {
	for i := range movements {
		if movements[i].Asset == asset {
			return &movements[i]
		}
	}
	return nil
}
