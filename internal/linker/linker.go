// Package linker proposes TransactionLink candidates across accounts
// for the `links run` CLI verb (spec §6): an outflow on one account
// and an inflow on a different account of the same asset, close in
// both amount and time, most likely represent one real-world transfer
// (an exchange withdrawal landing on a wallet, or the reverse).
package linker

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

// AccountTransaction pairs a canonical transaction with the account it
// was ingested under, the unit linker matches candidates against.
type AccountTransaction struct {
	AccountID   string
	Transaction model.CanonicalTransaction
}

// Options bounds how aggressively Detect proposes links.
type Options struct {
	// MaxTimeDelta is the largest gap between the outflow and inflow
	// datetimes still considered the same transfer.
	MaxTimeDelta time.Duration
	// MaxAmountTolerance is the largest relative amount difference
	// (e.g. 0.02 for 2%) tolerated, to absorb a withdrawal fee charged
	// off the top by the sending side.
	MaxAmountTolerance float64
	NewID              func() string
}

// DefaultOptions matches within a day and 2% of amount, generous
// enough to absorb typical exchange withdrawal fees without matching
// unrelated transfers of similar size.
func DefaultOptions() Options {
	return Options{
		MaxTimeDelta:       24 * time.Hour,
		MaxAmountTolerance: 0.02,
		NewID:              func() string { return uuid.NewString() },
	}
}

type leg struct {
	accountID string
	txID      string
	asset     string
	amount    money.Decimal
	datetime  time.Time
}

// Detect scans every outflow against every inflow on a different
// account and proposes a model.TransactionLink for each best-matching
// pair within opts' tolerances. Each transaction is used in at most
// one proposed link as the sending side and at most one as the
// receiving side, greedily matched by ascending time delta.
func Detect(txs []AccountTransaction, opts Options) []model.TransactionLink {
	if opts.MaxTimeDelta <= 0 {
		opts = DefaultOptions()
	}

	var outflows, inflows []leg
	for _, at := range txs {
		for _, m := range at.Transaction.Movements.Outflows {
			outflows = append(outflows, leg{at.AccountID, at.Transaction.ID, m.Asset, m.Amount, at.Transaction.Datetime})
		}
		for _, m := range at.Transaction.Movements.Inflows {
			inflows = append(inflows, leg{at.AccountID, at.Transaction.ID, m.Asset, m.Amount, at.Transaction.Datetime})
		}
	}

	type pair struct {
		out, in  leg
		delta    time.Duration
		confidence float64
	}
	var candidates []pair
	for _, out := range outflows {
		for _, in := range inflows {
			if in.accountID == out.accountID || in.asset != out.asset {
				continue
			}
			if !in.datetime.After(out.datetime) {
				continue
			}
			delta := in.datetime.Sub(out.datetime)
			if delta > opts.MaxTimeDelta {
				continue
			}
			if !withinTolerance(out.amount, in.amount, opts.MaxAmountTolerance) {
				continue
			}
			candidates = append(candidates, pair{out, in, delta, confidence(out.amount, in.amount, delta, opts.MaxTimeDelta)})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].delta < candidates[j].delta })

	usedOut := make(map[string]bool)
	usedIn := make(map[string]bool)
	var links []model.TransactionLink
	for _, c := range candidates {
		if usedOut[c.out.txID] || usedIn[c.in.txID] {
			continue
		}
		usedOut[c.out.txID] = true
		usedIn[c.in.txID] = true
		links = append(links, model.TransactionLink{
			ID:                opts.NewID(),
			FromTransactionID: c.out.txID,
			ToTransactionID:   c.in.txID,
			FromAccountID:     c.out.accountID,
			ToAccountID:       c.in.accountID,
			Asset:             c.out.asset,
			Status:            model.TransactionLinkStatusProposed,
			Confidence:        c.confidence,
		})
	}
	return links
}

func withinTolerance(out, in money.Decimal, tolerance float64) bool {
	if out.IsZero() {
		return false
	}
	diff := out.Sub(in).Abs()
	rel, _ := diff.Div(out).Float64()
	return rel <= tolerance
}

// confidence blends how close the amounts and timestamps are into a
// single [0,1] score, favoring near-exact amount matches over timing.
func confidence(out, in money.Decimal, delta, maxDelta time.Duration) float64 {
	diff := out.Sub(in).Abs()
	rel, _ := diff.Div(out).Float64()
	amountScore := 1 - rel
	if amountScore < 0 {
		amountScore = 0
	}
	timeScore := 1 - float64(delta)/float64(maxDelta)
	if timeScore < 0 {
		timeScore = 0
	}
	return 0.7*amountScore + 0.3*timeScore
}
