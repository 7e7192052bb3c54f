// Package bitcoin normalizes UTXO-model raw transactions into the
// canonical transaction model (spec §4.8, C9), for any provider whose
// wire shape reduces to a list of address-tagged inputs and outputs.
package bitcoin

import (
	"errors"
	"math/big"
	"time"

	"github.com/jbelanger/exitbook/internal/fundflow"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/normalize"
)

// AddressValue is one input or output entry tagged with the owning
// address and its value in satoshis.
type AddressValue struct {
	Address    string
	ValueSats  int64
}

// RawTx is the provider-agnostic shape a bitcoin-family provider
// adapter must reduce its wire response to before normalization.
type RawTx struct {
	TxHash      string
	BlockHeight int64
	Confirmed   bool
	Timestamp   time.Time
	Inputs      []AddressValue
	Outputs     []AddressValue
	FeeSats     int64
}

var btc = money.NewCurrency("BTC")

// Normalize converts one UTXO transaction into a CanonicalTransaction
// scoped to address: its inputs from address and outputs to address
// net into the address's single aggregate BTC movement (a UTXO input
// and a change output to the same address are not two economic
// events), and the miner fee is attributed to address only when
// address appears among the inputs (i.e. it paid for the
// transaction).
func Normalize(providerName, address string, raw RawTx) (model.CanonicalTransaction, error) {
	if raw.TxHash == "" {
		return model.CanonicalTransaction{}, errors.New("bitcoin: missing tx hash")
	}

	var outflowSats, inflowSats int64
	paidFee := false
	for _, in := range raw.Inputs {
		if in.Address == address {
			outflowSats += in.ValueSats
			paidFee = true
		}
	}
	for _, out := range raw.Outputs {
		if out.Address == address {
			inflowSats += out.ValueSats
		}
	}

	tx := model.CanonicalTransaction{
		ID:         raw.TxHash,
		ExternalID: raw.TxHash,
		SourceName: providerName,
		SourceType: model.SourceTypeBlockchain,
		Datetime:   raw.Timestamp,
		Status:     statusFor(raw.Confirmed),
		BlockchainMetadata: &model.BlockchainMetadata{
			Chain:       "bitcoin",
			BlockHeight: uint64(raw.BlockHeight),
			TxHash:      raw.TxHash,
			Confirmed:   raw.Confirmed,
		},
	}

	zeroFee := !paidFee || raw.FeeSats == 0
	ff := analyzeFundFlow(inflowSats, outflowSats, paidFee, zeroFee)
	result := fundflow.Classify(ff)
	tx.Operation = result.Operation
	tx.Notes = result.Notes
	tx.Movements.Inflows = ff.Inflows
	tx.Movements.Outflows = ff.Outflows
	if len(tx.Movements.Inflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Inflows[0]
	} else if len(tx.Movements.Outflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Outflows[0]
	}

	if paidFee && raw.FeeSats > 0 {
		amt := normalize.FromSmallestUnit(big.NewInt(raw.FeeSats), normalize.SatoshisPerBTC)
		tx.Fees.Network = &model.AssetMovement{Asset: btc.Ticker(), Amount: amt, Direction: model.DirectionOut}
	}

	return tx, nil
}

// analyzeFundFlow nets address's inputs against its outputs into a
// single BTC movement, the per-chain step spec §4.9 calls for before
// the shared classifier runs: a UTXO input spent by address and a
// change output back to address are one economic event, not an
// inflow and an outflow of near-equal size.
func analyzeFundFlow(inflowSats, outflowSats int64, selfInitiated, zeroFee bool) fundflow.FundFlow {
	net := inflowSats - outflowSats
	ff := fundflow.FundFlow{
		SelfInitiated: selfInitiated,
		ZeroFee:       zeroFee,
		ZeroValue:     net == 0,
	}
	switch {
	case net > 0:
		amt := normalize.FromSmallestUnit(big.NewInt(net), normalize.SatoshisPerBTC)
		ff.Inflows = []model.AssetMovement{{Asset: btc.Ticker(), Amount: amt, Direction: model.DirectionIn}}
	case net < 0:
		amt := normalize.FromSmallestUnit(big.NewInt(-net), normalize.SatoshisPerBTC)
		ff.Outflows = []model.AssetMovement{{Asset: btc.Ticker(), Amount: amt, Direction: model.DirectionOut}}
	}
	return ff
}

func statusFor(confirmed bool) model.TransactionStatus {
	if confirmed {
		return model.TransactionStatusSuccess
	}
	return model.TransactionStatusPending
}
