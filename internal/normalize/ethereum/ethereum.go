// Package ethereum normalizes EVM-family raw transactions (native
// value transfers and ERC-20 token transfers) into the canonical
// transaction model (spec §4.8, C9).
package ethereum

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jbelanger/exitbook/internal/fundflow"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/normalize"
)

// TokenTransfer describes one ERC-20 Transfer log entry on a
// transaction, already decoded from its ABI-encoded form by the
// provider adapter.
type TokenTransfer struct {
	ContractAddress string
	Symbol          string
	Decimals        int32
	From            string
	To              string
	Amount          *big.Int
}

// RawTx is the provider-agnostic EVM transaction shape.
type RawTx struct {
	Hash         string
	BlockNumber  int64
	Confirmed    bool
	Timestamp    time.Time
	From         string
	To           string
	ValueWei     *big.Int
	GasUsed      uint64
	GasPriceWei  *big.Int
	IsError      bool
	InputData    []byte
	TokenTransfers []TokenTransfer
}

var eth = money.NewCurrency("ETH")

func isContractCall(data []byte) bool { return len(data) > 0 }

// Normalize converts one EVM transaction into a CanonicalTransaction
// scoped to address, combining native value movement with any
// decoded ERC-20 transfers on the same hash.
func Normalize(providerName, address string, raw RawTx) (model.CanonicalTransaction, error) {
	if raw.Hash == "" {
		return model.CanonicalTransaction{}, errors.New("ethereum: missing tx hash")
	}

	addr := common.HexToAddress(address)
	from := common.HexToAddress(raw.From)
	to := common.HexToAddress(raw.To)

	tx := model.CanonicalTransaction{
		ID:         raw.Hash,
		ExternalID: raw.Hash,
		SourceName: providerName,
		SourceType: model.SourceTypeBlockchain,
		Datetime:   raw.Timestamp,
		Status:     statusFor(raw),
		BlockchainMetadata: &model.BlockchainMetadata{
			Chain:       "ethereum",
			BlockHeight: uint64(raw.BlockNumber),
			TxHash:      raw.Hash,
			Confirmed:   raw.Confirmed,
		},
	}

	selfInitiated := from == addr

	if raw.ValueWei != nil && raw.ValueWei.Sign() > 0 {
		amt := normalize.FromSmallestUnit(raw.ValueWei, normalize.WeiPerETH)
		switch addr {
		case from:
			tx.Movements.Outflows = append(tx.Movements.Outflows, model.AssetMovement{Asset: eth.Ticker(), Amount: amt, Direction: model.DirectionOut})
		case to:
			tx.Movements.Inflows = append(tx.Movements.Inflows, model.AssetMovement{Asset: eth.Ticker(), Amount: amt, Direction: model.DirectionIn})
		}
	}

	for _, tr := range raw.TokenTransfers {
		if tr.Amount == nil || tr.Amount.Sign() <= 0 {
			continue
		}
		amt := normalize.FromSmallestUnit(tr.Amount, tr.Decimals)
		trFrom := common.HexToAddress(tr.From)
		trTo := common.HexToAddress(tr.To)
		switch {
		case trFrom == addr:
			tx.Movements.Outflows = append(tx.Movements.Outflows, model.AssetMovement{
				Asset: tr.Symbol, Amount: amt, Direction: model.DirectionOut,
				Metadata: map[string]any{"contract": tr.ContractAddress},
			})
		case trTo == addr:
			tx.Movements.Inflows = append(tx.Movements.Inflows, model.AssetMovement{
				Asset: tr.Symbol, Amount: amt, Direction: model.DirectionIn,
				Metadata: map[string]any{"contract": tr.ContractAddress},
			})
		}
	}

	if len(tx.Movements.Inflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Inflows[0]
	} else if len(tx.Movements.Outflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Outflows[0]
	}

	contractCall := isContractCall(raw.InputData)
	ff := fundflow.FundFlow{
		Inflows:                tx.Movements.Inflows,
		Outflows:               tx.Movements.Outflows,
		HasContractInteraction: contractCall,
		SelfInitiated:          selfInitiated,
		ZeroValue:              len(tx.Movements.Inflows) == 0 && len(tx.Movements.Outflows) == 0,
		ZeroFee:                raw.GasUsed == 0 || raw.GasPriceWei == nil,
	}
	result := fundflow.Classify(ff)
	tx.Operation = result.Operation
	tx.Notes = result.Notes

	if selfInitiated && raw.GasUsed > 0 && raw.GasPriceWei != nil {
		feeWei := new(big.Int).Mul(new(big.Int).SetUint64(raw.GasUsed), raw.GasPriceWei)
		amt := normalize.FromSmallestUnit(feeWei, normalize.WeiPerETH)
		tx.Fees.Network = &model.AssetMovement{Asset: eth.Ticker(), Amount: amt, Direction: model.DirectionOut}
	}

	if contractCall {
		if tx.RawNormalizedData == nil {
			tx.RawNormalizedData = map[string]any{}
		}
		tx.RawNormalizedData["contractInteraction"] = true
	}

	return tx, nil
}

func statusFor(raw RawTx) model.TransactionStatus {
	if raw.IsError {
		return model.TransactionStatusFailed
	}
	if raw.Confirmed {
		return model.TransactionStatusSuccess
	}
	return model.TransactionStatusPending
}
