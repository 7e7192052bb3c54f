// Package substrate normalizes Substrate-family (Polkadot, Kusama, ...)
// extrinsics into the canonical transaction model (spec §4.8, C9),
// driving the shared fund-flow classifier (C10) with the module/call
// semantics specific to this chain family.
package substrate

import (
	"errors"
	"math/big"
	"time"

	"github.com/jbelanger/exitbook/internal/fundflow"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/normalize"
)

// RawExtrinsic is the provider-agnostic shape of one decoded Substrate
// extrinsic plus its emitted events, already resolved to an asset
// ticker (DOT, KSM, ...) for the chain it came from.
type RawExtrinsic struct {
	Hash        string
	BlockHeight int64
	Timestamp   time.Time
	Success     bool

	Module string // "balances", "staking", "democracy", "utility", "proxy", "multisig", ...
	Call   string // "transfer", "bond", "unbond", "withdraw_unbonded", "nominate", "chill", "propose", "vote", ...

	Asset        string
	From         string
	To           string
	AmountPlanck *big.Int
	FeePlanck    *big.Int
	EventCount   int

	IsProxy    bool
	IsMultisig bool
}

// Normalize converts one extrinsic into a CanonicalTransaction for
// address, classifying its operation via the shared fund-flow rule
// table (spec §4.9).
func Normalize(providerName, address string, raw RawExtrinsic) (model.CanonicalTransaction, error) {
	if raw.Hash == "" {
		return model.CanonicalTransaction{}, errors.New("substrate: missing extrinsic hash")
	}
	if raw.Asset == "" {
		return model.CanonicalTransaction{}, errors.New("substrate: missing asset ticker")
	}

	selfInitiated := raw.From == address

	var inflows, outflows []model.AssetMovement
	if raw.AmountPlanck != nil && raw.AmountPlanck.Sign() > 0 {
		amt := normalize.FromSmallestUnit(raw.AmountPlanck, normalize.PlanckPerDOT)
		if raw.To == address {
			inflows = append(inflows, model.AssetMovement{Asset: raw.Asset, Amount: amt, Direction: model.DirectionIn})
		}
		if raw.From == address {
			outflows = append(outflows, model.AssetMovement{Asset: raw.Asset, Amount: amt, Direction: model.DirectionOut})
		}
	}

	zeroFee := raw.FeePlanck == nil || raw.FeePlanck.Sign() == 0

	ff := fundflow.FundFlow{
		Inflows:         inflows,
		Outflows:        outflows,
		HasStaking:      raw.Module == "staking",
		HasGovernance:   raw.Module == "democracy" || raw.Module == "governance",
		HasUtilityBatch: raw.Module == "utility" && (raw.Call == "batch" || raw.Call == "batch_all"),
		HasProxy:        raw.IsProxy,
		HasMultisig:     raw.IsMultisig,
		EventCount:      raw.EventCount,
		StakingCall:     fundflow.StakingCall(raw.Call),
		GovernanceCall:  governanceCallFor(raw.Call),
		ZeroFee:         zeroFee,
		ZeroValue:       raw.AmountPlanck == nil || raw.AmountPlanck.Sign() == 0,
		SelfInitiated:   selfInitiated,
	}
	result := fundflow.Classify(ff)

	tx := model.CanonicalTransaction{
		ID:         raw.Hash,
		ExternalID: raw.Hash,
		SourceName: providerName,
		SourceType: model.SourceTypeBlockchain,
		Datetime:   raw.Timestamp,
		Status:     statusFor(raw.Success),
		Operation:  result.Operation,
		Notes:      result.Notes,
		BlockchainMetadata: &model.BlockchainMetadata{
			Chain:       chainAssetToName(raw.Asset),
			BlockHeight: uint64(raw.BlockHeight),
			TxHash:      raw.Hash,
			Confirmed:   raw.Success,
		},
	}
	tx.Movements.Inflows = inflows
	tx.Movements.Outflows = outflows
	if len(inflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Inflows[0]
	} else if len(outflows) > 0 {
		tx.Movements.Primary = &tx.Movements.Outflows[0]
	}

	if fundflow.ShouldRecordFeeEntry(ff) && raw.FeePlanck != nil && raw.FeePlanck.Sign() > 0 {
		amt := normalize.FromSmallestUnit(raw.FeePlanck, normalize.PlanckPerDOT)
		tx.Fees.Network = &model.AssetMovement{Asset: raw.Asset, Amount: amt, Direction: model.DirectionOut}
	}

	return tx, nil
}

func governanceCallFor(call string) fundflow.GovernanceCall {
	switch call {
	case "propose":
		return fundflow.GovernanceCallPropose
	case "vote":
		return fundflow.GovernanceCallVote
	case "refund":
		return fundflow.GovernanceCallRefund
	default:
		return ""
	}
}

func statusFor(success bool) model.TransactionStatus {
	if success {
		return model.TransactionStatusSuccess
	}
	return model.TransactionStatusFailed
}

// chainAssetToName maps a native asset ticker to the chain identifier
// used in BlockchainMetadata. Extend as more SS58 chains are wired in.
func chainAssetToName(asset string) string {
	switch asset {
	case "KSM":
		return "kusama"
	default:
		return "polkadot"
	}
}
