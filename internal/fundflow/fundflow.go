// Package fundflow implements the chain-agnostic fund-flow analysis
// and operation classification of spec §4.9 (C10). Per-chain
// normalizers (internal/normalize/...) populate a FundFlow from raw
// chain semantics; Classify then applies the same ordered rule table
// regardless of chain.
package fundflow

import "github.com/jbelanger/exitbook/internal/model"

// StakingCall names the substrate-style staking extrinsic that
// produced this fund flow, when HasStaking is set.
type StakingCall string

const (
	StakingCallBond            StakingCall = "bond"
	StakingCallUnbond          StakingCall = "unbond"
	StakingCallWithdrawUnbonded StakingCall = "withdraw_unbonded"
	StakingCallNominate        StakingCall = "nominate"
	StakingCallChill           StakingCall = "chill"
)

// GovernanceCall names the governance extrinsic that produced this
// fund flow, when HasGovernance is set.
type GovernanceCall string

const (
	GovernanceCallPropose GovernanceCall = "propose"
	GovernanceCallVote    GovernanceCall = "vote"
	GovernanceCallRefund  GovernanceCall = "refund"
)

// FundFlow is the chain-agnostic shape the classifier reasons over. A
// per-chain analyzeFundFlow builds one of these from raw transaction
// data plus the address context it was fetched for.
type FundFlow struct {
	Inflows  []model.AssetMovement
	Outflows []model.AssetMovement
	Primary  *model.AssetMovement

	HasStaking             bool
	HasGovernance          bool
	HasBridgeTransfer      bool
	HasIbcTransfer         bool
	HasContractInteraction bool
	HasUtilityBatch        bool
	HasProxy               bool
	HasMultisig            bool
	ClassificationUncertainty bool

	EventCount int

	StakingCall    StakingCall
	GovernanceCall GovernanceCall

	ZeroValue     bool
	ZeroFee       bool
	SelfInitiated bool
}

// Result is the outcome of classification: the operation plus any
// structured notes to attach to the canonical transaction.
type Result struct {
	Operation model.Operation
	Notes     []model.Note
}

func op(cat model.OperationCategory, typ model.OperationType) model.Operation {
	return model.Operation{Category: cat, Type: typ}
}

func note(kind string, severity model.NoteSeverity, message string) model.Note {
	return model.Note{Type: kind, Severity: severity, Message: message}
}

// Classify applies the ordered, first-match rule table of spec §4.9.
// The table is exhaustive: rule 14 always matches as a fallback, so
// Classify never fails to return a Result.
func Classify(ff FundFlow) Result {
	switch {

	// Rule 1: staking bond / unbond / withdraw, initiated by the user
	// (distinguishes a user bonding their own funds from a reward
	// auto-bonded to them by the staking system under the same call).
	case ff.HasStaking && isStakingMovementCall(ff.StakingCall) && ff.SelfInitiated:
		typ := model.OperationTypeStake
		if ff.StakingCall == StakingCallUnbond || ff.StakingCall == StakingCallWithdrawUnbonded {
			typ = model.OperationTypeUnstake
		}
		var notes []model.Note
		if ff.StakingCall == StakingCallNominate || ff.StakingCall == StakingCallChill {
			notes = append(notes, note("staking_management", model.NoteSeverityInfo, "staking management call with no direct fund movement"))
		}
		return Result{Operation: op(model.OperationCategoryStaking, typ), Notes: notes}

	// Rule 2: staking inflow, zero fee, not self-initiated.
	case ff.HasStaking && len(ff.Inflows) > 0 && ff.ZeroFee && !ff.SelfInitiated:
		return Result{Operation: op(model.OperationCategoryStaking, model.OperationTypeReward)}

	// Rule 3: governance propose/vote/refund.
	case ff.HasGovernance && ff.GovernanceCall != "":
		return Result{Operation: op(model.OperationCategoryGovernance, governanceOpType(ff.GovernanceCall))}

	// Rule 4: utility batch.
	case ff.HasUtilityBatch && ff.EventCount > 1:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeTransfer),
			Notes:     []model.Note{note("batch_operation", model.NoteSeverityWarning, "utility batch call aggregates multiple sub-events")},
		}

	// Rule 5: proxy / multisig call.
	case ff.HasProxy || ff.HasMultisig:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeTransfer),
			Notes:     []model.Note{note("indirect_call", model.NoteSeverityInfo, "executed via proxy or multisig")},
		}

	// Rule 6: contract call, zero value.
	case ff.HasContractInteraction && ff.ZeroValue:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeTransfer),
			Notes:     []model.Note{note("contract_interaction", model.NoteSeverityInfo, "contract call with no value transfer")},
		}

	// Rule 7: zero value, no movements.
	case ff.ZeroValue && len(ff.Inflows) == 0 && len(ff.Outflows) == 0:
		return Result{Operation: op(model.OperationCategoryFee, model.OperationTypeFee)}

	// Rule 8: bridge, inflows only.
	case ff.HasBridgeTransfer && len(ff.Inflows) > 0 && len(ff.Outflows) == 0:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeDeposit),
			Notes:     []model.Note{note("bridge_transfer", model.NoteSeverityInfo, "inbound bridge transfer")},
		}

	// Rule 9: bridge, outflows only.
	case ff.HasBridgeTransfer && len(ff.Outflows) > 0 && len(ff.Inflows) == 0:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeWithdrawal),
			Notes:     []model.Note{note("bridge_transfer", model.NoteSeverityInfo, "outbound bridge transfer")},
		}

	// Rule 10: 1 outflow + 1 inflow, different assets.
	case len(ff.Inflows) == 1 && len(ff.Outflows) == 1 && ff.Inflows[0].Asset != ff.Outflows[0].Asset:
		return Result{
			Operation: op(model.OperationCategoryTrade, model.OperationTypeSwap),
			Notes:     []model.Note{note("swap", model.NoteSeverityInfo, "single-asset-in, single-asset-out swap")},
		}

	// Rule 11: only inflows.
	case len(ff.Inflows) > 0 && len(ff.Outflows) == 0:
		return Result{Operation: op(model.OperationCategoryTransfer, model.OperationTypeDeposit)}

	// Rule 12: only outflows.
	case len(ff.Outflows) > 0 && len(ff.Inflows) == 0:
		return Result{Operation: op(model.OperationCategoryTransfer, model.OperationTypeWithdrawal)}

	// Rule 13: 1 outflow + 1 inflow, same asset.
	case len(ff.Inflows) == 1 && len(ff.Outflows) == 1 && ff.Inflows[0].Asset == ff.Outflows[0].Asset:
		return Result{Operation: op(model.OperationCategoryTransfer, model.OperationTypeTransfer)}

	// Rule 14: otherwise.
	default:
		return Result{
			Operation: op(model.OperationCategoryTransfer, model.OperationTypeTransfer),
			Notes:     []model.Note{note("classification_failed", model.NoteSeverityWarning, "fund flow did not match any known pattern")},
		}
	}
}

func isStakingMovementCall(c StakingCall) bool {
	switch c {
	case StakingCallBond, StakingCallUnbond, StakingCallWithdrawUnbonded, StakingCallNominate, StakingCallChill:
		return true
	default:
		return false
	}
}

func governanceOpType(c GovernanceCall) model.OperationType {
	switch c {
	case GovernanceCallPropose:
		return model.OperationTypeProposal
	case GovernanceCallVote:
		return model.OperationTypeVote
	case GovernanceCallRefund:
		return model.OperationTypeRefund
	default:
		return model.OperationTypeTransfer
	}
}

// ShouldRecordFeeEntry implements the fee attribution policy of spec
// §4.9: a fee entry is emitted only if the user address initiated the
// transaction or has outflows. Rewards and incoming transfers produce
// no user-side fee entry.
func ShouldRecordFeeEntry(ff FundFlow) bool {
	return ff.SelfInitiated || len(ff.Outflows) > 0
}
