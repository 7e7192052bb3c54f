package fundflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
)

func movement(asset string, dir model.Direction) model.AssetMovement {
	amt, _ := money.NewDecimal("1")
	return model.AssetMovement{Asset: asset, Amount: amt, Direction: dir}
}

func TestClassify_SubstrateOutgoingTransfer(t *testing.T) {
	ff := FundFlow{
		Outflows:      []model.AssetMovement{movement("DOT", model.DirectionOut)},
		SelfInitiated: true,
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryTransfer, got.Operation.Category)
	assert.Equal(t, model.OperationTypeWithdrawal, got.Operation.Type)
	assert.True(t, ShouldRecordFeeEntry(ff))
}

func TestClassify_StakingRewardRecognition(t *testing.T) {
	ff := FundFlow{
		HasStaking:    true,
		Inflows:       []model.AssetMovement{movement("DOT", model.DirectionIn)},
		ZeroFee:       true,
		SelfInitiated: false,
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryStaking, got.Operation.Category)
	assert.Equal(t, model.OperationTypeReward, got.Operation.Type)
	assert.Empty(t, got.Notes)
	assert.False(t, ShouldRecordFeeEntry(ff))
}

func TestClassify_UtilityBatchWarning(t *testing.T) {
	ff := FundFlow{
		HasUtilityBatch: true,
		EventCount:      6,
		Outflows:        []model.AssetMovement{movement("DOT", model.DirectionOut)},
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryTransfer, got.Operation.Category)
	assert.Equal(t, model.OperationTypeTransfer, got.Operation.Type)
	assert.Len(t, got.Notes, 1)
	assert.Equal(t, "batch_operation", got.Notes[0].Type)
	assert.Equal(t, model.NoteSeverityWarning, got.Notes[0].Severity)
}

func TestClassify_StakingBondIsStake(t *testing.T) {
	ff := FundFlow{HasStaking: true, StakingCall: StakingCallBond, SelfInitiated: true, Outflows: []model.AssetMovement{movement("DOT", model.DirectionOut)}}
	got := Classify(ff)
	assert.Equal(t, model.OperationTypeStake, got.Operation.Type)
}

func TestClassify_StakingNominateAddsInfoNote(t *testing.T) {
	ff := FundFlow{HasStaking: true, StakingCall: StakingCallNominate, SelfInitiated: true}
	got := Classify(ff)
	assert.Equal(t, model.OperationTypeStake, got.Operation.Type)
	assert.Len(t, got.Notes, 1)
	assert.Equal(t, model.NoteSeverityInfo, got.Notes[0].Severity)
}

func TestClassify_StakingBondNotSelfInitiatedIsReward(t *testing.T) {
	ff := FundFlow{
		HasStaking:    true,
		StakingCall:   StakingCallBond,
		Inflows:       []model.AssetMovement{movement("DOT", model.DirectionIn)},
		ZeroFee:       true,
		SelfInitiated: false,
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryStaking, got.Operation.Category)
	assert.Equal(t, model.OperationTypeReward, got.Operation.Type)
}

func TestClassify_BridgeInflowOnly(t *testing.T) {
	ff := FundFlow{HasBridgeTransfer: true, Inflows: []model.AssetMovement{movement("ETH", model.DirectionIn)}}
	got := Classify(ff)
	assert.Equal(t, model.OperationTypeDeposit, got.Operation.Type)
}

func TestClassify_SimpleSwap(t *testing.T) {
	ff := FundFlow{
		Inflows:  []model.AssetMovement{movement("USDC", model.DirectionIn)},
		Outflows: []model.AssetMovement{movement("ETH", model.DirectionOut)},
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryTrade, got.Operation.Category)
	assert.Equal(t, model.OperationTypeSwap, got.Operation.Type)
}

func TestClassify_SameAssetInAndOutIsTransfer(t *testing.T) {
	ff := FundFlow{
		Inflows:  []model.AssetMovement{movement("ETH", model.DirectionIn)},
		Outflows: []model.AssetMovement{movement("ETH", model.DirectionOut)},
	}
	got := Classify(ff)
	assert.Equal(t, model.OperationCategoryTransfer, got.Operation.Category)
	assert.Equal(t, model.OperationTypeTransfer, got.Operation.Type)
}

func TestClassify_FallbackRuleWarnsClassificationFailed(t *testing.T) {
	got := Classify(FundFlow{})
	assert.Equal(t, model.OperationTypeTransfer, got.Operation.Type)
	assert.Len(t, got.Notes, 1)
	assert.Equal(t, "classification_failed", got.Notes[0].Type)
}

func TestShouldRecordFeeEntry_NoFeeOnIncomingOnly(t *testing.T) {
	ff := FundFlow{Inflows: []model.AssetMovement{movement("DOT", model.DirectionIn)}}
	assert.False(t, ShouldRecordFeeEntry(ff))
}
