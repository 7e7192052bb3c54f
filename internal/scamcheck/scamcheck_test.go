package scamcheck

import (
	"testing"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectScams_FlagsDustAndMimicTogether(t *testing.T) {
	weights, err := LoadDefaultWeights()
	require.NoError(t, err)
	svc := New(weights)

	dust, err := money.NewDecimal("0.000000001")
	require.NoError(t, err)

	tx := model.CanonicalTransaction{
		Movements: model.Movements{
			Inflows: []model.AssetMovement{
				{Asset: "USOC", Amount: dust, Direction: model.DirectionIn},
			},
		},
	}

	flagged := svc.DetectScams([]model.CanonicalTransaction{tx}, "ethereum")
	require.Len(t, flagged, 1)
	note := flagged[0]
	assert.Equal(t, "possible_scam_token", note.Type)
	assert.Equal(t, model.NoteSeverityWarning, note.Severity)
}

func TestDetectScams_LeavesOrdinaryTransfersUnflagged(t *testing.T) {
	weights, err := LoadDefaultWeights()
	require.NoError(t, err)
	svc := New(weights)

	amt, err := money.NewDecimal("1.5")
	require.NoError(t, err)

	tx := model.CanonicalTransaction{
		Movements: model.Movements{
			Inflows: []model.AssetMovement{{Asset: "ETH", Amount: amt, Direction: model.DirectionIn}},
		},
	}

	flagged := svc.DetectScams([]model.CanonicalTransaction{tx}, "ethereum")
	assert.Empty(t, flagged)
}
