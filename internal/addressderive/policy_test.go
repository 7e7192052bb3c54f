package addressderive

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jbelanger/exitbook/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitcoinFamilyPolicy_WalksExternalAndChangeBranches(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context, address string) (bool, error) {
		calls++
		return calls == 1 || calls == 5, nil
	}

	got, err := BitcoinFamilyPolicy.Derive(context.Background(), testXpub, &chaincfg.MainNetParams, 3, probe)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m/0/0", got[0].DerivationPath)
	assert.Equal(t, "m/1/0", got[1].DerivationPath)
}

func TestAccountBasedPolicy_WalksOnlyExternalBranch(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context, address string) (bool, error) {
		calls++
		return calls == 1, nil
	}

	got, err := AccountBasedPolicy.Derive(context.Background(), testXpub, &chaincfg.MainNetParams, 2, probe)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m/0/0", got[0].DerivationPath)
}

func TestPolicyFor_SelectsByFamily(t *testing.T) {
	assert.Equal(t, BitcoinFamilyPolicy, PolicyFor(registry.FamilyBitcoin))
	assert.Equal(t, AccountBasedPolicy, PolicyFor(registry.FamilyEthereum))
	assert.Equal(t, AccountBasedPolicy, PolicyFor(registry.FamilySubstrate))
}
