package addressderive

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"

func TestDeriveFromXpub_StopsAtGapLimit(t *testing.T) {
	probe := func(ctx context.Context, address string) (bool, error) {
		return false, nil
	}

	got, err := DeriveFromXpub(context.Background(), testXpub, &chaincfg.MainNetParams, 3, probe)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeriveFromXpub_StopsAfterConsecutiveGapFollowingActiveAddresses(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context, address string) (bool, error) {
		calls++
		return calls <= 2, nil
	}

	got, err := DeriveFromXpub(context.Background(), testXpub, &chaincfg.MainNetParams, 3, probe)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "m/0/0", got[0].DerivationPath)
	assert.Equal(t, "m/0/1", got[1].DerivationPath)
}

func TestDeriveFromXpub_RejectsMalformedKey(t *testing.T) {
	_, err := DeriveFromXpub(context.Background(), "not-a-valid-key", &chaincfg.MainNetParams, 1, func(context.Context, string) (bool, error) { return false, nil })
	assert.Error(t, err)
}

func TestIsExtendedPublicKey(t *testing.T) {
	assert.True(t, IsExtendedPublicKey(testXpub))
	assert.False(t, IsExtendedPublicKey("bc1qnotanxpubaddress"))
}
