package addressderive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePubkey() []byte {
	pk := make([]byte, 32)
	for i := range pk {
		pk[i] = byte(i)
	}
	return pk
}

func TestEncodeSS58_DifferentPrefixesProduceDifferentAddresses(t *testing.T) {
	pk := samplePubkey()

	polkadot, err := EncodeSS58(pk, SS58PrefixPolkadot)
	require.NoError(t, err)
	kusama, err := EncodeSS58(pk, SS58PrefixKusama)
	require.NoError(t, err)

	assert.NotEqual(t, polkadot, kusama)
}

func TestEncodeSS58_IsDeterministic(t *testing.T) {
	pk := samplePubkey()
	a, err := EncodeSS58(pk, SS58PrefixGeneric)
	require.NoError(t, err)
	b, err := EncodeSS58(pk, SS58PrefixGeneric)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeSS58_RejectsWrongKeyLength(t *testing.T) {
	_, err := EncodeSS58([]byte{1, 2, 3}, SS58PrefixPolkadot)
	assert.Error(t, err)
}

func TestEncodeSS58_RejectsExtendedPrefix(t *testing.T) {
	_, err := EncodeSS58(samplePubkey(), 100)
	assert.Error(t, err)
}

func TestDeriveSS58Variants_ProducesOneEntryPerKnownNetwork(t *testing.T) {
	variants, err := DeriveSS58Variants(samplePubkey())
	require.NoError(t, err)
	require.Len(t, variants, 3)

	seen := map[string]bool{}
	for _, v := range variants {
		seen[v.Network] = true
	}
	assert.True(t, seen["polkadot"])
	assert.True(t, seen["kusama"])
	assert.True(t, seen["generic"])
}
