package registry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jbelanger/exitbook/internal/model"
)

func sampleMeta() ProviderMetadata {
	return ProviderMetadata{
		Chain:        "ethereum",
		ProviderName: "alchemy",
		Operations: []OperationSupport{
			{Operation: OpGetAddressTransactions, StreamTypes: []StreamType{StreamNormal, StreamInternal, StreamToken}},
			{Operation: OpGetBalance},
		},
		CursorTypes:  []model.CursorKind{model.CursorKindBlockNumber, model.CursorKindPageToken},
		APIKeyEnvVar: "ALCHEMY_API_KEY",
		ReplayWindow: 2,
	}
}

func TestRegistry_SupportsWithExplicitStreamList(t *testing.T) {
	m := sampleMeta()
	assert.True(t, m.Supports(OpGetAddressTransactions, StreamNormal))
	assert.True(t, m.Supports(OpGetAddressTransactions, StreamToken))
	assert.False(t, m.Supports(OpGetAddressTransactions, StreamBeaconWithdrawal))
}

func TestRegistry_SupportsDefaultsToNormalWhenNoStreamListPresent(t *testing.T) {
	m := sampleMeta()
	assert.True(t, m.Supports(OpGetBalance, StreamNormal))
	assert.False(t, m.Supports(OpGetBalance, StreamInternal))
}

func TestRegistry_SupportsUnknownOperationIsFalse(t *testing.T) {
	m := sampleMeta()
	assert.False(t, m.Supports(OpGetAccountTransactions, StreamNormal))
}

func TestRegistry_SupportsCursorType(t *testing.T) {
	m := sampleMeta()
	assert.True(t, m.SupportsCursorType(model.CursorKindBlockNumber))
	assert.False(t, m.SupportsCursorType(model.CursorKindTimestamp))
}

func TestRegistry_GetRoundTrip(t *testing.T) {
	r := New()
	r.Register(sampleMeta())

	got, ok := r.Get("ethereum", "alchemy")
	assert.True(t, ok)
	assert.Equal(t, "alchemy", got.ProviderName)

	_, ok = r.Get("ethereum", "unknown")
	assert.False(t, ok)
}

func TestRegistry_ForChainFiltersByChain(t *testing.T) {
	r := New()
	r.Register(sampleMeta())
	r.Register(ProviderMetadata{Chain: "ethereum", ProviderName: "etherscan"})
	r.Register(ProviderMetadata{Chain: "bitcoin", ProviderName: "mempool"})

	got := r.ForChain("ethereum")
	assert.Len(t, got, 2)
}

func TestRegistry_HasValidAPIKeyRejectsPlaceholders(t *testing.T) {
	m := sampleMeta()

	t.Setenv("ALCHEMY_API_KEY", "YourApiKeyToken")
	assert.False(t, m.HasValidAPIKey())

	t.Setenv("ALCHEMY_API_KEY", "sk-real-looking-value")
	assert.True(t, m.HasValidAPIKey())

	os.Unsetenv("ALCHEMY_API_KEY")
	assert.False(t, m.HasValidAPIKey())
}

func TestRegistry_NoAPIKeyEnvVarMeansAlwaysValid(t *testing.T) {
	m := ProviderMetadata{Chain: "bitcoin", ProviderName: "mempool"}
	assert.True(t, m.HasValidAPIKey())
}

func TestRegistry_MustAPIKeyErrorsOnUnknownProvider(t *testing.T) {
	r := New()
	_, err := r.MustAPIKey("solana", "helius")
	assert.Error(t, err)
}

func TestRegistry_MustAPIKeyErrorsOnPlaceholder(t *testing.T) {
	r := New()
	r.Register(sampleMeta())
	t.Setenv("ALCHEMY_API_KEY", "CHANGEME")

	_, err := r.MustAPIKey("ethereum", "alchemy")
	assert.Error(t, err)
}
