package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbelanger/exitbook/internal/circuitbreaker"
	"github.com/jbelanger/exitbook/internal/health"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/ratelimit"
	"github.com/jbelanger/exitbook/internal/registry"
)

type fakeAdapter struct {
	pages []Page
	err   error
	calls int
}

func (f *fakeAdapter) FetchPage(ctx context.Context, address string, cur model.PaginationCursor, hasCursor bool) (Page, error) {
	if f.err != nil {
		return Page{}, f.err
	}
	if f.calls >= len(f.pages) {
		return Page{IsComplete: true}, nil
	}
	p := f.pages[f.calls]
	f.calls++
	return p, nil
}

func noopNormalize(providerName, sourceAddress string, ev RawEvent) (model.CanonicalTransaction, error) {
	return model.CanonicalTransaction{ID: ev.ID, SourceName: providerName}, nil
}

func candidate(chain, name string, adapter StreamAdapter) *Candidate {
	return &Candidate{
		Meta: registry.ProviderMetadata{
			Chain:        chain,
			ProviderName: name,
			Operations:   []registry.OperationSupport{{Operation: registry.OpGetAddressTransactions}},
			CursorTypes:  []model.CursorKind{model.CursorKindBlockNumber},
		},
		Adapter:  adapter,
		Limiter:  ratelimit.New(ratelimit.Config{RequestsPerSecond: 1000, BurstLimit: 1000}),
		Breaker:  circuitbreaker.New(3, time.Minute),
		HealthFn: func() health.Health { return health.Health{IsHealthy: true} },
	}
}

func TestManager_SingleProviderHappyPath(t *testing.T) {
	adapter := &fakeAdapter{pages: []Page{
		{Events: []RawEvent{{ID: "a"}, {ID: "b"}}, Cursor: model.NewBlockNumberCursor(10)},
	}}
	m := NewManager(registry.New(), noopNormalize)
	m.RegisterCandidate("ethereum", candidate("ethereum", "alchemy", adapter))

	out := m.ExecuteWithFailover(context.Background(), "ethereum", registry.OpGetAddressTransactions, registry.StreamNormal, "0xabc", nil)

	var batches []Batch
	for r := range out {
		require.NoError(t, r.Err)
		batches = append(batches, r.Batch)
	}

	require.Len(t, batches, 2)
	assert.Equal(t, 2, batches[0].Stats.Fetched)
	assert.True(t, batches[1].IsComplete)
}

func TestManager_FailsOverToSecondProviderOnFatalError(t *testing.T) {
	failing := &fakeAdapter{err: apperr.New(apperr.CodeAuthentication, "bad key")}
	healthy := &fakeAdapter{pages: []Page{
		{Events: []RawEvent{{ID: "x"}}, Cursor: model.NewBlockNumberCursor(5), IsComplete: true},
	}}

	m := NewManager(registry.New(), noopNormalize)
	m.RegisterCandidate("ethereum", candidate("ethereum", "alchemy", failing))
	m.RegisterCandidate("ethereum", candidate("ethereum", "moralis", healthy))

	out := m.ExecuteWithFailover(context.Background(), "ethereum", registry.OpGetAddressTransactions, registry.StreamNormal, "0xabc", nil)

	var batches []Batch
	for r := range out {
		require.NoError(t, r.Err)
		batches = append(batches, r.Batch)
	}

	require.Len(t, batches, 1)
	assert.Equal(t, "moralis", batches[0].ProviderName)
}

func TestManager_NoEligibleProvidersYieldsTerminalError(t *testing.T) {
	m := NewManager(registry.New(), noopNormalize)

	out := m.ExecuteWithFailover(context.Background(), "solana", registry.OpGetAddressTransactions, registry.StreamNormal, "addr", nil)

	r := <-out
	assert.Error(t, r.Err)
}

func TestManager_AllProvidersExhaustedYieldsTerminalError(t *testing.T) {
	failing := &fakeAdapter{err: apperr.New(apperr.CodeAuthentication, "bad key")}

	m := NewManager(registry.New(), noopNormalize)
	m.RegisterCandidate("ethereum", candidate("ethereum", "alchemy", failing))

	out := m.ExecuteWithFailover(context.Background(), "ethereum", registry.OpGetAddressTransactions, registry.StreamNormal, "0xabc", nil)

	var lastErr error
	for r := range out {
		if r.Err != nil {
			lastErr = r.Err
		}
	}
	assert.Error(t, lastErr)
}

func TestManager_DeduplicatesAcrossPages(t *testing.T) {
	adapter := &fakeAdapter{pages: []Page{
		{Events: []RawEvent{{ID: "a"}}, Cursor: model.NewBlockNumberCursor(1)},
		{Events: []RawEvent{{ID: "a"}, {ID: "b"}}, Cursor: model.NewBlockNumberCursor(2), IsComplete: true},
	}}
	m := NewManager(registry.New(), noopNormalize)
	m.RegisterCandidate("ethereum", candidate("ethereum", "alchemy", adapter))

	out := m.ExecuteWithFailover(context.Background(), "ethereum", registry.OpGetAddressTransactions, registry.StreamNormal, "0xabc", nil)

	var totalYielded, totalDedup int
	for r := range out {
		require.NoError(t, r.Err)
		totalYielded += r.Batch.Stats.Yielded
		totalDedup += r.Batch.Stats.Deduplicated
	}

	assert.Equal(t, 2, totalYielded)
	assert.Equal(t, 1, totalDedup)
}
