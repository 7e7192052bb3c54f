package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jbelanger/exitbook/internal/circuitbreaker"
	"github.com/jbelanger/exitbook/internal/cursor"
	"github.com/jbelanger/exitbook/internal/dedup"
	"github.com/jbelanger/exitbook/internal/health"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/platform/logx"
	"github.com/jbelanger/exitbook/internal/platform/metrics"
	"github.com/jbelanger/exitbook/internal/ratelimit"
	"github.com/jbelanger/exitbook/internal/registry"
)

// Candidate is one wired, runnable provider: its capability metadata
// plus the per-provider shared resources spec §5 requires (rate
// limiter, circuit breaker, health signal), and the adapter that
// actually talks to it.
type Candidate struct {
	Meta        registry.ProviderMetadata
	Adapter     StreamAdapter
	Limiter     *ratelimit.Limiter
	Breaker     *circuitbreaker.Breaker
	HealthFn    func() health.Health
	ReplayBlock uint64 // blocks subtracted on cross-provider BlockNumber failover
	ReplayMs    uint64 // milliseconds subtracted on cross-provider Timestamp failover
}

func (c *Candidate) replayWindow() cursor.ReplayWindowFunc {
	return func(pc model.PaginationCursor) model.PaginationCursor {
		switch pc.Kind {
		case model.CursorKindBlockNumber:
			return cursor.SubtractBlocks(c.ReplayBlock)(pc)
		case model.CursorKindTimestamp:
			return cursor.SubtractMillis(c.ReplayMs)(pc)
		default:
			return pc
		}
	}
}

// BatchStats reports the work done producing one Batch.
type BatchStats struct {
	Fetched      int
	Deduplicated int
	Yielded      int
}

// Batch is one page of canonical transactions streamed from a single
// provider, with the cursor state needed to resume after it.
type Batch struct {
	Data         []model.CanonicalTransaction
	ProviderName string
	Cursor       model.CursorState
	IsComplete   bool
	Stats        BatchStats
}

// Result is one element of the stream executeWithFailover produces:
// either a successful Batch or a terminal error once every candidate
// has been exhausted.
type Result struct {
	Batch Batch
	Err   error
}

const (
	defaultMaxRetries  = 3
	defaultDedupWindow = 500
)

// Manager drives failover across the providers registered for each
// chain (spec §4.7).
type Manager struct {
	registry    *registry.Registry
	candidates  map[string][]*Candidate
	normalize   NormalizeFunc
	now         func() time.Time
	maxRetries  int
	newBackoff  func() backoff.BackOff
	dedupWindow int
}

// NewManager builds a Manager backed by reg for capability lookups.
// normalize converts raw provider events to canonical transactions.
func NewManager(reg *registry.Registry, normalize NormalizeFunc) *Manager {
	return &Manager{
		registry:   reg,
		candidates: make(map[string][]*Candidate),
		normalize:  normalize,
		now:        time.Now,
		maxRetries: defaultMaxRetries,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
		dedupWindow: defaultDedupWindow,
	}
}

// RegisterCandidate wires one provider into the manager for chain.
func (m *Manager) RegisterCandidate(chain string, c *Candidate) {
	m.candidates[chain] = append(m.candidates[chain], c)
}

// orderedCandidates implements spec §4.7 step 1: filter out providers
// that can't serve the operation/stream, lack a valid API key, or have
// no health signal, then sort by descending health score with
// lexicographic tie-break on provider name.
func (m *Manager) orderedCandidates(chain string, op registry.Operation, st registry.StreamType) []*Candidate {
	all := m.candidates[chain]
	now := m.now()

	type scored struct {
		c     *Candidate
		score int
	}
	var eligible []scored
	for _, c := range all {
		if !c.Meta.Supports(op, st) {
			continue
		}
		if !c.Meta.HasValidAPIKey() {
			continue
		}
		if c.HealthFn == nil || c.Breaker == nil {
			continue
		}
		h := c.HealthFn()
		rl := health.RateLimitSample{}
		s := health.Score(h, c.Breaker.State(now), rl)
		metrics.ProviderHealthScore.WithLabelValues(chain, c.Meta.ProviderName).Set(float64(s))
		eligible = append(eligible, scored{c: c, score: s})
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		return eligible[i].c.Meta.ProviderName < eligible[j].c.Meta.ProviderName
	})

	out := make([]*Candidate, 0, len(eligible))
	for _, e := range eligible {
		out = append(out, e.c)
	}
	return out
}

// ExecuteWithFailover streams canonical batches for (chain, operation,
// streamType) against address, resuming from resume if non-nil,
// failing over across candidates per spec §4.7. The channel is closed
// when a provider reports completion or every candidate is exhausted;
// the caller must drain it or cancel ctx to avoid leaking the
// producing goroutine.
func (m *Manager) ExecuteWithFailover(ctx context.Context, chain string, op registry.Operation, st registry.StreamType, address string, resume *model.CursorState) <-chan Result {
	out := make(chan Result, 1)

	go func() {
		defer close(out)

		candidates := m.orderedCandidates(chain, op, st)
		if len(candidates) == 0 {
			out <- Result{Err: apperr.New(apperr.CodeInternal, fmt.Sprintf("no eligible providers for chain %s", chain))}
			return
		}

		window := dedup.New(m.dedupWindow)
		state := model.CursorState{}
		if resume != nil {
			state = *resume
		}

		for i, cand := range candidates {
			if ctx.Err() != nil {
				return
			}

			isFailover := i > 0
			supported := cand.Meta.CursorTypes
			translated, hasCursor := cursor.Resolve(state, cand.Meta.ProviderName, supported, isFailover, cand.replayWindow())

			done, err := m.runCandidate(ctx, cand, address, translated, hasCursor, window, out)
			if done {
				return
			}
			if err != nil {
				logx.Named("providers").Warn().
					Str("chain", chain).
					Str("provider", cand.Meta.ProviderName).
					Err(err).
					Msg("provider exhausted, failing over")
				metrics.FailoverTotal.WithLabelValues(chain, cand.Meta.ProviderName, "exhausted").Inc()
			}
		}

		out <- Result{Err: apperr.New(apperr.CodeProviderServer, fmt.Sprintf("all providers exhausted for chain %s", chain))}
	}()

	return out
}

// runCandidate drives one provider until it completes its stream, is
// cancelled, or exhausts its retry budget. It returns done=true when
// the stream legitimately finished (no more failover should happen).
func (m *Manager) runCandidate(ctx context.Context, cand *Candidate, address string, cur model.PaginationCursor, hasCursor bool, window *dedup.Window, out chan<- Result) (done bool, lastErr error) {
	for {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if _, err := cand.Limiter.Acquire(ctx); err != nil {
			return false, err
		}

		page, err := m.fetchPageWithRetry(ctx, cand, address, cur, hasCursor)
		if err != nil {
			cand.Breaker.RecordFailure(m.now())
			return false, err
		}
		cand.Breaker.RecordSuccess(m.now())

		survivors, filtered := dedup.Deduplicate(page.Events, window, func(e RawEvent) string { return e.ID })

		canon := make([]model.CanonicalTransaction, 0, len(survivors))
		for _, ev := range survivors {
			tx, nerr := m.normalize(cand.Meta.ProviderName, address, ev)
			if nerr != nil {
				logx.Named("providers").Warn().Str("provider", cand.Meta.ProviderName).Err(nerr).Msg("dropping unnormalizable event")
				continue
			}
			canon = append(canon, tx)
		}

		nextState := model.CursorState{
			Primary:      page.Cursor,
			Alternatives: page.AltCursors,
			Metadata: model.CursorMetadata{
				ProviderName: cand.Meta.ProviderName,
				UpdatedAt:    m.now(),
				IsComplete:   page.IsComplete,
			},
		}
		if page.IsComplete {
			nextState.Metadata.FetchStatus = model.FetchStatusComplete
		} else {
			nextState.Metadata.FetchStatus = model.FetchStatusInProgress
		}

		batch := Batch{
			Data:         canon,
			ProviderName: cand.Meta.ProviderName,
			Cursor:       nextState,
			IsComplete:   page.IsComplete,
			Stats: BatchStats{
				Fetched:      len(page.Events),
				Deduplicated: filtered,
				Yielded:      len(canon),
			},
		}
		metrics.BatchesYielded.WithLabelValues(cand.Meta.Chain, cand.Meta.ProviderName).Inc()

		select {
		case out <- Result{Batch: batch}:
		case <-ctx.Done():
			return false, ctx.Err()
		}

		if page.IsComplete {
			return true, nil
		}

		cur, hasCursor = page.Cursor, true
	}
}

// fetchPageWithRetry retries retryable page errors within a single
// provider up to maxRetries with exponential backoff, per spec §4.7
// step 2d. Non-retryable errors return immediately.
func (m *Manager) fetchPageWithRetry(ctx context.Context, cand *Candidate, address string, cur model.PaginationCursor, hasCursor bool) (Page, error) {
	b := backoff.WithMaxRetries(m.newBackoff(), uint64(m.maxRetries))
	b = backoff.WithContext(b, ctx)

	var page Page
	op := func() error {
		p, err := cand.Adapter.FetchPage(ctx, address, cur, hasCursor)
		if err != nil {
			if !apperr.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			metrics.RetryTotal.WithLabelValues(cand.Meta.Chain, cand.Meta.ProviderName).Inc()
			return err
		}
		page = p
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		return Page{}, err
	}
	return page, nil
}
