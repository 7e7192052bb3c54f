// Package providers implements the failover-driving provider manager of
// spec §4.7 (C8): it scores and orders candidate providers for a chain,
// streams pages through rate limiting, circuit breaking, deduplication
// and normalization, and fails over to the next candidate on
// unretryable or exhausted errors.
package providers

import (
	"context"

	"github.com/jbelanger/exitbook/internal/model"
)

// RawEvent is one undecoded item a provider's native stream yielded,
// identified by a provider-scoped event id used for deduplication.
type RawEvent struct {
	ID            string
	Payload       []byte
	SourceAddress string
}

// Page is one page of a provider's native stream.
type Page struct {
	Events      []RawEvent
	Cursor      model.PaginationCursor
	AltCursors  []model.PaginationCursor
	IsComplete  bool
}

// StreamAdapter is implemented once per (chain, providerName). The
// manager never talks HTTP directly — every provider-specific
// transport, auth header, and pagination quirk lives behind this
// interface.
type StreamAdapter interface {
	// FetchPage retrieves the next page for address, resuming from
	// cursor when hasCursor is true (starting from the beginning
	// otherwise).
	FetchPage(ctx context.Context, address string, cursor model.PaginationCursor, hasCursor bool) (Page, error)
}

// NormalizeFunc converts one raw provider event into the canonical
// transaction model (C9). Implementations must be pure and must never
// silently drop data — see internal/normalize for the per-provider
// mappers that satisfy this signature.
type NormalizeFunc func(providerName, sourceAddress string, event RawEvent) (model.CanonicalTransaction, error)
