package model

import "time"

// CursorKind tags the closed set of pagination cursor shapes a
// provider can hand back (spec §3 "PaginationCursor").
type CursorKind string

const (
	CursorKindBlockNumber CursorKind = "block_number"
	CursorKindTimestamp   CursorKind = "timestamp"
	CursorKindPageToken   CursorKind = "page_token"
)

// PaginationCursor is a tagged union over the three cursor shapes the
// engine understands. Exactly one of the typed accessors is valid for
// a given Kind; constructors are the only supported way to build one so
// an invalid combination can't be assembled by hand.
type PaginationCursor struct {
	Kind CursorKind

	// Valid when Kind == CursorKindBlockNumber.
	BlockNumber uint64

	// Valid when Kind == CursorKindTimestamp. Milliseconds since epoch.
	TimestampMs uint64

	// Valid when Kind == CursorKindPageToken.
	PageToken    string
	ProviderName string
}

// NewBlockNumberCursor builds a BlockNumber cursor.
func NewBlockNumberCursor(value uint64) PaginationCursor {
	return PaginationCursor{Kind: CursorKindBlockNumber, BlockNumber: value}
}

// NewTimestampCursor builds a Timestamp cursor from milliseconds since
// epoch.
func NewTimestampCursor(valueMs uint64) PaginationCursor {
	return PaginationCursor{Kind: CursorKindTimestamp, TimestampMs: valueMs}
}

// NewTimestampCursorFromTime builds a Timestamp cursor from a time.Time.
func NewTimestampCursorFromTime(t time.Time) PaginationCursor {
	return NewTimestampCursor(uint64(t.UnixMilli()))
}

// NewPageTokenCursor builds a PageToken cursor scoped to one provider.
func NewPageTokenCursor(value, providerName string) PaginationCursor {
	return PaginationCursor{Kind: CursorKindPageToken, PageToken: value, ProviderName: providerName}
}

// FetchStatus reports whether a cursor's underlying page fetch
// completed.
type FetchStatus string

const (
	FetchStatusInProgress FetchStatus = "in_progress"
	FetchStatusComplete   FetchStatus = "complete"
)

// CursorMetadata is the bookkeeping envelope stored alongside a cursor
// state.
type CursorMetadata struct {
	ProviderName string
	UpdatedAt    time.Time
	IsComplete   bool
	FetchStatus  FetchStatus
}

// CursorState is the full resumable position for one ingestion stream:
// a primary cursor, any number of alternative representations offered
// by the same page (so a failover provider can pick whichever type it
// supports), and bookkeeping metadata.
type CursorState struct {
	Primary         PaginationCursor
	Alternatives    []PaginationCursor
	LastTransactionID string
	TotalFetched    int
	Metadata        CursorMetadata
}

// AllCursors returns Primary followed by Alternatives, the order the
// resume policy (spec §4.5) scans in.
func (s CursorState) AllCursors() []PaginationCursor {
	out := make([]PaginationCursor, 0, 1+len(s.Alternatives))
	out = append(out, s.Primary)
	out = append(out, s.Alternatives...)
	return out
}
