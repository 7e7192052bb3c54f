// Package cursor implements the cross-provider cursor resume policy of
// spec §4.5 (C6). The data shapes themselves (PaginationCursor,
// CursorState) live in internal/model since they are shared by the
// persistence layer too; this package holds only the policy function.
package cursor

import "github.com/jbelanger/exitbook/internal/model"

// ReplayWindowFunc subtracts a provider-specific replay margin from a
// cursor value, clamped at zero. Supplied by the caller (the provider
// manager) since the magnitude is a property of the target provider's
// metadata, not of the cursor itself.
type ReplayWindowFunc func(model.PaginationCursor) model.PaginationCursor

// Resolve translates an inbound resume cursor into the cursor a
// specific candidate provider should start from, per spec §4.5's
// three-step policy:
//
//  1. Same-provider PageToken resume always wins and skips the replay
//     window entirely.
//  2. Otherwise the first BlockNumber/Timestamp cursor (primary, then
//     alternatives) supported by the target provider is used, with the
//     replay window applied only when isFailover is true.
//  3. If nothing matches, the caller should start from the beginning —
//     signalled by the second return value being false.
func Resolve(state model.CursorState, providerName string, supported []model.CursorKind, isFailover bool, applyReplayWindow ReplayWindowFunc) (model.PaginationCursor, bool) {
	primary := state.Primary

	if primary.Kind == model.CursorKindPageToken &&
		primary.ProviderName == providerName &&
		!isFailover &&
		supportsKind(supported, model.CursorKindPageToken) {
		return primary, true
	}

	for _, c := range state.AllCursors() {
		if c.Kind != model.CursorKindBlockNumber && c.Kind != model.CursorKindTimestamp {
			continue
		}
		if !supportsKind(supported, c.Kind) {
			continue
		}
		if isFailover && applyReplayWindow != nil {
			return applyReplayWindow(c), true
		}
		return c, true
	}

	return model.PaginationCursor{}, false
}

func supportsKind(supported []model.CursorKind, k model.CursorKind) bool {
	for _, s := range supported {
		if s == k {
			return true
		}
	}
	return false
}

// SubtractBlocks builds a ReplayWindowFunc that subtracts n blocks from
// a BlockNumber cursor, clamped at zero. Cursors of any other kind pass
// through unchanged.
func SubtractBlocks(n uint64) ReplayWindowFunc {
	return func(c model.PaginationCursor) model.PaginationCursor {
		if c.Kind != model.CursorKindBlockNumber {
			return c
		}
		if c.BlockNumber < n {
			c.BlockNumber = 0
		} else {
			c.BlockNumber -= n
		}
		return c
	}
}

// SubtractMillis builds a ReplayWindowFunc that subtracts n
// milliseconds from a Timestamp cursor, clamped at zero.
func SubtractMillis(n uint64) ReplayWindowFunc {
	return func(c model.PaginationCursor) model.PaginationCursor {
		if c.Kind != model.CursorKindTimestamp {
			return c
		}
		if c.TimestampMs < n {
			c.TimestampMs = 0
		} else {
			c.TimestampMs -= n
		}
		return c
	}
}
