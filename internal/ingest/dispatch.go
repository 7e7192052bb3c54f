package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/normalize/bitcoin"
	"github.com/jbelanger/exitbook/internal/normalize/ethereum"
	"github.com/jbelanger/exitbook/internal/normalize/exchange"
	"github.com/jbelanger/exitbook/internal/normalize/substrate"
	"github.com/jbelanger/exitbook/internal/providers"
	"github.com/jbelanger/exitbook/internal/registry"
)

// NewDispatcher builds the single providers.NormalizeFunc a Manager
// needs: it looks up which normalize family (C9) handles providerName
// and unmarshals the event's payload into that family's provider-
// agnostic raw shape before calling its Normalize. A StreamAdapter
// producing events for a registered providerName is expected to
// marshal its reduced raw shape (bitcoin.RawTx, ethereum.RawTx,
// substrate.RawExtrinsic or exchange.Row) as the event payload — the
// wire format between adapter and normalizer is this engine's own
// JSON, not the upstream provider's native JSON (spec §1 draws the
// HTTP socket boundary as external; this dispatcher starts just past
// it).
func NewDispatcher(families registry.Families) providers.NormalizeFunc {
	return func(providerName, sourceAddress string, ev providers.RawEvent) (model.CanonicalTransaction, error) {
		family, ok := families.FamilyFor(providerName)
		if !ok {
			return model.CanonicalTransaction{}, fmt.Errorf("ingest: no normalize family registered for provider %q", providerName)
		}

		switch family {
		case registry.FamilyBitcoin:
			var raw bitcoin.RawTx
			if err := json.Unmarshal(ev.Payload, &raw); err != nil {
				return model.CanonicalTransaction{}, fmt.Errorf("ingest: decoding bitcoin payload: %w", err)
			}
			return bitcoin.Normalize(providerName, sourceAddress, raw)
		case registry.FamilyEthereum:
			var raw ethereum.RawTx
			if err := json.Unmarshal(ev.Payload, &raw); err != nil {
				return model.CanonicalTransaction{}, fmt.Errorf("ingest: decoding ethereum payload: %w", err)
			}
			return ethereum.Normalize(providerName, sourceAddress, raw)
		case registry.FamilySubstrate:
			var raw substrate.RawExtrinsic
			if err := json.Unmarshal(ev.Payload, &raw); err != nil {
				return model.CanonicalTransaction{}, fmt.Errorf("ingest: decoding substrate payload: %w", err)
			}
			return substrate.Normalize(providerName, sourceAddress, raw)
		case registry.FamilyExchange:
			var row exchange.Row
			if err := json.Unmarshal(ev.Payload, &row); err != nil {
				return model.CanonicalTransaction{}, fmt.Errorf("ingest: decoding exchange payload: %w", err)
			}
			return exchange.Normalize(providerName, row)
		default:
			return model.CanonicalTransaction{}, fmt.Errorf("ingest: unknown normalize family %q for provider %q", family, providerName)
		}
	}
}
