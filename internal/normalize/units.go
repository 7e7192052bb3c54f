// Package normalize holds shared helpers for the per-chain/per-exchange
// raw→canonical mappers of spec §4.8 (C9). Each concrete mapper lives
// in its own subpackage (bitcoin, ethereum, substrate, exchange) since
// their raw wire shapes share nothing beyond these unit-conversion and
// id-derivation helpers.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/shopspring/decimal"
)

// Per-chain decimal places of the smallest unit, spec §4.8.
const (
	SatoshisPerBTC = 8
	PlanckPerDOT   = 10
	LamportsPerSOL = 9
	YoctoPerNEAR   = 24
	WeiPerETH      = 18
)

// FromSmallestUnit converts an integer amount in a chain's smallest
// unit (satoshi, planck, wei, ...) into its decimal main-unit
// representation, given the number of smallest-unit decimal places.
func FromSmallestUnit(amount *big.Int, places int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -places)
}

// FromSmallestUnitString parses a base-10 integer string amount (as
// providers commonly serialize u64/u128 values to avoid float
// precision loss) and converts it via FromSmallestUnit.
func FromSmallestUnitString(amount string, places int32) (decimal.Decimal, bool) {
	i, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return decimal.Decimal{}, false
	}
	return FromSmallestUnit(i, places), true
}

// StableExternalID derives a deterministic external transaction id
// from a Peggy-bridge-style consensus pair of (eventNonce, claimId),
// for providers whose tx hash alone isn't a stable dedup key. Plain
// tx-hash-keyed sources should use the hash directly instead.
func StableExternalID(eventNonce, claimID string) string {
	sum := sha256.Sum256([]byte(eventNonce + "|" + claimID))
	return hex.EncodeToString(sum[:])
}
