// Package addressderive implements xpub-based HD wallet address
// derivation and SS58 address-variant derivation (spec §4.10, C11).
package addressderive

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// DefaultGapLimit is the number of consecutive empty addresses that
// stop the walk, per spec §4.10.
const DefaultGapLimit = 20

// DerivedAddress is one address produced by walking an extended
// public key, paired with the path it was derived at.
type DerivedAddress struct {
	Address        string
	DerivationPath string
}

// ActivityProbe reports whether address has any on-chain activity. The
// caller supplies this backed by the provider manager (C8) so the walk
// never talks to a provider directly.
type ActivityProbe func(ctx context.Context, address string) (bool, error)

// DeriveFromXpub walks the external (receive) chain of an extended
// public key, probing each derived address for activity via probe, and
// stops after gap consecutive empty addresses (DefaultGapLimit if
// gap <= 0). Only plain BIP-32 extended public keys (xpub) producing
// legacy P2PKH addresses are supported; ypub/zpub witness-versioned
// prefixes are a named follow-up (they require registering additional
// HD version bytes with btcutil, which DESIGN.md tracks as unwired).
func DeriveFromXpub(ctx context.Context, xpub string, net *chaincfg.Params, gap int, probe ActivityProbe) ([]DerivedAddress, error) {
	acctKey, err := parseAccountKey(xpub)
	if err != nil {
		return nil, err
	}
	return deriveBranch(ctx, acctKey, 0, net, gap, probe)
}

func parseAccountKey(xpub string) (*hdkeychain.ExtendedKey, error) {
	acctKey, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("addressderive: invalid extended public key: %w", err)
	}
	if acctKey.IsPrivate() {
		return nil, errors.New("addressderive: extended key must be public (xpub), not private")
	}
	return acctKey, nil
}

// deriveBranch walks one BIP-32 branch (0 = external/receive, 1 =
// change) of acctKey, probing each derived address for activity and
// stopping after gap consecutive empty addresses (DefaultGapLimit if
// gap <= 0).
func deriveBranch(ctx context.Context, acctKey *hdkeychain.ExtendedKey, branch uint32, net *chaincfg.Params, gap int, probe ActivityProbe) ([]DerivedAddress, error) {
	if gap <= 0 {
		gap = DefaultGapLimit
	}
	if probe == nil {
		return nil, errors.New("addressderive: nil activity probe")
	}

	branchKey, err := acctKey.Child(branch)
	if err != nil {
		return nil, fmt.Errorf("addressderive: deriving branch %d: %w", branch, err)
	}

	var out []DerivedAddress
	consecutiveEmpty := 0
	for index := uint32(0); consecutiveEmpty < gap; index++ {
		child, err := branchKey.Child(index)
		if err != nil {
			return nil, fmt.Errorf("addressderive: deriving index %d: %w", index, err)
		}
		pub, err := child.ECPubKey()
		if err != nil {
			return nil, fmt.Errorf("addressderive: reading pubkey at index %d: %w", index, err)
		}
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), net)
		if err != nil {
			return nil, fmt.Errorf("addressderive: encoding address at index %d: %w", index, err)
		}

		active, err := probe(ctx, addr.EncodeAddress())
		if err != nil {
			return nil, fmt.Errorf("addressderive: probing index %d: %w", index, err)
		}

		if active {
			out = append(out, DerivedAddress{
				Address:        addr.EncodeAddress(),
				DerivationPath: fmt.Sprintf("m/%d/%d", branch, index),
			})
			consecutiveEmpty = 0
			continue
		}
		consecutiveEmpty++
	}

	return out, nil
}

// IsExtendedPublicKey reports whether address looks like a BIP-32
// extended public key rather than a plain chain address (spec §4.11
// step 2's branch point between single-address and xpub imports).
func IsExtendedPublicKey(address string) bool {
	_, err := hdkeychain.NewKeyFromString(address)
	return err == nil
}
