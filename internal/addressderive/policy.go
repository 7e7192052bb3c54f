package addressderive

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jbelanger/exitbook/internal/registry"
)

// DerivationPolicy walks the branches of an extended public key that
// a given chain family actually uses. BTC-family wallets split funds
// across an external (receive) and change branch; account-based
// chains (ETH, substrate) have no branch concept and expose a single
// address per account key (spec §9's per-chain derivation function).
type DerivationPolicy interface {
	Derive(ctx context.Context, xpub string, net *chaincfg.Params, gap int, probe ActivityProbe) ([]DerivedAddress, error)
}

// bitcoinFamilyPolicy walks both the external (0) and change (1)
// branches, each against its own gap limit, and concatenates the
// active addresses found on either.
type bitcoinFamilyPolicy struct{}

func (bitcoinFamilyPolicy) Derive(ctx context.Context, xpub string, net *chaincfg.Params, gap int, probe ActivityProbe) ([]DerivedAddress, error) {
	acctKey, err := parseAccountKey(xpub)
	if err != nil {
		return nil, err
	}

	external, err := deriveBranch(ctx, acctKey, 0, net, gap, probe)
	if err != nil {
		return nil, fmt.Errorf("addressderive: external branch: %w", err)
	}
	change, err := deriveBranch(ctx, acctKey, 1, net, gap, probe)
	if err != nil {
		return nil, fmt.Errorf("addressderive: change branch: %w", err)
	}

	return append(external, change...), nil
}

// singleBranchPolicy derives only the external branch, matching how
// account-based chains expose one address per account key with no
// change branch to walk.
type singleBranchPolicy struct{}

func (singleBranchPolicy) Derive(ctx context.Context, xpub string, net *chaincfg.Params, gap int, probe ActivityProbe) ([]DerivedAddress, error) {
	return DeriveFromXpub(ctx, xpub, net, gap, probe)
}

// BitcoinFamilyPolicy and AccountBasedPolicy are the two concrete
// policies the registry's family metadata selects between.
var (
	BitcoinFamilyPolicy DerivationPolicy = bitcoinFamilyPolicy{}
	AccountBasedPolicy  DerivationPolicy = singleBranchPolicy{}
)

// PolicyFor selects the derivation policy for a chain family, as
// classified by the provider registry.
func PolicyFor(family registry.Family) DerivationPolicy {
	switch family {
	case registry.FamilyBitcoin:
		return BitcoinFamilyPolicy
	default:
		return AccountBasedPolicy
	}
}
