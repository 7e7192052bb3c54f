package addressderive

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SS58 network prefixes for the common chains this engine imports from
// (spec §4.10). These are membership-equivalent encodings of the same
// public key: one wallet, many display addresses.
const (
	SS58PrefixPolkadot uint8 = 0
	SS58PrefixKusama   uint8 = 2
	SS58PrefixGeneric  uint8 = 42
)

var ss58Context = []byte("SS58PRE")

// SS58Variant is one network-specific encoding of a single public key.
type SS58Variant struct {
	Network string
	Prefix  uint8
	Address string
}

// EncodeSS58 encodes a 32-byte public key under a single-byte network
// prefix (covers the 0-63 simple-prefix range; the pack has no use for
// the two-byte extended-prefix range above that). The checksum is a
// blake2b-512 digest of the "SS58PRE" context string concatenated with
// the prefix+pubkey payload, truncated to its first two bytes, per the
// SS58 address format.
func EncodeSS58(pubkey []byte, prefix uint8) (string, error) {
	if len(pubkey) != 32 {
		return "", fmt.Errorf("addressderive: ss58 pubkey must be 32 bytes, got %d", len(pubkey))
	}
	if prefix >= 64 {
		return "", errors.New("addressderive: extended (two-byte) ss58 prefixes are not supported")
	}

	payload := make([]byte, 0, 1+len(pubkey))
	payload = append(payload, prefix)
	payload = append(payload, pubkey...)

	h, err := blake2b.New(64, nil)
	if err != nil {
		return "", fmt.Errorf("addressderive: blake2b init: %w", err)
	}
	h.Write(ss58Context)
	h.Write(payload)
	digest := h.Sum(nil)

	full := append(payload, digest[:2]...)
	return base58.Encode(full), nil
}

// DeriveSS58Variants encodes pubkey under every common network prefix
// this engine recognizes, for address-context matching across chains
// that share one keypair format (spec §4.10).
func DeriveSS58Variants(pubkey []byte) ([]SS58Variant, error) {
	named := []struct {
		network string
		prefix  uint8
	}{
		{"polkadot", SS58PrefixPolkadot},
		{"kusama", SS58PrefixKusama},
		{"generic", SS58PrefixGeneric},
	}

	out := make([]SS58Variant, 0, len(named))
	for _, n := range named {
		addr, err := EncodeSS58(pubkey, n.prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, SS58Variant{Network: n.network, Prefix: n.prefix, Address: addr})
	}
	return out, nil
}
