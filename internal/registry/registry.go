// Package registry implements the declarative provider registry of
// spec §4.4 (C5): a table mapping (chain, providerName) to capability
// metadata, populated once at startup by registration calls and
// read-only afterward (spec §9's "no global mutable state other than
// the registry").
package registry

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/ratelimit"
)

// Operation is the closed-ish set of provider capabilities the manager
// can request. New chains add new operations by registering providers
// that support them; the manager never hardcodes this list.
type Operation string

const (
	OpGetAddressTransactions Operation = "get_address_transactions"
	OpGetAccountTransactions Operation = "get_account_transactions"
	OpGetBalance             Operation = "get_balance"
)

// StreamType is the class of transactions requested from a chain.
type StreamType string

const (
	StreamNormal            StreamType = "normal"
	StreamInternal          StreamType = "internal"
	StreamToken             StreamType = "token"
	StreamBeaconWithdrawal  StreamType = "beacon_withdrawal"
)

// OperationSupport declares that a provider supports one Operation,
// optionally scoped to specific stream types. A nil/empty StreamTypes
// means "no list present" — per spec §4.4, that is equivalent to
// supporting exactly StreamNormal.
type OperationSupport struct {
	Operation   Operation
	StreamTypes []StreamType
}

func (s OperationSupport) supportsStream(st StreamType) bool {
	if len(s.StreamTypes) == 0 {
		return st == StreamNormal
	}
	for _, have := range s.StreamTypes {
		if have == st {
			return true
		}
	}
	return false
}

// ProviderMetadata is everything the failover manager needs to know
// about one (chain, providerName) pair without ever calling it.
type ProviderMetadata struct {
	Chain        string
	ProviderName string
	Operations   []OperationSupport
	CursorTypes  []model.CursorKind
	RateLimits   ratelimit.Config
	APIKeyEnvVar string
	// ReplayWindow is the provider-specific cross-provider replay
	// magnitude applied on cursor failover (spec §4.5). Interpreted in
	// the cursor's native unit: blocks for BlockNumber, milliseconds
	// for Timestamp.
	ReplayWindow uint64
}

func (m ProviderMetadata) key() key { return key{chain: m.Chain, provider: m.ProviderName} }

// Supports reports whether this provider can serve operation for the
// given stream type (spec §4.4's capability check).
func (m ProviderMetadata) Supports(op Operation, st StreamType) bool {
	for _, support := range m.Operations {
		if support.Operation == op {
			return support.supportsStream(st)
		}
	}
	return false
}

// SupportsCursorType reports whether this provider's native stream can
// accept a resume cursor of the given kind.
func (m ProviderMetadata) SupportsCursorType(k model.CursorKind) bool {
	for _, have := range m.CursorTypes {
		if have == k {
			return true
		}
	}
	return false
}

// placeholderAPIKeys is the closed set of obviously-fake values
// provider scaffolding tends to ship in README/config examples; a
// present-but-placeholder key must be treated as absent (spec §4.4).
var placeholderAPIKeys = map[string]bool{
	"YourApiKeyToken": true,
	"YOUR_API_KEY":    true,
	"CHANGEME":        true,
	"changeme":        true,
	"":                true,
}

// HasValidAPIKey reports whether this provider's declared env var is
// set to a real-looking value. Providers with no APIKeyEnvVar declared
// never require one.
func (m ProviderMetadata) HasValidAPIKey() bool {
	if m.APIKeyEnvVar == "" {
		return true
	}
	v := strings.TrimSpace(os.Getenv(m.APIKeyEnvVar))
	return !placeholderAPIKeys[v]
}

type key struct {
	chain    string
	provider string
}

// Registry is the process-wide provider metadata table. The zero value
// is usable; construct with New for an isolated instance in tests.
type Registry struct {
	mu        sync.RWMutex
	providers map[key]ProviderMetadata
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{providers: make(map[key]ProviderMetadata)}
}

// Register adds or replaces one provider's metadata. Intended to be
// called only during process startup.
func (r *Registry) Register(m ProviderMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[m.key()] = m
}

// Get returns the metadata for one (chain, providerName) pair.
func (r *Registry) Get(chain, providerName string) (ProviderMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.providers[key{chain: chain, provider: providerName}]
	return m, ok
}

// ForChain returns every provider registered for chain, in
// registration order is not guaranteed — callers must sort as needed
// (the failover manager sorts by health score, spec §4.7 step 1).
func (r *Registry) ForChain(chain string) []ProviderMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderMetadata, 0)
	for k, m := range r.providers {
		if k.chain == chain {
			out = append(out, m)
		}
	}
	return out
}

// MustAPIKey reads and returns a provider's API key, erroring (rather
// than silently proceeding with a placeholder) if it is missing or
// obviously fake.
func (r *Registry) MustAPIKey(chain, providerName string) (string, error) {
	m, ok := r.Get(chain, providerName)
	if !ok {
		return "", fmt.Errorf("registry: unknown provider %s/%s", chain, providerName)
	}
	if m.APIKeyEnvVar == "" {
		return "", nil
	}
	if !m.HasValidAPIKey() {
		return "", fmt.Errorf("registry: %s/%s requires env var %s to be set to a real API key", chain, providerName, m.APIKeyEnvVar)
	}
	return os.Getenv(m.APIKeyEnvVar), nil
}

// Global is the process-wide registry singleton (spec §9's one
// allowed read-after-startup global besides the logger and DB handle).
var Global = New()
