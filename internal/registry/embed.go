package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/ratelimit"
)

//go:embed providers.yaml
var defaultProvidersYAML []byte

type yamlOperationSupport struct {
	Operation   string   `yaml:"operation"`
	StreamTypes []string `yaml:"streamTypes"`
}

type yamlRateLimits struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	RequestsPerHour   float64 `yaml:"requestsPerHour"`
	BurstLimit        int     `yaml:"burstLimit"`
}

type yamlProvider struct {
	Chain        string                 `yaml:"chain"`
	ProviderName string                 `yaml:"providerName"`
	Family       string                 `yaml:"family"`
	Operations   []yamlOperationSupport `yaml:"operations"`
	CursorTypes  []string               `yaml:"cursorTypes"`
	APIKeyEnvVar string                 `yaml:"apiKeyEnvVar"`
	ReplayBlocks uint64                 `yaml:"replayBlocks"`
	ReplayMillis uint64                 `yaml:"replayMillis"`
	RateLimits   yamlRateLimits         `yaml:"rateLimits"`
}

type yamlTable struct {
	Providers []yamlProvider `yaml:"providers"`
}

// Family identifies which per-chain normalize package (spec §4.8's C9)
// a provider's events must be routed through. It is table data, not
// behavior: the engine never branches on chain name directly, only on
// this declared family.
type Family string

const (
	FamilyBitcoin  Family = "bitcoin"
	FamilyEthereum Family = "ethereum"
	FamilySubstrate Family = "substrate"
	FamilyExchange Family = "exchange"
)

// Families maps providerName to the normalize family that handles its
// events, built once alongside the Registry itself from the same
// declarative table (spec §9's "registry populated at startup by
// registration calls; no global mutable state other than the
// registry").
type Families map[string]Family

// FamilyFor returns the normalize family registered for providerName.
func (f Families) FamilyFor(providerName string) (Family, bool) {
	fam, ok := f[providerName]
	return fam, ok
}

// LoadDefault parses the engine's embedded provider table into a
// ready-to-use Registry plus its providerName->family index. Concrete
// StreamAdapter implementations are not part of this table — wiring a
// chain's adapter in is the caller's job (HTTP transport is an
// external collaborator per spec §1).
func LoadDefault() (*Registry, Families, error) {
	return Load(defaultProvidersYAML)
}

// Load parses a provider table in the same shape as providers.yaml,
// for callers (tests, alternate deployments) that want a table other
// than the embedded default.
func Load(data []byte) (*Registry, Families, error) {
	var table yamlTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, nil, fmt.Errorf("registry: parsing provider table: %w", err)
	}

	reg := New()
	families := make(Families, len(table.Providers))

	for _, p := range table.Providers {
		ops := make([]OperationSupport, 0, len(p.Operations))
		for _, o := range p.Operations {
			streams := make([]StreamType, 0, len(o.StreamTypes))
			for _, st := range o.StreamTypes {
				streams = append(streams, StreamType(st))
			}
			ops = append(ops, OperationSupport{Operation: Operation(o.Operation), StreamTypes: streams})
		}

		cursorTypes := make([]model.CursorKind, 0, len(p.CursorTypes))
		for _, c := range p.CursorTypes {
			cursorTypes = append(cursorTypes, model.CursorKind(c))
		}

		reg.Register(ProviderMetadata{
			Chain:        p.Chain,
			ProviderName: p.ProviderName,
			Operations:   ops,
			CursorTypes:  cursorTypes,
			APIKeyEnvVar: p.APIKeyEnvVar,
			ReplayWindow: maxUint64(p.ReplayBlocks, p.ReplayMillis),
			RateLimits: ratelimit.Config{
				RequestsPerSecond: p.RateLimits.RequestsPerSecond,
				RequestsPerMinute: p.RateLimits.RequestsPerMinute,
				RequestsPerHour:   p.RateLimits.RequestsPerHour,
				BurstLimit:        p.RateLimits.BurstLimit,
			},
		})

		if p.Family != "" {
			families[p.ProviderName] = Family(p.Family)
		}
	}

	return reg, families, nil
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
