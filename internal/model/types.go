// Package model holds the canonical, chain-agnostic and
// exchange-agnostic data shapes shared by every component of the
// ingestion and accounting engine (spec §3). Types here are plain data;
// behavior lives in the component packages that operate on them.
package model

import (
	"time"

	"github.com/jbelanger/exitbook/internal/money"
)

// Direction is the sign of a single asset movement relative to the
// owning account.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// SourceType distinguishes centralized-exchange sessions from
// public-blockchain sessions.
type SourceType string

const (
	SourceTypeExchange   SourceType = "exchange"
	SourceTypeBlockchain SourceType = "blockchain"
)

// TransactionStatus is the lifecycle state of one external economic
// event as reported by its source.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusCanceled TransactionStatus = "canceled"
)

// OperationCategory is the top-level bucket a classified transaction
// falls into (spec §4.9's rule table).
type OperationCategory string

const (
	OperationCategoryTransfer   OperationCategory = "transfer"
	OperationCategoryTrade      OperationCategory = "trade"
	OperationCategoryStaking    OperationCategory = "staking"
	OperationCategoryGovernance OperationCategory = "governance"
	OperationCategoryFee        OperationCategory = "fee"
)

// OperationType is the fine-grained action within a category.
type OperationType string

const (
	OperationTypeDeposit    OperationType = "deposit"
	OperationTypeWithdrawal OperationType = "withdrawal"
	OperationTypeTransfer   OperationType = "transfer"
	OperationTypeSwap       OperationType = "swap"
	OperationTypeStake      OperationType = "stake"
	OperationTypeUnstake    OperationType = "unstake"
	OperationTypeReward     OperationType = "reward"
	OperationTypeProposal   OperationType = "proposal"
	OperationTypeVote       OperationType = "vote"
	OperationTypeRefund     OperationType = "refund"
	OperationTypeFee        OperationType = "fee"
)

// Operation is the (category, type) pair attached to a classified
// transaction.
type Operation struct {
	Category OperationCategory `json:"category"`
	Type     OperationType     `json:"type"`
}

// NoteSeverity ranks a structured annotation.
type NoteSeverity string

const (
	NoteSeverityInfo    NoteSeverity = "info"
	NoteSeverityWarning NoteSeverity = "warning"
	NoteSeverityError   NoteSeverity = "error"
)

// Note is a structured annotation attached to a canonical transaction,
// e.g. a classification warning or a scam-detection flag.
type Note struct {
	Type     string         `json:"type"`
	Severity NoteSeverity   `json:"severity"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PriceAtTxTime is the price an asset movement was tagged with at the
// moment of the transaction, and where that price came from.
type PriceAtTxTime struct {
	Price     money.Money
	Source    string
	FetchedAt time.Time
}

// AssetMovement is a single directed change of a single asset.
type AssetMovement struct {
	Asset         string
	Amount        money.Decimal
	Direction     Direction
	PriceAtTxTime *PriceAtTxTime `json:"PriceAtTxTime,omitempty"`
	Metadata      map[string]any
}

// Movements groups every asset movement belonging to one canonical
// transaction, plus the single "headline" movement selected for
// display.
type Movements struct {
	Inflows  []AssetMovement
	Outflows []AssetMovement
	Primary  *AssetMovement
}

// Fees holds the network and platform fee movements for a transaction.
// Both, when present, always have Direction == DirectionOut.
type Fees struct {
	Network  *AssetMovement
	Platform *AssetMovement
}

// All returns every non-nil fee movement.
func (f Fees) All() []AssetMovement {
	var out []AssetMovement
	if f.Network != nil {
		out = append(out, *f.Network)
	}
	if f.Platform != nil {
		out = append(out, *f.Platform)
	}
	return out
}

// BlockchainMetadata carries chain-specific provenance for a
// transaction sourced from a blockchain.
type BlockchainMetadata struct {
	Chain       string
	BlockHeight uint64
	TxHash      string
	Confirmed   bool
}

// CanonicalTransaction is one external economic event, normalized into
// the chain-agnostic, exchange-agnostic shape every downstream
// component consumes (spec §3).
type CanonicalTransaction struct {
	ID         string
	ExternalID string
	SourceName string
	SourceType SourceType

	Datetime time.Time
	Status   TransactionStatus
	Operation Operation

	Movements Movements
	Fees      Fees

	BlockchainMetadata *BlockchainMetadata
	Notes              []Note

	ExcludedFromAccounting bool

	// RawNormalizedData is the normalizer's intermediate
	// representation, preserved for downstream correlation and for
	// re-running classification without refetching.
	RawNormalizedData map[string]any
}

// NetAmount returns the signed net amount of asset across inflows,
// outflows and fees for one asset ticker (spec §3 invariant 1 and
// §8's property).
func (c CanonicalTransaction) NetAmount(asset string) money.Decimal {
	sum := money.Zero
	for _, m := range c.Movements.Inflows {
		if m.Asset == asset {
			sum = sum.Add(m.Amount)
		}
	}
	for _, m := range c.Movements.Outflows {
		if m.Asset == asset {
			sum = sum.Sub(m.Amount)
		}
	}
	for _, m := range c.Fees.All() {
		if m.Asset == asset {
			sum = sum.Sub(m.Amount)
		}
	}
	return sum
}

// ProcessingStatus is the lifecycle of one raw provider record inside
// the ingestion pipeline.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// RawRecord is a single provider-native record captured verbatim plus
// its normalized projection. Unique per (DataSourceID, ExternalID)
// (spec §3 invariant 5).
type RawRecord struct {
	ID                string
	DataSourceID      string
	ProviderName      string
	ExternalID        string
	Cursor            *PaginationCursor
	SourceAddress     string
	RawPayload        map[string]any
	NormalizedPayload map[string]any
	ProcessingStatus  ProcessingStatus
	ProcessingError   string
}

// DataSourceStatus is the lifecycle state of one ingestion session.
type DataSourceStatus string

const (
	DataSourceStatusStarted   DataSourceStatus = "started"
	DataSourceStatusCompleted DataSourceStatus = "completed"
	DataSourceStatusFailed    DataSourceStatus = "failed"
	DataSourceStatusCancelled DataSourceStatus = "cancelled"
)

// DataSource is one discrete ingestion attempt bounded by
// started/completed states (the "session" of the glossary).
type DataSource struct {
	ID                    string
	AccountID             string
	Status                DataSourceStatus
	StartedAt             time.Time
	CompletedAt           *time.Time
	DurationMs            *int64
	TransactionsImported  int
	TransactionsFailed    int
	ErrorMessage          string
	ErrorDetails          map[string]any
	ImportResultMetadata  map[string]any
}

// AccountType distinguishes the four supported account shapes.
type AccountType string

const (
	AccountTypeExchangeAPI      AccountType = "exchange_api"
	AccountTypeExchangeCSV      AccountType = "exchange_csv"
	AccountTypeBlockchainAddr   AccountType = "blockchain_address"
	AccountTypeBlockchainXpub   AccountType = "blockchain_xpub"
)

// Account is one user-owned data source identity: an exchange API key,
// an exchange CSV drop, a single blockchain address, or an xpub-style
// parent with derived child addresses (spec §3 "Account hierarchy").
type Account struct {
	ID              string
	UserID          string
	Type            AccountType
	Identifier      string
	ChainOrExchange string
	ProviderName    string
	ParentAccountID *string
	DerivationPath  string
}

// IsChild reports whether this account was derived from an xpub
// parent.
func (a Account) IsChild() bool { return a.ParentAccountID != nil }
