// Package storage implements the persistence layer (C13): GORM models
// and repositories backing the SQLite schema of spec §6, adapted from
// the teacher's GORM+MySQL `internal/db` recorder idiom.
package storage

import (
	"encoding/json"
	"reflect"
	"time"
)

// jsonText marshals v to a JSON string for a TEXT column, or "" for a
// nil/empty value so the column stays empty rather than the literal
// string "null". Typed nil pointers/slices/maps (e.g. a nil
// *model.PaginationCursor passed as `any`) are checked via reflection
// since a plain `v == nil` never matches them.
func jsonText(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "", nil
		}
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func jsonParse[T any](s string) (T, error) {
	var out T
	if s == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

// UserRow is the GORM model for the users table. Spec §6 documents
// data_sources.account_id as the foreign key into accounts, but every
// account is itself user-owned (model.Account.UserID); both tables are
// a self-consistency supplement this engine needs to run at all, not
// named explicitly in spec §6's schema list.
type UserRow struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (UserRow) TableName() string { return "users" }

// AccountRow is the GORM model for the accounts table.
type AccountRow struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"index;not null"`
	Type            string `gorm:"not null"`
	Identifier      string `gorm:"index;not null"`
	ChainOrExchange string `gorm:"index"`
	ProviderName    string
	ParentAccountID *string `gorm:"index"`
	DerivationPath  string
	CreatedAt       time.Time
}

func (AccountRow) TableName() string { return "accounts" }

// DataSourceRow is the GORM model for the data_sources table.
type DataSourceRow struct {
	ID                   string `gorm:"primaryKey"`
	AccountID            string `gorm:"index;not null"`
	Status               string `gorm:"not null"`
	StartedAt            time.Time
	CompletedAt          *time.Time
	DurationMs           *int64
	TransactionsImported int
	TransactionsFailed   int
	ErrorMessage         string
	ErrorDetails         string `gorm:"type:text"`
	ImportResultMetadata string `gorm:"type:text"`
	CreatedAt            time.Time
}

func (DataSourceRow) TableName() string { return "data_sources" }

// ExternalTransactionDataRow is the GORM model for the
// external_transaction_data table.
type ExternalTransactionDataRow struct {
	ID               string `gorm:"primaryKey"`
	DataSourceID     string `gorm:"index:idx_ext_txdata_unique,unique;not null"`
	ProviderID       string `gorm:"not null"`
	ExternalID       string `gorm:"index:idx_ext_txdata_unique,unique;not null"`
	Cursor           string `gorm:"type:text"`
	SourceAddress    string
	RawData          string `gorm:"type:text"`
	NormalizedData   string `gorm:"type:text"`
	ProcessingStatus string `gorm:"not null"`
	ProcessingError  string
	ProcessedAt      *time.Time
}

func (ExternalTransactionDataRow) TableName() string { return "external_transaction_data" }

// TransactionRow is the GORM model for the transactions table.
type TransactionRow struct {
	ID                         string `gorm:"primaryKey"`
	DataSourceID               string `gorm:"index;not null"`
	SourceID                   string `gorm:"index;not null"`
	SourceType                 string `gorm:"not null"`
	ExternalID                 string `gorm:"index:idx_tx_unique,unique;not null"`
	TransactionStatus          string `gorm:"not null"`
	TransactionDatetime        time.Time `gorm:"index"`
	FromAddress                string
	ToAddress                  string
	OperationCategory          string `gorm:"index"`
	OperationType              string
	MovementsInflows           string `gorm:"type:text"`
	MovementsOutflows          string `gorm:"type:text"`
	FeesNetwork                string `gorm:"type:text"`
	FeesPlatform               string `gorm:"type:text"`
	FeesTotal                  string `gorm:"type:text"`
	NoteType                   string
	NoteSeverity               string
	NoteMessage                string
	Notes                      string `gorm:"type:text"`
	BlockchainName             string
	BlockchainBlockHeight      *uint64
	BlockchainTransactionHash  string
	BlockchainIsConfirmed      bool
	ExcludedFromAccounting     bool
	RawNormalizedData          string `gorm:"type:text"`
	CreatedAt                  time.Time
}

func (TransactionRow) TableName() string { return "transactions" }

// TransactionLinkRow is the GORM model for the transaction_links table.
type TransactionLinkRow struct {
	ID                string `gorm:"primaryKey"`
	FromTransactionID string `gorm:"index;not null"`
	ToTransactionID   string `gorm:"index;not null"`
	FromAccountID     string
	ToAccountID       string
	Asset             string `gorm:"not null"`
	Status            string `gorm:"not null;index"`
	Confidence        float64
	CreatedAt         time.Time
	Metadata          string `gorm:"type:text"`
}

func (TransactionLinkRow) TableName() string { return "transaction_links" }

// CostBasisCalculationRow is the GORM model for the
// cost_basis_calculations table: one run of the lot matcher (C14) over
// a user's full transaction history, grouping the lots/disposals it
// produced so a later run can supersede or be compared to it.
type CostBasisCalculationRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Method    string `gorm:"not null"`
	Currency  string `gorm:"not null"`
	TaxYear   int    `gorm:"index"`
	CreatedAt time.Time
	Notes     string
}

func (CostBasisCalculationRow) TableName() string { return "cost_basis_calculations" }

// AcquisitionLotRow is the GORM model for the acquisition_lots table.
type AcquisitionLotRow struct {
	ID                  string `gorm:"primaryKey"`
	CalculationID       string `gorm:"index;not null"`
	Asset               string `gorm:"index;not null"`
	Quantity            string `gorm:"not null"`
	RemainingQuantity   string `gorm:"not null"`
	CostBasisPerUnit    string `gorm:"not null"`
	CostBasisCurrency   string `gorm:"not null"`
	AcquisitionDate     time.Time `gorm:"index"`
	Method              string
	Status              string `gorm:"index"`
	SourceTransactionID string
}

func (AcquisitionLotRow) TableName() string { return "acquisition_lots" }

// LotDisposalRow is the GORM model for the lot_disposals table.
type LotDisposalRow struct {
	ID                    string `gorm:"primaryKey"`
	LotID                 string `gorm:"index;not null"`
	DisposalTransactionID string `gorm:"index;not null"`
	QuantityDisposed      string `gorm:"not null"`
	ProceedsPerUnit       string `gorm:"not null"`
	ProceedsCurrency      string `gorm:"not null"`
	CostBasisPerUnit      string `gorm:"not null"`
	GainLoss              string `gorm:"not null"`
	HoldingPeriodDays     int
}

func (LotDisposalRow) TableName() string { return "lot_disposals" }

// LotTransferRow is the GORM model for the lot_transfers table.
type LotTransferRow struct {
	ID                string `gorm:"primaryKey"`
	FromTransactionID string `gorm:"index;not null"`
	ToTransactionID   string `gorm:"index;not null"`
	Asset             string `gorm:"not null"`
	Quantity          string `gorm:"not null"`
	CarriedCostBasis  string `gorm:"not null"`
	CostBasisCurrency string `gorm:"not null"`
	ImpliedFeeFiat    string
	ImpliedFeeCurrency string
	Metadata          string `gorm:"type:text"`
}

func (LotTransferRow) TableName() string { return "lot_transfers" }

// TokenMetadataRow is the GORM model for the token_metadata table: the
// contract-address/decimals/symbol cache ERC-20 and other token-unit
// normalizers consult before falling back to a declared default.
type TokenMetadataRow struct {
	ID              string `gorm:"primaryKey"`
	Chain           string `gorm:"index:idx_token_chain_contract,unique;not null"`
	ContractAddress string `gorm:"index:idx_token_chain_contract,unique;not null"`
	Symbol          string `gorm:"not null"`
	Decimals        int    `gorm:"not null"`
	UpdatedAt       time.Time
}

func (TokenMetadataRow) TableName() string { return "token_metadata" }

// SymbolIndexRow is the GORM model for the symbol_index table: a
// ticker-to-canonical-asset-id lookup used by price enrichment (C15)
// so exchange-native symbols (e.g. "XBT") resolve to the same asset
// as their chain-native ticker ("BTC").
type SymbolIndexRow struct {
	ID            string `gorm:"primaryKey"`
	Symbol        string `gorm:"index:idx_symbol_index_unique,unique;not null"`
	CanonicalAsset string `gorm:"not null"`
	Source        string
}

func (SymbolIndexRow) TableName() string { return "symbol_index" }
