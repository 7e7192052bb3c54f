package storage

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepo persists canonical transactions (spec §4.12's
// TransactionRepo contract: insertBatch/getTransactions/
// getTransactionsNeedingPrices).
type TransactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// TransactionFilter narrows GetTransactions; zero-value fields are
// unconstrained.
type TransactionFilter struct {
	DataSourceID string
	Asset        string
	Limit        int
}

func transactionToRow(dataSourceID, sourceID string, sourceType model.SourceType, tx model.CanonicalTransaction) (TransactionRow, error) {
	inflows, err := jsonText(tx.Movements.Inflows)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling inflows: %w", err)
	}
	outflows, err := jsonText(tx.Movements.Outflows)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling outflows: %w", err)
	}
	netFee, err := jsonText(tx.Fees.Network)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling network fee: %w", err)
	}
	platFee, err := jsonText(tx.Fees.Platform)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling platform fee: %w", err)
	}
	total, err := jsonText(tx.Fees.All())
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling total fees: %w", err)
	}
	notes, err := jsonText(tx.Notes)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling notes: %w", err)
	}
	rawNormalized, err := jsonText(tx.RawNormalizedData)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("storage: marshaling raw_normalized_data: %w", err)
	}

	row := TransactionRow{
		ID:                     tx.ID,
		DataSourceID:           dataSourceID,
		SourceID:               sourceID,
		SourceType:             string(sourceType),
		ExternalID:             tx.ExternalID,
		TransactionStatus:      string(tx.Status),
		TransactionDatetime:    tx.Datetime,
		OperationCategory:      string(tx.Operation.Category),
		OperationType:          string(tx.Operation.Type),
		MovementsInflows:       inflows,
		MovementsOutflows:      outflows,
		FeesNetwork:            netFee,
		FeesPlatform:           platFee,
		FeesTotal:              total,
		Notes:                  notes,
		ExcludedFromAccounting: tx.ExcludedFromAccounting,
		RawNormalizedData:      rawNormalized,
	}
	if len(tx.Notes) > 0 {
		row.NoteType = tx.Notes[0].Type
		row.NoteSeverity = string(tx.Notes[0].Severity)
		row.NoteMessage = tx.Notes[0].Message
	}
	if tx.BlockchainMetadata != nil {
		row.BlockchainName = tx.BlockchainMetadata.Chain
		h := tx.BlockchainMetadata.BlockHeight
		row.BlockchainBlockHeight = &h
		row.BlockchainTransactionHash = tx.BlockchainMetadata.TxHash
		row.BlockchainIsConfirmed = tx.BlockchainMetadata.Confirmed
	}
	return row, nil
}

func rowToTransaction(r TransactionRow) (model.CanonicalTransaction, error) {
	inflows, err := jsonParse[[]model.AssetMovement](r.MovementsInflows)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing inflows: %w", err)
	}
	outflows, err := jsonParse[[]model.AssetMovement](r.MovementsOutflows)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing outflows: %w", err)
	}
	netFee, err := jsonParse[*model.AssetMovement](r.FeesNetwork)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing network fee: %w", err)
	}
	platFee, err := jsonParse[*model.AssetMovement](r.FeesPlatform)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing platform fee: %w", err)
	}
	notes, err := jsonParse[[]model.Note](r.Notes)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing notes: %w", err)
	}
	rawNormalized, err := jsonParse[map[string]any](r.RawNormalizedData)
	if err != nil {
		return model.CanonicalTransaction{}, fmt.Errorf("storage: parsing raw_normalized_data: %w", err)
	}

	var primary *model.AssetMovement
	if len(inflows) > 0 {
		primary = &inflows[0]
	} else if len(outflows) > 0 {
		primary = &outflows[0]
	}

	tx := model.CanonicalTransaction{
		ID:         r.ID,
		ExternalID: r.ExternalID,
		SourceName: r.SourceID,
		SourceType: model.SourceType(r.SourceType),
		Datetime:   r.TransactionDatetime,
		Status:     model.TransactionStatus(r.TransactionStatus),
		Operation: model.Operation{
			Category: model.OperationCategory(r.OperationCategory),
			Type:     model.OperationType(r.OperationType),
		},
		Movements: model.Movements{
			Inflows:  inflows,
			Outflows: outflows,
			Primary:  primary,
		},
		Fees: model.Fees{
			Network:  netFee,
			Platform: platFee,
		},
		Notes:                  notes,
		ExcludedFromAccounting: r.ExcludedFromAccounting,
		RawNormalizedData:      rawNormalized,
	}
	if r.BlockchainName != "" {
		height := uint64(0)
		if r.BlockchainBlockHeight != nil {
			height = *r.BlockchainBlockHeight
		}
		tx.BlockchainMetadata = &model.BlockchainMetadata{
			Chain:       r.BlockchainName,
			BlockHeight: height,
			TxHash:      r.BlockchainTransactionHash,
			Confirmed:   r.BlockchainIsConfirmed,
		}
	}
	return tx, nil
}

// InsertBatch inserts a batch of normalized transactions for one
// session, skipping any row whose id or external_id is already stored
// (external_id is unique across all sessions), so a resumed import
// never double-records a row.
func (repo *TransactionRepo) InsertBatch(dataSourceID, sourceID string, sourceType model.SourceType, txs []model.CanonicalTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row, err := transactionToRow(dataSourceID, sourceID, sourceType, tx)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	result := repo.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("storage: inserting transaction batch for session %s: %w", dataSourceID, result.Error)
	}
	return int(result.RowsAffected), nil
}

// GetTransactions returns transactions matching filter, most recent
// first.
func (repo *TransactionRepo) GetTransactions(filter TransactionFilter) ([]model.CanonicalTransaction, error) {
	q := repo.db.Model(&TransactionRow{})
	if filter.DataSourceID != "" {
		q = q.Where("data_source_id = ?", filter.DataSourceID)
	}
	if filter.Asset != "" {
		q = q.Where("movements_inflows LIKE ? OR movements_outflows LIKE ?", "%"+filter.Asset+"%", "%"+filter.Asset+"%")
	}
	q = q.Order("transaction_datetime DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []TransactionRow
	if result := q.Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("storage: listing transactions: %w", result.Error)
	}
	out := make([]model.CanonicalTransaction, 0, len(rows))
	for _, r := range rows {
		tx, err := rowToTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Get returns a single canonical transaction by id, or nil if it does
// not exist.
func (repo *TransactionRepo) Get(id string) (*model.CanonicalTransaction, error) {
	var row TransactionRow
	result := repo.db.Where("id = ?", id).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: getting transaction %s: %w", id, result.Error)
	}
	tx, err := rowToTransaction(row)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdatePriceMovements persists the (possibly now-priced) movements
// and fees of tx back onto its existing row, used by the price
// enrichment pipeline (C15) to write back what it derived, normalized,
// fetched, or re-derived without touching any other column.
func (repo *TransactionRepo) UpdatePriceMovements(tx model.CanonicalTransaction) error {
	inflows, err := jsonText(tx.Movements.Inflows)
	if err != nil {
		return fmt.Errorf("storage: marshaling inflows: %w", err)
	}
	outflows, err := jsonText(tx.Movements.Outflows)
	if err != nil {
		return fmt.Errorf("storage: marshaling outflows: %w", err)
	}
	netFee, err := jsonText(tx.Fees.Network)
	if err != nil {
		return fmt.Errorf("storage: marshaling network fee: %w", err)
	}
	platFee, err := jsonText(tx.Fees.Platform)
	if err != nil {
		return fmt.Errorf("storage: marshaling platform fee: %w", err)
	}
	total, err := jsonText(tx.Fees.All())
	if err != nil {
		return fmt.Errorf("storage: marshaling total fees: %w", err)
	}

	result := repo.db.Model(&TransactionRow{}).Where("id = ?", tx.ID).Updates(map[string]any{
		"movements_inflows":  inflows,
		"movements_outflows": outflows,
		"fees_network":       netFee,
		"fees_platform":      platFee,
		"fees_total":         total,
	})
	if result.Error != nil {
		return fmt.Errorf("storage: updating priced movements for %s: %w", tx.ID, result.Error)
	}
	return nil
}

// GetFlagged returns transactions carrying a structured note — a
// classification warning, a scam-detection flag, or any other
// annotation a reviewer should look at — optionally narrowed to one
// note type, most recent first.
func (repo *TransactionRepo) GetFlagged(noteType string) ([]model.CanonicalTransaction, error) {
	q := repo.db.Model(&TransactionRow{}).Where("note_type != ?", "")
	if noteType != "" {
		q = q.Where("note_type = ?", noteType)
	}
	q = q.Order("transaction_datetime DESC")

	var rows []TransactionRow
	if result := q.Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("storage: listing flagged transactions: %w", result.Error)
	}
	out := make([]model.CanonicalTransaction, 0, len(rows))
	for _, r := range rows {
		tx, err := rowToTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// GetTransactionsNeedingPrices returns every non-excluded transaction
// whose movements carry no price yet, the input set for the price
// enrichment pipeline (C15, spec §4.14).
func (repo *TransactionRepo) GetTransactionsNeedingPrices() ([]model.CanonicalTransaction, error) {
	var rows []TransactionRow
	result := repo.db.Where("excluded_from_accounting = ?", false).
		Where("movements_inflows NOT LIKE ? AND movements_outflows NOT LIKE ?", "%PriceAtTxTime%", "%PriceAtTxTime%").
		Order("transaction_datetime ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: listing transactions needing prices: %w", result.Error)
	}
	out := make([]model.CanonicalTransaction, 0, len(rows))
	for _, r := range rows {
		tx, err := rowToTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
