package storage

import (
	"fmt"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"gorm.io/gorm"
)

// DataSourceRepo persists ingestion sessions (spec §4.12's
// DataSourceRepo contract: create/finalize/findAll/findLatestIncomplete).
type DataSourceRepo struct {
	db *gorm.DB
}

func NewDataSourceRepo(db *gorm.DB) *DataSourceRepo {
	return &DataSourceRepo{db: db}
}

func dataSourceToRow(ds model.DataSource) (DataSourceRow, error) {
	errDetails, err := jsonText(ds.ErrorDetails)
	if err != nil {
		return DataSourceRow{}, fmt.Errorf("storage: marshaling error_details: %w", err)
	}
	meta, err := jsonText(ds.ImportResultMetadata)
	if err != nil {
		return DataSourceRow{}, fmt.Errorf("storage: marshaling import_result_metadata: %w", err)
	}
	return DataSourceRow{
		ID:                   ds.ID,
		AccountID:            ds.AccountID,
		Status:               string(ds.Status),
		StartedAt:            ds.StartedAt,
		CompletedAt:          ds.CompletedAt,
		DurationMs:           ds.DurationMs,
		TransactionsImported: ds.TransactionsImported,
		TransactionsFailed:   ds.TransactionsFailed,
		ErrorMessage:         ds.ErrorMessage,
		ErrorDetails:         errDetails,
		ImportResultMetadata: meta,
		CreatedAt:            ds.StartedAt,
	}, nil
}

func rowToDataSource(r DataSourceRow) (model.DataSource, error) {
	details, err := jsonParse[map[string]any](r.ErrorDetails)
	if err != nil {
		return model.DataSource{}, fmt.Errorf("storage: parsing error_details: %w", err)
	}
	meta, err := jsonParse[map[string]any](r.ImportResultMetadata)
	if err != nil {
		return model.DataSource{}, fmt.Errorf("storage: parsing import_result_metadata: %w", err)
	}
	return model.DataSource{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		Status:               model.DataSourceStatus(r.Status),
		StartedAt:            r.StartedAt,
		CompletedAt:          r.CompletedAt,
		DurationMs:           r.DurationMs,
		TransactionsImported: r.TransactionsImported,
		TransactionsFailed:   r.TransactionsFailed,
		ErrorMessage:         r.ErrorMessage,
		ErrorDetails:         details,
		ImportResultMetadata: meta,
	}, nil
}

// Create inserts a new session row, started now.
func (repo *DataSourceRepo) Create(ds model.DataSource) error {
	row, err := dataSourceToRow(ds)
	if err != nil {
		return err
	}
	if result := repo.db.Create(&row); result.Error != nil {
		return fmt.Errorf("storage: creating data source: %w", result.Error)
	}
	return nil
}

// Get returns a single session by id, or nil if it does not exist.
func (repo *DataSourceRepo) Get(id string) (*model.DataSource, error) {
	var row DataSourceRow
	result := repo.db.Where("id = ?", id).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: getting data source %s: %w", id, result.Error)
	}
	ds, err := rowToDataSource(row)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// Finalize marks a session complete/failed/cancelled and stamps its
// summary counters, per spec §4.11's session-lifecycle closing step.
func (repo *DataSourceRepo) Finalize(id string, status model.DataSourceStatus, completedAt time.Time, durationMs int64, imported, failed int, errMsg string, errDetails map[string]any) error {
	details, err := jsonText(errDetails)
	if err != nil {
		return fmt.Errorf("storage: marshaling error_details: %w", err)
	}
	result := repo.db.Model(&DataSourceRow{}).Where("id = ?", id).Updates(map[string]any{
		"status":                status,
		"completed_at":          completedAt,
		"duration_ms":           durationMs,
		"transactions_imported": imported,
		"transactions_failed":   failed,
		"error_message":         errMsg,
		"error_details":         details,
	})
	if result.Error != nil {
		return fmt.Errorf("storage: finalizing data source %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("storage: finalizing data source %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// FindAll returns every session for an account, most recent first.
func (repo *DataSourceRepo) FindAll(accountID string) ([]model.DataSource, error) {
	var rows []DataSourceRow
	if result := repo.db.Where("account_id = ?", accountID).Order("started_at DESC").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("storage: listing data sources for %s: %w", accountID, result.Error)
	}
	out := make([]model.DataSource, 0, len(rows))
	for _, r := range rows {
		ds, err := rowToDataSource(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// FindLatestIncomplete returns the most recent session still in the
// `started` state for an account, used to resume a cursor instead of
// starting a fresh import (spec §4.11 step 1).
func (repo *DataSourceRepo) FindLatestIncomplete(accountID string) (*model.DataSource, error) {
	var row DataSourceRow
	result := repo.db.Where("account_id = ? AND status = ?", accountID, model.DataSourceStatusStarted).
		Order("started_at DESC").First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: finding latest incomplete session for %s: %w", accountID, result.Error)
	}
	ds, err := rowToDataSource(row)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}
