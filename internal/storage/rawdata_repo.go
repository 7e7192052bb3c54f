package storage

import (
	"fmt"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RawDataRepo persists provider-native records ahead of normalization
// (spec §4.12's RawDataRepo contract), enforcing the
// (dataSourceId, externalId) uniqueness invariant via an upsert.
type RawDataRepo struct {
	db *gorm.DB
}

func NewRawDataRepo(db *gorm.DB) *RawDataRepo {
	return &RawDataRepo{db: db}
}

func rawRecordToRow(rec model.RawRecord) (ExternalTransactionDataRow, error) {
	cursor, err := jsonText(rec.Cursor)
	if err != nil {
		return ExternalTransactionDataRow{}, fmt.Errorf("storage: marshaling cursor: %w", err)
	}
	raw, err := jsonText(rec.RawPayload)
	if err != nil {
		return ExternalTransactionDataRow{}, fmt.Errorf("storage: marshaling raw_data: %w", err)
	}
	normalized, err := jsonText(rec.NormalizedPayload)
	if err != nil {
		return ExternalTransactionDataRow{}, fmt.Errorf("storage: marshaling normalized_data: %w", err)
	}
	return ExternalTransactionDataRow{
		ID:               rec.ID,
		DataSourceID:     rec.DataSourceID,
		ProviderID:       rec.ProviderName,
		ExternalID:       rec.ExternalID,
		Cursor:           cursor,
		SourceAddress:    rec.SourceAddress,
		RawData:          raw,
		NormalizedData:   normalized,
		ProcessingStatus: string(rec.ProcessingStatus),
		ProcessingError:  rec.ProcessingError,
	}, nil
}

func rowToRawRecord(r ExternalTransactionDataRow) (model.RawRecord, error) {
	cursor, err := jsonParse[*model.PaginationCursor](r.Cursor)
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("storage: parsing cursor: %w", err)
	}
	raw, err := jsonParse[map[string]any](r.RawData)
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("storage: parsing raw_data: %w", err)
	}
	normalized, err := jsonParse[map[string]any](r.NormalizedData)
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("storage: parsing normalized_data: %w", err)
	}
	return model.RawRecord{
		ID:                r.ID,
		DataSourceID:      r.DataSourceID,
		ProviderName:      r.ProviderID,
		ExternalID:        r.ExternalID,
		Cursor:            cursor,
		SourceAddress:     r.SourceAddress,
		RawPayload:        raw,
		NormalizedPayload: normalized,
		ProcessingStatus:  model.ProcessingStatus(r.ProcessingStatus),
		ProcessingError:   r.ProcessingError,
	}, nil
}

// Upsert inserts rec, or updates the existing row sharing its
// (data_source_id, external_id) pair (spec §3 invariant 5).
func (repo *RawDataRepo) Upsert(rec model.RawRecord) error {
	row, err := rawRecordToRow(rec)
	if err != nil {
		return err
	}
	result := repo.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "data_source_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor", "source_address", "raw_data", "normalized_data", "processing_status", "processing_error", "processed_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("storage: upserting raw record %s: %w", rec.ExternalID, result.Error)
	}
	return nil
}

// MarkProcessed records a successful normalization outcome.
func (repo *RawDataRepo) MarkProcessed(id string, normalizedPayload map[string]any) error {
	normalized, err := jsonText(normalizedPayload)
	if err != nil {
		return fmt.Errorf("storage: marshaling normalized_data: %w", err)
	}
	now := time.Now().UTC()
	result := repo.db.Model(&ExternalTransactionDataRow{}).Where("id = ?", id).Updates(map[string]any{
		"processing_status": model.ProcessingStatusProcessed,
		"normalized_data":   normalized,
		"processed_at":      now,
		"processing_error":  "",
	})
	if result.Error != nil {
		return fmt.Errorf("storage: marking raw record %s processed: %w", id, result.Error)
	}
	return nil
}

// MarkFailed records a validation failure on a single record without
// aborting the batch (spec §7's per-record error policy).
func (repo *RawDataRepo) MarkFailed(id, processingError string) error {
	now := time.Now().UTC()
	result := repo.db.Model(&ExternalTransactionDataRow{}).Where("id = ?", id).Updates(map[string]any{
		"processing_status": model.ProcessingStatusFailed,
		"processing_error":  processingError,
		"processed_at":      now,
	})
	if result.Error != nil {
		return fmt.Errorf("storage: marking raw record %s failed: %w", id, result.Error)
	}
	return nil
}

// FindPending returns every not-yet-processed raw record for a
// session, oldest first.
func (repo *RawDataRepo) FindPending(dataSourceID string) ([]model.RawRecord, error) {
	var rows []ExternalTransactionDataRow
	result := repo.db.Where("data_source_id = ? AND processing_status = ?", dataSourceID, model.ProcessingStatusPending).
		Order("id ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: listing pending raw records for %s: %w", dataSourceID, result.Error)
	}
	out := make([]model.RawRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := rowToRawRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
