package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates (or attaches to) a SQLite database at path and migrates
// every table spec §6 names, mirroring the teacher's
// `gorm.Open(...) + AutoMigrate(...)` constructor shape.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("storage: opening sqlite database: %w", err)
	}

	if err := db.AutoMigrate(
		&UserRow{},
		&AccountRow{},
		&DataSourceRow{},
		&ExternalTransactionDataRow{},
		&TransactionRow{},
		&TransactionLinkRow{},
		&CostBasisCalculationRow{},
		&AcquisitionLotRow{},
		&LotDisposalRow{},
		&LotTransferRow{},
		&TokenMetadataRow{},
		&SymbolIndexRow{},
	); err != nil {
		return nil, fmt.Errorf("storage: migrating schema: %w", err)
	}

	return db, nil
}
