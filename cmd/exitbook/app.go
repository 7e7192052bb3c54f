package main

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/ingest"
	"github.com/jbelanger/exitbook/internal/jurisdiction"
	"github.com/jbelanger/exitbook/internal/providers"
	"github.com/jbelanger/exitbook/internal/registry"
	"github.com/jbelanger/exitbook/internal/scamcheck"
	"github.com/jbelanger/exitbook/internal/storage"
	"gorm.io/gorm"
)

// app bundles every wired dependency a command needs. Built once in
// main's PersistentPreRunE and torn down in PersistentPostRunE, the
// same "one struct of collaborators" shape the teacher's Blackhole
// constructor assembles its contract clients into.
type app struct {
	db           *gorm.DB
	accounts     *storage.AccountRepo
	dataSources  *storage.DataSourceRepo
	transactions *storage.TransactionRepo
	rawData      *storage.RawDataRepo
	links        *storage.TransactionLinkRepo
	lots         *storage.LotRepo
	transfers    *storage.LotTransferRepo

	registry     *registry.Registry
	families     registry.Families
	normalize    providers.NormalizeFunc
	manager      *providers.Manager
	orchestrator *ingest.Orchestrator

	jurisdictions jurisdiction.Table
	scamWeights   scamcheck.Weights
	scamSvc       *scamcheck.Service
}

func newApp(dbPath string) (*app, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	reg, families, err := registry.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading provider registry: %w", err)
	}

	jt, err := jurisdiction.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading jurisdiction table: %w", err)
	}

	weights, err := scamcheck.LoadDefaultWeights()
	if err != nil {
		return nil, fmt.Errorf("loading scam-check weights: %w", err)
	}

	a := &app{
		db:            db,
		accounts:      storage.NewAccountRepo(db),
		dataSources:   storage.NewDataSourceRepo(db),
		transactions:  storage.NewTransactionRepo(db),
		rawData:       storage.NewRawDataRepo(db),
		links:         storage.NewTransactionLinkRepo(db),
		lots:          storage.NewLotRepo(db),
		transfers:     storage.NewLotTransferRepo(db),
		registry:      reg,
		families:      families,
		jurisdictions: jt,
		scamWeights:   weights,
		scamSvc:       scamcheck.New(weights),
	}

	a.normalize = ingest.NewDispatcher(families)
	a.manager = providers.NewManager(reg, a.normalize)
	a.orchestrator = ingest.New(a.accounts, a.dataSources, a.transactions, a.manager, families)

	return a, nil
}

func (a *app) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
