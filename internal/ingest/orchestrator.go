// Package ingest implements the ingestion orchestrator (C12): the
// user/account/session lifecycle that wraps the provider manager (C8)
// and persists what it streams, per spec §4.11.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"github.com/jbelanger/exitbook/internal/addressderive"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/platform/logx"
	"github.com/jbelanger/exitbook/internal/providers"
	"github.com/jbelanger/exitbook/internal/registry"
	"github.com/jbelanger/exitbook/internal/storage"
)

// Orchestrator wires the provider manager to the persistence layer and
// drives the session lifecycle described in spec §4.11.
type Orchestrator struct {
	Accounts     *storage.AccountRepo
	DataSources  *storage.DataSourceRepo
	Transactions *storage.TransactionRepo
	Manager      *providers.Manager
	Families     registry.Families
	Now          func() time.Time
	NewID        func() string
}

// New builds an Orchestrator with production defaults (real clock,
// UUID ids).
func New(accounts *storage.AccountRepo, dataSources *storage.DataSourceRepo, transactions *storage.TransactionRepo, manager *providers.Manager, families registry.Families) *Orchestrator {
	return &Orchestrator{
		Accounts:     accounts,
		DataSources:  dataSources,
		Transactions: transactions,
		Manager:      manager,
		Families:     families,
		Now:          time.Now,
		NewID:        func() string { return uuid.NewString() },
	}
}

// cursorBlobKey is the ImportResultMetadata key the last seen
// model.CursorState is serialized under, so a resumed session can
// reconstruct where the previous run left off without a dedicated
// cursor table.
const cursorBlobKey = "resume_cursor"

func encodeCursor(state model.CursorState) (map[string]any, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("ingest: encoding resume cursor: %w", err)
	}
	return map[string]any{cursorBlobKey: string(b)}, nil
}

func decodeCursor(metadata map[string]any) (*model.CursorState, error) {
	raw, ok := metadata[cursorBlobKey]
	if !ok {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil, nil
	}
	var state model.CursorState
	if err := json.Unmarshal([]byte(s), &state); err != nil {
		return nil, fmt.Errorf("ingest: decoding resume cursor: %w", err)
	}
	return &state, nil
}

// ImportBlockchain implements spec §4.11's importBlockchain: single
// address -> one session; xpub -> a parent account plus one child
// account (and one session) per derived address with activity,
// aborting fast on the first child's failure.
func (o *Orchestrator) ImportBlockchain(ctx context.Context, chain, address, providerName string, xpubGap int) ([]model.DataSource, error) {
	if err := o.Accounts.EnsureDefaultUser(); err != nil {
		return nil, err
	}

	if !addressderive.IsExtendedPublicKey(address) {
		account, err := o.getOrCreateAccount(model.Account{
			ID:              o.NewID(),
			UserID:          storage.DefaultUserID,
			Type:            model.AccountTypeBlockchainAddr,
			Identifier:      address,
			ChainOrExchange: chain,
			ProviderName:    providerName,
		})
		if err != nil {
			return nil, err
		}
		ds, err := o.runSession(ctx, *account, chain, address)
		if ds == nil {
			return nil, err
		}
		return []model.DataSource{*ds}, err
	}

	parent, err := o.getOrCreateAccount(model.Account{
		ID:              o.NewID(),
		UserID:          storage.DefaultUserID,
		Type:            model.AccountTypeBlockchainXpub,
		Identifier:      address,
		ChainOrExchange: chain,
		ProviderName:    providerName,
	})
	if err != nil {
		return nil, err
	}

	probe := func(probeCtx context.Context, candidateAddr string) (bool, error) {
		results := o.Manager.ExecuteWithFailover(probeCtx, chain, registry.OpGetBalance, registry.StreamNormal, candidateAddr, nil)
		for r := range results {
			if r.Err != nil {
				return false, nil
			}
			return len(r.Batch.Data) > 0, nil
		}
		return false, nil
	}

	family, _ := o.Families.FamilyFor(providerName)
	policy := addressderive.PolicyFor(family)
	derived, err := policy.Derive(ctx, address, &chaincfg.MainNetParams, xpubGap, probe)
	if err != nil {
		return nil, fmt.Errorf("ingest: deriving xpub addresses: %w", err)
	}

	sessions := make([]model.DataSource, 0, len(derived))
	for _, d := range derived {
		parentID := parent.ID
		child, err := o.getOrCreateAccount(model.Account{
			ID:              o.NewID(),
			UserID:          storage.DefaultUserID,
			Type:            model.AccountTypeBlockchainAddr,
			Identifier:      d.Address,
			ChainOrExchange: chain,
			ProviderName:    providerName,
			ParentAccountID: &parentID,
			DerivationPath:  d.DerivationPath,
		})
		if err != nil {
			return sessions, err
		}

		ds, err := o.runSession(ctx, *child, chain, d.Address)
		if err != nil {
			return sessions, fmt.Errorf("ingest: importing child account %s (%s): %w", child.ID, d.Address, err)
		}
		sessions = append(sessions, *ds)
	}
	return sessions, nil
}

// ImportExchangeAPI implements spec §4.11's importExchangeApi: one
// account keyed by the API-key fingerprint, one session.
func (o *Orchestrator) ImportExchangeAPI(ctx context.Context, exchange, apiKeyFingerprint, providerName string) (*model.DataSource, error) {
	if err := o.Accounts.EnsureDefaultUser(); err != nil {
		return nil, err
	}
	account, err := o.getOrCreateAccount(model.Account{
		ID:              o.NewID(),
		UserID:          storage.DefaultUserID,
		Type:            model.AccountTypeExchangeAPI,
		Identifier:      apiKeyFingerprint,
		ChainOrExchange: exchange,
		ProviderName:    providerName,
	})
	if err != nil {
		return nil, err
	}
	return o.runSession(ctx, *account, exchange, account.Identifier)
}

// ImportExchangeCSV implements spec §4.11's importExchangeCsv: one
// account keyed by a checksum of the CSV directory's contents.
func (o *Orchestrator) ImportExchangeCSV(ctx context.Context, exchange, csvDirChecksum string) (*model.DataSource, error) {
	if err := o.Accounts.EnsureDefaultUser(); err != nil {
		return nil, err
	}
	account, err := o.getOrCreateAccount(model.Account{
		ID:              o.NewID(),
		UserID:          storage.DefaultUserID,
		Type:            model.AccountTypeExchangeCSV,
		Identifier:      csvDirChecksum,
		ChainOrExchange: exchange,
	})
	if err != nil {
		return nil, err
	}
	return o.runSession(ctx, *account, exchange, account.Identifier)
}

func (o *Orchestrator) getOrCreateAccount(candidate model.Account) (*model.Account, error) {
	existing, err := o.Accounts.FindByIdentifier(candidate.ChainOrExchange, candidate.Identifier)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := o.Accounts.Create(candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

// runSession opens a data source, streams canonical transactions from
// the provider manager, persists each batch, and finalizes the session
// per spec §4.11's closing step (status, duration, result metadata).
func (o *Orchestrator) runSession(ctx context.Context, account model.Account, chain, address string) (*model.DataSource, error) {
	started := o.Now()
	ds := model.DataSource{
		ID:        o.NewID(),
		AccountID: account.ID,
		Status:    model.DataSourceStatusStarted,
		StartedAt: started,
	}
	if err := o.DataSources.Create(ds); err != nil {
		return nil, err
	}

	resume, err := o.resumeCursor(account.ID)
	if err != nil {
		logx.Named("ingest").Warn().Err(err).Str("account", account.ID).Msg("failed to decode resume cursor, starting fresh")
	}

	sourceType := model.SourceTypeBlockchain
	if account.Type == model.AccountTypeExchangeAPI || account.Type == model.AccountTypeExchangeCSV {
		sourceType = model.SourceTypeExchange
	}

	imported, failed := 0, 0
	var lastCursor model.CursorState
	var finalErr error

	results := o.Manager.ExecuteWithFailover(ctx, chain, registry.OpGetAddressTransactions, registry.StreamNormal, address, resume)
	for r := range results {
		if r.Err != nil {
			finalErr = r.Err
			break
		}
		n, err := o.Transactions.InsertBatch(ds.ID, account.ProviderName, sourceType, r.Batch.Data)
		if err != nil {
			failed += len(r.Batch.Data)
			logx.Named("ingest").Error().Err(err).Str("session", ds.ID).Msg("failed to persist transaction batch")
			continue
		}
		imported += n
		lastCursor = r.Batch.Cursor
	}

	completedAt := o.Now()
	durationMs := completedAt.Sub(started).Milliseconds()

	status := model.DataSourceStatusCompleted
	errMsg := ""
	if finalErr != nil {
		status = model.DataSourceStatusFailed
		errMsg = finalErr.Error()
	}
	if ctx.Err() != nil {
		status = model.DataSourceStatusCancelled
	}

	metadata, err := encodeCursor(lastCursor)
	if err != nil {
		return nil, err
	}

	if err := o.DataSources.Finalize(ds.ID, status, completedAt, durationMs, imported, failed, errMsg, metadata); err != nil {
		return nil, err
	}

	ds.Status = status
	ds.CompletedAt = &completedAt
	ds.DurationMs = &durationMs
	ds.TransactionsImported = imported
	ds.TransactionsFailed = failed
	ds.ErrorMessage = errMsg

	if finalErr != nil {
		return &ds, finalErr
	}
	return &ds, nil
}

func (o *Orchestrator) resumeCursor(accountID string) (*model.CursorState, error) {
	incomplete, err := o.DataSources.FindLatestIncomplete(accountID)
	if err != nil {
		return nil, err
	}
	if incomplete == nil {
		return nil, nil
	}
	return decodeCursor(incomplete.ImportResultMetadata)
}
