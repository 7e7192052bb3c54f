package storage

import (
	"testing"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	return db
}

func TestDataSourceRepo_CreateFinalizeFindRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewDataSourceRepo(db)

	ds := model.DataSource{
		ID:        "ds-1",
		AccountID: "acct-1",
		Status:    model.DataSourceStatusStarted,
		StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ds))

	latest, err := repo.FindLatestIncomplete("acct-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ds-1", latest.ID)

	completedAt := ds.StartedAt.Add(5 * time.Minute)
	require.NoError(t, repo.Finalize("ds-1", model.DataSourceStatusCompleted, completedAt, 300_000, 42, 1, "", nil))

	none, err := repo.FindLatestIncomplete("acct-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	all, err := repo.FindAll("acct-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.DataSourceStatusCompleted, all[0].Status)
	assert.Equal(t, 42, all[0].TransactionsImported)
}

func TestRawDataRepo_UpsertIsIdempotentOnDataSourceAndExternalID(t *testing.T) {
	db := openTestDB(t)
	repo := NewRawDataRepo(db)

	rec := model.RawRecord{
		ID:               "raw-1",
		DataSourceID:     "ds-1",
		ProviderName:     "alchemy",
		ExternalID:       "0xabc",
		ProcessingStatus: model.ProcessingStatusPending,
	}
	require.NoError(t, repo.Upsert(rec))
	require.NoError(t, repo.Upsert(rec))

	pending, err := repo.FindPending("ds-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkProcessed("raw-1", map[string]any{"kind": "transfer"}))
	pending, err = repo.FindPending("ds-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransactionRepo_InsertAndRetrieveRoundTripsMovements(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepo(db)

	amount, err := money.NewDecimal("1.5")
	require.NoError(t, err)

	tx := model.CanonicalTransaction{
		ID:         "tx-1",
		ExternalID: "ext-1",
		SourceName: "alchemy",
		SourceType: model.SourceTypeBlockchain,
		Datetime:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Status:     model.TransactionStatusSuccess,
		Operation:  model.Operation{Category: model.OperationCategoryTransfer, Type: model.OperationTypeDeposit},
		Movements: model.Movements{
			Inflows: []model.AssetMovement{{Asset: "ETH", Amount: amount, Direction: model.DirectionIn}},
		},
		BlockchainMetadata: &model.BlockchainMetadata{Chain: "ethereum", BlockHeight: 100, TxHash: "0xabc", Confirmed: true},
	}

	inserted, err := repo.InsertBatch("ds-1", "alchemy", model.SourceTypeBlockchain, []model.CanonicalTransaction{tx})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// re-inserting the same batch is a no-op (unique external_id).
	inserted, err = repo.InsertBatch("ds-1", "alchemy", model.SourceTypeBlockchain, []model.CanonicalTransaction{tx})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	got, err := repo.GetTransactions(TransactionFilter{DataSourceID: "ds-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Movements.Inflows, 1)
	assert.True(t, got[0].Movements.Inflows[0].Amount.Equal(amount))
	assert.Equal(t, "ethereum", got[0].BlockchainMetadata.Chain)

	needingPrices, err := repo.GetTransactionsNeedingPrices()
	require.NoError(t, err)
	assert.Len(t, needingPrices, 1)
}

func TestLotRepo_CreateBulkAndDeleteByCalculation(t *testing.T) {
	db := openTestDB(t)
	repo := NewLotRepo(db)

	require.NoError(t, repo.CreateCalculation(model.CostBasisCalculation{
		ID:        "calc-1",
		UserID:    "user-1",
		Method:    model.CostBasisMethodFIFO,
		Currency:  "USD",
		TaxYear:   2026,
		CreatedAt: time.Now().UTC(),
	}))

	qty, _ := money.NewDecimal("1")
	costBasis, _ := money.NewDecimal("50010")
	lot := model.AcquisitionLot{
		ID:                "lot-1",
		CalculationID:     "calc-1",
		Asset:             "BTC",
		Quantity:          qty,
		RemainingQuantity: qty,
		CostBasisPerUnit:  money.NewMoney(costBasis, money.NewCurrency("USD")),
		AcquisitionDate:   time.Now().UTC(),
		Method:            model.CostBasisMethodFIFO,
		Status:            model.LotStatusOpen,
	}
	require.NoError(t, repo.CreateBulk([]model.AcquisitionLot{lot}))

	lots, err := repo.GetByCalculationID("calc-1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.True(t, lots[0].CostBasisPerUnit.Amount.Equal(costBasis))

	require.NoError(t, repo.DeleteByCalculationID("calc-1"))
	lots, err = repo.GetByCalculationID("calc-1")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestLotTransferRepo_CreateAndLookupByLink(t *testing.T) {
	db := openTestDB(t)
	repo := NewLotTransferRepo(db)

	qty, _ := money.NewDecimal("0.5")
	costBasis, _ := money.NewDecimal("25000")
	transfer := model.LotTransfer{
		ID:                "xfer-1",
		FromTransactionID: "tx-withdrawal",
		ToTransactionID:   "tx-deposit",
		Asset:             "BTC",
		Quantity:          qty,
		CarriedCostBasis:  money.NewMoney(costBasis, money.NewCurrency("USD")),
	}
	require.NoError(t, repo.Create(transfer))

	got, err := repo.GetByLinkID("tx-withdrawal", "tx-deposit")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Quantity.Equal(qty))
	assert.Nil(t, got.ImpliedFeeFiat)
}

func TestTransactionRepo_GetAndUpdatePriceMovements(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepo(db)

	amount, err := money.NewDecimal("2")
	require.NoError(t, err)
	tx := model.CanonicalTransaction{
		ID:         "tx-price-1",
		ExternalID: "ext-price-1",
		SourceName: "kraken",
		SourceType: model.SourceTypeExchange,
		Datetime:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:     model.TransactionStatusSuccess,
		Operation:  model.Operation{Category: model.OperationCategoryTrade, Type: model.OperationTypeSwap},
		Movements: model.Movements{
			Inflows: []model.AssetMovement{{Asset: "ETH", Amount: amount, Direction: model.DirectionIn}},
		},
	}
	_, err = repo.InsertBatch("ds-price", "kraken", model.SourceTypeExchange, []model.CanonicalTransaction{tx})
	require.NoError(t, err)

	fetched, err := repo.Get("tx-price-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Nil(t, fetched.Movements.Inflows[0].PriceAtTxTime)

	price, err := money.NewDecimal("3200")
	require.NoError(t, err)
	fetched.Movements.Inflows[0].PriceAtTxTime = &model.PriceAtTxTime{
		Price:  money.NewMoney(price, money.NewCurrency("USD")),
		Source: "derived",
	}
	require.NoError(t, repo.UpdatePriceMovements(*fetched))

	needingPrices, err := repo.GetTransactionsNeedingPrices()
	require.NoError(t, err)
	for _, t2 := range needingPrices {
		assert.NotEqual(t, "tx-price-1", t2.ID)
	}

	missing, err := repo.Get("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactionRepo_GetFlaggedFiltersByNoteType(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepo(db)

	amount, _ := money.NewDecimal("1")
	flagged := model.CanonicalTransaction{
		ID:         "tx-flag-1",
		ExternalID: "ext-flag-1",
		SourceName: "alchemy",
		SourceType: model.SourceTypeBlockchain,
		Datetime:   time.Now().UTC(),
		Operation:  model.Operation{Category: model.OperationCategoryTransfer, Type: model.OperationTypeDeposit},
		Movements:  model.Movements{Inflows: []model.AssetMovement{{Asset: "ETH", Amount: amount, Direction: model.DirectionIn}}},
		Notes:      []model.Note{{Type: "unsolicited_inflow", Severity: model.NoteSeverityWarning, Message: "no prior contact"}},
	}
	clean := flagged
	clean.ID, clean.ExternalID, clean.Notes = "tx-flag-2", "ext-flag-2", nil

	_, err := repo.InsertBatch("ds-flag", "alchemy", model.SourceTypeBlockchain, []model.CanonicalTransaction{flagged, clean})
	require.NoError(t, err)

	all, err := repo.GetFlagged("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "tx-flag-1", all[0].ID)

	matching, err := repo.GetFlagged("unsolicited_inflow")
	require.NoError(t, err)
	require.Len(t, matching, 1)

	none, err := repo.GetFlagged("scam_pattern")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAccountRepo_FindAllForUserReturnsCreationOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepo(db)
	require.NoError(t, repo.EnsureDefaultUser())

	require.NoError(t, repo.Create(model.Account{ID: "acct-a", UserID: DefaultUserID, ChainOrExchange: "bitcoin", Type: model.AccountTypeBlockchainAddr, Identifier: "addr-a"}))
	require.NoError(t, repo.Create(model.Account{ID: "acct-b", UserID: DefaultUserID, ChainOrExchange: "kraken", Type: model.AccountTypeExchangeAPI, Identifier: "key-b"}))

	accounts, err := repo.FindAllForUser(DefaultUserID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acct-a", accounts[0].ID)
	assert.Equal(t, "acct-b", accounts[1].ID)
}

func TestDataSourceRepo_GetReturnsNilWhenMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewDataSourceRepo(db)

	require.NoError(t, repo.Create(model.DataSource{ID: "ds-get-1", AccountID: "acct-1", Status: model.DataSourceStatusStarted, StartedAt: time.Now().UTC()}))

	found, err := repo.Get("ds-get-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "acct-1", found.AccountID)

	missing, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactionLinkRepo_FindAllAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionLinkRepo(db)

	link := model.TransactionLink{
		ID:                "link-1",
		FromTransactionID: "tx-out",
		ToTransactionID:   "tx-in",
		FromAccountID:     "acct-a",
		ToAccountID:       "acct-b",
		Asset:             "BTC",
		Status:            model.TransactionLinkStatusProposed,
		Confidence:        0.91,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.Create(link))

	got, err := repo.Get("link-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tx-out", got.FromTransactionID)

	proposed, err := repo.FindAll(model.TransactionLinkStatusProposed)
	require.NoError(t, err)
	require.Len(t, proposed, 1)

	require.NoError(t, repo.UpdateStatus("link-1", model.TransactionLinkStatusConfirmed))
	confirmed, err := repo.FindAll(model.TransactionLinkStatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)

	stillProposed, err := repo.FindAll(model.TransactionLinkStatusProposed)
	require.NoError(t, err)
	assert.Empty(t, stillProposed)

	missing, err := repo.Get("no-such-link")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
