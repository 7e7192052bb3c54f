package storage

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"gorm.io/gorm"
)

// LotTransferRepo persists cost-basis carry-over records for confirmed
// cross-account transfer links (spec §4.12's LotTransferRepo contract).
type LotTransferRepo struct {
	db *gorm.DB
}

func NewLotTransferRepo(db *gorm.DB) *LotTransferRepo {
	return &LotTransferRepo{db: db}
}

func transferToRow(t model.LotTransfer) (LotTransferRow, error) {
	meta, err := jsonText(t.Metadata)
	if err != nil {
		return LotTransferRow{}, fmt.Errorf("storage: marshaling transfer metadata: %w", err)
	}
	row := LotTransferRow{
		ID:                t.ID,
		FromTransactionID: t.FromTransactionID,
		ToTransactionID:   t.ToTransactionID,
		Asset:             t.Asset,
		Quantity:          money.FormatDecimal(t.Quantity),
		CarriedCostBasis:  money.FormatDecimal(t.CarriedCostBasis.Amount),
		CostBasisCurrency: t.CarriedCostBasis.Currency.Ticker(),
		Metadata:          meta,
	}
	if t.ImpliedFeeFiat != nil {
		row.ImpliedFeeFiat = money.FormatDecimal(t.ImpliedFeeFiat.Amount)
		row.ImpliedFeeCurrency = t.ImpliedFeeFiat.Currency.Ticker()
	}
	return row, nil
}

func rowToTransfer(r LotTransferRow) (model.LotTransfer, error) {
	meta, err := jsonParse[map[string]any](r.Metadata)
	if err != nil {
		return model.LotTransfer{}, fmt.Errorf("storage: parsing transfer metadata: %w", err)
	}
	qty, err := money.NewDecimal(r.Quantity)
	if err != nil {
		return model.LotTransfer{}, fmt.Errorf("storage: parsing transfer quantity: %w", err)
	}
	costBasis, err := money.NewDecimal(r.CarriedCostBasis)
	if err != nil {
		return model.LotTransfer{}, fmt.Errorf("storage: parsing carried cost basis: %w", err)
	}
	transfer := model.LotTransfer{
		ID:                r.ID,
		FromTransactionID: r.FromTransactionID,
		ToTransactionID:   r.ToTransactionID,
		Asset:             r.Asset,
		Quantity:          qty,
		CarriedCostBasis:  money.NewMoney(costBasis, money.NewCurrency(r.CostBasisCurrency)),
		Metadata:          meta,
	}
	if r.ImpliedFeeFiat != "" {
		fee, err := money.NewDecimal(r.ImpliedFeeFiat)
		if err != nil {
			return model.LotTransfer{}, fmt.Errorf("storage: parsing implied fee: %w", err)
		}
		m := money.NewMoney(fee, money.NewCurrency(r.ImpliedFeeCurrency))
		transfer.ImpliedFeeFiat = &m
	}
	return transfer, nil
}

// Create inserts a single carried-cost-basis record.
func (repo *LotTransferRepo) Create(t model.LotTransfer) error {
	row, err := transferToRow(t)
	if err != nil {
		return err
	}
	if result := repo.db.Create(&row); result.Error != nil {
		return fmt.Errorf("storage: creating lot transfer %s: %w", t.ID, result.Error)
	}
	return nil
}

// CreateBulk inserts every carry-over produced while applying a batch
// of confirmed links.
func (repo *LotTransferRepo) CreateBulk(transfers []model.LotTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	rows := make([]LotTransferRow, 0, len(transfers))
	for _, t := range transfers {
		row, err := transferToRow(t)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if result := repo.db.Create(&rows); result.Error != nil {
		return fmt.Errorf("storage: bulk-creating lot transfers: %w", result.Error)
	}
	return nil
}

// GetByLinkID returns the carried-cost-basis record for a confirmed
// transaction link, identified by its (from, to) transaction pair.
func (repo *LotTransferRepo) GetByLinkID(fromTransactionID, toTransactionID string) (*model.LotTransfer, error) {
	var row LotTransferRow
	result := repo.db.Where("from_transaction_id = ? AND to_transaction_id = ?", fromTransactionID, toTransactionID).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: finding lot transfer for link %s->%s: %w", fromTransactionID, toTransactionID, result.Error)
	}
	transfer, err := rowToTransfer(row)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// DeleteAll wipes every carried-cost-basis record, used when the lot
// matcher (C14) is re-run from scratch.
func (repo *LotTransferRepo) DeleteAll() error {
	if result := repo.db.Where("1 = 1").Delete(&LotTransferRow{}); result.Error != nil {
		return fmt.Errorf("storage: deleting all lot transfers: %w", result.Error)
	}
	return nil
}
