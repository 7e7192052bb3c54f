package storage

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"gorm.io/gorm"
)

// LotRepo persists cost-basis calculation runs, their acquisition lots
// and disposals (spec §4.12's LotRepo contract).
type LotRepo struct {
	db *gorm.DB
}

func NewLotRepo(db *gorm.DB) *LotRepo {
	return &LotRepo{db: db}
}

// CreateCalculation records a new cost-basis run under calc.ID, the id
// callers tag every lot/disposal of that run with.
func (repo *LotRepo) CreateCalculation(calc model.CostBasisCalculation) error {
	row := CostBasisCalculationRow{
		ID:        calc.ID,
		UserID:    calc.UserID,
		Method:    string(calc.Method),
		Currency:  calc.Currency,
		TaxYear:   calc.TaxYear,
		CreatedAt: calc.CreatedAt,
		Notes:     calc.Notes,
	}
	if result := repo.db.Create(&row); result.Error != nil {
		return fmt.Errorf("storage: creating cost basis calculation %s: %w", calc.ID, result.Error)
	}
	return nil
}

func lotToRow(l model.AcquisitionLot) AcquisitionLotRow {
	return AcquisitionLotRow{
		ID:                  l.ID,
		CalculationID:       l.CalculationID,
		Asset:               l.Asset,
		Quantity:            money.FormatDecimal(l.Quantity),
		RemainingQuantity:   money.FormatDecimal(l.RemainingQuantity),
		CostBasisPerUnit:    money.FormatDecimal(l.CostBasisPerUnit.Amount),
		CostBasisCurrency:   l.CostBasisPerUnit.Currency.Ticker(),
		AcquisitionDate:     l.AcquisitionDate,
		Method:              string(l.Method),
		Status:              string(l.Status),
		SourceTransactionID: l.SourceTransactionID,
	}
}

func rowToLot(r AcquisitionLotRow) (model.AcquisitionLot, error) {
	qty, err := money.NewDecimal(r.Quantity)
	if err != nil {
		return model.AcquisitionLot{}, fmt.Errorf("storage: parsing lot quantity: %w", err)
	}
	remaining, err := money.NewDecimal(r.RemainingQuantity)
	if err != nil {
		return model.AcquisitionLot{}, fmt.Errorf("storage: parsing lot remaining quantity: %w", err)
	}
	costBasis, err := money.NewDecimal(r.CostBasisPerUnit)
	if err != nil {
		return model.AcquisitionLot{}, fmt.Errorf("storage: parsing lot cost basis: %w", err)
	}
	return model.AcquisitionLot{
		ID:                  r.ID,
		CalculationID:       r.CalculationID,
		Asset:               r.Asset,
		Quantity:            qty,
		RemainingQuantity:   remaining,
		CostBasisPerUnit:    money.NewMoney(costBasis, money.NewCurrency(r.CostBasisCurrency)),
		AcquisitionDate:     r.AcquisitionDate,
		Method:              model.CostBasisMethod(r.Method),
		Status:              model.LotStatus(r.Status),
		SourceTransactionID: r.SourceTransactionID,
	}, nil
}

// CreateBulk inserts every lot produced by one matcher run in a single
// statement.
func (repo *LotRepo) CreateBulk(lots []model.AcquisitionLot) error {
	if len(lots) == 0 {
		return nil
	}
	rows := make([]AcquisitionLotRow, 0, len(lots))
	for _, l := range lots {
		rows = append(rows, lotToRow(l))
	}
	if result := repo.db.Create(&rows); result.Error != nil {
		return fmt.Errorf("storage: bulk-creating acquisition lots: %w", result.Error)
	}
	return nil
}

// GetByCalculationID returns every lot produced by one run, oldest
// acquisition first (the FIFO/LIFO matcher's natural consumption
// order).
func (repo *LotRepo) GetByCalculationID(calculationID string) ([]model.AcquisitionLot, error) {
	var rows []AcquisitionLotRow
	result := repo.db.Where("calculation_id = ?", calculationID).Order("acquisition_date ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: listing lots for calculation %s: %w", calculationID, result.Error)
	}
	out := make([]model.AcquisitionLot, 0, len(rows))
	for _, r := range rows {
		lot, err := rowToLot(r)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, nil
}

func disposalToRow(d model.LotDisposal) LotDisposalRow {
	return LotDisposalRow{
		ID:                    d.ID,
		LotID:                 d.LotID,
		DisposalTransactionID: d.DisposalTransactionID,
		QuantityDisposed:      money.FormatDecimal(d.QuantityDisposed),
		ProceedsPerUnit:       money.FormatDecimal(d.ProceedsPerUnit.Amount),
		ProceedsCurrency:      d.ProceedsPerUnit.Currency.Ticker(),
		CostBasisPerUnit:      money.FormatDecimal(d.CostBasisPerUnit.Amount),
		GainLoss:              money.FormatDecimal(d.GainLoss.Amount),
		HoldingPeriodDays:     d.HoldingPeriodDays,
	}
}

// CreateDisposals inserts every disposal produced against the lots of
// one calculation run.
func (repo *LotRepo) CreateDisposals(disposals []model.LotDisposal) error {
	if len(disposals) == 0 {
		return nil
	}
	rows := make([]LotDisposalRow, 0, len(disposals))
	for _, d := range disposals {
		rows = append(rows, disposalToRow(d))
	}
	if result := repo.db.Create(&rows); result.Error != nil {
		return fmt.Errorf("storage: bulk-creating lot disposals: %w", result.Error)
	}
	return nil
}

// UpdateLotRemaining persists a lot's consumption progress after a
// disposal is applied against it.
func (repo *LotRepo) UpdateLotRemaining(lotID string, remaining money.Decimal, status model.LotStatus) error {
	result := repo.db.Model(&AcquisitionLotRow{}).Where("id = ?", lotID).Updates(map[string]any{
		"remaining_quantity": money.FormatDecimal(remaining),
		"status":             string(status),
	})
	if result.Error != nil {
		return fmt.Errorf("storage: updating lot %s remaining quantity: %w", lotID, result.Error)
	}
	return nil
}

// DeleteByCalculationID removes every lot and disposal belonging to a
// superseded calculation run, so the matcher (C14) can be re-run
// cleanly from scratch.
func (repo *LotRepo) DeleteByCalculationID(calculationID string) error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("lot_id IN (?)", tx.Model(&AcquisitionLotRow{}).Select("id").Where("calculation_id = ?", calculationID)).Delete(&LotDisposalRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting disposals for calculation %s: %w", calculationID, result.Error)
		}
		if result := tx.Where("calculation_id = ?", calculationID).Delete(&AcquisitionLotRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting lots for calculation %s: %w", calculationID, result.Error)
		}
		if result := tx.Where("id = ?", calculationID).Delete(&CostBasisCalculationRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting calculation %s: %w", calculationID, result.Error)
		}
		return nil
	})
}

// DeleteAll wipes every lot, disposal and calculation row, the
// cost-basis equivalent of a full re-import.
func (repo *LotRepo) DeleteAll() error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("1 = 1").Delete(&LotDisposalRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting all lot disposals: %w", result.Error)
		}
		if result := tx.Where("1 = 1").Delete(&AcquisitionLotRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting all acquisition lots: %w", result.Error)
		}
		if result := tx.Where("1 = 1").Delete(&CostBasisCalculationRow{}); result.Error != nil {
			return fmt.Errorf("storage: deleting all cost basis calculations: %w", result.Error)
		}
		return nil
	})
}
