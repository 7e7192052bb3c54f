package model

import (
	"time"

	"github.com/jbelanger/exitbook/internal/money"
)

// CostBasisMethod selects which lot-matching strategy produced a
// calculation (spec §4.13).
type CostBasisMethod string

const (
	CostBasisMethodFIFO CostBasisMethod = "fifo"
	CostBasisMethodLIFO CostBasisMethod = "lifo"
)

// LotStatus tracks how much of a lot remains open.
type LotStatus string

const (
	LotStatusOpen              LotStatus = "open"
	LotStatusPartiallyDisposed LotStatus = "partially_disposed"
	LotStatusFullyDisposed     LotStatus = "fully_disposed"
)

// DeriveLotStatus computes status from quantity/remaining per spec §3
// invariant 2: status is always a pure function of the two quantities.
func DeriveLotStatus(quantity, remaining money.Decimal) LotStatus {
	switch {
	case remaining.LessThanOrEqual(money.Zero):
		return LotStatusFullyDisposed
	case remaining.Equal(quantity):
		return LotStatusOpen
	default:
		return LotStatusPartiallyDisposed
	}
}

// CostBasisCalculation is one run of the lot matcher (spec §4.13) over
// a user's full transaction history, grouping the lots and disposals
// it produced under a single id so a later run can supersede it
// wholesale via LotRepo.DeleteByCalculationID.
type CostBasisCalculation struct {
	ID        string
	UserID    string
	Method    CostBasisMethod
	Currency  string
	TaxYear   int
	CreatedAt time.Time
	Notes     string
}

// AcquisitionLot is a batch of an asset acquired at a specific cost
// basis, consumed by disposals per strategy.
type AcquisitionLot struct {
	ID                string
	CalculationID     string
	Asset             string
	Quantity          money.Decimal
	RemainingQuantity money.Decimal
	CostBasisPerUnit  money.Money
	AcquisitionDate   time.Time
	Method            CostBasisMethod
	Status            LotStatus
	SourceTransactionID string
}

// LotDisposal is a consumption of part or all of a lot triggered by an
// outflow event.
type LotDisposal struct {
	ID                    string
	LotID                 string
	DisposalTransactionID string
	QuantityDisposed      money.Decimal
	ProceedsPerUnit       money.Money
	CostBasisPerUnit      money.Money
	GainLoss              money.Money
	HoldingPeriodDays     int
}

// LotTransfer links two transactions representing the same asset
// moving between accounts (e.g. exchange withdrawal -> blockchain
// deposit), carrying apportioned cost basis across the link.
type LotTransfer struct {
	ID                    string
	FromTransactionID     string
	ToTransactionID       string
	Asset                 string
	Quantity              money.Decimal
	CarriedCostBasis      money.Money
	ImpliedFeeFiat        *money.Money
	Metadata              map[string]any
}
