package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbelanger/exitbook/internal/costbasis"
	"github.com/jbelanger/exitbook/internal/model"
	"github.com/jbelanger/exitbook/internal/money"
	"github.com/jbelanger/exitbook/internal/platform/apperr"
	"github.com/jbelanger/exitbook/internal/storage"
)

type costBasisSummary struct {
	CalculationID   string `json:"calculation_id"`
	LotsCreated     int    `json:"lots_created"`
	DisposalsFiled  int    `json:"disposals_filed"`
	ShortTermGain   string `json:"short_term_gain_loss"`
	LongTermGain    string `json:"long_term_gain_loss"`
	TotalGainLoss   string `json:"total_gain_loss"`
}

func newCostBasisCmd() *cobra.Command {
	var method, jur, currency, startDate, endDate string
	var taxYear int

	cmd := &cobra.Command{
		Use:   "cost-basis",
		Short: "Run the FIFO/LIFO lot matcher over ingested transactions and file a cost-basis calculation",
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()

			strategy, err := costbasis.StrategyFor(model.CostBasisMethod(method))
			if err != nil {
				return apperr.New(apperr.CodeValidation, err.Error())
			}

			rules, err := theApp.jurisdictions.Get(jur)
			if err != nil {
				return apperr.New(apperr.CodeValidation, err.Error())
			}

			windowStart, windowEnd := rules.TaxYearBounds(taxYear)
			if startDate != "" {
				windowStart, err = time.Parse(time.RFC3339, startDate)
				if err != nil {
					return apperr.New(apperr.CodeValidation, "invalid --start-date: "+err.Error())
				}
			}
			if endDate != "" {
				windowEnd, err = time.Parse(time.RFC3339, endDate)
				if err != nil {
					return apperr.New(apperr.CodeValidation, "invalid --end-date: "+err.Error())
				}
			}

			all, err := accountTransactions()
			if err != nil {
				return err
			}
			var txs []model.CanonicalTransaction
			for _, at := range all {
				if at.Transaction.Datetime.Before(windowStart) || !at.Transaction.Datetime.Before(windowEnd) {
					continue
				}
				txs = append(txs, at.Transaction)
			}

			calcID := uuid.NewString()
			result, err := costbasis.Match(txs, costbasis.Options{
				CalculationID: calcID,
				Strategy:      strategy,
				NewID:         func() string { return uuid.NewString() },
			})
			if err != nil {
				return err
			}

			calc := model.CostBasisCalculation{
				ID:        calcID,
				UserID:    storage.DefaultUserID,
				Method:    model.CostBasisMethod(method),
				Currency:  currency,
				TaxYear:   taxYear,
				CreatedAt: time.Now().UTC(),
			}
			if err := theApp.lots.CreateCalculation(calc); err != nil {
				return err
			}
			if err := theApp.lots.CreateBulk(result.Lots); err != nil {
				return err
			}
			if err := theApp.lots.CreateDisposals(result.Disposals); err != nil {
				return err
			}

			shortTerm := money.Zero
			longTerm := money.Zero
			for _, d := range result.Disposals {
				if rules.IsLongTerm(d.HoldingPeriodDays) {
					longTerm = longTerm.Add(d.GainLoss.Amount)
				} else {
					shortTerm = shortTerm.Add(d.GainLoss.Amount)
				}
			}

			summary := costBasisSummary{
				CalculationID:  calcID,
				LotsCreated:    len(result.Lots),
				DisposalsFiled: len(result.Disposals),
				ShortTermGain:  money.FormatDecimal(shortTerm),
				LongTermGain:   money.FormatDecimal(longTerm),
				TotalGainLoss:  money.FormatDecimal(shortTerm.Add(longTerm)),
			}

			emitSuccess("cost-basis", started, summary, map[string]any{
				"transactions_considered": len(txs),
				"jurisdiction":            jur,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "fifo", "lot matching method: fifo or lifo")
	cmd.Flags().StringVar(&jur, "jurisdiction", "US", "jurisdiction code for tax-year bounds and holding period")
	cmd.Flags().IntVar(&taxYear, "tax-year", time.Now().Year(), "tax year to compute")
	cmd.Flags().StringVar(&currency, "currency", "USD", "reporting currency")
	cmd.Flags().StringVar(&startDate, "start-date", "", "override the jurisdiction's tax-year start (RFC3339)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "override the jurisdiction's tax-year end (RFC3339)")
	return cmd
}
