// Package portfolio rolls property, loan, lease and expense records up into
// per-property and portfolio-level profitability figures.
//
// Portfolio ratios are always recomputed from summed totals (ratio of sums),
// never averaged from the per-property ratios.
package portfolio

import (
	"fmt"

	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

// Options tune the aggregation. Year selects which one-off expenses count as
// operating expenses. VacancyPercent discounts rental income only.
type Options struct {
	Year           int     `json:"year"`
	VacancyPercent float64 `json:"vacancyPercent"`
}

// Figures are the absolute amounts and ratios shared by a property and the
// whole portfolio. Amounts are annual; ratios are percentages except DSCR.
type Figures struct {
	PurchasePrice     float64 `json:"purchasePrice"`
	CurrentValue      float64 `json:"currentValue"`
	TotalInvestment   float64 `json:"totalInvestment"`
	LoanBalance       float64 `json:"loanBalance"`
	Equity            float64 `json:"equity"`
	RentalIncome      float64 `json:"rentalIncome"`
	OperatingExpenses float64 `json:"operatingExpenses"`
	NOI               float64 `json:"noi"`
	DebtService       float64 `json:"debtService"`
	CashFlow          float64 `json:"cashFlow"`
	CapRate           float64 `json:"capRate"`
	CashOnCash        float64 `json:"cashOnCash"`
	GrossYield        float64 `json:"grossYield"`
	NetYield          float64 `json:"netYield"`
	DSCR              float64 `json:"dscr"`
}

// derive fills the dependent amounts and every ratio from the base amounts.
func (f *Figures) derive() {
	f.Equity = f.CurrentValue - f.LoanBalance
	f.NOI = f.RentalIncome - f.OperatingExpenses
	f.CashFlow = f.NOI - f.DebtService

	f.CapRate = deal.CapRate(f.NOI, f.PurchasePrice)
	f.CashOnCash = deal.CashOnCash(f.CashFlow, f.TotalInvestment)
	f.GrossYield = deal.GrossYield(f.RentalIncome, f.CurrentValue)
	f.NetYield = deal.NetYield(f.NOI, f.CurrentValue)
	f.DSCR = deal.DSCR(f.NOI, f.DebtService)
}

// add accumulates the base amounts of other.
func (f *Figures) add(other Figures) {
	f.PurchasePrice = mathutil.Sum(f.PurchasePrice, other.PurchasePrice)
	f.CurrentValue = mathutil.Sum(f.CurrentValue, other.CurrentValue)
	f.TotalInvestment = mathutil.Sum(f.TotalInvestment, other.TotalInvestment)
	f.LoanBalance = mathutil.Sum(f.LoanBalance, other.LoanBalance)
	f.RentalIncome = mathutil.Sum(f.RentalIncome, other.RentalIncome)
	f.OperatingExpenses = mathutil.Sum(f.OperatingExpenses, other.OperatingExpenses)
	f.DebtService = mathutil.Sum(f.DebtService, other.DebtService)
}

// PropertyMetrics are the figures of one property.
type PropertyMetrics struct {
	PropertyID   string `json:"propertyId"`
	ActiveLeases int    `json:"activeLeases"`
	Figures
}

// Metrics are the per-property figures, in input order, and the portfolio
// totals.
type Metrics struct {
	Year       int                  `json:"year"`
	Properties []PropertyMetrics    `json:"properties"`
	Totals     Figures              `json:"totals"`
	Warnings   []validation.Warning `json:"warnings,omitempty"`
}

// Aggregator computes portfolio metrics.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates an aggregator. A nil logger disables logging.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// Aggregate computes the metrics. Invalid records fail the aggregation;
// records pointing at unknown properties are skipped with a warning.
//
// Loans are assumed fully outstanding: the balance is the principal since
// amortization to date is not tracked. Annual rent comes from leases flagged
// active whose dates overlap Options.Year.
func (a *Aggregator) Aggregate(in model.Records, opts Options) (Metrics, error) {
	if opts.Year <= 0 {
		return Metrics{}, validation.Invalidf("year must be positive, got %d", opts.Year)
	}
	if err := validation.Percentage("vacancyPercent", opts.VacancyPercent); err != nil {
		return Metrics{}, err
	}
	if err := in.Validate(); err != nil {
		return Metrics{}, err
	}

	index := in.PropertyIndex()
	metrics := Metrics{
		Year:       opts.Year,
		Properties: make([]PropertyMetrics, len(in.Properties)),
	}
	for i, p := range in.Properties {
		metrics.Properties[i] = PropertyMetrics{
			PropertyID: p.ID,
			Figures: Figures{
				PurchasePrice: p.PurchasePrice,
				CurrentValue:  p.Valuation(),
			},
		}
	}

	lookup := func(recordKind, propertyID string) *PropertyMetrics {
		i, ok := index[propertyID]
		if !ok {
			w := validation.MissingReferenceWarning(recordKind, propertyID)
			metrics.Warnings = append(metrics.Warnings, w)
			a.logger.Warn(w.Message,
				zap.String("op", "portfolio.Aggregate"),
				zap.String("property", propertyID),
			)
			return nil
		}
		return &metrics.Properties[i]
	}

	fees := make([]float64, len(in.Properties))
	for _, loan := range in.Loans {
		pm := lookup("loan", loan.PropertyID)
		if pm == nil {
			continue
		}
		i := index[loan.PropertyID]
		fees[i] = mathutil.Sum(fees[i], loan.UpFrontFees)
		pm.LoanBalance = mathutil.Sum(pm.LoanBalance, loan.Principal)
		pm.DebtService = mathutil.Sum(pm.DebtService, loan.AnnualDebtService())
	}

	occupancy := 1 - opts.VacancyPercent/constants.PercentageMultiplier
	yearStart, yearEnd := datetime.YearBounds(opts.Year)
	for _, lease := range in.Leases {
		pm := lookup("lease", lease.PropertyID)
		if pm == nil || !lease.IsActive || !datetime.Overlaps(lease.StartDate, lease.EndDate, yearStart, yearEnd) {
			continue
		}
		pm.ActiveLeases++
		pm.RentalIncome = mathutil.Sum(pm.RentalIncome, lease.MonthlyRent*constants.MonthsPerYear*occupancy)
	}

	for _, e := range in.RecurringExpenses {
		pm := lookup("recurring expense", e.PropertyID)
		if pm == nil {
			continue
		}
		annual, err := expense.Annualize(e)
		if err != nil {
			return Metrics{}, err
		}
		pm.OperatingExpenses = mathutil.Sum(pm.OperatingExpenses, annual)
	}

	for _, e := range in.OneOffExpenses {
		pm := lookup("one-off expense", e.PropertyID)
		if pm == nil || e.Date.Year() != opts.Year {
			continue
		}
		pm.OperatingExpenses = mathutil.Sum(pm.OperatingExpenses, e.Amount)
	}

	for i, p := range in.Properties {
		pm := &metrics.Properties[i]
		downPayment := p.PurchasePrice - pm.LoanBalance
		if downPayment < 0 {
			downPayment = 0
		}
		pm.TotalInvestment = mathutil.Sum(downPayment, p.ClosingCosts.Total(), fees[i])
		pm.derive()

		metrics.Totals.add(pm.Figures)

		a.logger.Debug(fmt.Sprintf("property %s NOI %.2f", p.ID, pm.NOI),
			zap.String("op", "portfolio.Aggregate"),
			zap.Float64("capRate", pm.CapRate),
			zap.Float64("cashOnCash", pm.CashOnCash),
		)
	}
	metrics.Totals.derive()

	a.logger.Info("portfolio aggregated",
		zap.String("op", "portfolio.Aggregate"),
		zap.Int("properties", len(metrics.Properties)),
		zap.Int("warnings", len(metrics.Warnings)),
		zap.Float64("noi", metrics.Totals.NOI),
	)

	return metrics, nil
}
