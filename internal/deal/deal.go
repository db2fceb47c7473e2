// Package deal evaluates the profitability of a single acquisition.
package deal

import (
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/loans"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

// Inputs are the parameters of a hypothetical or real deal. Amounts prefixed
// Monthly are per month, AnnualPropertyTax is per year.
type Inputs struct {
	PurchasePrice      float64 `json:"purchasePrice" yaml:"purchasePrice"`
	DownPaymentPercent float64 `json:"downPaymentPercent" yaml:"downPaymentPercent"`
	InterestRate       float64 `json:"interestRate" yaml:"interestRate"`
	LoanTermYears      int     `json:"loanTermYears" yaml:"loanTermYears"`
	ClosingCosts       float64 `json:"closingCosts" yaml:"closingCosts"`
	RenovationCosts    float64 `json:"renovationCosts" yaml:"renovationCosts"`
	MonthlyRent        float64 `json:"monthlyRent" yaml:"monthlyRent"`
	AnnualPropertyTax  float64 `json:"annualPropertyTax" yaml:"annualPropertyTax"`
	MonthlyInsurance   float64 `json:"monthlyInsurance" yaml:"monthlyInsurance"`
	MonthlyHOA         float64 `json:"monthlyHoa" yaml:"monthlyHoa"`
	MonthlyMaintenance float64 `json:"monthlyMaintenance" yaml:"monthlyMaintenance"`
	ManagementPercent  float64 `json:"managementPercent" yaml:"managementPercent"`
	MonthlyUtilities   float64 `json:"monthlyUtilities" yaml:"monthlyUtilities"`
}

// Results holds the derived figures. Ratios are percentages except DSCR.
type Results struct {
	DownPayment          float64 `json:"downPayment"`
	LoanAmount           float64 `json:"loanAmount"`
	TotalInvestment      float64 `json:"totalInvestment"`
	MonthlyMortgage      float64 `json:"monthlyMortgage"`
	MonthlyPropertyTax   float64 `json:"monthlyPropertyTax"`
	ManagementFee        float64 `json:"managementFee"`
	TotalMonthlyExpenses float64 `json:"totalMonthlyExpenses"`
	MonthlyCashFlow      float64 `json:"monthlyCashFlow"`
	AnnualCashFlow       float64 `json:"annualCashFlow"`
	NOI                  float64 `json:"noi"`
	CapRate              float64 `json:"capRate"`
	CashOnCash           float64 `json:"cashOnCash"`
	DSCR                 float64 `json:"dscr"`
	BreakEvenOccupancy   float64 `json:"breakEvenOccupancy"`
	IsProfitable         bool    `json:"isProfitable"`
}

// Validate rejects negative amounts and out-of-range percentages. A zero loan
// term is only accepted for a cash purchase.
func (in Inputs) Validate() error {
	if err := validation.FirstError(
		validation.NonNegative("purchasePrice", in.PurchasePrice),
		validation.Percentage("downPaymentPercent", in.DownPaymentPercent),
		validation.NonNegative("interestRate", in.InterestRate),
		validation.NonNegative("closingCosts", in.ClosingCosts),
		validation.NonNegative("renovationCosts", in.RenovationCosts),
		validation.NonNegative("monthlyRent", in.MonthlyRent),
		validation.NonNegative("annualPropertyTax", in.AnnualPropertyTax),
		validation.NonNegative("monthlyInsurance", in.MonthlyInsurance),
		validation.NonNegative("monthlyHoa", in.MonthlyHOA),
		validation.NonNegative("monthlyMaintenance", in.MonthlyMaintenance),
		validation.Percentage("managementPercent", in.ManagementPercent),
		validation.NonNegative("monthlyUtilities", in.MonthlyUtilities),
	); err != nil {
		return err
	}
	if in.LoanTermYears < 0 {
		return validation.Invalidf("loanTermYears must be >= 0, got %d", in.LoanTermYears)
	}
	if in.LoanTermYears == 0 && in.DownPaymentPercent < constants.PercentageMultiplier && in.PurchasePrice > 0 {
		return validation.Invalidf("loanTermYears must be > 0 when part of the price is financed")
	}
	return nil
}

// Evaluate computes the deal metrics. Degenerate denominators (zero price,
// rent, investment or debt service) yield 0 for the affected ratio.
func Evaluate(in Inputs) (Results, error) {
	if err := in.Validate(); err != nil {
		return Results{}, err
	}

	var r Results
	r.DownPayment = mathutil.ApplyPercentage(in.PurchasePrice, in.DownPaymentPercent)
	r.LoanAmount = in.PurchasePrice - r.DownPayment
	r.TotalInvestment = r.DownPayment + in.ClosingCosts + in.RenovationCosts

	r.MonthlyMortgage = loans.CalculateMonthlyPayment(r.LoanAmount, in.InterestRate, in.LoanTermYears*constants.MonthsPerYear)
	r.MonthlyPropertyTax = in.AnnualPropertyTax / constants.MonthsPerYear
	r.ManagementFee = mathutil.ApplyPercentage(in.MonthlyRent, in.ManagementPercent)

	operating := r.MonthlyPropertyTax + in.MonthlyInsurance + in.MonthlyHOA + in.MonthlyMaintenance +
		r.ManagementFee + in.MonthlyUtilities
	r.TotalMonthlyExpenses = r.MonthlyMortgage + operating

	r.MonthlyCashFlow = in.MonthlyRent - r.TotalMonthlyExpenses
	r.AnnualCashFlow = r.MonthlyCashFlow * constants.MonthsPerYear

	annualDebtService := r.MonthlyMortgage * constants.MonthsPerYear
	r.NOI = in.MonthlyRent*constants.MonthsPerYear - (r.TotalMonthlyExpenses*constants.MonthsPerYear - annualDebtService)

	r.CapRate = CapRate(r.NOI, in.PurchasePrice)
	r.CashOnCash = CashOnCash(r.AnnualCashFlow, r.TotalInvestment)
	r.DSCR = DSCR(r.NOI, annualDebtService)
	r.BreakEvenOccupancy = BreakEvenOccupancy(r.TotalMonthlyExpenses, in.MonthlyRent)
	r.IsProfitable = r.MonthlyCashFlow > 0 && r.CashOnCash > constants.ProfitableCashOnCashPct

	return r, nil
}

// CapRate is NOI over purchase price, as a percentage.
func CapRate(noi, purchasePrice float64) float64 {
	return mathutil.CalculatePercentage(noi, purchasePrice)
}

// CashOnCash is annual cash flow over cash invested, as a percentage.
func CashOnCash(annualCashFlow, totalInvestment float64) float64 {
	return mathutil.CalculatePercentage(annualCashFlow, totalInvestment)
}

// DSCR is NOI over annual debt service.
func DSCR(noi, annualDebtService float64) float64 {
	return mathutil.SafeDivide(noi, annualDebtService)
}

// BreakEvenOccupancy is the share of the rent needed to cover all monthly
// outgoings, as a percentage.
func BreakEvenOccupancy(totalMonthlyExpenses, monthlyRent float64) float64 {
	return mathutil.CalculatePercentage(totalMonthlyExpenses, monthlyRent)
}

// GrossYield is annual rent over current value, as a percentage.
func GrossYield(annualRentalIncome, currentValue float64) float64 {
	return mathutil.CalculatePercentage(annualRentalIncome, currentValue)
}

// NetYield is NOI over current value, as a percentage.
func NetYield(noi, currentValue float64) float64 {
	return mathutil.CalculatePercentage(noi, currentValue)
}
