// Package loans provides fixed-payment loan calculations and amortization
// schedules.
package loans

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

// Loan holds the parameters of a property loan. It is never mutated by the
// calculations in this package.
type Loan struct {
	PropertyID         string    `json:"propertyId" yaml:"propertyId"`
	Principal          float64   `json:"principal" yaml:"principal"`
	AnnualRatePct      float64   `json:"annualRatePct" yaml:"annualRatePct"`
	TermMonths         int       `json:"termMonths" yaml:"termMonths"`
	StartDate          time.Time `json:"startDate" yaml:"startDate"`
	InterestOnlyMonths int       `json:"interestOnlyMonths" yaml:"interestOnlyMonths"`
	UpFrontFees        float64   `json:"upFrontFees" yaml:"upFrontFees"`
}

// Payment holds the values for a given instalment.
type Payment struct {
	Number             int       `json:"number"`
	Date               time.Time `json:"date"`
	Payment            float64   `json:"payment"`
	Principal          float64   `json:"principal"`
	Interest           float64   `json:"interest"`
	RemainingPrincipal float64   `json:"remainingPrincipal"`
	InterestOnly       bool      `json:"interestOnly,omitempty"`
}

// Summary aggregates a generated schedule.
type Summary struct {
	MonthlyPayment      float64 `json:"monthlyPayment"`
	InterestOnlyPayment float64 `json:"interestOnlyPayment"`
	TotalPaid           float64 `json:"totalPaid"`
	TotalInterest       float64 `json:"totalInterest"`
	TotalCost           float64 `json:"totalCost"`
}

// Schedule is a full amortization table plus its summary.
type Schedule struct {
	Payments []Payment `json:"payments"`
	Summary  Summary   `json:"summary"`
}

// MonthlyRate converts an annual nominal percentage into the monthly rate.
func MonthlyRate(annualRatePct float64) float64 {
	return annualRatePct / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// CalculateMonthlyPayment calculates the fixed monthly payment that retires
// principal over termMonths using the standard amortization formula.
// Negative inputs are a caller contract violation; use Loan.Validate first.
func CalculateMonthlyPayment(principal, annualRatePct float64, termMonths int) float64 {
	if principal == 0 || termMonths <= 0 {
		return 0
	}

	i := MonthlyRate(annualRatePct)
	if i == 0 {
		return principal / float64(termMonths)
	}

	power := math.Pow(1+i, float64(termMonths))
	return principal * i * power / (power - 1)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualRatePct float64) float64 {
	return remainingPrincipal * MonthlyRate(annualRatePct)
}

// Validate checks the loan terms: non-negative amounts and
// termMonths > interestOnlyMonths >= 0.
func (l Loan) Validate() error {
	if err := validation.FirstError(
		validation.NonNegative("loan principal", l.Principal),
		validation.NonNegative("loan annualRatePct", l.AnnualRatePct),
		validation.NonNegative("loan upFrontFees", l.UpFrontFees),
	); err != nil {
		return err
	}
	if l.TermMonths <= 0 {
		return validation.Invalidf("loan termMonths must be > 0, got %d", l.TermMonths)
	}
	if l.InterestOnlyMonths < 0 {
		return validation.Invalidf("loan interestOnlyMonths must be >= 0, got %d", l.InterestOnlyMonths)
	}
	if l.InterestOnlyMonths >= l.TermMonths {
		return validation.Invalidf("loan termMonths (%d) must exceed interestOnlyMonths (%d)",
			l.TermMonths, l.InterestOnlyMonths)
	}
	return nil
}

// AmortizingMonths is the number of months during which principal is repaid.
func (l Loan) AmortizingMonths() int {
	return l.TermMonths - l.InterestOnlyMonths
}

// MonthlyPayment is the fixed payment once the interest-only period is over.
func (l Loan) MonthlyPayment() float64 {
	return CalculateMonthlyPayment(l.Principal, l.AnnualRatePct, l.AmortizingMonths())
}

// InterestOnlyPayment is the payment due during the interest-only period.
func (l Loan) InterestOnlyPayment() float64 {
	if l.InterestOnlyMonths == 0 {
		return 0
	}
	return CalculateInterestPayment(l.Principal, l.AnnualRatePct)
}

// AnnualDebtService is twelve amortizing payments.
func (l Loan) AnnualDebtService() float64 {
	return l.MonthlyPayment() * constants.MonthsPerYear
}

// OutstandingBalance returns the principal still owed after paymentsMade
// instalments.
func (l Loan) OutstandingBalance(paymentsMade int) float64 {
	if paymentsMade <= l.InterestOnlyMonths {
		return l.Principal
	}
	if paymentsMade >= l.TermMonths {
		return 0
	}

	j := float64(paymentsMade - l.InterestOnlyMonths)
	m := l.MonthlyPayment()
	i := MonthlyRate(l.AnnualRatePct)
	var balance float64
	if i == 0 {
		balance = l.Principal - m*j
	} else {
		growth := math.Pow(1+i, j)
		balance = l.Principal*growth - m*(growth-1)/i
	}
	if balance < 0 || mathutil.IsZero(balance) {
		return 0
	}
	return balance
}

// AmortizationScheduleGenerator provides utilities for generating loan amortization schedules
type AmortizationScheduleGenerator struct {
	logger *zap.Logger
}

// NewAmortizationScheduleGenerator creates a new generator instance
func NewAmortizationScheduleGenerator(logger *zap.Logger) *AmortizationScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmortizationScheduleGenerator{logger: logger}
}

// GenerateSchedule creates a complete amortization schedule for a loan. The
// first instalment falls one month after the start date.
func (g *AmortizationScheduleGenerator) GenerateSchedule(loan Loan) (Schedule, error) {
	if err := loan.Validate(); err != nil {
		return Schedule{}, fmt.Errorf("cannot generate schedule for property %s: %w", loan.PropertyID, err)
	}

	schedule := Schedule{
		Payments: make([]Payment, 0, loan.TermMonths),
		Summary: Summary{
			MonthlyPayment:      loan.MonthlyPayment(),
			InterestOnlyPayment: loan.InterestOnlyPayment(),
		},
	}

	if loan.Principal == 0 {
		g.logger.Debug("loan has no principal, schedule is empty",
			zap.String("op", "loans.GenerateSchedule"),
			zap.String("property", loan.PropertyID),
		)
		schedule.Summary.TotalCost = loan.UpFrontFees
		return schedule, nil
	}

	remaining := loan.Principal
	for n := 1; n <= loan.TermMonths; n++ {
		p := Payment{
			Number:   n,
			Date:     loan.StartDate.AddDate(0, n, 0),
			Interest: CalculateInterestPayment(remaining, loan.AnnualRatePct),
		}

		switch {
		case n <= loan.InterestOnlyMonths:
			p.InterestOnly = true
			p.Payment = p.Interest
		case n == loan.TermMonths:
			// Settle the residue left by floating point so the loan closes at zero.
			p.Principal = remaining
			p.Payment = p.Principal + p.Interest
		default:
			p.Payment = schedule.Summary.MonthlyPayment
			p.Principal = p.Payment - p.Interest
		}

		remaining -= p.Principal
		if mathutil.IsZero(remaining) || remaining < 0 {
			remaining = 0
		}
		p.RemainingPrincipal = remaining

		schedule.Summary.TotalPaid += p.Payment
		schedule.Summary.TotalInterest += p.Interest
		schedule.Payments = append(schedule.Payments, p)
	}
	schedule.Summary.TotalCost = schedule.Summary.TotalPaid + loan.UpFrontFees

	g.logger.Debug(fmt.Sprintf("generated %d payments for property %s", len(schedule.Payments), loan.PropertyID),
		zap.String("op", "loans.GenerateSchedule"),
		zap.Float64("monthlyPayment", schedule.Summary.MonthlyPayment),
		zap.Float64("totalInterest", schedule.Summary.TotalInterest),
	)

	return schedule, nil
}
