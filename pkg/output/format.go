// Package output renders analytics results for the terminal or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/iwvelando/rental-analytics/internal/billing"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/income"
	"github.com/iwvelando/rental-analytics/internal/portfolio"
	"github.com/iwvelando/rental-analytics/internal/taxreport"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/format"
	"github.com/iwvelando/rental-analytics/pkg/loans"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

// Renderer writes results to w in one output format.
type Renderer struct {
	w      io.Writer
	format string
}

// NewRenderer returns a renderer for the pretty or json format.
func NewRenderer(w io.Writer, outputFormat string) (*Renderer, error) {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return nil, err
	}
	return &Renderer{w: w, format: outputFormat}, nil
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NamedDeal pairs deal results with the name they were evaluated under.
type NamedDeal struct {
	Name    string       `json:"name"`
	Results deal.Results `json:"results"`
}

// Deals renders the evaluation of one or more deals.
func (r *Renderer) Deals(deals []NamedDeal) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(deals)
	}

	for i, d := range deals {
		if i > 0 {
			fmt.Fprintln(r.w)
		}
		res := d.Results
		fmt.Fprintf(r.w, "--- Deal %s ---\n", d.Name)
		tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
		rows := [][2]string{
			{"Down payment", format.Currency(res.DownPayment)},
			{"Loan amount", format.Currency(res.LoanAmount)},
			{"Total investment", format.Currency(res.TotalInvestment)},
			{"Monthly mortgage", format.Currency(res.MonthlyMortgage)},
			{"Monthly property tax", format.Currency(res.MonthlyPropertyTax)},
			{"Management fee", format.Currency(res.ManagementFee)},
			{"Total monthly expenses", format.Currency(res.TotalMonthlyExpenses)},
			{"Monthly cash flow", format.Currency(res.MonthlyCashFlow)},
			{"Annual cash flow", format.Currency(res.AnnualCashFlow)},
			{"NOI", format.Currency(res.NOI)},
			{"Cap rate", format.Percent(res.CapRate)},
			{"Cash on cash", format.Percent(res.CashOnCash)},
			{"DSCR", format.Ratio(res.DSCR)},
			{"Break-even occupancy", format.Percent(res.BreakEvenOccupancy)},
			{"Profitable", yesNo(res.IsProfitable)},
		}
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Portfolio renders per-property metrics followed by the portfolio totals.
func (r *Renderer) Portfolio(m portfolio.Metrics) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(m)
	}

	fmt.Fprintf(r.w, "--- Portfolio %d ---\n", m.Year)
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Property\tValue\tInvestment\tIncome\tExpenses\tNOI\tCash flow\tCap rate\tCoC\tDSCR\t")
	row := func(name string, f portfolio.Figures) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			name,
			format.Currency(f.CurrentValue),
			format.Currency(f.TotalInvestment),
			format.Currency(f.RentalIncome),
			format.Currency(f.OperatingExpenses),
			format.Currency(f.NOI),
			format.Currency(f.CashFlow),
			format.Percent(f.CapRate),
			format.Percent(f.CashOnCash),
			format.Ratio(f.DSCR),
		)
	}
	for _, p := range m.Properties {
		row(p.PropertyID, p.Figures)
	}
	row("Total", m.Totals)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(r.w, "Equity %s, loan balance %s, gross yield %s, net yield %s\n",
		format.Currency(m.Totals.Equity),
		format.Currency(m.Totals.LoanBalance),
		format.Percent(m.Totals.GrossYield),
		format.Percent(m.Totals.NetYield),
	)
	r.warnings(m.Warnings)
	return nil
}

// Income renders the month-by-month rental income of a year.
func (r *Renderer) Income(res income.Result) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(res)
	}

	fmt.Fprintf(r.w, "--- Rental income %d ---\n", res.Year)
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Month\t")
	for _, p := range res.Properties {
		fmt.Fprintf(tw, "%s\t", p.PropertyID)
	}
	fmt.Fprintln(tw, "Total\t")
	for m := 0; m < constants.MonthsPerYear; m++ {
		fmt.Fprintf(tw, "%s\t", datetime.MonthLabel(res.Year, time.Month(m+1)))
		for _, p := range res.Properties {
			fmt.Fprintf(tw, "%s\t", format.NumericCurrency(p.Monthly[m]))
		}
		fmt.Fprintf(tw, "%s\t\n", format.NumericCurrency(res.Monthly[m]))
	}
	fmt.Fprint(tw, "Year\t")
	for _, p := range res.Properties {
		fmt.Fprintf(tw, "%s\t", format.NumericCurrency(p.Annual))
	}
	fmt.Fprintf(tw, "%s\t\n", format.NumericCurrency(res.Total))
	if err := tw.Flush(); err != nil {
		return err
	}
	r.warnings(res.Warnings)
	return nil
}

// Expenses renders normalized expenses per property with a breakdown by
// expense type and one-off category.
func (r *Renderer) Expenses(res expense.Result) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(res)
	}

	fmt.Fprintf(r.w, "--- Expenses %d ---\n", res.Year)
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Property\tRecurring\tOne-off\tDeductible\tNon-deductible\tTotal\t")
	row := func(name string, t expense.Totals) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			name,
			format.Currency(t.RecurringDeductibleAnnual+t.RecurringNonDeductibleAnnual),
			format.Currency(t.OneOffDeductible+t.OneOffNonDeductible),
			format.Currency(t.Deductible()),
			format.Currency(t.NonDeductible()),
			format.Currency(t.Total()),
		)
	}
	for _, p := range res.Properties {
		row(p.PropertyID, p.Totals)
	}
	row("Total", res.Totals)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, key := range sortedKeys(res.Totals.ByType) {
		fmt.Fprintf(r.w, "  %s: %s\n", key, format.Currency(res.Totals.ByType[key]))
	}
	for _, key := range sortedKeys(res.Totals.ByCategory) {
		fmt.Fprintf(r.w, "  %s: %s\n", key, format.Currency(res.Totals.ByCategory[key]))
	}
	r.warnings(res.Warnings)
	return nil
}

// TaxReport renders the annual taxable income report.
func (r *Renderer) TaxReport(rep taxreport.Report) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(rep)
	}

	fmt.Fprintf(r.w, "--- Tax report %d ---\n", rep.Year)
	fmt.Fprintf(r.w, "Report %s generated %s\n", rep.ID, rep.GeneratedAt.UTC().Format(time.RFC3339))
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Property\tIncome\tDeductions\tNon-deductible\tNet income\t")
	for _, p := range rep.Properties {
		name := p.PropertyID
		if p.Address != "" {
			name = p.Address
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			name,
			format.Currency(p.RentalIncome),
			format.Currency(p.Deductions),
			format.Currency(p.NonDeductible),
			format.Currency(p.NetIncome),
		)
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t%s\t\n",
		format.Currency(rep.TotalRentalIncome),
		format.Currency(rep.TotalDeductions),
		format.Currency(rep.TotalNonDeductible),
		format.Currency(rep.NetTaxableIncome),
	)
	if err := tw.Flush(); err != nil {
		return err
	}
	r.warnings(rep.Warnings)
	return nil
}

// LoanSchedule pairs an amortization schedule with its loan.
type LoanSchedule struct {
	Loan     loans.Loan     `json:"loan"`
	Schedule loans.Schedule `json:"schedule"`
}

// Schedules renders amortization tables. Pretty output prints one row per
// instalment.
func (r *Renderer) Schedules(schedules []LoanSchedule) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(schedules)
	}

	for i, ls := range schedules {
		if i > 0 {
			fmt.Fprintln(r.w)
		}
		l, s := ls.Loan, ls.Schedule
		fmt.Fprintf(r.w, "--- Loan on %s: %s at %s over %d months ---\n",
			l.PropertyID, format.Currency(l.Principal), format.Percent(l.AnnualRatePct), l.TermMonths)
		tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tDate\tPayment\tPrincipal\tInterest\tRemaining\t")
		for _, p := range s.Payments {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
				p.Number,
				p.Date.Format(constants.DateLayout),
				format.NumericCurrency(p.Payment),
				format.NumericCurrency(p.Principal),
				format.NumericCurrency(p.Interest),
				format.NumericCurrency(p.RemainingPrincipal),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(r.w, "Monthly payment %s, total interest %s, total cost %s\n",
			format.Currency(s.Summary.MonthlyPayment),
			format.Currency(s.Summary.TotalInterest),
			format.Currency(s.Summary.TotalCost),
		)
	}
	return nil
}

// Billing renders the access state of an organization.
func (r *Renderer) Billing(s billing.State) error {
	if r.format == constants.OutputFormatJSON {
		return r.JSON(s)
	}

	org := s.OrgID
	if org == "" {
		org = "(no subscription)"
	}
	fmt.Fprintf(r.w, "Organization: %s\n", org)
	fmt.Fprintf(r.w, "Plan:         %s (%s)\n", s.Plan, s.Status)
	fmt.Fprintf(r.w, "Access:       %s\n", s.State)
	if s.GraceUntil != nil && s.State == billing.StateGrace {
		fmt.Fprintf(r.w, "Grace until:  %s\n", s.GraceUntil.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(r.w, "Limits:       %d properties, %d seats\n", s.PropertyLimit, s.SeatLimit)
	return nil
}

func (r *Renderer) warnings(warnings []validation.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(r.w, "Warnings:\n")
	for _, w := range warnings {
		fmt.Fprintf(r.w, "  - %s\n", w)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
