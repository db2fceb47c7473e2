package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/rental-analytics/internal/billing"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/income"
	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/internal/portfolio"
	"github.com/iwvelando/rental-analytics/internal/taxreport"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/loans"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

func render(t *testing.T, format string, fn func(r *Renderer) error) string {
	t.Helper()

	var buf bytes.Buffer
	r, err := NewRenderer(&buf, format)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if err := fn(r); err != nil {
		t.Fatalf("render error = %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, output string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(output, w) {
			t.Errorf("output missing %q:\n%s", w, output)
		}
	}
}

func TestNewRendererRejectsUnknownFormat(t *testing.T) {
	if _, err := NewRenderer(&bytes.Buffer{}, "csv"); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}

func TestDealsPretty(t *testing.T) {
	deals := []NamedDeal{
		{Name: "Ruzafa flat", Results: deal.Results{MonthlyMortgage: 959.28, NOI: 14232, CapRate: 7.116, DSCR: 1.2363, IsProfitable: false}},
		{Name: "Cash studio", Results: deal.Results{NOI: 10550, IsProfitable: true}},
	}

	output := render(t, "pretty", func(r *Renderer) error { return r.Deals(deals) })
	assertContains(t, output,
		"--- Deal Ruzafa flat ---",
		"€959.28",
		"€14,232.00",
		"7.12%",
		"1.24x",
		"--- Deal Cash studio ---",
		"yes",
	)
}

func TestDealsJSON(t *testing.T) {
	deals := []NamedDeal{{Name: "x", Results: deal.Results{NOI: 1}}}
	output := render(t, "json", func(r *Renderer) error { return r.Deals(deals) })

	var decoded []NamedDeal
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if len(decoded) != 1 || decoded[0].Name != "x" || decoded[0].Results.NOI != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPortfolioPretty(t *testing.T) {
	m := portfolio.Metrics{
		Year: 2024,
		Properties: []portfolio.PropertyMetrics{
			{PropertyID: "calle-mayor-3", Figures: portfolio.Figures{RentalIncome: 10800, NOI: 10550}},
		},
		Totals:   portfolio.Figures{RentalIncome: 10800, NOI: 10550, Equity: 59000},
		Warnings: []validation.Warning{validation.MissingReferenceWarning("lease", "ghost")},
	}

	output := render(t, "pretty", func(r *Renderer) error { return r.Portfolio(m) })
	assertContains(t, output, "--- Portfolio 2024 ---", "calle-mayor-3", "€10,550.00", "Equity €59,000.00", "Warnings:", "ghost")
}

func TestIncomePretty(t *testing.T) {
	res := income.Result{
		Year:       2024,
		Properties: []income.PropertyIncome{{PropertyID: "a", Monthly: income.Monthly{900, 900}, Annual: 1800}},
		Monthly:    income.Monthly{900, 900},
		Total:      1800,
	}

	output := render(t, "pretty", func(r *Renderer) error { return r.Income(res) })
	assertContains(t, output, "--- Rental income 2024 ---", "2024-01", "2024-12", "900.00", "1,800.00")
}

func TestExpensesPretty(t *testing.T) {
	totals := expense.Totals{
		RecurringDeductibleAnnual: 250,
		OneOffDeductible:          180,
		ByType:                    map[model.ExpenseType]float64{model.ExpenseIBI: 250},
		ByCategory:                map[model.ExpenseCategory]float64{model.CategoryRepair: 180},
	}
	res := expense.Result{
		Year:       2024,
		Properties: []expense.PropertyExpenses{{PropertyID: "a", Totals: totals}},
		Totals:     totals,
		Warnings:   []validation.Warning{{Kind: validation.SkippedRecord, PropertyID: "a", Message: "recurring expense community was excluded"}},
	}

	output := render(t, "pretty", func(r *Renderer) error { return r.Expenses(res) })
	assertContains(t, output, "--- Expenses 2024 ---", "€430.00", "ibi: €250.00", "repair: €180.00", "Warnings:", "skipped_record [a]")
}

func TestTaxReportPretty(t *testing.T) {
	rep := taxreport.Report{
		ID:                "c0ffee",
		Year:              2024,
		GeneratedAt:       time.Date(2025, time.April, 2, 10, 30, 0, 0, time.UTC),
		TotalRentalIncome: 10800,
		TotalDeductions:   250,
		NetTaxableIncome:  10550,
		Properties: []taxreport.PropertyReport{
			{PropertyID: "calle-mayor-3", Address: "Calle Mayor 3", RentalIncome: 10800, Deductions: 250, NetIncome: 10550},
		},
	}

	output := render(t, "pretty", func(r *Renderer) error { return r.TaxReport(rep) })
	assertContains(t, output, "--- Tax report 2024 ---", "c0ffee", "2025-04-02T10:30:00Z", "Calle Mayor 3", "€10,550.00")
	if strings.Contains(output, "Warnings:") {
		t.Errorf("unexpected warnings section:\n%s", output)
	}
}

func TestBillingPretty(t *testing.T) {
	grace := time.Date(2025, time.March, 20, 23, 59, 59, 0, time.UTC)
	tests := []struct {
		name  string
		state billing.State
		want  []string
		skip  string
	}{
		{
			name:  "Grace",
			state: billing.State{OrgID: "acme", Plan: model.PlanPro, Status: model.StatusPastDue, State: billing.StateGrace, GraceUntil: &grace, PropertyLimit: 50, SeatLimit: 3},
			want:  []string{"acme", "pro (past_due)", "grace", "2025-03-20T23:59:59Z", "50 properties, 3 seats"},
		},
		{
			name:  "Blocked hides grace",
			state: billing.State{Plan: model.PlanPro, Status: model.StatusCanceled, State: billing.StateBlocked, GraceUntil: &grace},
			want:  []string{"(no subscription)", "blocked"},
			skip:  "Grace until",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := render(t, "pretty", func(r *Renderer) error { return r.Billing(tt.state) })
			assertContains(t, output, tt.want...)
			if tt.skip != "" && strings.Contains(output, tt.skip) {
				t.Errorf("output should not contain %q:\n%s", tt.skip, output)
			}
		})
	}
}

func TestSchedulesPretty(t *testing.T) {
	loan := loans.Loan{PropertyID: "plaza-9", Principal: 1200, TermMonths: 12, StartDate: datetime.MustParseDate("2024-01-15")}
	schedule, err := loans.NewAmortizationScheduleGenerator(nil).GenerateSchedule(loan)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	output := render(t, "pretty", func(r *Renderer) error {
		return r.Schedules([]LoanSchedule{{Loan: loan, Schedule: schedule}})
	})
	assertContains(t, output,
		"--- Loan on plaza-9: €1,200.00 at 0.00% over 12 months ---",
		"2024-02-15",
		"100.00",
		"Monthly payment €100.00",
	)
	if got := strings.Count(output, "\n"); got != 15 {
		t.Errorf("expected title, header, 12 instalments and summary (15 lines), got %d:\n%s", got, output)
	}
}
