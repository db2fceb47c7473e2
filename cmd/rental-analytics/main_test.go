package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/rental-analytics/internal/billing"
	"github.com/iwvelando/rental-analytics/internal/config"
	"github.com/iwvelando/rental-analytics/internal/portfolio"
	"github.com/iwvelando/rental-analytics/internal/taxreport"
	"github.com/iwvelando/rental-analytics/pkg/output"
	"github.com/iwvelando/rental-analytics/pkg/testutil"
)

var fixedNow = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd(&app{now: func() time.Time { return fixedNow }})
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeDataset(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, "portfolio.yaml", testutil.CashPurchaseDatasetYAML)
}

func TestDealCommand(t *testing.T) {
	data := writeDataset(t)

	out, err := execute(t, "--data", data, "--output-format", "json", "deal")
	if err != nil {
		t.Fatalf("deal error = %v", err)
	}
	var deals []output.NamedDeal
	if err := json.Unmarshal([]byte(out), &deals); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(deals) != 1 || deals[0].Name != "Ruzafa flat" {
		t.Fatalf("deals = %+v", deals)
	}
	testutil.AssertClose(t, "NOI", deals[0].Results.NOI, 14232, 0.001)
	testutil.AssertClose(t, "CapRate", deals[0].Results.CapRate, 7.116, 0.0001)

	if _, err := execute(t, "--data", data, "deal", "Nonexistent"); err == nil {
		t.Error("expected error when no deal matches")
	}
}

func TestDealCommandPretty(t *testing.T) {
	out, err := execute(t, "--data", writeDataset(t), "deal", "Ruzafa flat")
	if err != nil {
		t.Fatalf("deal error = %v", err)
	}
	if !strings.Contains(out, "--- Deal Ruzafa flat ---") || !strings.Contains(out, "€959.28") {
		t.Errorf("unexpected pretty output:\n%s", out)
	}
}

func TestPortfolioCommand(t *testing.T) {
	out, err := execute(t, "--data", writeDataset(t), "--output-format", "json", "portfolio", "--year", "2024", "--vacancy", "10")
	if err != nil {
		t.Fatalf("portfolio error = %v", err)
	}
	var metrics portfolio.Metrics
	if err := json.Unmarshal([]byte(out), &metrics); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	testutil.AssertClose(t, "RentalIncome", metrics.Totals.RentalIncome, 9720, 0.001)
	testutil.AssertClose(t, "NOI", metrics.Totals.NOI, 9470, 0.001)
}

func TestTaxReportCommand(t *testing.T) {
	out, err := execute(t, "--data", writeDataset(t), "--output-format", "json", "tax-report", "--year", "2024")
	if err != nil {
		t.Fatalf("tax-report error = %v", err)
	}
	var report taxreport.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.TotalRentalIncome != 10800 || report.TotalDeductions != 250 || report.NetTaxableIncome != 10550 {
		t.Errorf("report totals = %.2f/%.2f/%.2f, expected 10800/250/10550",
			report.TotalRentalIncome, report.TotalDeductions, report.NetTaxableIncome)
	}
	if !report.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, expected %v", report.GeneratedAt, fixedNow)
	}
}

func TestTaxReportDefaultsToLastYear(t *testing.T) {
	out, err := execute(t, "--data", writeDataset(t), "--output-format", "json", "tax-report")
	if err != nil {
		t.Fatalf("tax-report error = %v", err)
	}
	var report taxreport.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Year != 2024 {
		t.Errorf("Year = %d, expected the year before %d", report.Year, fixedNow.Year())
	}
}

func TestIncomeAndExpensesCommands(t *testing.T) {
	data := writeDataset(t)

	out, err := execute(t, "--data", data, "income", "--year", "2024")
	if err != nil {
		t.Fatalf("income error = %v", err)
	}
	if !strings.Contains(out, "2024-06") || !strings.Contains(out, "10,800.00") {
		t.Errorf("unexpected income output:\n%s", out)
	}

	out, err = execute(t, "--data", data, "expenses", "--year", "2024", "--property", "calle-mayor-3")
	if err != nil {
		t.Fatalf("expenses error = %v", err)
	}
	if !strings.Contains(out, "ibi: €250.00") {
		t.Errorf("unexpected expenses output:\n%s", out)
	}
}

func TestBillingCommand(t *testing.T) {
	data := writeDataset(t)

	tests := []struct {
		name     string
		args     []string
		expected billing.AccessState
		plan     string
	}{
		{"Within grace", []string{"--org", "acme"}, billing.StateGrace, "pro"},
		{"After grace", []string{"--org", "acme", "--now", "2025-03-21T00:00:00Z"}, billing.StateBlocked, "pro"},
		{"Unknown organization", []string{"--org", "nobody"}, billing.StateActive, "free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--data", data, "--output-format", "json", "billing"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("billing error = %v", err)
			}
			var state billing.State
			if err := json.Unmarshal([]byte(out), &state); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if state.State != tt.expected || string(state.Plan) != tt.plan {
				t.Errorf("state = %s on %s, expected %s on %s", state.State, state.Plan, tt.expected, tt.plan)
			}
		})
	}

	if _, err := execute(t, "--data", data, "billing"); err == nil {
		t.Error("expected error without --org")
	}
}

func TestScheduleCommand(t *testing.T) {
	data := testutil.WriteFile(t, "loans.json", `{
		"properties": [{"id": "plaza-9", "purchasePrice": 150000}],
		"loans": [{"propertyId": "plaza-9", "principal": 1200, "termMonths": 12, "startDate": "2024-01-15"}]
	}`)

	out, err := execute(t, "--data", data, "--output-format", "json", "schedule", "--property", "plaza-9")
	if err != nil {
		t.Fatalf("schedule error = %v", err)
	}
	var schedules []output.LoanSchedule
	if err := json.Unmarshal([]byte(out), &schedules); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(schedules) != 1 || len(schedules[0].Schedule.Payments) != 12 {
		t.Fatalf("schedules = %+v", schedules)
	}
	testutil.AssertClose(t, "MonthlyPayment", schedules[0].Schedule.Summary.MonthlyPayment, 100, 0.0001)
}

func TestCommandErrors(t *testing.T) {
	data := writeDataset(t)

	tests := []struct {
		name string
		args []string
	}{
		{"Unknown output format", []string{"--data", data, "--output-format", "csv", "deal"}},
		{"Missing dataset", []string{"--data", filepath.Join(t.TempDir(), "missing.yaml"), "portfolio"}},
		{"Explicit missing config", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--data", data, "deal"}},
		{"Invalid year", []string{"--data", data, "tax-report", "--year", "-1"}},
		{"Invalid vacancy", []string{"--data", data, "portfolio", "--vacancy", "120"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestConfigFileSuppliesDefaults(t *testing.T) {
	data := writeDataset(t)
	conf := testutil.WriteFile(t, "config.yaml", "output:\n  format: json\ndata:\n  file: "+data+"\nanalysis:\n  fiscalYear: 2023\n")

	out, err := execute(t, "--config", conf, "tax-report")
	if err != nil {
		t.Fatalf("tax-report error = %v", err)
	}
	var report taxreport.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Year != 2023 || report.TotalRentalIncome != 10800 {
		t.Errorf("report = year %d income %.2f, expected 2023 and 10800", report.Year, report.TotalRentalIncome)
	}
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    config.LoggingConfig
		override  string
		wantError bool
	}{
		{"Defaults", config.LoggingConfig{}, "", false},
		{"Console debug", config.LoggingConfig{Level: "debug", Format: "console"}, "", false},
		{"Warning alias", config.LoggingConfig{Level: "warning"}, "", false},
		{"Override wins", config.LoggingConfig{Level: "verbose"}, "error", false},
		{"Invalid level", config.LoggingConfig{Level: "verbose"}, "", true},
		{"Invalid format", config.LoggingConfig{Format: "xml"}, "", true},
		{"Output file", config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "app.log")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.config, tt.override)
			if tt.wantError {
				if err == nil {
					t.Error("initializeLogger() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			logger.Info("test")
			_ = logger.Sync()
		})
	}
}
