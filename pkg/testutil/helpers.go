// Package testutil provides fixtures and assertions shared by tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
)

// CashPurchaseDatasetJSON is a single property bought without a loan, let at
// 900 a month since October 2022 and paying 250 of IBI a year. Its 2024 net
// taxable income is 10550.
const CashPurchaseDatasetJSON = `{
	"properties": [{"id": "calle-mayor-3", "purchasePrice": 59000, "purchaseDate": "2022-09-15", "address": "Calle Mayor 3"}],
	"leases": [{"propertyId": "calle-mayor-3", "startDate": "2022-10-01", "monthlyRent": 900}],
	"recurringExpenses": [{"propertyId": "calle-mayor-3", "type": "ibi", "amount": 250, "periodicity": "yearly"}]
}`

// CashPurchaseDatasetYAML is CashPurchaseDatasetJSON plus a deal and a
// billing record, in YAML.
const CashPurchaseDatasetYAML = `
properties:
  - id: calle-mayor-3
    purchasePrice: 59000
    purchaseDate: "2022-09-15"
    address: Calle Mayor 3
leases:
  - propertyId: calle-mayor-3
    startDate: "2022-10-01"
    monthlyRent: 900
recurringExpenses:
  - propertyId: calle-mayor-3
    type: ibi
    amount: 250
    periodicity: yearly
deals:
  - name: Ruzafa flat
    purchasePrice: 200000
    downPaymentPercent: 20
    interestRate: 6
    loanTermYears: 30
    closingCosts: 6000
    renovationCosts: 4000
    monthlyRent: 1800
    annualPropertyTax: 2400
    monthlyInsurance: 80
    monthlyHoa: 100
    monthlyMaintenance: 90
    managementPercent: 8
billing:
  - orgId: acme
    plan: pro
    status: past_due
    graceUntil: "2025-03-20"
`

// CashPurchaseRecords returns the records of CashPurchaseDatasetJSON.
func CashPurchaseRecords() model.Records {
	return model.Records{
		Properties: []model.Property{
			{ID: "calle-mayor-3", PurchasePrice: 59000, PurchaseDate: datetime.MustParseDate("2022-09-15"), Address: "Calle Mayor 3"},
		},
		Leases: []model.Lease{
			{PropertyID: "calle-mayor-3", StartDate: datetime.MustParseDate("2022-10-01"), MonthlyRent: 900, IsActive: true},
		},
		RecurringExpenses: []model.RecurringExpense{
			{PropertyID: "calle-mayor-3", Type: model.ExpenseIBI, Amount: 250, Periodicity: model.Yearly, IsDeductible: true},
		},
	}
}

// WriteFile writes content to name inside a temporary directory owned by t
// and returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// AssertClose fails the test when got is further than tolerance from
// expected.
func AssertClose(t testing.TB, name string, got, expected, tolerance float64) {
	t.Helper()

	if !mathutil.WithinTolerance(got, expected, tolerance) {
		t.Errorf("%s = %.4f, expected %.4f (tolerance %g)", name, got, expected, tolerance)
	}
}
