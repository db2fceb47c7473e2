package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

const sampleYAML = `
properties:
  - id: calle-mayor-3
    purchasePrice: 59000
    purchaseDate: "2022-09-15"
    closingCosts:
      notary: 800
      transferTax: 4130
    address: Calle Mayor 3
    city: Valencia
  - purchasePrice: 120000
loans:
  - propertyId: calle-mayor-3
    principal: 0
    termMonths: 1
leases:
  - propertyId: calle-mayor-3
    startDate: "2022-10-01"
    monthlyRent: 900
  - propertyId: calle-mayor-3
    startDate: "2021-01-01"
    endDate: "2022-06-30"
    monthlyRent: 850
    isActive: false
recurringExpenses:
  - propertyId: calle-mayor-3
    type: ibi
    amount: 250
    periodicity: yearly
  - propertyId: calle-mayor-3
    type: garbage
    amount: 40
    periodicity: biannual
    isDeductible: false
oneOffExpenses:
  - propertyId: calle-mayor-3
    date: "2024-02-11"
    amount: 180
    category: repair
deals:
  - name: Ruzafa flat
    purchasePrice: 150000
    downPaymentPercent: 30
    interestRate: 3.5
    loanTermYears: 25
    monthlyRent: 1100
billing:
  - orgId: acme
    plan: pro
    status: past_due
    graceUntil: "2025-03-20"
  - orgId: solo-owner
    plan: solo
    status: active
    propertyLimit: 12
`

func TestDecodeAndResolveYAML(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ds, err := doc.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(ds.Records.Properties) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(ds.Records.Properties))
	}
	p := ds.Records.Properties[0]
	if p.ID != "calle-mayor-3" || p.PurchaseDate.Format("2006-01-02") != "2022-09-15" || p.ClosingCosts.Total() != 4930 {
		t.Errorf("property = %+v", p)
	}
	if _, err := uuid.Parse(ds.Records.Properties[1].ID); err != nil {
		t.Errorf("expected generated uuid for property without id, got %q", ds.Records.Properties[1].ID)
	}

	leases := ds.Records.Leases
	if len(leases) != 2 || !leases[0].IsActive || leases[0].EndDate != nil {
		t.Errorf("first lease should default to active and open-ended: %+v", leases[0])
	}
	if leases[1].IsActive || leases[1].EndDate == nil || leases[1].EndDate.Format("2006-01-02") != "2022-06-30" {
		t.Errorf("second lease = %+v", leases[1])
	}

	recurring := ds.Records.RecurringExpenses
	if !recurring[0].IsDeductible || recurring[1].IsDeductible {
		t.Errorf("deductible defaults not applied: %+v", recurring)
	}
	if recurring[0].Type != model.ExpenseIBI || recurring[0].Periodicity != model.Yearly {
		t.Errorf("recurring expense = %+v", recurring[0])
	}

	if len(ds.Records.OneOffExpenses) != 1 || ds.Records.OneOffExpenses[0].Date.Year() != 2024 {
		t.Errorf("one-off expenses = %+v", ds.Records.OneOffExpenses)
	}

	if len(ds.Deals) != 1 || ds.Deals[0].Name != "Ruzafa flat" || ds.Deals[0].LoanTermYears != 25 {
		t.Errorf("deals = %+v", ds.Deals)
	}

	acme := ds.BillingFor("acme")
	if acme == nil || acme.GraceUntil == nil || acme.Status != model.StatusPastDue {
		t.Fatalf("acme billing = %+v", acme)
	}
	if acme.GraceUntil.Format("2006-01-02 15:04") != "2025-03-20 23:59" {
		t.Errorf("plain grace date should cover the whole day, got %v", acme.GraceUntil)
	}
	if solo := ds.BillingFor("solo-owner"); solo == nil || solo.PropertyLimit == nil || *solo.PropertyLimit != 12 {
		t.Errorf("solo-owner billing = %+v", solo)
	}
	if ds.BillingFor("nobody") != nil {
		t.Error("expected nil for unknown organization")
	}

	if err := ds.Records.Validate(); err != nil {
		t.Errorf("resolved records should be valid: %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	const body = `{
		"properties": [{"id": "a", "purchasePrice": 100000}],
		"leases": [{"propertyId": "a", "startDate": "2024-01-01", "monthlyRent": 700}],
		"deals": [{"name": "x", "purchasePrice": 90000, "downPaymentPercent": 100}]
	}`

	doc, err := Decode(strings.NewReader(body), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ds, err := doc.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ds.Records.Leases[0].MonthlyRent != 700 || ds.Deals[0].PurchasePrice != 90000 {
		t.Errorf("unexpected dataset %+v", ds)
	}

	if _, err := Decode(strings.NewReader(`{"tenants": []}`), FormatJSON); err == nil {
		t.Error("expected unknown field to be rejected")
	}
}

func TestResolveRejectsBadDates(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"Lease without start", Document{Leases: []LeaseEntry{{PropertyID: "a", MonthlyRent: 1}}}},
		{"Malformed lease end", Document{Leases: []LeaseEntry{{PropertyID: "a", StartDate: "2024-01-01", EndDate: "31/12/2024"}}}},
		{"Malformed expense date", Document{OneOffExpenses: []OneOffExpenseEntry{{PropertyID: "a", Date: "2024-13-01"}}}},
		{"Malformed grace", Document{Billing: []BillingEntry{{OrgID: "a", GraceUntil: "soon"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.doc.Resolve(); !validation.IsInvalidInput(err) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNonFiniteAmountsAreRejected(t *testing.T) {
	body := `
properties:
  - id: a
    purchasePrice: .inf
leases:
  - propertyId: a
    startDate: "2024-01-01"
    monthlyRent: .nan
deals:
  - name: broken
    purchasePrice: 200000
    downPaymentPercent: 20
    interestRate: 6
    loanTermYears: 30
    monthlyRent: .nan
`
	doc, err := Decode(strings.NewReader(body), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ds, err := doc.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := deal.Evaluate(ds.Deals[0].Inputs); !validation.IsInvalidInput(err) {
		t.Errorf("deal with NaN rent: expected ErrInvalidInput, got %v", err)
	}
	if err := ds.Records.Leases[0].Validate(); !validation.IsInvalidInput(err) {
		t.Errorf("lease with NaN rent: expected ErrInvalidInput, got %v", err)
	}
	if err := ds.Records.Validate(); !validation.IsInvalidInput(err) {
		t.Errorf("records with infinite price: expected ErrInvalidInput, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "portfolio.yaml")
	if err := os.WriteFile(yamlPath, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	ds, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ds.Billing) != 2 {
		t.Errorf("expected 2 billing records, got %d", len(ds.Billing))
	}

	jsonPath := filepath.Join(dir, "portfolio.JSON")
	if err := os.WriteFile(jsonPath, []byte(`{"properties":[{"id":"a"}]}`), 0o600); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	ds, err = Load(jsonPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ds.Records.Properties) != 1 {
		t.Errorf("expected 1 property, got %d", len(ds.Records.Properties))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
