// Package dataset loads portfolio records, hypothetical deals and billing
// records from YAML or JSON documents.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a dataset. Dates are YYYY-MM-DD strings.
type Document struct {
	Properties        []PropertyEntry         `json:"properties,omitempty" yaml:"properties,omitempty"`
	Loans             []LoanEntry             `json:"loans,omitempty" yaml:"loans,omitempty"`
	Leases            []LeaseEntry            `json:"leases,omitempty" yaml:"leases,omitempty"`
	RecurringExpenses []RecurringExpenseEntry `json:"recurringExpenses,omitempty" yaml:"recurringExpenses,omitempty"`
	OneOffExpenses    []OneOffExpenseEntry    `json:"oneOffExpenses,omitempty" yaml:"oneOffExpenses,omitempty"`
	Deals             []DealEntry             `json:"deals,omitempty" yaml:"deals,omitempty"`
	Billing           []BillingEntry          `json:"billing,omitempty" yaml:"billing,omitempty"`
}

// PropertyEntry is a property as written in a dataset.
type PropertyEntry struct {
	ID            string             `json:"id" yaml:"id"`
	PurchasePrice float64            `json:"purchasePrice" yaml:"purchasePrice"`
	PurchaseDate  string             `json:"purchaseDate" yaml:"purchaseDate"`
	CurrentValue  float64            `json:"currentValue" yaml:"currentValue"`
	ClosingCosts  model.ClosingCosts `json:"closingCosts" yaml:"closingCosts"`
	Address       string             `json:"address" yaml:"address"`
	City          string             `json:"city" yaml:"city"`
	Zip           string             `json:"zip" yaml:"zip"`
}

// LoanEntry is a loan as written in a dataset.
type LoanEntry struct {
	PropertyID         string  `json:"propertyId" yaml:"propertyId"`
	Principal          float64 `json:"principal" yaml:"principal"`
	AnnualRatePct      float64 `json:"annualRatePct" yaml:"annualRatePct"`
	TermMonths         int     `json:"termMonths" yaml:"termMonths"`
	StartDate          string  `json:"startDate" yaml:"startDate"`
	InterestOnlyMonths int     `json:"interestOnlyMonths" yaml:"interestOnlyMonths"`
	UpFrontFees        float64 `json:"upFrontFees" yaml:"upFrontFees"`
}

// LeaseEntry is a lease as written in a dataset. IsActive defaults to true.
type LeaseEntry struct {
	ID          string  `json:"id" yaml:"id"`
	PropertyID  string  `json:"propertyId" yaml:"propertyId"`
	TenantName  string  `json:"tenantName" yaml:"tenantName"`
	StartDate   string  `json:"startDate" yaml:"startDate"`
	EndDate     string  `json:"endDate" yaml:"endDate"`
	MonthlyRent float64 `json:"monthlyRent" yaml:"monthlyRent"`
	IsActive    *bool   `json:"isActive" yaml:"isActive"`
}

// RecurringExpenseEntry is a recurring expense as written in a dataset.
// IsDeductible defaults to true.
type RecurringExpenseEntry struct {
	ID           string            `json:"id" yaml:"id"`
	PropertyID   string            `json:"propertyId" yaml:"propertyId"`
	Type         model.ExpenseType `json:"type" yaml:"type"`
	Amount       float64           `json:"amount" yaml:"amount"`
	Periodicity  model.Periodicity `json:"periodicity" yaml:"periodicity"`
	IsDeductible *bool             `json:"isDeductible" yaml:"isDeductible"`
}

// OneOffExpenseEntry is a one-off expense as written in a dataset.
// IsDeductible defaults to true.
type OneOffExpenseEntry struct {
	ID           string                `json:"id" yaml:"id"`
	PropertyID   string                `json:"propertyId" yaml:"propertyId"`
	Date         string                `json:"date" yaml:"date"`
	Amount       float64               `json:"amount" yaml:"amount"`
	Category     model.ExpenseCategory `json:"category" yaml:"category"`
	Description  string                `json:"description" yaml:"description"`
	IsDeductible *bool                 `json:"isDeductible" yaml:"isDeductible"`
}

// DealEntry is a named hypothetical deal.
type DealEntry struct {
	Name        string `json:"name" yaml:"name"`
	deal.Inputs `yaml:",inline"`
}

// BillingEntry is a billing record as written in a dataset. GraceUntil is an
// RFC 3339 timestamp or a plain date.
type BillingEntry struct {
	OrgID         string                   `json:"orgId" yaml:"orgId"`
	Plan          model.Plan               `json:"plan" yaml:"plan"`
	Status        model.SubscriptionStatus `json:"status" yaml:"status"`
	GraceUntil    string                   `json:"graceUntil" yaml:"graceUntil"`
	PropertyLimit *int                     `json:"propertyLimit" yaml:"propertyLimit"`
	SeatLimit     *int                     `json:"seatLimit" yaml:"seatLimit"`
}

// Dataset is a resolved document.
type Dataset struct {
	Records model.Records
	Deals   []DealEntry
	Billing []model.BillingRecord
}

// Load reads a dataset file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset %s: %w", path, err)
	}
	defer f.Close()

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	doc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset %s: %w", path, err)
	}
	return doc.Resolve()
}

// Format names a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Decode reads a document in the given format.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return &doc, nil
	}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unable to decode JSON dataset: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unable to decode YAML dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	return &doc, nil
}

// Resolve parses dates, applies defaults and assigns ids to properties,
// leases and expenses that have none. It does not check references between
// records; the aggregations report those as warnings.
func (d *Document) Resolve() (*Dataset, error) {
	ds := &Dataset{Deals: d.Deals}

	for i, p := range d.Properties {
		purchaseDate, err := optionalDate(p.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", i, err)
		}
		ds.Records.Properties = append(ds.Records.Properties, model.Property{
			ID:            idOrNew(p.ID),
			PurchasePrice: p.PurchasePrice,
			PurchaseDate:  purchaseDate,
			CurrentValue:  p.CurrentValue,
			ClosingCosts:  p.ClosingCosts,
			Address:       p.Address,
			City:          p.City,
			Zip:           p.Zip,
		})
	}

	for i, l := range d.Loans {
		start, err := optionalDate(l.StartDate)
		if err != nil {
			return nil, fmt.Errorf("loan %d: %w", i, err)
		}
		ds.Records.Loans = append(ds.Records.Loans, model.Loan{
			PropertyID:         l.PropertyID,
			Principal:          l.Principal,
			AnnualRatePct:      l.AnnualRatePct,
			TermMonths:         l.TermMonths,
			StartDate:          start,
			InterestOnlyMonths: l.InterestOnlyMonths,
			UpFrontFees:        l.UpFrontFees,
		})
	}

	for i, l := range d.Leases {
		start, err := requiredDate("lease startDate", l.StartDate)
		if err != nil {
			return nil, fmt.Errorf("lease %d: %w", i, err)
		}
		end, err := datetime.ParseOptionalDate(l.EndDate)
		if err != nil {
			return nil, fmt.Errorf("lease %d: %v: %w", i, err, validation.ErrInvalidInput)
		}
		ds.Records.Leases = append(ds.Records.Leases, model.Lease{
			ID:          idOrNew(l.ID),
			PropertyID:  l.PropertyID,
			TenantName:  l.TenantName,
			StartDate:   start,
			EndDate:     end,
			MonthlyRent: l.MonthlyRent,
			IsActive:    boolOr(l.IsActive, true),
		})
	}

	for _, e := range d.RecurringExpenses {
		ds.Records.RecurringExpenses = append(ds.Records.RecurringExpenses, model.RecurringExpense{
			ID:           idOrNew(e.ID),
			PropertyID:   e.PropertyID,
			Type:         e.Type,
			Amount:       e.Amount,
			Periodicity:  e.Periodicity,
			IsDeductible: boolOr(e.IsDeductible, true),
		})
	}

	for i, e := range d.OneOffExpenses {
		date, err := requiredDate("one-off expense date", e.Date)
		if err != nil {
			return nil, fmt.Errorf("one-off expense %d: %w", i, err)
		}
		ds.Records.OneOffExpenses = append(ds.Records.OneOffExpenses, model.OneOffExpense{
			ID:           idOrNew(e.ID),
			PropertyID:   e.PropertyID,
			Date:         date,
			Amount:       e.Amount,
			Category:     e.Category,
			Description:  e.Description,
			IsDeductible: boolOr(e.IsDeductible, true),
		})
	}

	for i, b := range d.Billing {
		record, err := b.Record()
		if err != nil {
			return nil, fmt.Errorf("billing record %d: %w", i, err)
		}
		ds.Billing = append(ds.Billing, record)
	}

	return ds, nil
}

// Record converts the entry into a billing record.
func (b BillingEntry) Record() (model.BillingRecord, error) {
	record := model.BillingRecord{
		OrgID:         b.OrgID,
		Plan:          b.Plan,
		Status:        b.Status,
		PropertyLimit: b.PropertyLimit,
		SeatLimit:     b.SeatLimit,
	}
	if b.GraceUntil == "" {
		return record, nil
	}
	graceUntil, err := ParseTimestamp(b.GraceUntil)
	if err != nil {
		return model.BillingRecord{}, err
	}
	record.GraceUntil = &graceUntil
	return record, nil
}

// BillingFor returns the billing record of an organization, or nil.
func (ds *Dataset) BillingFor(orgID string) *model.BillingRecord {
	for i := range ds.Billing {
		if ds.Billing[i].OrgID == orgID {
			return &ds.Billing[i]
		}
	}
	return nil
}

// ParseTimestamp accepts RFC 3339 timestamps and plain dates. A plain date
// means the end of that day in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := datetime.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%v: %w", err, validation.ErrInvalidInput)
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func requiredDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, validation.Invalidf("%s is required", field)
	}
	t, err := datetime.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%v: %w", err, validation.ErrInvalidInput)
	}
	return t, nil
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := datetime.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%v: %w", err, validation.ErrInvalidInput)
	}
	return t, nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
