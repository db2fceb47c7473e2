// Package model defines the records consumed by the analytics engine. Records
// arrive already fetched from storage and are never mutated by the engine.
package model

import (
	"time"

	"github.com/iwvelando/rental-analytics/pkg/loans"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

// Loan is the financing attached to a property.
type Loan = loans.Loan

// ClosingCosts is the breakdown of acquisition costs paid on top of the price.
type ClosingCosts struct {
	Notary      float64 `json:"notary" yaml:"notary"`
	Registry    float64 `json:"registry" yaml:"registry"`
	TransferTax float64 `json:"transferTax" yaml:"transferTax"`
	Agency      float64 `json:"agency" yaml:"agency"`
	Other       float64 `json:"other" yaml:"other"`
}

// Total sums every closing cost item.
func (c ClosingCosts) Total() float64 {
	return mathutil.Sum(c.Notary, c.Registry, c.TransferTax, c.Agency, c.Other)
}

// Validate rejects negative items.
func (c ClosingCosts) Validate() error {
	return validation.FirstError(
		validation.NonNegative("closingCosts.notary", c.Notary),
		validation.NonNegative("closingCosts.registry", c.Registry),
		validation.NonNegative("closingCosts.transferTax", c.TransferTax),
		validation.NonNegative("closingCosts.agency", c.Agency),
		validation.NonNegative("closingCosts.other", c.Other),
	)
}

// Property is an owned rental unit. Address fields are display-only.
type Property struct {
	ID            string       `json:"id"`
	PurchasePrice float64      `json:"purchasePrice"`
	PurchaseDate  time.Time    `json:"purchaseDate"`
	CurrentValue  float64      `json:"currentValue"`
	ClosingCosts  ClosingCosts `json:"closingCosts"`
	Address       string       `json:"address,omitempty"`
	City          string       `json:"city,omitempty"`
	Zip           string       `json:"zip,omitempty"`
}

// Valuation is the current value, falling back to the purchase price when no
// appraisal has been recorded.
func (p Property) Valuation() float64 {
	if p.CurrentValue > 0 {
		return p.CurrentValue
	}
	return p.PurchasePrice
}

// Validate checks the property amounts.
func (p Property) Validate() error {
	if p.ID == "" {
		return validation.Invalidf("property id is required")
	}
	return validation.FirstError(
		validation.NonNegative("property "+p.ID+" purchasePrice", p.PurchasePrice),
		validation.NonNegative("property "+p.ID+" currentValue", p.CurrentValue),
		p.ClosingCosts.Validate(),
	)
}

// Lease is a rental contract on a property. A nil EndDate is open-ended.
type Lease struct {
	ID          string     `json:"id,omitempty"`
	PropertyID  string     `json:"propertyId"`
	TenantName  string     `json:"tenantName,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	MonthlyRent float64    `json:"monthlyRent"`
	IsActive    bool       `json:"isActive"`
}

// Validate checks rent and date ordering.
func (l Lease) Validate() error {
	return validation.FirstError(
		validation.NonNegative("lease monthlyRent", l.MonthlyRent),
		validation.DateRange("lease on property "+l.PropertyID, l.StartDate, l.EndDate),
	)
}

// RecurringExpense is charged every period, every year.
type RecurringExpense struct {
	ID           string      `json:"id,omitempty"`
	PropertyID   string      `json:"propertyId"`
	Type         ExpenseType `json:"type"`
	Amount       float64     `json:"amount"`
	Periodicity  Periodicity `json:"periodicity"`
	IsDeductible bool        `json:"isDeductible"`
}

// Validate checks the amount and the enums.
func (e RecurringExpense) Validate() error {
	return validation.FirstError(
		validation.NonNegative("recurring expense amount", e.Amount),
		e.Type.Validate(),
		e.Periodicity.Validate(),
	)
}

// OneOffExpense is a single dated payment.
type OneOffExpense struct {
	ID           string          `json:"id,omitempty"`
	PropertyID   string          `json:"propertyId"`
	Date         time.Time       `json:"date"`
	Amount       float64         `json:"amount"`
	Category     ExpenseCategory `json:"category"`
	Description  string          `json:"description,omitempty"`
	IsDeductible bool            `json:"isDeductible"`
}

// Validate checks the amount, date and category.
func (e OneOffExpense) Validate() error {
	if e.Date.IsZero() {
		return validation.Invalidf("one-off expense on property %s has no date", e.PropertyID)
	}
	return validation.FirstError(
		validation.NonNegative("one-off expense amount", e.Amount),
		e.Category.Validate(),
	)
}

// BillingRecord is the subscription state of one organization. Nil limits
// fall back to the plan defaults.
type BillingRecord struct {
	OrgID         string             `json:"orgId"`
	Plan          Plan               `json:"plan"`
	Status        SubscriptionStatus `json:"status"`
	GraceUntil    *time.Time         `json:"graceUntil,omitempty"`
	PropertyLimit *int               `json:"propertyLimit,omitempty"`
	SeatLimit     *int               `json:"seatLimit,omitempty"`
}

// Records is the in-memory snapshot of a portfolio.
type Records struct {
	Properties        []Property         `json:"properties"`
	Loans             []Loan             `json:"loans,omitempty"`
	Leases            []Lease            `json:"leases,omitempty"`
	RecurringExpenses []RecurringExpense `json:"recurringExpenses,omitempty"`
	OneOffExpenses    []OneOffExpense    `json:"oneOffExpenses,omitempty"`
}

// PropertyIndex maps property ids to their position in Properties.
func (r Records) PropertyIndex() map[string]int {
	index := make(map[string]int, len(r.Properties))
	for i, p := range r.Properties {
		index[p.ID] = i
	}
	return index
}

// ValidateProperties checks every property and rejects duplicate ids.
func (r Records) ValidateProperties() error {
	seen := make(map[string]bool, len(r.Properties))
	for _, p := range r.Properties {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return validation.Invalidf("duplicate property id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Validate checks every record and stops at the first invalid one.
func (r Records) Validate() error {
	if err := r.ValidateProperties(); err != nil {
		return err
	}
	for _, l := range r.Loans {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	for _, l := range r.Leases {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	for _, e := range r.RecurringExpenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range r.OneOffExpenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}
