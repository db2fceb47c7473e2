package model

import "github.com/iwvelando/rental-analytics/pkg/validation"

// ExpenseType classifies a recurring expense.
type ExpenseType string

const (
	ExpenseCommunity ExpenseType = "community"
	ExpenseIBI       ExpenseType = "ibi"
	ExpenseInsurance ExpenseType = "insurance"
	ExpenseGarbage   ExpenseType = "garbage"
	ExpenseAdminFee  ExpenseType = "adminFee"
	ExpenseOther     ExpenseType = "other"
)

// Validate returns an error for an unknown expense type.
func (t ExpenseType) Validate() error {
	switch t {
	case ExpenseCommunity, ExpenseIBI, ExpenseInsurance, ExpenseGarbage, ExpenseAdminFee, ExpenseOther:
		return nil
	default:
		return validation.Invalidf("unknown expense type %q", string(t))
	}
}

// Periodicity is how often a recurring expense is charged.
type Periodicity string

const (
	Monthly   Periodicity = "monthly"
	Quarterly Periodicity = "quarterly"
	Biannual  Periodicity = "biannual"
	Yearly    Periodicity = "yearly"
)

// Validate returns an error for an unknown periodicity.
func (p Periodicity) Validate() error {
	switch p {
	case Monthly, Quarterly, Biannual, Yearly:
		return nil
	default:
		return validation.Invalidf("unknown periodicity %q", string(p))
	}
}

// ExpenseCategory classifies a one-off expense.
type ExpenseCategory string

const (
	CategoryRepair      ExpenseCategory = "repair"
	CategoryMaintenance ExpenseCategory = "maintenance"
	CategoryImprovement ExpenseCategory = "improvement"
	CategoryFurnishing  ExpenseCategory = "furnishing"
	CategoryLegal       ExpenseCategory = "legal"
	CategoryTax         ExpenseCategory = "tax"
	CategoryOther       ExpenseCategory = "other"
)

// Validate returns an error for an unknown category.
func (c ExpenseCategory) Validate() error {
	switch c {
	case CategoryRepair, CategoryMaintenance, CategoryImprovement, CategoryFurnishing,
		CategoryLegal, CategoryTax, CategoryOther:
		return nil
	default:
		return validation.Invalidf("unknown expense category %q", string(c))
	}
}

// Plan is the subscription tier of an organization.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanSolo   Plan = "solo"
	PlanPro    Plan = "pro"
	PlanAgency Plan = "agency"
)

// Validate returns an error for an unknown plan.
func (p Plan) Validate() error {
	switch p {
	case PlanFree, PlanSolo, PlanPro, PlanAgency:
		return nil
	default:
		return validation.Invalidf("unknown plan %q", string(p))
	}
}

// SubscriptionStatus mirrors the status reported by the payment provider.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusUnpaid   SubscriptionStatus = "unpaid"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Validate returns an error for an unknown status.
func (s SubscriptionStatus) Validate() error {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusUnpaid, StatusCanceled:
		return nil
	default:
		return validation.Invalidf("unknown subscription status %q", string(s))
	}
}

// Delinquent reports whether the status is one where a grace window applies.
func (s SubscriptionStatus) Delinquent() bool {
	return s == StatusPastDue || s == StatusUnpaid
}
