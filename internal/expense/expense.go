// Package expense normalizes recurring and one-off expenses into annual
// deductible and non-deductible totals.
package expense

import (
	"fmt"
	"sort"

	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

// AnnualMultiplier returns how many times per year an expense of the given
// periodicity is charged.
func AnnualMultiplier(p model.Periodicity) (int, error) {
	switch p {
	case model.Monthly:
		return constants.MonthlyPeriodsPerYear, nil
	case model.Quarterly:
		return constants.QuarterlyPeriodsPerYear, nil
	case model.Biannual:
		return constants.BiannualPeriodsPerYear, nil
	case model.Yearly:
		return constants.YearlyPeriodsPerYear, nil
	default:
		return 0, validation.Invalidf("unknown periodicity %q", string(p))
	}
}

// Annualize returns the yearly cost of a recurring expense. Recurring
// expenses apply identically to every year.
func Annualize(e model.RecurringExpense) (float64, error) {
	multiplier, err := AnnualMultiplier(e.Periodicity)
	if err != nil {
		return 0, err
	}
	return mathutil.Multiply(e.Amount, multiplier), nil
}

// Totals are the normalized amounts for one property or the whole selection.
type Totals struct {
	OneOffDeductible             float64                           `json:"oneOffDeductible"`
	OneOffNonDeductible          float64                           `json:"oneOffNonDeductible"`
	RecurringDeductibleAnnual    float64                           `json:"recurringDeductibleAnnual"`
	RecurringNonDeductibleAnnual float64                           `json:"recurringNonDeductibleAnnual"`
	ByType                       map[model.ExpenseType]float64     `json:"byType,omitempty"`
	ByCategory                   map[model.ExpenseCategory]float64 `json:"byCategory,omitempty"`
}

// Deductible is the deductible one-off plus annualized recurring amount.
func (t Totals) Deductible() float64 {
	return mathutil.Sum(t.OneOffDeductible, t.RecurringDeductibleAnnual)
}

// NonDeductible is the non-deductible one-off plus annualized recurring amount.
func (t Totals) NonDeductible() float64 {
	return mathutil.Sum(t.OneOffNonDeductible, t.RecurringNonDeductibleAnnual)
}

// Total is every expense regardless of deductibility.
func (t Totals) Total() float64 {
	return mathutil.Sum(t.Deductible(), t.NonDeductible())
}

func (t *Totals) addRecurring(e model.RecurringExpense, annual float64) {
	if e.IsDeductible {
		t.RecurringDeductibleAnnual = mathutil.Sum(t.RecurringDeductibleAnnual, annual)
	} else {
		t.RecurringNonDeductibleAnnual = mathutil.Sum(t.RecurringNonDeductibleAnnual, annual)
	}
	if t.ByType == nil {
		t.ByType = make(map[model.ExpenseType]float64)
	}
	t.ByType[e.Type] = mathutil.Sum(t.ByType[e.Type], annual)
}

func (t *Totals) addOneOff(e model.OneOffExpense) {
	if e.IsDeductible {
		t.OneOffDeductible = mathutil.Sum(t.OneOffDeductible, e.Amount)
	} else {
		t.OneOffNonDeductible = mathutil.Sum(t.OneOffNonDeductible, e.Amount)
	}
	if t.ByCategory == nil {
		t.ByCategory = make(map[model.ExpenseCategory]float64)
	}
	t.ByCategory[e.Category] = mathutil.Sum(t.ByCategory[e.Category], e.Amount)
}

// PropertyExpenses are the totals of one property.
type PropertyExpenses struct {
	PropertyID string `json:"propertyId"`
	Totals
}

// Input selects the expenses to normalize. An empty PropertyIDs filter keeps
// every property.
type Input struct {
	Year        int
	Recurring   []model.RecurringExpense
	OneOff      []model.OneOffExpense
	PropertyIDs []string
}

// Result holds per-property totals sorted by property id plus the aggregate.
type Result struct {
	Year       int                  `json:"year"`
	Properties []PropertyExpenses   `json:"properties"`
	Totals     Totals               `json:"totals"`
	Warnings   []validation.Warning `json:"warnings,omitempty"`
}

// Property returns the totals of one property, or zero totals when it has no
// expenses.
func (r Result) Property(id string) Totals {
	for _, p := range r.Properties {
		if p.PropertyID == id {
			return p.Totals
		}
	}
	return Totals{}
}

// NormalizeYear annualizes recurring expenses and collects the one-off
// expenses dated in the input year. Expenses are assumed to be valid; a
// recurring expense that cannot be annualized is left out with a
// skipped_record warning.
func NormalizeYear(in Input) Result {
	filter := make(map[string]bool, len(in.PropertyIDs))
	for _, id := range in.PropertyIDs {
		filter[id] = true
	}
	selected := func(id string) bool { return len(filter) == 0 || filter[id] }

	result := Result{Year: in.Year}
	byProperty := make(map[string]*Totals)
	totalsFor := func(id string) *Totals {
		t, ok := byProperty[id]
		if !ok {
			t = &Totals{}
			byProperty[id] = t
		}
		return t
	}

	for _, e := range in.Recurring {
		if !selected(e.PropertyID) {
			continue
		}
		annual, err := Annualize(e)
		if err != nil {
			result.Warnings = append(result.Warnings, validation.Warning{
				Kind:       validation.SkippedRecord,
				PropertyID: e.PropertyID,
				Message:    fmt.Sprintf("recurring expense %s was excluded: %v", e.Type, err),
			})
			continue
		}
		totalsFor(e.PropertyID).addRecurring(e, annual)
		result.Totals.addRecurring(e, annual)
	}

	for _, e := range in.OneOff {
		if !selected(e.PropertyID) || e.Date.Year() != in.Year {
			continue
		}
		totalsFor(e.PropertyID).addOneOff(e)
		result.Totals.addOneOff(e)
	}

	ids := make([]string, 0, len(byProperty))
	for id := range byProperty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result.Properties = make([]PropertyExpenses, 0, len(ids))
	for _, id := range ids {
		result.Properties = append(result.Properties, PropertyExpenses{PropertyID: id, Totals: *byProperty[id]})
	}

	return result
}

// Normalizer validates expenses before normalizing them.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a normalizer. A nil logger disables logging.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize validates every expense and returns the normalized totals.
func (n *Normalizer) Normalize(in Input) (Result, error) {
	if in.Year <= 0 {
		return Result{}, validation.Invalidf("fiscal year must be positive, got %d", in.Year)
	}
	for i, e := range in.Recurring {
		if err := e.Validate(); err != nil {
			return Result{}, fmt.Errorf("recurring expense %d on property %s: %w", i, e.PropertyID, err)
		}
	}
	for i, e := range in.OneOff {
		if err := e.Validate(); err != nil {
			return Result{}, fmt.Errorf("one-off expense %d on property %s: %w", i, e.PropertyID, err)
		}
	}

	result := NormalizeYear(in)

	n.logger.Debug(fmt.Sprintf("normalized %d expenses for %d", len(in.Recurring)+len(in.OneOff), in.Year),
		zap.String("op", "expense.Normalize"),
		zap.Int("properties", len(result.Properties)),
		zap.Float64("deductible", result.Totals.Deductible()),
		zap.Float64("nonDeductible", result.Totals.NonDeductible()),
	)

	return result, nil
}
