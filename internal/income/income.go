// Package income reconstructs contracted rental income for a fiscal year from
// lease intervals.
//
// A lease contributes its full monthly rent to every calendar month its
// half-open interval [start, end) touches. There is no proration within a
// month and no vacancy adjustment. Leases are independent records, so two
// overlapping leases on one property both count.
package income

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/datetime"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

// Monthly holds one amount per calendar month, January first.
type Monthly [constants.MonthsPerYear]float64

// Total sums the twelve months.
func (m Monthly) Total() float64 {
	return mathutil.Sum(m[:]...)
}

// PropertyIncome is the reconstructed income of one property.
type PropertyIncome struct {
	PropertyID string  `json:"propertyId"`
	Monthly    Monthly `json:"monthly"`
	Annual     float64 `json:"annual"`
	Leases     int     `json:"leases"`
}

// Result is the reconstructed income for one year, per property (sorted by
// id) and in aggregate.
type Result struct {
	Year       int                  `json:"year"`
	Properties []PropertyIncome     `json:"properties"`
	Monthly    Monthly              `json:"monthly"`
	Total      float64              `json:"total"`
	Warnings   []validation.Warning `json:"warnings,omitempty"`
}

// Property returns the income of one property, or a zero value when no lease
// touched it.
func (r Result) Property(id string) PropertyIncome {
	for _, p := range r.Properties {
		if p.PropertyID == id {
			return p
		}
	}
	return PropertyIncome{PropertyID: id}
}

// MonthOverlaps reports whether the lease is active for any part of the month.
func MonthOverlaps(lease model.Lease, year int, month time.Month) bool {
	start, end := datetime.MonthBounds(year, month)
	return datetime.Overlaps(lease.StartDate, lease.EndDate, start, end)
}

// LeaseIncome returns the contribution of a single lease to each month of the
// year.
func LeaseIncome(lease model.Lease, year int) Monthly {
	var m Monthly
	yearStart, yearEnd := datetime.YearBounds(year)
	if !datetime.Overlaps(lease.StartDate, lease.EndDate, yearStart, yearEnd) {
		return m
	}
	for i := range m {
		if MonthOverlaps(lease, year, time.Month(i+1)) {
			m[i] = lease.MonthlyRent
		}
	}
	return m
}

// ReconstructYear sums lease contributions for the year. Leases are assumed to
// be valid.
//
// Overlapping leases on one property are both summed and reported through an
// overlapping_leases warning. Whether that double count should stand (separate
// co-tenancy contracts) is pending product clarification.
func ReconstructYear(leases []model.Lease, year int) Result {
	result := Result{Year: year}
	byProperty := make(map[string]*PropertyIncome)

	for _, lease := range leases {
		contribution := LeaseIncome(lease, year)

		p, ok := byProperty[lease.PropertyID]
		if !ok {
			p = &PropertyIncome{PropertyID: lease.PropertyID}
			byProperty[lease.PropertyID] = p
		}
		p.Leases++
		for i, amount := range contribution {
			if amount == 0 {
				continue
			}
			p.Monthly[i] = mathutil.Sum(p.Monthly[i], amount)
			result.Monthly[i] = mathutil.Sum(result.Monthly[i], amount)
		}
	}

	ids := make([]string, 0, len(byProperty))
	for id := range byProperty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result.Properties = make([]PropertyIncome, 0, len(ids))
	for _, id := range ids {
		p := byProperty[id]
		p.Annual = p.Monthly.Total()
		result.Properties = append(result.Properties, *p)
	}
	result.Total = result.Monthly.Total()
	result.Warnings = DetectOverlaps(leases, year)

	return result
}

// DetectOverlaps returns one warning per pair of leases on the same property
// whose intervals intersect within the year.
func DetectOverlaps(leases []model.Lease, year int) []validation.Warning {
	yearStart, yearEnd := datetime.YearBounds(year)

	byProperty := make(map[string][]model.Lease)
	var order []string
	for _, lease := range leases {
		if _, ok := byProperty[lease.PropertyID]; !ok {
			order = append(order, lease.PropertyID)
		}
		byProperty[lease.PropertyID] = append(byProperty[lease.PropertyID], lease)
	}
	sort.Strings(order)

	var warnings []validation.Warning
	for _, id := range order {
		group := byProperty[id]
		sort.SliceStable(group, func(i, j int) bool { return group[i].StartDate.Before(group[j].StartDate) })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				// b starts no earlier than a, so the intersection is [b.StartDate, end).
				end := earliestEnd(a.EndDate, b.EndDate)
				if end != nil && !end.After(b.StartDate) {
					continue
				}
				if !datetime.Overlaps(b.StartDate, end, yearStart, yearEnd) {
					continue
				}
				warnings = append(warnings, validation.Warning{
					Kind:       validation.OverlappingLeases,
					PropertyID: id,
					Message: fmt.Sprintf("leases starting %s and %s overlap in %d; both are counted",
						a.StartDate.Format(constants.DateLayout), b.StartDate.Format(constants.DateLayout), year),
				})
			}
		}
	}
	return warnings
}

func earliestEnd(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Before(*b):
		return a
	default:
		return b
	}
}

// Reconstructor validates leases before reconstructing income and logs what
// it did.
type Reconstructor struct {
	logger *zap.Logger
}

// NewReconstructor creates a reconstructor. A nil logger disables logging.
func NewReconstructor(logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{logger: logger}
}

// Reconstruct validates every lease and returns the income for the year.
func (r *Reconstructor) Reconstruct(leases []model.Lease, year int) (Result, error) {
	if year <= 0 {
		return Result{}, validation.Invalidf("fiscal year must be positive, got %d", year)
	}
	for i, lease := range leases {
		if err := lease.Validate(); err != nil {
			return Result{}, fmt.Errorf("lease %d: %w", i, err)
		}
	}

	result := ReconstructYear(leases, year)

	for _, w := range result.Warnings {
		r.logger.Warn(w.Message,
			zap.String("op", "income.Reconstruct"),
			zap.String("property", w.PropertyID),
		)
	}
	r.logger.Debug(fmt.Sprintf("reconstructed %d income from %d leases", year, len(leases)),
		zap.String("op", "income.Reconstruct"),
		zap.Int("properties", len(result.Properties)),
		zap.Float64("total", result.Total),
	)

	return result, nil
}
